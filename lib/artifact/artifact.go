// Package artifact resolves compiled contract artifacts into deployable
// factories. It understands the Hardhat artifacts tree
// (artifacts/contracts/<File>.sol/<Name>.json) and the Foundry out tree
// (out/<File>.sol/<Name>.json).
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrNotFound      = errors.New("artifact not found")
	ErrAmbiguous     = errors.New("multiple artifacts match contract name")
	ErrNotDeployable = errors.New("artifact has no creation bytecode")
	ErrUnlinked      = errors.New("artifact bytecode has unlinked libraries")
)

// Factory is a deployable contract type: its ABI and creation bytecode.
type Factory struct {
	Name       string
	SourceName string
	ABI        abi.ABI
	Bytecode   []byte
}

// Registry looks up factories by contract name under an artifacts root.
type Registry struct {
	Dir string
}

func NewRegistry(dir string) *Registry {
	return &Registry{Dir: dir}
}

// Factory resolves a contract by bare name ("Project") or fully qualified
// name ("contracts/Project.sol:Project").
func (r *Registry) Factory(name string) (*Factory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty contract name", ErrNotFound)
	}

	if source, contract, ok := strings.Cut(name, ":"); ok {
		// hardhat keeps the source path, foundry only its base name
		source = filepath.FromSlash(source)
		for _, dir := range []string{source, filepath.Base(source)} {
			path := filepath.Join(r.Dir, dir, contract+".json")
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, err
			}
			return ReadFactory(path)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	matches, err := r.find(name)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, r.Dir)
	case 1:
		return ReadFactory(matches[0])
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrAmbiguous, name, strings.Join(matches, ", "))
	}
}

func (r *Registry) find(name string) ([]string, error) {
	want := name + ".json"
	var matches []string
	err := filepath.WalkDir(r.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// hardhat keeps build-info next to contracts; it never holds artifacts
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == want && strings.HasSuffix(filepath.Dir(path), ".sol") {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: artifacts directory %s does not exist", ErrNotFound, r.Dir)
		}
		return nil, err
	}
	return matches, nil
}

type artifactFile struct {
	ContractName   string          `json:"contractName"`
	SourceName     string          `json:"sourceName"`
	ABI            json.RawMessage `json:"abi"`
	Bytecode       json.RawMessage `json:"bytecode"`
	LinkReferences json.RawMessage `json:"linkReferences"`
}

// foundry nests bytecode as {"object": "0x..", "linkReferences": {..}}
type bytecodeObject struct {
	Object         string          `json:"object"`
	LinkReferences json.RawMessage `json:"linkReferences"`
}

// ReadFactory parses a single artifact file.
func ReadFactory(path string) (*Factory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact %s: %w", path, err)
	}

	parsedABI, err := abi.JSON(bytes.NewReader(file.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi in %s: %w", path, err)
	}

	code, links, err := decodeBytecodeField(file.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	if hasLinks(file.LinkReferences) || hasLinks(links) || strings.Contains(code, "__") {
		return nil, fmt.Errorf("%w: %s", ErrUnlinked, path)
	}

	bin, err := hexutil.Decode(normalizeHex(code))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: invalid bytecode: %w", path, err)
	}
	if len(bin) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotDeployable, path)
	}

	name := file.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return &Factory{
		Name:       name,
		SourceName: file.SourceName,
		ABI:        parsedABI,
		Bytecode:   bin,
	}, nil
}

func decodeBytecodeField(raw json.RawMessage) (string, json.RawMessage, error) {
	if len(raw) == 0 {
		return "", nil, ErrNotDeployable
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil, nil
	}
	var obj bytecodeObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, fmt.Errorf("unrecognised bytecode field: %w", err)
	}
	return obj.Object, obj.LinkReferences, nil
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return s
}

func hasLinks(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var refs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &refs); err != nil {
		return false
	}
	return len(refs) > 0
}
