// Package record persists one JSON file per confirmed deployment.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Record describes a deployed contract instance.
type Record struct {
	ID              uuid.UUID         `json:"id"`
	Contract        string            `json:"contract"`
	Address         common.Address    `json:"address"`
	TxHash          common.Hash       `json:"tx_hash"`
	BlockNumber     uint64            `json:"block_number"`
	ChainID         string            `json:"chain_id"`
	Deployer        common.Address    `json:"deployer"`
	ConstructorArgs map[string]string `json:"constructor_args"`
	DeployedAt      time.Time         `json:"deployed_at"`
}

type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Persist assigns the record an id and timestamp when missing and writes it
// to <dir>/<contract>-<chain>-<id>.json. Existing files are never replaced.
func (s *Store) Persist(r *Record) (string, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.DeployedAt.IsZero() {
		r.DeployedAt = s.now().UTC()
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s-%s.json", r.Contract, r.ChainID, r.ID)
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}
	return path, f.Close()
}
