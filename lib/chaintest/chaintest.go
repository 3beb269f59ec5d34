// Package chaintest provides an in-process chain and sample artifacts for
// tests that need to deploy contracts.
package chaintest

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"

	"github.com/0glabs/curvedeploy/lib/account"
)

// SaleABI mirrors the bonding curve sale constructor. The view methods let
// tests exercise read-back verification.
const SaleABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"basePrice","type":"uint256","internalType":"uint256"},
		{"name":"slope","type":"uint256","internalType":"uint256"}]},
	{"type":"function","name":"basePrice","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
	{"type":"function","name":"slope","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]}
]`

// SaleBytecode copies a 10 byte runtime that returns 42 for every call.
// Appended constructor arguments are ignored by the init code.
const SaleBytecode = "0x600a600c600039600a6000f3602a60005260206000f3"

// RevertBytecode reverts in the constructor.
const RevertBytecode = "0x60006000fd"

// Chain is a simulated chain with one funded account.
type Chain struct {
	Backend *simulated.Backend
	Client  *AutoCommitClient
	Account *account.Account
}

// AutoCommitClient mines a block after every submitted transaction so
// confirmation waits return without a separate miner.
type AutoCommitClient struct {
	simulated.Client
	backend *simulated.Backend
}

func (c *AutoCommitClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	c.backend.Commit()
	return nil
}

// New starts a simulated chain that is closed when the test ends.
func New(t testing.TB) *Chain {
	t.Helper()

	acc, err := account.Generate()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	balance := new(big.Int).Mul(big.NewInt(1000000000000000000), big.NewInt(100)) // 100 Eth
	backend := simulated.NewBackend(types.GenesisAlloc{
		acc.Address: {Balance: balance},
	})
	t.Cleanup(func() { backend.Close() })

	return &Chain{
		Backend: backend,
		Client:  &AutoCommitClient{Client: backend.Client(), backend: backend},
		Account: acc,
	}
}

// KeyHex returns the funded account's private key as hex without 0x.
func (c *Chain) KeyHex() string {
	return common.Bytes2Hex(crypto.FromECDSA(c.Account.PrivateKey))
}

// WriteHardhatArtifact lays out <dir>/contracts/<name>.sol/<name>.json the way
// hardhat compile does and returns the file path.
func WriteHardhatArtifact(t testing.TB, dir, name, abiJSON, bytecode string) string {
	t.Helper()

	sourceDir := filepath.Join(dir, "contracts", name+".sol")
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	doc := map[string]any{
		"_format":          "hh-sol-artifact-1",
		"contractName":     name,
		"sourceName":       "contracts/" + name + ".sol",
		"abi":              json.RawMessage(abiJSON),
		"bytecode":         bytecode,
		"deployedBytecode": "0x",
		"linkReferences":   map[string]any{},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}

	path := filepath.Join(sourceDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	dbg := filepath.Join(sourceDir, name+".dbg.json")
	if err := os.WriteFile(dbg, []byte(`{"_format":"hh-sol-dbg-1","buildInfo":"../../build-info/x.json"}`), 0o644); err != nil {
		t.Fatalf("write dbg: %v", err)
	}
	return path
}
