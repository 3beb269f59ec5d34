package deploy

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0glabs/curvedeploy/lib"
	"github.com/0glabs/curvedeploy/lib/chaintest"
)

const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestExecuteMissingArtifact(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{
		"deploy",
		"--rpc-url", "http://127.0.0.1:1",
		"--private-key", devKey,
		"--artifacts-dir", t.TempDir(),
		"--log-format", "json",
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "factory: artifact not found: Project")
}

func TestExecuteMissingKey(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--artifacts-dir", t.TempDir()}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "private_key is required")
}

func TestExecuteKeyFromEnv(t *testing.T) {
	t.Setenv("CURVE_PRIVATE_KEY", devKey)
	t.Setenv("CURVE_RPC_URL", "http://127.0.0.1:1")

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--artifacts-dir", t.TempDir()}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.NotContains(t, stderr.String(), "private_key is required")
	assert.Contains(t, stderr.String(), "artifact not found")
}

func TestExecuteBadConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--config", "/nonexistent/deploy.yaml"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to read config file")
}

func TestExecuteRejectsArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"deploy", "extra"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
}

func TestExecuteHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "--base-price")
}

type simulatedClient struct {
	*chaintest.AutoCommitClient
}

func (simulatedClient) Close() {}

func TestExecuteDeploysOnSimulatedChain(t *testing.T) {
	chain := chaintest.New(t)
	artifacts := t.TempDir()
	chaintest.WriteHardhatArtifact(t, artifacts, "Project", chaintest.SaleABI, chaintest.SaleBytecode)
	records := t.TempDir()

	var dialed string
	dial := func(_ context.Context, rpcUrl string) (lib.Client, error) {
		dialed = rpcUrl
		return simulatedClient{chain.Client}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	code := ExecuteWith(ctx, dial, []string{
		"deploy",
		"--private-key", chain.KeyHex(),
		"--artifacts-dir", artifacts,
		"--record-dir", records,
		"--log-format", "json",
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "http://127.0.0.1:8545", dialed)
	assert.Regexp(t, `^Dynamic Bonding Curve Token Sale contract deployed to: 0x[0-9a-fA-F]{40}\n$`, stdout.String())

	files, err := filepath.Glob(filepath.Join(records, "Project-1337-*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestExecuteRecordFailureExitsWithoutAddress(t *testing.T) {
	chain := chaintest.New(t)
	artifacts := t.TempDir()
	chaintest.WriteHardhatArtifact(t, artifacts, "Project", chaintest.SaleABI, chaintest.SaleBytecode)
	blocker := filepath.Join(t.TempDir(), "records")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	dial := func(context.Context, string) (lib.Client, error) {
		return simulatedClient{chain.Client}, nil
	}

	var stdout, stderr bytes.Buffer
	code := ExecuteWith(context.Background(), dial, []string{
		"--private-key", chain.KeyHex(),
		"--artifacts-dir", artifacts,
		"--record-dir", blocker,
		"--log-format", "json",
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "record: ")
}
