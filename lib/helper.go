package lib

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/0glabs/curvedeploy/lib/account"
	"github.com/0glabs/curvedeploy/lib/artifact"
	"github.com/0glabs/curvedeploy/lib/config"
	"github.com/0glabs/curvedeploy/lib/deployer"
	"github.com/0glabs/curvedeploy/lib/record"
	"github.com/0glabs/curvedeploy/lib/units"
)

// Client is a chain connection the deployer can sign and wait through.
type Client interface {
	deployer.Backend
	Close()
}

// Dialer connects to the node serving rpcUrl.
type Dialer func(ctx context.Context, rpcUrl string) (Client, error)

// Dial connects over JSON-RPC.
func Dial(ctx context.Context, rpcUrl string) (Client, error) {
	client, err := getClient(ctx, rpcUrl)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Run performs one deployment described by settings.
func Run(ctx context.Context, settings *config.Settings, out io.Writer, logger *slog.Logger) error {
	return RunWith(ctx, Dial, settings, out, logger)
}

// RunWith is Run with the chain connection opened by dial.
func RunWith(ctx context.Context, dial Dialer, settings *config.Settings, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := settings.Validate(); err != nil {
		return stageErr(StageParams, err)
	}

	client, err := dial(ctx, settings.RpcUrl)
	if err != nil {
		return stageErr(StageDeploy, err)
	}
	defer client.Close()

	d, err := PrepareDeployer(client, settings, logger)
	if err != nil {
		return stageErr(StageParams, err)
	}

	sale := &Sale{
		Registry: artifact.NewRegistry(settings.ArtifactsDir),
		Deployer: d,
		Out:      out,
		Logger:   logger,
	}
	if settings.RecordDir != "" {
		sale.Store = record.NewStore(settings.RecordDir)
	}

	ctx, cancel := context.WithTimeout(ctx, settings.ConfirmTimeout)
	defer cancel()

	_, err = sale.DeploySale(ctx, SaleParams{
		Contract:  settings.Contract,
		BasePrice: settings.BasePrice,
		Slope:     settings.Slope,
		Verify:    settings.Verify,
	})
	return err
}

// PrepareDeployer builds a deployer signing with the configured key.
func PrepareDeployer(backend deployer.Backend, settings *config.Settings, logger *slog.Logger) (*deployer.Deployer, error) {
	from, err := account.FromHex(settings.PrivateKey)
	if err != nil {
		return nil, err
	}

	opts := deployer.Options{
		ChainID:  settings.ChainID,
		GasLimit: settings.GasLimit,
	}
	if settings.GasPriceBump != "" {
		bump, err := units.GweiToWei(settings.GasPriceBump)
		if err != nil {
			return nil, fmt.Errorf("gas price bump: %w", err)
		}
		opts.GasPriceBump = bump
	}

	logger.Info("deployer account", "address", from.Address.Hex(), "chain_id", chainIDString(settings.ChainID))
	return deployer.New(backend, from, opts, logger), nil
}

func getClient(ctx context.Context, rpcUrl string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcUrl, err)
	}
	return client, nil
}

func chainIDString(id *big.Int) string {
	if id == nil {
		return "auto"
	}
	return id.String()
}
