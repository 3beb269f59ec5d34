package deploy

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/0glabs/curvedeploy/lib"
	"github.com/0glabs/curvedeploy/lib/config"
	"github.com/0glabs/curvedeploy/lib/obs"
)

// Execute runs the CLI and returns the process exit status: 0 on success,
// 1 on any failure. The error is written to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return ExecuteWith(ctx, lib.Dial, args, stdout, stderr)
}

// ExecuteWith is Execute with the chain connection opened by dial.
func ExecuteWith(ctx context.Context, dial lib.Dialer, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(viper.New(), dial)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// NewRootCommand builds "curve-deploy". Running it bare is the same as
// "curve-deploy deploy".
func NewRootCommand(v *viper.Viper, dial lib.Dialer) *cobra.Command {
	root := &cobra.Command{
		Use:           "curve-deploy",
		Short:         "Deploy the dynamic bonding curve token sale contract",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, v, dial)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file with an optional networks map")
	flags.String("network", "", "network entry from the config file")
	flags.String("rpc-url", "", "JSON-RPC endpoint (default "+config.DefaultRpcUrl+")")
	flags.Int64("chain-id", 0, "expected chain id, 0 asks the node")
	flags.String("private-key", "", "deployer private key hex")
	flags.String("artifacts-dir", config.DefaultArtifactsDir, "compiled artifacts root (hardhat artifacts/ or foundry out/)")
	flags.String("contract", config.DefaultContract, "contract name or fully qualified name")
	flags.String("base-price", config.DefaultBasePrice, "base price in ether")
	flags.String("slope", config.DefaultSlope, "price slope in ether")
	flags.Duration("confirm-timeout", config.DefaultConfirmTimeout, "how long to wait for the deployment to be mined")
	flags.Uint64("gas-limit", 0, "creation gas limit, 0 estimates")
	flags.String("gas-price-bump", "", "gwei added to the suggested gas price on legacy chains")
	flags.Bool("verify", false, "read constructor arguments back after deployment")
	flags.String("record-dir", "", "directory for deployment records")
	flags.String("log-level", config.DefaultLogLevel, "debug, info, warn or error")
	flags.String("log-format", config.DefaultLogFormat, "auto, text or json")

	bindings := map[string]string{
		config.ConfigFile:     "config",
		config.Network:        "network",
		config.RpcUrl:         "rpc-url",
		config.ChainId:        "chain-id",
		config.PrivateKey:     "private-key",
		config.ArtifactsDir:   "artifacts-dir",
		config.Contract:       "contract",
		config.BasePrice:      "base-price",
		config.Slope:          "slope",
		config.ConfirmTimeout: "confirm-timeout",
		config.GasLimit:       "gas-limit",
		config.GasPriceBump:   "gas-price-bump",
		config.Verify:         "verify",
		config.RecordDir:      "record-dir",
		config.LogLevel:       "log-level",
		config.LogFormat:      "log-format",
	}
	for key, flag := range bindings {
		// only fails for an unknown flag name
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	config.SetDefaults(v)

	root.AddCommand(&cobra.Command{
		Use:   "deploy",
		Short: "Deploy the sale contract and print its address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, v, dial)
		},
	})
	return root
}

// Run loads configuration from v and performs one deployment.
func Run(cmd *cobra.Command, v *viper.Viper, dial lib.Dialer) error {
	if err := config.ReadFile(v); err != nil {
		return err
	}
	settings, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := obs.NewLogger(cmd.ErrOrStderr(), settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}

	if err := lib.RunWith(cmd.Context(), dial, settings, cmd.OutOrStdout(), logger); err != nil {
		logger.Error("deployment failed", "err", err)
		return err
	}
	return nil
}
