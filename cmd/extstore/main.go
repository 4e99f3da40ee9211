// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-extstore.
//
// go-extstore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-extstore/pkg/cli"
	"github.com/jeremyhahn/go-extstore/pkg/version"
)

var (
	cfgFile      string
	viperConfig  *viper.Viper
	globalConfig *cli.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var r reportedError
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// reportedError marks an error already printed in the output format.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

var rootCmd = &cobra.Command{
	Use:   "extstore",
	Short: "A CLI tool for external storage credentials and objects",
	Long: `extstore manages named credentials for external storage endpoints and
moves objects to and from them.

Supported Storage Types:
  - AWSS3  : S3-compatible endpoints (AWS S3, MinIO)
  - memory : In-process store for testing

Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (EXTSTORE_*, plus QGIS_MINIO_HOST / QGIS_MINIO_PORT)
  - Configuration file (~/.extstore.yaml or ./.extstore.yaml)
  - Default values (lowest priority)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		viperConfig, err = cli.InitConfig(cfgFile)
		if err != nil {
			return err
		}

		if err := viperConfig.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}

		globalConfig = cli.GetConfig(viperConfig)
		return nil
	},
}

func outputFormat() cli.OutputFormat {
	return cli.OutputFormat(globalConfig.OutputFormat)
}

// fail prints err in the configured format and returns it for cobra.
func fail(err error) error {
	fmt.Fprintln(os.Stderr, cli.FormatError(err, outputFormat()))
	return reportedError{err}
}

func openContext() (*cli.CommandContext, error) {
	ctx, err := cli.NewCommandContext(globalConfig)
	if err != nil {
		return nil, fail(err)
	}
	return ctx, nil
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored auth configs",
}

var authAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Store a named auth config",
	Long: `Validate and persist a named auth config. Settings are given as
repeated --set key=value flags. The config is rejected when a key its
storage type requires is missing or the name is already taken.`,
	Example: `  extstore auth add minio --type AWSS3 --set username=minioadmin --set password=minioadmin --set region=us-east-1
  extstore auth add scratch --type memory --set username=minioadmin --set password=minioadmin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storageType, _ := cmd.Flags().GetString("type") //nolint:errcheck // flags are validated by cobra
		pairs, _ := cmd.Flags().GetStringArray("set")   //nolint:errcheck // flags are validated by cobra

		settings, err := cli.ParseSettings(pairs)
		if err != nil {
			return fail(err)
		}

		ctx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		cfg, err := ctx.AuthAddCommand(args[0], storageType, settings)
		if err != nil {
			return fail(err)
		}

		fmt.Print(cli.FormatOperationResult(&cli.OperationResult{
			Success: true,
			Message: fmt.Sprintf("Stored auth config '%s' (handle %s)", cfg.Name, cfg.Handle()),
			Data:    map[string]string{"name": cfg.Name, "handle": cfg.Handle().String()},
		}, outputFormat()))
		return nil
	},
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored auth configs",
	Example: `  extstore auth list
  extstore auth list -o table`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		infos, err := ctx.AuthListCommand()
		if err != nil {
			return fail(err)
		}
		fmt.Print(cli.FormatAuthList(infos, outputFormat()))
		return nil
	},
}

var authCheckCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Check a stored auth config against its storage type",
	Example: `  extstore auth check minio`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		info, missing, err := ctx.AuthCheckCommand(args[0])
		if err != nil {
			return fail(err)
		}

		message := fmt.Sprintf("Auth config '%s' is valid", info.Name)
		if !info.Valid {
			message = fmt.Sprintf("Auth config '%s' is invalid, missing: %v", info.Name, missing)
		}
		fmt.Print(cli.FormatOperationResult(&cli.OperationResult{
			Success: info.Valid,
			Message: message,
			Data:    info,
		}, outputFormat()))
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <locator> [output-file]",
	Short: "Download an object",
	Long: `Download an object through the auth config named by --auth. The locator
is either a key relative to --bucket or an absolute http(s) URL.
If output-file is not specified or is '-', the content is written to stdout.`,
	Example: `  extstore fetch layers/roads.geojson --auth minio --bucket test-bucket
  extstore fetch layers/roads.geojson roads.geojson --auth minio --bucket test-bucket
  extstore fetch http://localhost:9000/test-bucket/roads.geojson - --auth minio --bucket test-bucket`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath := ""
		if len(args) > 1 {
			outputPath = args[1]
		}

		ctx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		n, err := ctx.FetchCommand(cmd.Context(), args[0], outputPath)
		if err != nil {
			return fail(err)
		}

		if outputPath != "" && outputPath != "-" {
			fmt.Print(cli.FormatOperationResult(&cli.OperationResult{
				Success: true,
				Message: fmt.Sprintf("Downloaded '%s' to '%s' (%s)", args[0], outputPath, cli.SizeMessage(n)),
			}, outputFormat()))
		}
		return nil
	},
}

var storeCmd = &cobra.Command{
	Use:   "store <source-file> <locator>",
	Short: "Upload an object",
	Long: `Upload a file through the auth config named by --auth.
Use '-' as the source-file to read from stdin.`,
	Example: `  extstore store roads.geojson layers/roads.geojson --auth minio --bucket test-bucket
  cat roads.geojson | extstore store - layers/roads.geojson --auth minio --bucket test-bucket`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		n, err := ctx.StoreCommand(cmd.Context(), args[0], args[1])
		if err != nil {
			return fail(err)
		}

		source := fmt.Sprintf("'%s'", args[0])
		if args[0] == "-" {
			source = "stdin"
		}
		fmt.Print(cli.FormatOperationResult(&cli.OperationResult{
			Success: true,
			Message: fmt.Sprintf("Uploaded %s as '%s' (%s)", source, args[1], cli.SizeMessage(n)),
		}, outputFormat()))
		return nil
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List available storage types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		fmt.Print(cli.FormatBackends(ctx.BackendsCommand(), outputFormat()))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	Long: `Serve the credential store and storage backends over HTTP until
interrupted. Object requests are signed with stored credentials and sent
to the endpoint named by --host and --port.

Set --token to require a bearer token on every /api route. Only then may
clients pick another endpoint with the host and port query parameters or
an absolute locator; without a token such requests are refused with 403.
Bind --listen to a loopback address when serving without a token.`,
	Example: `  extstore serve --listen :8080
  EXTSTORE_TOKEN=s3cret extstore serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := openContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := ctx.ServeCommand(sigCtx); err != nil {
			return fail(err)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Example: `  extstore config
  extstore config -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print(cli.DisplayConfig(globalConfig, globalConfig.OutputFormat))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.extstore.yaml)")
	flags.String("auth-file", "", "credential store file (default is $HOME/.extstore-auth.json)")
	flags.String("storage-type", "", "storage type override (default is the auth config's type)")
	flags.String("host", "localhost", "endpoint host")
	flags.Int("port", 80, "endpoint port")
	flags.String("bucket", "", "bucket name")
	flags.String("auth", "", "name of the stored auth config to use")
	flags.Duration("timeout", 0, "per-operation timeout (default 30s)")
	flags.StringP("output-format", "o", "text", "output format (text, json, table)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	serveCmd.Flags().String("listen", ":8080", "address the REST API listens on")
	serveCmd.Flags().String("token", "", "bearer token required by the REST API")
	serveCmd.Flags().String("tls-cert", "", "PEM certificate to serve HTTPS with")
	serveCmd.Flags().String("tls-key", "", "PEM private key for --tls-cert")
	serveCmd.Flags().String("tls-client-ca", "", "PEM CA bundle that client certificates must chain to")

	authAddCmd.Flags().String("type", "AWSS3", "storage type the config authenticates")
	authAddCmd.Flags().StringArray("set", nil, "config setting as key=value (repeatable)")

	authCmd.AddCommand(authAddCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authCheckCmd)

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
