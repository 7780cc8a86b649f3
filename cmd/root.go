package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string
var verbose bool

var rootCmd = &cobra.Command{
	Use:           "wisafe",
	Short:         "WiFi security audit service and client (for networks you own or are authorized to test)",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		if err := initConfig(v, cfgFile); err != nil {
			return err
		}
		bindFlag(v, "client.server", cmd.Flags(), "server")
		bindFlag(v, "data_dir", cmd.Flags(), "data-dir")

		cfg, err := loadConfig(v)
		if err != nil {
			return err
		}

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		logger := l.Sugar()
		logger.Debugw("configuration loaded", "config_file", v.ConfigFileUsed(), "data_dir", cfg.DataDir)

		storeAppContext(cmd, &AppContext{
			Logger: logger,
			Config: cfg,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	// Client commands print their own output on stdout.
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", colorError("✗"), describeError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wisafe.yaml)")
	rootCmd.PersistentFlags().String("server", defaultServerURL, "base URL of the WiSafe API server")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for scan history, session and network cache")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}
