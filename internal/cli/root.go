// Package cli implements the grudge command tree.
package cli

import (
	"context"

	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/config"
	"github.com/okian/grudgematch/pkg/logger"
	"github.com/okian/grudgematch/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	configPath string
)

// flagValues holds persistent flags that override loaded configuration.
type flagValues struct {
	dataDir  string
	output   string
	logLevel string
	noBackup bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = config.New()
	configPath = ""
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:   "grudge",
		Short: "Keep score of who beat whom",
		Long: `grudge records head-to-head matches between players across games.

Players and games are created and retired with the player and game commands,
matches are appended to an immutable ledger with match record, and standings
are derived from that ledger on every query. The rebuild command reconstructs
entities and the persisted standings from the ledger alone.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, loaded, &flags)
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded

			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
				return err
			}
			return logger.SetLevelString(cfg.LogLevel)
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (env: GRUDGE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", cfg.DataDir, "Data directory (env: GRUDGE_DATA_DIR)")
	rootCmd.PersistentFlags().StringVarP(&flags.output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flags.noBackup, "no-backup", false, "Do not refresh store backups on open")

	// Add subcommands
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newRankCmd())
	rootCmd.AddCommand(newRebuildCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newRecordsCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, c *config.Config, flags *flagValues) {
	fs := cmd.Flags()
	if fs.Changed("data-dir") {
		c.DataDir = flags.dataDir
	}
	if fs.Changed("output") {
		c.Output = flags.output
	}
	if fs.Changed("log-level") {
		c.LogLevel = flags.logLevel
	}
	if fs.Changed("no-backup") {
		c.BackupOnOpen = !flags.noBackup
	}
}

// run opens the service on the configured data directory, hands it to fn
// and closes it again. The metrics textfile is written even when fn fails.
func run(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service, out *Output) error) error {
	ctx := cmd.Context()
	svc := service.New(
		service.WithDataDir(cfg.DataDir),
		service.WithBackupOnOpen(cfg.BackupOnOpen),
		service.WithLogger(logger.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()
	defer writeMetrics(ctx)

	return fn(ctx, svc, NewOutput(cfg.Output, cmd.OutOrStdout()))
}

func writeMetrics(ctx context.Context) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Get().Warn(ctx, "failed to write metrics textfile",
			logger.String("path", cfg.MetricsTextfile),
			logger.Error(err))
	}
}
