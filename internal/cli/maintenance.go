package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/simulate"
	"github.com/spf13/cobra"
)

// ErrStandingsDrift reports a verify run that found differences.
var ErrStandingsDrift = errors.New("standings do not match the ledger")

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Reconstruct entities and standings from the ledger",
		Long: `Replay the ledger to restore any player or game it references that the
entity store lacks, then rewrite standings.json. Running it again without new
matches changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				report, err := svc.Rebuild(ctx)
				if err != nil {
					return err
				}
				out.Print(report)
				return nil
			})
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare the persisted standings with the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				report, err := svc.VerifyStandings(ctx)
				if err != nil {
					return err
				}
				out.Print(report)
				if report.Missing || !report.Consistent() {
					return ErrStandingsDrift
				}
				return nil
			})
		},
	}
}

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Exchange the ledger as CSV",
	}

	cmd.AddCommand(newRecordsExportCmd())
	cmd.AddCommand(newRecordsImportCmd())

	return cmd
}

func newRecordsExportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every match as date,game,p1,p2,win",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				if file == "" {
					_, err := svc.ExportRecords(ctx, cmd.OutOrStdout())
					return err
				}

				var buf bytes.Buffer
				n, err := svc.ExportRecords(ctx, &buf)
				if err != nil {
					return err
				}
				if err := atomic.WriteFile(file, &buf); err != nil {
					return fmt.Errorf("write %s: %w", file, err)
				}
				out.PrintMessage(fmt.Sprintf("Exported %d matches to %s", n, file))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Destination file (default stdout)")

	return cmd
}

func newRecordsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Append matches from a CSV file, adding unknown players and games",
		Long: `Append every row of a records file to the ledger. Use - to read stdin.
Unknown players and games are created first and must pass name validation.
The import stops at the first bad row; earlier rows stay recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				report, err := svc.ImportRecords(ctx, r)
				out.Print(report)
				return err
			})
		},
	}
}

func newSimulateCmd() *cobra.Command {
	config := simulate.NewConfig(1)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Fill an empty data directory with synthetic matches and check a rebuild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				report, err := simulate.Run(ctx, svc, config)
				if report != nil {
					out.Print(report)
				}
				return err
			})
		},
	}

	cmd.Flags().Uint64Var(&config.Seed, "seed", config.Seed, "Random seed")
	cmd.Flags().IntVar(&config.Players, "players", config.Players, "Number of players")
	cmd.Flags().IntVar(&config.Games, "games", config.Games, "Number of games")
	cmd.Flags().IntVar(&config.Matches, "matches", config.Matches, "Number of matches")
	cmd.Flags().IntVar(&config.Workers, "workers", config.Workers, "Concurrent match generators")

	return cmd
}
