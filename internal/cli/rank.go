package cli

import (
	"context"

	service "github.com/okian/grudgematch/internal/app"
	"github.com/spf13/cobra"
)

func newRankCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show standings",
	}

	players := &cobra.Command{
		Use:   "players",
		Short: "Rank players by win/loss ratio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				ranked, err := svc.RankPlayers(ctx, !all)
				if err != nil {
					return err
				}
				out.Print(ranked)
				return nil
			})
		},
	}

	games := &cobra.Command{
		Use:   "games",
		Short: "Rank games by matches played",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				ranked, err := svc.RankGames(ctx, !all)
				if err != nil {
					return err
				}
				out.Print(ranked)
				return nil
			})
		},
	}

	cmd.PersistentFlags().BoolVarP(&all, "all", "a", false, "Include inactive entries")
	cmd.AddCommand(players, games)

	return cmd
}
