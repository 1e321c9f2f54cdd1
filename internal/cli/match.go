package cli

import (
	"context"
	"time"

	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/spf13/cobra"
)

// now is replaced in tests.
var now = time.Now

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Record matches and browse history",
	}

	cmd.AddCommand(newMatchRecordCmd())
	cmd.AddCommand(newMatchHistoryCmd())

	return cmd
}

func newMatchRecordCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "record GAME PLAYER1 PLAYER2 WINNER",
		Short: "Append a match to the ledger",
		Long: `Append a match to the ledger. WINNER must be PLAYER1 or PLAYER2, and
every name must refer to an existing player or game. Matches cannot be
edited or removed once recorded.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			when := model.NormalizeDate(now())
			if date != "" {
				d, err := model.ParseDate(date)
				if err != nil {
					return err
				}
				when = d
			}

			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				rec, err := svc.RecordMatch(ctx, model.MatchInput{
					Game:      args[0],
					PlayerOne: args[1],
					PlayerTwo: args[2],
					Winner:    args[3],
					Date:      when,
				})
				if err != nil {
					return err
				}
				out.Print(rec)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Match date, YYYY-MM-DD or MM/DD/YYYY (default today)")

	return cmd
}

func newMatchHistoryCmd() *cobra.Command {
	var filter service.Filter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List matches grouped by game, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				history, err := svc.MatchHistory(ctx, filter)
				if err != nil {
					return err
				}
				out.Print(history)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.Player, "player", "", "Only matches involving this player")
	cmd.Flags().StringVar(&filter.Game, "game", "", "Only matches of this game")

	return cmd
}
