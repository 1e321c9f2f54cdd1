package cli

import (
	"context"

	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game management commands",
	}

	cmd.AddCommand(entitySubcommands(gameOps)...)
	cmd.AddCommand(newGameInfoCmd())

	return cmd
}

func newGameInfoCmd() *cobra.Command {
	var info model.GameInfo

	cmd := &cobra.Command{
		Use:   "info NAME",
		Short: "Set the developer, platform and release year of a game",
		Long: `Replace the descriptive info of a game. Fields not given are cleared,
so running the command without flags removes the info.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				if _, err := svc.SetGameInfo(ctx, args[0], info); err != nil {
					return err
				}
				detail, err := gameOps.show(ctx, svc, args[0])
				if err != nil {
					return err
				}
				out.Print(detail)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&info.Developer, "developer", "", "Developer or publisher")
	cmd.Flags().StringVar(&info.Platform, "platform", "", "Platform")
	cmd.Flags().IntVar(&info.ReleaseYear, "year", 0, "Release year")

	return cmd
}
