package cli

import (
	"context"
	"fmt"

	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/naming"
	"github.com/spf13/cobra"
)

// entityOps binds the kind specific service calls shared by the player and
// game command groups.
type entityOps struct {
	kind       model.Kind
	add        func(*service.Service, context.Context, string) (model.Entity, error)
	activate   func(*service.Service, context.Context, string) (model.Entity, error)
	deactivate func(*service.Service, context.Context, string) (model.Entity, error)
	list       func(*service.Service, context.Context, bool) ([]model.Entity, error)
	validate   func(*service.Service, context.Context, string) (naming.Code, error)
	show       func(context.Context, *service.Service, string) (any, error)
}

var playerOps = entityOps{
	kind:       model.KindPlayer,
	add:        (*service.Service).AddPlayer,
	activate:   (*service.Service).ActivatePlayer,
	deactivate: (*service.Service).DeactivatePlayer,
	list:       (*service.Service).ListPlayers,
	validate:   (*service.Service).ValidatePlayerName,
	show: func(ctx context.Context, svc *service.Service, name string) (any, error) {
		p, err := svc.Player(ctx, name)
		if err != nil {
			return nil, err
		}
		stats, err := svc.PlayerStats(ctx, name)
		if err != nil {
			return nil, err
		}
		return playerDetail{Entity: p, Stats: stats}, nil
	},
}

var gameOps = entityOps{
	kind:       model.KindGame,
	add:        (*service.Service).AddGame,
	activate:   (*service.Service).ActivateGame,
	deactivate: (*service.Service).DeactivateGame,
	list:       (*service.Service).ListGames,
	validate:   (*service.Service).ValidateGameName,
	show: func(ctx context.Context, svc *service.Service, name string) (any, error) {
		g, err := svc.Game(ctx, name)
		if err != nil {
			return nil, err
		}
		stats, err := svc.GameStats(ctx, name)
		if err != nil {
			return nil, err
		}
		return gameDetail{Entity: g, Stats: stats}, nil
	},
}

// entitySubcommands returns the add, activate, deactivate, list, show and
// validate commands for one kind.
func entitySubcommands(ops entityOps) []*cobra.Command {
	return []*cobra.Command{
		newEntityAddCmd(ops),
		newEntityStateCmd(ops, "activate", "Return a %s to the active lists", ops.activate),
		newEntityStateCmd(ops, "deactivate", "Hide a %s from the active lists, keeping its history", ops.deactivate),
		newEntityListCmd(ops),
		newEntityShowCmd(ops),
		newEntityValidateCmd(ops),
	}
}

func newEntityAddCmd(ops entityOps) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME",
		Short: fmt.Sprintf("Add a new %s", ops.kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				e, err := ops.add(svc, ctx, args[0])
				if err != nil {
					return err
				}
				out.Print([]model.Entity{e})
				return nil
			})
		},
	}
}

func newEntityStateCmd(ops entityOps, use, short string,
	apply func(*service.Service, context.Context, string) (model.Entity, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: fmt.Sprintf(short, ops.kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				e, err := apply(svc, ctx, args[0])
				if err != nil {
					return err
				}
				out.Print([]model.Entity{e})
				return nil
			})
		},
	}
}

func newEntityListCmd(ops entityOps) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss by name", ops.kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				entities, err := ops.list(svc, ctx, !all)
				if err != nil {
					return err
				}
				out.Print(entities)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include inactive entries")

	return cmd
}

func newEntityShowCmd(ops entityOps) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: fmt.Sprintf("Show a %s with its derived stats", ops.kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				detail, err := ops.show(ctx, svc, args[0])
				if err != nil {
					return err
				}
				out.Print(detail)
				return nil
			})
		},
	}
}

func newEntityValidateCmd(ops entityOps) *cobra.Command {
	return &cobra.Command{
		Use:   "validate NAME",
		Short: fmt.Sprintf("Check whether NAME may be used for a new %s", ops.kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *service.Service, out *Output) error {
				code, err := ops.validate(svc, ctx, args[0])
				if err != nil {
					return err
				}
				out.Print(nameCheck{
					Kind:  ops.kind,
					Name:  args[0],
					Valid: code == naming.Valid,
					Code:  code.String(),
				})
				return nil
			})
		},
	}
}
