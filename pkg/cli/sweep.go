package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/bastion/pkg/auth"
)

func newSweepCommand(env *Env) *Command {
	return &Command{
		Name:        "sweep",
		Description: "Delete expired refresh tokens",
		Flags:       flag.NewFlagSet("sweep", flag.ExitOnError),
		Run: func(args []string) error {
			return runSweep(env, args)
		},
	}
}

func runSweep(env *Env, args []string) error {
	flags := flag.NewFlagSet("sweep", flag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cfg, db, err := env.database(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens := auth.NewRefreshTokens(auth.NewSQLRefreshStore(db), cfg.Auth.RefreshTTL, nil)
	n, err := tokens.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	env.printf("Deleted %d expired refresh token(s)\n", n)
	return nil
}
