package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/bastion/pkg/storage/postgres"
)

func newMigrateCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Apply pending database migrations",
		Flags:       flag.NewFlagSet("migrate", flag.ExitOnError),
	}
	cmd.Flags.Bool("list", false, "List known migrations without applying them")
	cmd.Run = func(args []string) error {
		return runMigrate(env, args)
	}
	return cmd
}

func runMigrate(env *Env, args []string) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	list := flags.Bool("list", false, "List known migrations without applying them")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *list {
		for _, m := range postgres.GetMigrations() {
			env.printf("%3d  %s\n", m.Version, m.Description)
		}
		return nil
	}

	ctx := context.Background()
	_, db, err := env.database(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := postgres.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	env.printf("Applied %d migration(s)\n", applied)
	return nil
}
