package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/bastion/pkg/seed"
)

func newSeedCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "seed",
		Description: "Load menus, departments, roles and users from a YAML file",
		Flags:       flag.NewFlagSet("seed", flag.ExitOnError),
	}
	cmd.Flags.String("file", "", "Seed file (required)")
	cmd.Flags.Bool("dry-run", false, "Validate the file without writing")
	cmd.Run = func(args []string) error {
		return runSeed(env, args)
	}
	return cmd
}

func runSeed(env *Env, args []string) error {
	flags := flag.NewFlagSet("seed", flag.ContinueOnError)
	file := flags.String("file", "", "Seed file (required)")
	dryRun := flags.Bool("dry-run", false, "Validate the file without writing")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *file == "" {
		return fmt.Errorf("file is required")
	}

	s, err := seed.Load(*file)
	if err != nil {
		return err
	}

	if *dryRun {
		if errs := s.Validate(); len(errs) > 0 {
			for _, e := range errs {
				env.printf("  %s\n", e.Error())
			}
			return fmt.Errorf("seed file has %d problem(s)", len(errs))
		}
		env.printf("Seed file is valid: %d menus, %d departments, %d roles, %d users\n",
			len(s.Menus), len(s.Depts), len(s.Roles), len(s.Users))
		return nil
	}

	ctx := context.Background()
	_, db, err := env.database(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := seed.NewApplier(db, env.Logger).Apply(ctx, s)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	env.printf("Created %d menus, %d departments, %d roles, %d users; ensured %d assignments\n",
		result.MenusCreated, result.DeptsCreated, result.RolesCreated, result.UsersCreated, result.Assignments)
	return nil
}
