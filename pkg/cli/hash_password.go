package cli

import (
	"bufio"
	"flag"
	"fmt"
	"strings"

	"github.com/platinummonkey/bastion/pkg/auth"
)

func newHashPasswordCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "hash-password",
		Description: "Print the bcrypt hash of a password",
		Flags:       flag.NewFlagSet("hash-password", flag.ExitOnError),
	}
	cmd.Flags.String("password", "", "Password to hash (read from stdin when empty)")
	cmd.Run = func(args []string) error {
		return runHashPassword(env, args)
	}
	return cmd
}

func runHashPassword(env *Env, args []string) error {
	flags := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	password := flags.String("password", "", "Password to hash (read from stdin when empty)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	value := *password
	if value == "" {
		scanner := bufio.NewScanner(env.In)
		if scanner.Scan() {
			value = strings.TrimRight(scanner.Text(), "\r")
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if value == "" {
		return fmt.Errorf("password is required")
	}

	hash, err := auth.HashPassword(value)
	if err != nil {
		return err
	}
	env.printf("%s\n", hash)
	return nil
}
