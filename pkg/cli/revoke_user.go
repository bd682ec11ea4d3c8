package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
	"github.com/platinummonkey/bastion/pkg/revocation"
)

func newRevokeUserCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "revoke-user",
		Description: "Revoke every access and refresh token of a user",
		Flags:       flag.NewFlagSet("revoke-user", flag.ExitOnError),
	}
	cmd.Flags.Int64("id", 0, "User id")
	cmd.Flags.String("username", "", "Username, used when id is not set")
	cmd.Run = func(args []string) error {
		return runRevokeUser(env, args)
	}
	return cmd
}

func runRevokeUser(env *Env, args []string) error {
	flags := flag.NewFlagSet("revoke-user", flag.ContinueOnError)
	id := flags.Int64("id", 0, "User id")
	username := flags.String("username", "", "Username, used when id is not set")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *id <= 0 && *username == "" {
		return fmt.Errorf("id or username is required")
	}

	ctx := context.Background()
	cfg, db, err := env.database(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	users := auth.NewSQLUserStore(db)
	userID := *id
	if userID <= 0 {
		user, err := users.GetUserByUsername(ctx, *username)
		if err != nil {
			return fmt.Errorf("failed to find user %q: %w", *username, err)
		}
		userID = user.ID
	}

	client, err := env.OpenRedis(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open redis: %w", err)
	}
	defer client.Close()

	issuer, err := auth.NewIssuer([]byte(cfg.Auth.JWTSecret),
		auth.WithIssuerName(cfg.Auth.Issuer),
		auth.WithTTL(cfg.Auth.AccessTTL),
	)
	if err != nil {
		return err
	}

	registry := revocation.NewRegistry(client, cfg.Auth.AccessTTL, revocation.WithKeyPrefix(cfg.Redis.KeyPrefix))
	tracked, err := registry.Tracked(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke failed: %w", err)
	}

	roles := rbac.NewStore(db)
	svc := auth.NewService(
		users,
		rbac.NewResolver(roles, resource.NewStore(db, cfg.RBAC.MaxDepth)),
		issuer,
		auth.NewRefreshTokens(auth.NewSQLRefreshStore(db), cfg.Auth.RefreshTTL, nil),
		registry,
		auth.WithLogger(env.Logger),
	)

	if err := svc.Logout(ctx, userID, ""); err != nil {
		return fmt.Errorf("revoke failed: %w", err)
	}

	env.printf("Revoked all sessions of user %d (%d access token(s) denylisted)\n", userID, tracked)
	return nil
}
