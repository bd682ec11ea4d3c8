// Package cli provides the bastion-admin operator command-line interface.
//
// # Overview
//
// bastion-admin runs the maintenance tasks that have no HTTP surface: schema
// migrations, initial data, password hashes for hand-written seeds, refresh
// token cleanup and emergency session revocation. It reads the same BASTION_*
// environment variables as the server (see package config).
//
// # Commands
//
// migrate: Apply pending migrations, or list them
//
//	bastion-admin migrate
//	bastion-admin migrate -list
//
// seed: Load menus, departments, roles and users from YAML (see package seed)
//
//	bastion-admin seed -file ./seed.yaml
//	bastion-admin seed -file ./seed.yaml -dry-run
//
// hash-password: Print a bcrypt hash, reading stdin when -password is empty
//
//	echo -n 'hunter2' | bastion-admin hash-password
//
// sweep: Delete expired refresh tokens once, outside the server schedule
//
//	bastion-admin sweep
//
// revoke-user: Log a user out everywhere. Every tracked access token is
// denylisted and every refresh token is dropped.
//
//	bastion-admin revoke-user -id 42
//	bastion-admin revoke-user -username olivia
//
// # Testing
//
// Commands take an Env, so tests swap the database and Redis openers:
//
//	env := &cli.Env{Out: &buf, LoadConfig: ..., OpenDB: ..., OpenRedis: ...}
//	err := cli.NewRootCommand(env).ExecuteArgs([]string{"sweep"})
package cli
