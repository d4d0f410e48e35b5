package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/lib/password"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/validation"
	"github.com/spf13/cobra"
)

// createUserCmd seeds an account without going through the HTTP API, which
// needs an existing session to create users.
func createUserCmd() *cobra.Command {
	var (
		username  string
		plaintext string
		roleID    int64
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account directly in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runCreateUser(ctx, username, plaintext, roleID)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name (required)")
	cmd.Flags().StringVar(&plaintext, "password", "", "initial password (required)")
	cmd.Flags().Int64Var(&roleID, "role", 1, "role id")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runCreateUser(ctx context.Context, username, plaintext string, roleID int64) error {
	if problem := validation.PasswordProblem(plaintext); problem != "" {
		return fmt.Errorf("password %s", problem)
	}

	cfg, log, loggerService, err := bootstrap()
	if err != nil {
		return err
	}
	defer loggerService.Shutdown()

	opts, err := database.OptionsFromConfig(cfg.Database)
	if err != nil {
		return err
	}

	pool := database.NewPool(opts, database.NewPgxDialer(cfg, log, loggerService), log)
	if err := pool.Initialize(ctx); err != nil {
		return err
	}
	defer pool.Close()

	store, err := repository.NewCredentialStore(database.NewExecutor(pool), password.NewHasher(cfg.Auth.BcryptCost))
	if err != nil {
		return err
	}

	id, err := store.Register(ctx, username, plaintext, roleID)
	if errors.Is(err, repository.ErrDuplicateCredential) {
		return fmt.Errorf("username %q is already taken", username)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int64("user_id", id).
		Str("username", username).
		Int64("role_id", roleID).
		Msg("user created")
	return nil
}
