package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/stockroom/internal/handler"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/router"
	"github.com/deppfellow/stockroom/internal/server"
	"github.com/deppfellow/stockroom/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrate {
				if err := runMigrate(cmd.Context()); err != nil {
					return err
				}
			}
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, log, loggerService, err := bootstrap()
	if err != nil {
		return err
	}
	defer loggerService.Shutdown()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, log, loggerService)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		return err
	}

	repos, err := repository.NewRepositories(srv)
	if err != nil {
		return errors.Join(err, srv.Shutdown(context.Background()))
	}

	services, err := service.NewService(srv, repos)
	if err != nil {
		return errors.Join(err, srv.Shutdown(context.Background()))
	}

	srv.SetupHTTPServer(router.NewRouter(srv, handler.NewHandlers(srv, services)))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err = <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("graceful shutdown failed")
		return errors.Join(err, shutdownErr)
	}

	log.Info().
		Interface("pool", srv.DB.Stat()).
		Msg("server stopped")

	return err
}
