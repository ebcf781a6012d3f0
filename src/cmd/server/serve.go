package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/controller"
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/router"
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/postgres"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/api-sage/ledger-workflow-engine/src/migrations"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recurring scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if migrate {
				if err := postgres.RunMigrations(ctx, a.db, migrations.Files); err != nil {
					return err
				}
			}
			if err := a.seedTemplates(ctx); err != nil {
				return err
			}

			return serve(ctx, a)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	auth := middleware.Chain(
		middleware.BasicAuth(middleware.ChannelCredentials{
			ID:      a.cfg.ChannelID,
			Key:     a.cfg.ChannelKey,
			KeyHash: a.cfg.ChannelKeyHash,
		}),
		middleware.Principal,
	)

	mux := router.New(a.db.PingContext, auth,
		controller.NewDocumentController(a.documents),
		controller.NewApprovalController(a.approvals),
		controller.NewAccountController(a.accounts),
		controller.NewLedgerController(a.posting, a.ledger),
		controller.NewRecurringController(a.recurring, a.scheduler),
		controller.NewBudgetController(a.budgets),
	)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", logger.Fields{"addr": a.cfg.HTTPAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("http server shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.SchedulerEnabled {
		g.Go(func() error {
			return a.scheduler.Run(gctx)
		})
	}

	return g.Wait()
}
