package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/events"
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/lock"
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/postgres"
	"github.com/api-sage/ledger-workflow-engine/src/internal/config"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/api-sage/ledger-workflow-engine/src/internal/scheduler"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/redis/go-redis/v9"
)

const schedulerLockExpiry = 30 * time.Minute

// app holds the wired services shared by every command.
type app struct {
	cfg       config.Config
	db        *sql.DB
	publisher domain.EventPublisher
	closers   []func() error

	posting   *services.PostingService
	approvals *services.ApprovalService
	documents *services.DocumentService
	recurring *services.RecurringService
	ledger    *services.LedgerService
	accounts  *services.AccountService
	budgets   *services.BudgetService
	scheduler *scheduler.Scheduler
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return postgres.Open(ctx, cfg.DatabaseDSN)
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db, publisher: domain.NoopPublisher{}}
	a.closers = append(a.closers, db.Close)

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.publisher = publisher
		a.closers = append(a.closers, publisher.Close)
		logger.Info("kafka event publisher enabled", logger.Fields{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaTopic})
	}

	var locker scheduler.Locker
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		locker = lock.NewRedisLocker(client, schedulerLockExpiry)
	}

	store := postgres.NewStore(db, cfg.TxTimeout)
	clock := domain.SystemClock{Location: cfg.SchedulerLocation}

	a.posting = services.NewPostingService(store, clock, a.publisher)
	a.approvals = services.NewApprovalService(store, a.posting, clock, a.publisher, cfg.AutoPostOnApproval)
	a.documents = services.NewDocumentService(store, a.posting, a.approvals, clock, a.publisher)
	a.recurring = services.NewRecurringService(store, a.documents, clock, a.publisher)
	a.ledger = services.NewLedgerService(store)
	a.accounts = services.NewAccountService(store, clock)
	a.budgets = services.NewBudgetService(store, clock)
	a.scheduler = scheduler.New(a.recurring, locker, scheduler.Options{
		Hour:     cfg.SchedulerHour,
		Minute:   cfg.SchedulerMinute,
		Location: cfg.SchedulerLocation,
	})

	return a, nil
}

func (a *app) seedTemplates(ctx context.Context) error {
	if a.cfg.ApprovalTemplatesFile == "" {
		return nil
	}
	templates, err := config.LoadApprovalTemplates(a.cfg.ApprovalTemplatesFile)
	if err != nil {
		return err
	}
	created, err := a.approvals.SeedTemplates(ctx, templates)
	if err != nil {
		return fmt.Errorf("seed approval templates: %w", err)
	}
	logger.Info("approval templates seeded", logger.Fields{
		"file":    a.cfg.ApprovalTemplatesFile,
		"created": created,
		"total":   len(templates),
	})
	return nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
