package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-tasks-api/internal/application/otp"
	"github.com/go-tasks-api/internal/application/task"
	"github.com/go-tasks-api/internal/config"
	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/infrastructure/dynamo"
	"github.com/go-tasks-api/internal/infrastructure/memory"
	"github.com/go-tasks-api/internal/infrastructure/postgres"
)

// accountRepo is what the auth and task services need from the account backend.
type accountRepo interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.Account, error)
	MarkVerified(ctx context.Context, accountID string) error
	SetResetToken(ctx context.Context, accountID, hash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, accountID, hash, passwordHash string, now time.Time) error
	Delete(ctx context.Context, accountID string) error
}

type stores struct {
	accounts accountRepo
	otps     otp.Store
	tasks    task.Store
	close    func()
}

// openStores builds the backend selected by STORE_DRIVER and prepares its schema.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &stores{
			accounts: dynamo.NewAccountRepo(client, cfg.DynamoTables.Accounts, cfg.DynamoTables.AccountEmails),
			otps:     dynamo.NewOTPRepo(client, cfg.DynamoTables.OTPRecords),
			tasks:    dynamo.NewTaskRepo(client, cfg.DynamoTables.Tasks),
			close:    func() {},
		}, nil

	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			accounts: postgres.NewAccountRepo(pool),
			otps:     postgres.NewOTPRepo(pool),
			tasks:    postgres.NewTaskRepo(pool),
			close:    pool.Close,
		}, nil

	case config.StoreMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		return &stores{
			accounts: memory.NewAccountRepo(),
			otps:     memory.NewOTPRepo(),
			tasks:    memory.NewTaskRepo(),
			close:    func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
