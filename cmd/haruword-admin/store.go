package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sangukO/haru-word/internal/domain"
	"github.com/sangukO/haru-word/internal/repository"
	"github.com/sangukO/haru-word/internal/repository/postgres"
	"github.com/sangukO/haru-word/internal/repository/sqlite"
)

const (
	storeDynamo   = "dynamodb"
	storePostgres = "postgres"
	storeSQLite   = "sqlite"
)

// adminStore is what every backing store offers the operator commands.
type adminStore interface {
	CountUsageSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListUsageLogs(ctx context.Context, userID string, q domain.UsageQuery) ([]domain.UsageLogEntry, error)
	ListVisits(ctx context.Context, userID, fromDate, toDate string) ([]domain.DailyVisit, error)
}

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// openStore returns the configured store and a func releasing it.
func openStore(ctx context.Context, o *rootOptions) (adminStore, func(), error) {
	switch o.store {
	case storeDynamo:
		if o.table == "" {
			return nil, nil, fmt.Errorf("--table (or STATE_TABLE) is required for %s", storeDynamo)
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		store, err := repository.New(awsdynamodb.NewFromConfig(cfg), o.table)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case storePostgres:
		if o.dsn == "" {
			return nil, nil, fmt.Errorf("--dsn (or DATABASE_URL) is required for %s", storePostgres)
		}
		pool, err := pgxpool.New(ctx, o.dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.New(pool, postgres.WithTablePrefix(o.prefix)), pool.Close, nil
	case storeSQLite:
		store, err := sqlite.OpenStore(o.path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want %s, %s or %s)", o.store, storeDynamo, storePostgres, storeSQLite)
	}
}
