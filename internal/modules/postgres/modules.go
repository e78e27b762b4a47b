package postgres

import (
	"context"
	"fmt"
	"time"

	"mt5_gateway/pkg/db"
)

// NewTxManager пул к postgres с проверкой соединения.
func NewTxManager(ctx context.Context, dsn string) (*db.PgTxManager, error) {
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:             dsn,
		MaxConns:        8,
		MaxConnIdleTime: 5 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	err = poolMaster.Ping(ctx)
	if err != nil {
		poolMaster.Close()
		return nil, err
	}

	return db.NewPgTxManager(poolMaster), nil
}
