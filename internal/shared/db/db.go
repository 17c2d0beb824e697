package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var (
	dbPool *pgxpool.Pool
	once   sync.Once
)

func BuildPostgresDSN() string {
	_ = godotenv.Load()
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	sslmode := os.Getenv("DB_SSLMODE")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode,
	)
}

// GetPostgresDBPool returns a singleton *pgxpool.Pool built from environment
// variables. The pool is shared by every repository, bid bursts on one auction
// must not starve connections for the rest.
func GetPostgresDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	var err error
	once.Do(func() {
		databaseURL := BuildPostgresDSN()

		cfg, configErr := pgxpool.ParseConfig(databaseURL)
		if configErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", configErr)
			return
		}

		pool, connectErr := pgxpool.NewWithConfig(ctx, cfg)
		if connectErr != nil {
			err = fmt.Errorf("unable to connect to DB: %w", connectErr)
			return
		}
		dbPool = pool
	})

	if err != nil {
		return nil, err
	}
	if dbPool == nil {
		return nil, errors.New("database pool was not initialized")
	}
	if pingErr := dbPool.Ping(ctx); pingErr != nil {
		return nil, fmt.Errorf("database pool ping failed: %w", pingErr)
	}

	return dbPool, nil
}
