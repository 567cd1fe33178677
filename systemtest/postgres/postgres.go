// Package postgres runs a throwaway PostgreSQL for the account-store system
// tests.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	image          = "postgres:17-alpine"
	user           = "relay"
	password       = "relay"
	startupTimeout = 60 * time.Second
)

// Database is a running container and the DSN pointing at it.
type Database struct {
	container *postgres.PostgresContainer
	DSN       string
}

// Start launches a container with an empty database called name. The
// server restarts once after init, so readiness waits for the second
// "ready" log line and the mapped port.
func Start(ctx context.Context, name string) (*Database, error) {
	container, err := postgres.Run(ctx,
		image,
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		postgres.WithDatabase(name),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(startupTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return &Database{container: container, DSN: dsn}, nil
}

func (d *Database) Terminate(ctx context.Context) error {
	if err := d.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate postgres container: %w", err)
	}
	return nil
}
