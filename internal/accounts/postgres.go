package accounts

import (
	"context"
	"errors"

	"github.com/EternisAI/print-relay/internal/users"
)

// PostgresChecker verifies credentials against the bcrypt hashes in the users table.
type PostgresChecker struct {
	users *users.Service
}

func NewPostgresChecker(svc *users.Service) *PostgresChecker {
	return &PostgresChecker{users: svc}
}

func (c *PostgresChecker) Check(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	if err := c.users.Authenticate(ctx, username, password); err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}
