// Package accounts provides the identity systems an account-mode broker can
// delegate credential checks to. Every Checker must be deterministic, free of
// side effects and honour the context deadline it is given.
package accounts

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Checker interface {
	Check(ctx context.Context, username, password string) error
}

const (
	BackendPermissive = "permissive"
	BackendPostgres   = "postgres"
	BackendToken      = "token"
)

// Permissive accepts any non-empty username/password pair. Authorization is
// expected to be enforced upstream of the broker.
type Permissive struct{}

func (Permissive) Check(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	return nil
}

func ValidateBackend(name string) error {
	switch name {
	case BackendPermissive, BackendPostgres, BackendToken:
		return nil
	default:
		return fmt.Errorf("unknown account backend: %q (valid: %s, %s, %s)",
			name, BackendPermissive, BackendPostgres, BackendToken)
	}
}
