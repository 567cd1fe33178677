package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EternisAI/print-relay/internal/accounts"
)

const DefaultAccountTimeout = 3 * time.Second

// AccountVerifier delegates to an external identity system. Each check is
// bounded by timeout.
type AccountVerifier struct {
	checker accounts.Checker
	timeout time.Duration
}

func NewAccountVerifier(checker accounts.Checker, timeout time.Duration) *AccountVerifier {
	if timeout <= 0 {
		timeout = DefaultAccountTimeout
	}
	return &AccountVerifier{
		checker: checker,
		timeout: timeout,
	}
}

func (v *AccountVerifier) Mode() Mode { return ModeAccount }

func (v *AccountVerifier) Verify(ctx context.Context, cred Credential) error {
	if cred.Username == "" || cred.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidCredential)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.checker.Check(ctx, cred.Username, cred.Password); err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		return fmt.Errorf("account check failed: %w", err)
	}
	return nil
}

func (v *AccountVerifier) BindingKey(cred Credential) string {
	return cred.Username
}

func (v *AccountVerifier) Bound(Credential) {}
