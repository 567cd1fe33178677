package auth

import (
	"context"
	"fmt"

	"github.com/EternisAI/print-relay/internal/authcode"
)

// CodeVerifier implements the time-limited code scheme. A code is accepted
// while it is outstanding and unexpired, or indefinitely once it has bound an
// agent.
type CodeVerifier struct {
	codes *authcode.Store
	bound BoundCredentials
}

func NewCodeVerifier(codes *authcode.Store, bound BoundCredentials) *CodeVerifier {
	return &CodeVerifier{
		codes: codes,
		bound: bound,
	}
}

func (v *CodeVerifier) Mode() Mode { return ModeCode }

func (v *CodeVerifier) Issue() (authcode.Code, error) {
	return v.codes.Issue()
}

func (v *CodeVerifier) Verify(ctx context.Context, cred Credential) error {
	code := cred.Password
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCredential)
	}

	err := v.codes.Validate(code)
	if err == nil {
		return nil
	}
	// NOTE: a bound code never expires and cannot be revoked short of a restart.
	if v.bound.Has(code) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
}

func (v *CodeVerifier) BindingKey(cred Credential) string {
	return cred.Password
}

func (v *CodeVerifier) Bound(cred Credential) {
	v.codes.Consume(cred.Password)
}
