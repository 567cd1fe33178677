// Package auth decides whether an asserted identity may bind an agent. The
// broker is written against the Verifier interface; which variant is wired in
// is a deployment decision.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/EternisAI/print-relay/internal/authcode"
)

type Mode string

const (
	// ModeCode binds agents with short-lived numeric codes.
	ModeCode Mode = "code"
	// ModeAccount binds agents with username/password accounts.
	ModeAccount Mode = "account"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCode, ModeAccount:
		return Mode(s), nil
	case "":
		return ModeCode, nil
	default:
		return "", fmt.Errorf("invalid broker mode: %q (valid: %s, %s)", s, ModeCode, ModeAccount)
	}
}

var ErrInvalidCredential = errors.New("invalid credential")

// Credential is what an agent asserts in client_auth and what a requester
// addresses a job with. In code mode only Password (the code) is used.
type Credential struct {
	Username string
	Password string
}

type Verifier interface {
	Mode() Mode
	// Verify returns nil when cred may bind an agent. Rejections wrap
	// ErrInvalidCredential; any other error means the check itself failed.
	Verify(ctx context.Context, cred Credential) error
	// BindingKey is the key cred occupies in the binding table.
	BindingKey(cred Credential) string
	// Bound is called once cred has successfully bound an agent.
	Bound(cred Credential)
}

// CodeIssuer is implemented by verifiers that hand out pairing codes.
type CodeIssuer interface {
	Issue() (authcode.Code, error)
}

// BoundCredentials reports whether a credential already bound an agent.
type BoundCredentials interface {
	Has(credential string) bool
}
