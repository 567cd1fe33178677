package authcode

import (
	"container/list"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"
)

const (
	DefaultTTL            = 10 * time.Minute
	DefaultMaxOutstanding = 10000

	codeDigits = 8
)

var (
	ErrCodeNotFound = errors.New("auth code not found")
	ErrCodeExpired  = errors.New("auth code has expired")
)

var codeSpace = big.NewInt(100_000_000)

// Code is a short-lived numeric pairing code handed to an agent operator.
type Code struct {
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type entry struct {
	code    Code
	element *list.Element
}

// Store keeps outstanding codes in memory. Expiry is checked lazily, only when
// a code is validated; there is no background sweep. The number of outstanding
// codes is capped and the oldest code is evicted once the cap is reached.
type Store struct {
	mu             sync.Mutex
	codes          map[string]*entry
	order          *list.List
	ttl            time.Duration
	maxOutstanding int
	now            func() time.Time
	generate       func() (string, error)
}

func NewStore(ttl time.Duration, maxOutstanding int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxOutstanding <= 0 {
		maxOutstanding = DefaultMaxOutstanding
	}
	return &Store{
		codes:          make(map[string]*entry),
		order:          list.New(),
		ttl:            ttl,
		maxOutstanding: maxOutstanding,
		now:            time.Now,
		generate:       randomCode,
	}
}

// SetClock replaces the time source used for issuing and expiring codes.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// SetGenerator replaces the code generator.
func (s *Store) SetGenerator(generate func() (string, error)) {
	s.mu.Lock()
	s.generate = generate
	s.mu.Unlock()
}

// Issue generates a new 8-digit code. Collisions with other outstanding codes
// are not checked; a colliding code simply overwrites the earlier one.
func (s *Store) Issue() (Code, error) {
	s.mu.Lock()
	generate := s.generate
	s.mu.Unlock()

	value, err := generate()
	if err != nil {
		return Code{}, fmt.Errorf("failed to generate auth code: %w", err)
	}
	return s.put(value), nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func (s *Store) put(value string) Code {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	code := Code{
		Code:      value,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if existing, ok := s.codes[value]; ok {
		s.order.Remove(existing.element)
		delete(s.codes, value)
	}
	for len(s.codes) >= s.maxOutstanding {
		s.evictOldestLocked()
	}

	s.codes[value] = &entry{code: code, element: s.order.PushBack(value)}

	slog.Debug("Auth code issued", "expires_at", code.ExpiresAt, "outstanding", len(s.codes))
	return code
}

// Validate reports whether code is outstanding and inside its validity window
// [issued, issued+ttl). An expired code is deleted the first time it is seen.
func (s *Store) Validate(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.codes[code]
	if !ok {
		return ErrCodeNotFound
	}
	if !s.now().Before(e.code.ExpiresAt) {
		s.removeLocked(code, e)
		return ErrCodeExpired
	}
	return nil
}

// Consume removes code from the outstanding set. It reports whether the code
// was present.
func (s *Store) Consume(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.codes[code]
	if !ok {
		return false
	}
	s.removeLocked(code, e)
	return true
}

// List returns the outstanding, unexpired codes with the code value redacted.
func (s *Store) List() []Code {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	result := make([]Code, 0, len(s.codes))
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := s.codes[el.Value.(string)]
		if !now.Before(e.code.ExpiresAt) {
			continue
		}
		result = append(result, Code{
			IssuedAt:  e.code.IssuedAt,
			ExpiresAt: e.code.ExpiresAt,
		})
	}
	return result
}

// Len returns the number of stored codes, including expired ones that have
// not been validated yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *Store) removeLocked(code string, e *entry) {
	s.order.Remove(e.element)
	delete(s.codes, code)
}

func (s *Store) evictOldestLocked() {
	front := s.order.Front()
	if front == nil {
		return
	}
	code := front.Value.(string)
	s.removeLocked(code, s.codes[code])
	slog.Debug("Evicted oldest outstanding auth code", "outstanding", len(s.codes))
}
