package authcode

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, ttl time.Duration, max int) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, max)
	s.SetClock(clock.Now)
	return s, clock
}

var eightDigits = regexp.MustCompile(`^[0-9]{8}$`)

func TestIssue(t *testing.T) {
	s, clock := newTestStore(t, DefaultTTL, 0)

	code, err := s.Issue()
	require.NoError(t, err)
	assert.Regexp(t, eightDigits, code.Code)
	assert.Equal(t, clock.Now(), code.IssuedAt)
	assert.Equal(t, clock.Now().Add(10*time.Minute), code.ExpiresAt)
	assert.Equal(t, 1, s.Len())
}

func TestIssueFormatsLeadingZeros(t *testing.T) {
	s, _ := newTestStore(t, DefaultTTL, 0)

	for i := 0; i < 200; i++ {
		code, err := s.Issue()
		require.NoError(t, err)
		assert.Len(t, code.Code, 8)
	}
}

func TestIssueWithGenerator(t *testing.T) {
	s, _ := newTestStore(t, DefaultTTL, 0)
	s.SetGenerator(func() (string, error) { return "12345678", nil })

	code, err := s.Issue()
	require.NoError(t, err)
	assert.Equal(t, "12345678", code.Code)
	assert.NoError(t, s.Validate("12345678"))
}

func TestIssueGeneratorError(t *testing.T) {
	s, _ := newTestStore(t, DefaultTTL, 0)
	s.SetGenerator(func() (string, error) { return "", assert.AnError })

	_, err := s.Issue()
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, s.Len())
}

func TestValidateWithinWindow(t *testing.T) {
	s, clock := newTestStore(t, DefaultTTL, 0)

	code, err := s.Issue()
	require.NoError(t, err)

	require.NoError(t, s.Validate(code.Code))

	clock.Advance(10*time.Minute - time.Nanosecond)
	require.NoError(t, s.Validate(code.Code))
}

func TestValidateExpiredIsEvictedLazily(t *testing.T) {
	s, clock := newTestStore(t, DefaultTTL, 0)

	code, err := s.Issue()
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, s.Len(), "expiry must not be swept in the background")

	assert.ErrorIs(t, s.Validate(code.Code), ErrCodeExpired)
	assert.Equal(t, 0, s.Len())

	assert.ErrorIs(t, s.Validate(code.Code), ErrCodeNotFound)
}

func TestValidateNotFound(t *testing.T) {
	s, _ := newTestStore(t, DefaultTTL, 0)

	assert.ErrorIs(t, s.Validate("00000000"), ErrCodeNotFound)
}

func TestConsume(t *testing.T) {
	s, _ := newTestStore(t, DefaultTTL, 0)

	code, err := s.Issue()
	require.NoError(t, err)

	assert.True(t, s.Consume(code.Code))
	assert.False(t, s.Consume(code.Code))
	assert.ErrorIs(t, s.Validate(code.Code), ErrCodeNotFound)
}

func TestPutOverwritesCollision(t *testing.T) {
	s, clock := newTestStore(t, DefaultTTL, 0)

	first := s.put("12345678")
	clock.Advance(5 * time.Minute)
	second := s.put("12345678")

	assert.Equal(t, 1, s.Len())
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt))

	clock.Advance(6 * time.Minute)
	assert.NoError(t, s.Validate("12345678"))
}

func TestMaxOutstandingEvictsOldest(t *testing.T) {
	s, _ := newTestStore(t, DefaultTTL, 2)

	s.put("11111111")
	s.put("22222222")
	s.put("33333333")

	assert.Equal(t, 2, s.Len())
	assert.ErrorIs(t, s.Validate("11111111"), ErrCodeNotFound)
	assert.NoError(t, s.Validate("22222222"))
	assert.NoError(t, s.Validate("33333333"))
}

func TestListRedactsAndSkipsExpired(t *testing.T) {
	s, clock := newTestStore(t, DefaultTTL, 0)

	s.put("11111111")
	clock.Advance(6 * time.Minute)
	s.put("22222222")
	clock.Advance(5 * time.Minute)

	codes := s.List()
	require.Len(t, codes, 1)
	assert.Empty(t, codes[0].Code)
	assert.Equal(t, clock.Now().Add(-5*time.Minute), codes[0].IssuedAt)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore(time.Hour, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			code, err := s.Issue()
			if err != nil {
				return
			}
			_ = s.Validate(code.Code)
			_ = s.List()
			if id%5 == 0 {
				s.Consume(code.Code)
			}
		}(i)
	}
	wg.Wait()
}
