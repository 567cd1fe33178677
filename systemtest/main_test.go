package systemtest

import (
	"context"
	"testing"
	"time"

	"github.com/EternisAI/print-relay/internal/accounts"
	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/authcode"
	"github.com/EternisAI/print-relay/internal/binding"
	"github.com/EternisAI/print-relay/internal/db"
	"github.com/EternisAI/print-relay/internal/users"
	"github.com/EternisAI/print-relay/systemtest/postgres"
	"github.com/EternisAI/print-relay/systemtest/tests"
	"github.com/stretchr/testify/require"
)

func TestSystemIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping system test in short mode")
	}

	ctx := context.Background()

	database, err := postgres.Start(ctx, "relay")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := database.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	cfg := db.Config{Url: database.DSN, Schema: "print_relay"}
	require.NoError(t, db.Migrate(ctx, cfg))
	// Applying twice must be a no-op.
	require.NoError(t, db.Migrate(ctx, cfg))

	pool, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	svc := users.NewService(pool)
	verifier := auth.NewAccountVerifier(accounts.NewPostgresChecker(svc), 3*time.Second)
	env := tests.StartRelay(t, verifier, binding.NewTable(), svc)

	t.Run("HealthCheck", func(t *testing.T) { tests.TestHealthCheck(t, env, string(auth.ModeAccount)) })
	t.Run("CreateUser", func(t *testing.T) { tests.TestCreateUser(t, env) })
	t.Run("AccountRelay", func(t *testing.T) { tests.TestAccountRelay(t, env) })
}

func TestCodeModeIntegration(t *testing.T) {
	bindings := binding.NewTable()
	verifier := auth.NewCodeVerifier(authcode.NewStore(authcode.DefaultTTL, 0), bindings)
	env := tests.StartRelay(t, verifier, bindings, nil)

	t.Run("HealthCheck", func(t *testing.T) { tests.TestHealthCheck(t, env, string(auth.ModeCode)) })
	t.Run("CodeRelay", func(t *testing.T) { tests.TestCodeRelay(t, env) })
}
