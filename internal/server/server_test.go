package server

import (
	"context"
	"testing"

	"ciphersql/internal/config"
	"ciphersql/internal/testsupport"

	"github.com/jackc/pgx/v5"
)

func TestPrepareSandbox_NoRole(t *testing.T) {
	if err := prepareSandbox(context.Background(), nil, config.SandboxConfig{}); err != nil {
		t.Fatalf("prepareSandbox without a role: %v", err)
	}
}

func TestPrepareSandbox_CreatesSwitchableRole(t *testing.T) {
	pool := testsupport.StartPostgres(t)
	ctx := context.Background()
	sandbox := config.SandboxConfig{Role: "ciphersql_sandbox"}

	// Startup must be repeatable against a database that already has the role.
	for i := 0; i < 2; i++ {
		if err := prepareSandbox(ctx, pool, sandbox); err != nil {
			t.Fatalf("prepareSandbox #%d: %v", i+1, err)
		}
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('role', $1, true)", sandbox.Role); err != nil {
		t.Fatalf("switching to %s: %v", sandbox.Role, err)
	}
	var current string
	if err := tx.QueryRow(ctx, "SELECT current_user").Scan(&current); err != nil {
		t.Fatalf("reading current_user: %v", err)
	}
	if current != sandbox.Role {
		t.Errorf("current_user = %q, want %q", current, sandbox.Role)
	}
}
