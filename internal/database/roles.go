package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSandboxRole creates a NOLOGIN role for sandbox sessions if it is
// missing and makes the connecting user a member, so runs can SET LOCAL ROLE to it.
func EnsureSandboxRole(ctx context.Context, pool *pgxpool.Pool, role string) error {
	ident := pgx.Identifier{role}.Sanitize()

	var exists bool
	if err := pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", role).Scan(&exists); err != nil {
		return fmt.Errorf("checking role %s: %w", role, err)
	}

	if !exists {
		if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE ROLE %s NOLOGIN", ident)); err != nil {
			return fmt.Errorf("creating role %s: %w", role, err)
		}
		slog.Info("sandbox role created", "role", role)
	}

	var member bool
	if err := pool.QueryRow(ctx, "SELECT pg_has_role(current_user, $1, 'MEMBER')", role).Scan(&member); err != nil {
		return fmt.Errorf("checking membership of %s: %w", role, err)
	}
	if !member {
		if _, err := pool.Exec(ctx, fmt.Sprintf("GRANT %s TO CURRENT_USER", ident)); err != nil {
			return fmt.Errorf("granting %s: %w", role, err)
		}
	}
	return nil
}

// GrantSchemaRead gives role read-only access to every table in schema.
// Runs inside the caller's transaction.
func GrantSchemaRead(ctx context.Context, tx pgx.Tx, schema, role string) error {
	s := pgx.Identifier{schema}.Sanitize()
	r := pgx.Identifier{role}.Sanitize()

	statements := []string{
		fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", s, r),
		fmt.Sprintf("GRANT SELECT ON ALL TABLES IN SCHEMA %s TO %s", s, r),
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("granting read on %s to %s: %w", schema, role, err)
		}
	}
	return nil
}
