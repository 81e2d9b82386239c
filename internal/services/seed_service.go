package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ciphersql/internal/database"
	"ciphersql/internal/models"
	"ciphersql/internal/repositories"
	"ciphersql/internal/seeddata"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// managedSchema matches the schema names the seeder creates, and only those.
var managedSchema = regexp.MustCompile(`^` + models.SchemaPrefix + `[0-9a-f]{32}$`)

type SeedService struct {
	pool        *pgxpool.Pool
	assignments *repositories.AssignmentRepository
	schemas     *repositories.SchemaRepository
	sandboxRole string
}

func NewSeedService(
	pool *pgxpool.Pool,
	assignments *repositories.AssignmentRepository,
	schemas *repositories.SchemaRepository,
	sandboxRole string,
) *SeedService {
	return &SeedService{
		pool:        pool,
		assignments: assignments,
		schemas:     schemas,
		sandboxRole: sandboxRole,
	}
}

type SeedOptions struct {
	// Reset clears every stored assignment document before seeding.
	Reset bool

	// Prune drops documents and schemas of assignments that are no longer defined.
	Prune bool
}

type SeedReport struct {
	Seeded        []string
	PrunedDocs    int
	PrunedSchemas []string
	RowsInserted  int
	Duration      time.Duration
}

// Seed provisions one schema and one document per definition, in order.
// Any failure aborts the batch; rerunning it converges to the same state.
func (s *SeedService) Seed(ctx context.Context, defs []seeddata.Definition, opts SeedOptions) (*SeedReport, error) {
	start := time.Now()
	report := &SeedReport{}

	// Validate everything before touching either store
	defined := make(map[uuid.UUID]bool, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, err
		}
		id := defs[i].ID()
		if defined[id] {
			return nil, fmt.Errorf("assignment %q duplicates the key of an earlier definition", defs[i].Title)
		}
		defined[id] = true
	}

	if s.sandboxRole != "" {
		if err := database.EnsureSandboxRole(ctx, s.pool, s.sandboxRole); err != nil {
			return nil, err
		}
	}

	if opts.Reset {
		if err := s.assignments.DeleteAll(); err != nil {
			return nil, fmt.Errorf("clearing assignments: %w", err)
		}
		slog.Info("cleared stored assignments")
	}

	for i := range defs {
		def := &defs[i]
		schema := def.SchemaName()
		slog.Info("seeding assignment", "title", def.Title, "schema", schema)

		rows, err := s.provisionSchema(ctx, schema, def.SampleTables)
		if err != nil {
			return nil, fmt.Errorf("seeding %q: %w", def.Title, err)
		}

		if err := s.assignments.Upsert(def.Assignment()); err != nil {
			return nil, fmt.Errorf("saving %q: %w", def.Title, err)
		}

		report.Seeded = append(report.Seeded, def.Title)
		report.RowsInserted += rows
	}

	if opts.Prune {
		if err := s.prune(ctx, defined, report); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(start)
	slog.Info("seeding completed",
		"assignments", len(report.Seeded),
		"rows", report.RowsInserted,
		"pruned_docs", report.PrunedDocs,
		"pruned_schemas", len(report.PrunedSchemas),
		"duration", report.Duration,
	)
	return report, nil
}

// provisionSchema recreates the schema and its tables in a single transaction.
func (s *SeedService) provisionSchema(ctx context.Context, schema string, tables []models.SampleTable) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	quoted := ident(schema)
	if _, err := tx.Exec(ctx, "DROP SCHEMA IF EXISTS "+quoted+" CASCADE"); err != nil {
		return 0, fmt.Errorf("dropping schema: %w", err)
	}
	if _, err := tx.Exec(ctx, "CREATE SCHEMA "+quoted); err != nil {
		return 0, fmt.Errorf("creating schema: %w", err)
	}
	// Unqualified names in column types, such as REFERENCES targets, resolve inside the schema.
	if _, err := tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", quoted); err != nil {
		return 0, fmt.Errorf("setting search_path: %w", err)
	}

	inserted := 0
	for _, table := range tables {
		if _, err := tx.Exec(ctx, createTableSQL(schema, table)); err != nil {
			return 0, fmt.Errorf("creating table %s: %w", table.TableName, err)
		}

		for i, row := range table.Rows {
			query, args := insertRowSQL(schema, table, row)
			// Exec mode sends parameters as text with unspecified types so the
			// server coerces them to the declared column types.
			if _, err := tx.Exec(ctx, query, append([]any{pgx.QueryExecModeExec}, args...)...); err != nil {
				return 0, fmt.Errorf("inserting row %d into %s: %w", i+1, table.TableName, err)
			}
			inserted++
		}
		slog.Debug("table seeded", "schema", schema, "table", table.TableName, "rows", len(table.Rows))
	}

	if s.sandboxRole != "" {
		if err := database.GrantSchemaRead(ctx, tx, schema, s.sandboxRole); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing schema: %w", err)
	}
	return inserted, nil
}

func (s *SeedService) prune(ctx context.Context, defined map[uuid.UUID]bool, report *SeedReport) error {
	ids, err := s.assignments.IDs()
	if err != nil {
		return fmt.Errorf("listing stored assignments: %w", err)
	}
	for _, id := range ids {
		if defined[id] {
			continue
		}
		if err := s.assignments.Delete(id); err != nil {
			return fmt.Errorf("deleting stale assignment %s: %w", id, err)
		}
		report.PrunedDocs++
		slog.Info("pruned stale assignment", "id", id)
	}

	keep := make(map[string]bool, len(defined))
	for id := range defined {
		keep[models.SchemaNameFor(id)] = true
	}

	schemas, err := s.schemas.ListSchemas(ctx, models.SchemaPrefix)
	if err != nil {
		return fmt.Errorf("listing schemas: %w", err)
	}
	for _, schema := range schemas {
		if keep[schema] || !managedSchema.MatchString(schema) {
			continue
		}
		if _, err := s.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE"); err != nil {
			return fmt.Errorf("dropping stale schema %s: %w", schema, err)
		}
		report.PrunedSchemas = append(report.PrunedSchemas, schema)
		slog.Info("pruned stale schema", "schema", schema)
	}
	return nil
}

// Identifiers are folded to lower case before quoting, matching how
// PostgreSQL treats the unquoted names students type.
func ident(parts ...string) string {
	lowered := make(pgx.Identifier, len(parts))
	for i, p := range parts {
		lowered[i] = strings.ToLower(p)
	}
	return lowered.Sanitize()
}

func createTableSQL(schema string, table models.SampleTable) string {
	defs := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		defs = append(defs, ident(col.ColumnName)+" "+col.DataType)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ident(schema, table.TableName), strings.Join(defs, ", "))
}

// insertRowSQL builds a parameterised insert; columns follow the table's
// declared order so the statement text is deterministic.
func insertRowSQL(schema string, table models.SampleTable, row map[string]any) (string, []any) {
	target := ident(schema, table.TableName)

	byName := make(map[string]any, len(row))
	for k, v := range row {
		byName[strings.ToLower(k)] = v
	}

	var cols, placeholders []string
	var args []any
	for _, col := range table.Columns {
		name := strings.ToLower(col.ColumnName)
		v, ok := byName[name]
		if !ok {
			continue
		}
		cols = append(cols, ident(name))
		args = append(args, seedValue(v))
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}

	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", target), nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", target, strings.Join(cols, ", "), strings.Join(placeholders, ", ")), args
}

// seedValue renders a decoded YAML or JSON scalar as the text PostgreSQL parses.
func seedValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		// Nested maps and lists are written as JSON text for json columns.
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
		return fmt.Sprint(x)
	}
}
