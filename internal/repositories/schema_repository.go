package repositories

import (
	"context"
	"fmt"

	"ciphersql/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaRepository introspects the sandbox schemas through information_schema.
type SchemaRepository struct {
	pool *pgxpool.Pool
}

func NewSchemaRepository(pool *pgxpool.Pool) *SchemaRepository {
	return &SchemaRepository{pool: pool}
}

// ListSchemas returns schema names starting with prefix.
func (r *SchemaRepository) ListSchemas(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE starts_with(schema_name, $1)
		ORDER BY schema_name
	`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *SchemaRepository) SchemaExists(ctx context.Context, schema string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		schema,
	).Scan(&exists)
	return exists, err
}

// GetTables returns all base table names in the schema
func (r *SchemaRepository) GetTables(ctx context.Context, schema string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := r.pool.Query(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetColumns returns the columns of a table in ordinal order
func (r *SchemaRepository) GetColumns(ctx context.Context, schema, table string) ([]models.SchemaColumn, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []models.SchemaColumn
	for rows.Next() {
		var col models.SchemaColumn
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return columns, nil
}

// GetPrimaryKeys returns the primary key columns of a table in key order
func (r *SchemaRepository) GetPrimaryKeys(ctx context.Context, schema, table string) ([]string, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetForeignKeys returns the foreign keys declared on a table
func (r *SchemaRepository) GetForeignKeys(ctx context.Context, schema, table string) ([]models.ForeignKey, error) {
	query := `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ForeignKey, error) {
		var fk models.ForeignKey
		err := row.Scan(&fk.FromColumn, &fk.ToTable, &fk.ToColumn)
		return fk, err
	})
}

// UniqueColumns returns "table:column" for every single-column UNIQUE or
// PRIMARY KEY constraint in the schema.
func (r *SchemaRepository) UniqueColumns(ctx context.Context, schema string) (map[string]bool, error) {
	query := `
		SELECT tc.table_name::text, min(kcu.column_name::text)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type IN ('UNIQUE', 'PRIMARY KEY')
			AND tc.table_schema = $1
		GROUP BY tc.table_name, tc.constraint_name
		HAVING count(*) = 1
	`

	rows, err := r.pool.Query(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unique := make(map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		unique[table+":"+column] = true
	}
	return unique, rows.Err()
}

func (r *SchemaRepository) CountRows(ctx context.Context, schema, table string) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{schema, table}.Sanitize())
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Describe returns every table of the schema with its columns, keys and row count.
func (r *SchemaRepository) Describe(ctx context.Context, schema string) ([]models.SchemaTable, error) {
	names, err := r.GetTables(ctx, schema)
	if err != nil {
		return nil, err
	}

	tables := make([]models.SchemaTable, 0, len(names))
	for _, name := range names {
		table := models.SchemaTable{Name: name}

		if table.Columns, err = r.GetColumns(ctx, schema, name); err != nil {
			return nil, fmt.Errorf("failed to get columns for %s: %w", name, err)
		}
		if table.PrimaryKeys, err = r.GetPrimaryKeys(ctx, schema, name); err != nil {
			return nil, fmt.Errorf("failed to get primary keys for %s: %w", name, err)
		}
		if table.ForeignKeys, err = r.GetForeignKeys(ctx, schema, name); err != nil {
			return nil, fmt.Errorf("failed to get foreign keys for %s: %w", name, err)
		}
		if table.RowCount, err = r.CountRows(ctx, schema, name); err != nil {
			return nil, fmt.Errorf("failed to count rows of %s: %w", name, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}
