package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"ciphersql/internal/config"
	"ciphersql/internal/models"
	"ciphersql/internal/observability"
	"ciphersql/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// forbiddenKeywords are rejected anywhere in the submitted text, in any case.
// This is a plain substring test, so identifiers such as "deleted_at" are
// rejected too; the read-only transaction and rollback are the real boundary.
var forbiddenKeywords = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "GRANT", "REVOKE"}

// AssignmentLookup resolves assignment documents by id.
type AssignmentLookup interface {
	GetByID(id uuid.UUID) (*models.Assignment, error)
}

// TxBeginner is satisfied by *pgxpool.Pool. A transaction holds one pooled
// connection until it is committed or rolled back.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type QueryService struct {
	assignments AssignmentLookup
	db          TxBeginner
	sandbox     config.SandboxConfig
}

func NewQueryService(assignments AssignmentLookup, db TxBeginner, sandbox config.SandboxConfig) *QueryService {
	return &QueryService{
		assignments: assignments,
		db:          db,
		sandbox:     sandbox,
	}
}

type RunRequest struct {
	AssignmentID string `json:"assignmentId"`
	SQL          string `json:"sql"`
}

type RunResult struct {
	Success   bool             `json:"success"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int64            `json:"rowCount"`
	IsCorrect *bool            `json:"isCorrect"`
}

// ValidateSQLQuery applies the keyword denylist to the raw query text and
// rejects statements that control transactions.
func ValidateSQLQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrInvalidInput
	}

	upper := strings.ToUpper(query)
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			return fmt.Errorf("%w: %s is not allowed", ErrForbidden, keyword)
		}
	}

	// The batch runs inside the sandbox transaction and must not end it.
	if stmt := transactionControlStatement(query); stmt != "" {
		return fmt.Errorf("%w: %s is not allowed", ErrForbidden, stmt)
	}
	return nil
}

// Run executes the student's query against the assignment's schema inside a
// transaction that is always rolled back, then grades the result.
func (s *QueryService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	outcome := "error"
	defer func() { observability.SandboxRunsTotal.WithLabelValues(outcome).Inc() }()

	if strings.TrimSpace(req.SQL) == "" {
		outcome = "invalid"
		return nil, ErrInvalidInput
	}

	id, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		outcome = "not_found"
		return nil, ErrNotFound
	}
	assignment, err := s.assignments.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			outcome = "not_found"
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading assignment: %w", err)
	}

	if err := ValidateSQLQuery(req.SQL); err != nil {
		if errors.Is(err, ErrForbidden) {
			outcome = "forbidden"
			slog.Warn("sandbox query rejected", "assignment", id, "reason", err)
		}
		return nil, err
	}

	start := time.Now()
	result, err := s.execute(ctx, assignment.PostgresSchemaName, req.SQL)
	observability.SandboxRunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		var qerr *QueryError
		if errors.As(err, &qerr) {
			outcome = "query_error"
		}
		return nil, err
	}
	outcome = "ok"

	result.IsCorrect = s.grade(assignment, result)
	return result, nil
}

func (s *QueryService) grade(assignment *models.Assignment, result *RunResult) *bool {
	if !assignment.ExpectedOutput.Gradable() {
		observability.SandboxVerdictsTotal.WithLabelValues("ungraded").Inc()
		return nil
	}

	ok, err := Grade(assignment.ExpectedOutput, result.Columns, result.Rows)
	if err != nil {
		slog.Error("grading failed", "assignment", assignment.ID, "error", err)
		observability.SandboxVerdictsTotal.WithLabelValues("ungraded").Inc()
		return nil
	}

	verdict := "incorrect"
	if ok {
		verdict = "correct"
	}
	observability.SandboxVerdictsTotal.WithLabelValues(verdict).Inc()
	return &ok
}

func (s *QueryService) execute(ctx context.Context, schema, query string) (*RunResult, error) {
	opts := pgx.TxOptions{}
	if s.sandbox.ReadOnly {
		opts.AccessMode = pgx.ReadOnly
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	// Nothing a run does is ever committed; rollback also returns the connection to the pool.
	defer func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("sandbox rollback failed", "schema", schema, "error", rbErr)
		}
	}()

	if err := s.prepareSession(ctx, tx, schema); err != nil {
		return nil, err
	}

	results, err := tx.Conn().PgConn().Exec(ctx, query).ReadAll()
	if err != nil {
		return nil, toQueryError(err)
	}
	if status := tx.Conn().PgConn().TxStatus(); status != 'T' {
		return nil, fmt.Errorf("sandbox transaction left by the query (status %q)", status)
	}

	return buildResult(tx.Conn().TypeMap(), results)
}

// prepareSession scopes the run to the assignment schema. Every setting is
// transaction-local and disappears with the rollback.
func (s *QueryService) prepareSession(ctx context.Context, tx pgx.Tx, schema string) error {
	settings := [][2]string{
		{"search_path", pgx.Identifier{schema}.Sanitize() + ", public"},
	}
	if s.sandbox.StatementTimeout > 0 {
		settings = append(settings, [2]string{"statement_timeout", strconv.FormatInt(s.sandbox.StatementTimeout.Milliseconds(), 10)})
	}
	if s.sandbox.Role != "" {
		settings = append(settings, [2]string{"role", s.sandbox.Role})
	}

	for _, kv := range settings {
		if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", kv[0], err)
		}
	}
	return nil
}

func toQueryError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &QueryError{Message: pgErr.Message, Code: pgErr.Code}
	}
	return &QueryError{Message: err.Error()}
}

// buildResult reports the last statement of the batch that returned a row
// description, or the last statement when none did.
func buildResult(m *pgtype.Map, results []*pgconn.Result) (*RunResult, error) {
	out := &RunResult{Success: true, Columns: []string{}, Rows: []map[string]any{}}
	if len(results) == 0 {
		return out, nil
	}

	chosen := results[len(results)-1]
	for i := len(results) - 1; i >= 0; i-- {
		if len(results[i].FieldDescriptions) > 0 {
			chosen = results[i]
			break
		}
	}

	fields := chosen.FieldDescriptions
	for _, fd := range fields {
		out.Columns = append(out.Columns, fd.Name)
	}

	for _, raw := range chosen.Rows {
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			v, err := decodeValue(m, fd, raw[i])
			if err != nil {
				return nil, fmt.Errorf("decoding column %s: %w", fd.Name, err)
			}
			row[fd.Name] = v
		}
		out.Rows = append(out.Rows, row)
	}

	out.RowCount = chosen.CommandTag.RowsAffected()
	if len(fields) > 0 {
		out.RowCount = int64(len(out.Rows))
	}
	return out, nil
}

func decodeValue(m *pgtype.Map, fd pgconn.FieldDescription, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	t, ok := m.TypeForOID(fd.DataTypeOID)
	if !ok {
		return string(src), nil
	}
	v, err := t.Codec.DecodeValue(m, fd.DataTypeOID, fd.Format, src)
	if err != nil {
		return nil, err
	}
	return normalizeValue(fd.DataTypeOID, v), nil
}

// normalizeValue converts decoded values into JSON-friendly scalars.
func normalizeValue(oid uint32, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case time.Time:
		if oid == pgtype.DateOID {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339Nano)
	case pgtype.Date:
		if !x.Valid {
			return nil
		}
		if x.InfinityModifier != pgtype.Finite {
			return x.InfinityModifier.String()
		}
		return x.Time.Format("2006-01-02")
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		b, err := x.MarshalJSON()
		if err != nil {
			return nil
		}
		if len(b) > 0 && b[0] == '"' {
			return strings.Trim(string(b), `"`)
		}
		return json.Number(b)
	case [16]byte:
		return uuid.UUID(x).String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return x
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return strconv.FormatFloat(float64(x), 'g', -1, 32)
		}
		return x
	case string, bool, int8, int16, int32, int64, int, uint32, uint64, map[string]any, []any:
		return x
	default:
		if _, err := json.Marshal(x); err != nil {
			return fmt.Sprint(x)
		}
		return x
	}
}
