package repositories

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ciphersql/internal/docstore"
	"ciphersql/internal/models"

	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) *AssignmentRepository {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "meta.db"), AssignmentsBucket)
	if err != nil {
		t.Fatalf("opening docstore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewAssignmentRepository(store)
}

func makeAssignment(title string) *models.Assignment {
	id := uuid.New()
	return &models.Assignment{
		ID:                 id,
		Title:              title,
		Description:        models.DifficultyEasy,
		Question:           "List everything in " + title,
		PostgresSchemaName: "assignment_" + id.String()[:8],
		SampleTables: []models.SampleTable{{
			TableName: "t",
			Columns:   []models.Column{{ColumnName: "id", DataType: "INT"}},
			Rows:      []map[string]any{{"id": float64(1)}},
		}},
		ExpectedOutput: &models.ExpectedOutput{Type: models.OutputCount, Value: float64(1)},
	}
}

func TestAssignmentRepository_UpsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	a := makeAssignment("Orders")

	if err := repo.Upsert(a); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.GetByID(a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Orders" || got.PostgresSchemaName != a.PostgresSchemaName {
		t.Errorf("got %+v", got)
	}
	if got.ExpectedOutput == nil || got.ExpectedOutput.Type != models.OutputCount {
		t.Errorf("expected output not persisted: %+v", got.ExpectedOutput)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestAssignmentRepository_UpsertKeepsCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	a := makeAssignment("Orders")
	if err := repo.Upsert(a); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	first, _ := repo.GetByID(a.ID)

	time.Sleep(5 * time.Millisecond)
	a.Question = "changed"
	if err := repo.Upsert(a); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	second, err := repo.GetByID(a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if second.Question != "changed" {
		t.Errorf("Question = %q", second.Question)
	}
}

func TestAssignmentRepository_Validation(t *testing.T) {
	repo := newTestRepo(t)

	a := makeAssignment("x")
	a.ID = uuid.Nil
	if err := repo.Upsert(a); err == nil {
		t.Error("expected error for nil id")
	}

	b := makeAssignment("y")
	b.PostgresSchemaName = ""
	if err := repo.Upsert(b); err == nil {
		t.Error("expected error for missing schema name")
	}
}

func TestAssignmentRepository_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetByID(uuid.New()); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("err = %v, want ErrAssignmentNotFound", err)
	}
}

func TestAssignmentRepository_ListDeleteIDs(t *testing.T) {
	repo := newTestRepo(t)
	b := makeAssignment("Beta")
	a := makeAssignment("Alpha")
	for _, x := range []*models.Assignment{b, a} {
		if err := repo.Upsert(x); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Alpha" || list[1].Title != "Beta" {
		t.Fatalf("List = %+v, want Alpha, Beta", list)
	}

	ids, err := repo.IDs()
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("IDs = %v", ids)
	}

	if err := repo.Delete(b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(b.ID); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("deleted assignment still present: %v", err)
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	list, _ = repo.List()
	if len(list) != 0 {
		t.Errorf("List after DeleteAll = %d entries", len(list))
	}
}
