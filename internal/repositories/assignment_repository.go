package repositories

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ciphersql/internal/docstore"
	"ciphersql/internal/models"

	"github.com/google/uuid"
)

// AssignmentsBucket holds one JSON document per assignment, keyed by id.
const AssignmentsBucket = "assignments"

var ErrAssignmentNotFound = errors.New("assignment not found")

type AssignmentRepository struct {
	store *docstore.Store
}

func NewAssignmentRepository(store *docstore.Store) *AssignmentRepository {
	return &AssignmentRepository{store: store}
}

// List returns all assignments ordered by title.
func (r *AssignmentRepository) List() ([]models.Assignment, error) {
	assignments, err := docstore.List[models.Assignment](r.store, AssignmentsBucket)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	sortByTitle(assignments)
	return assignments, nil
}

func (r *AssignmentRepository) GetByID(id uuid.UUID) (*models.Assignment, error) {
	a, err := docstore.Get[models.Assignment](r.store, AssignmentsBucket, id.String())
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("loading assignment %s: %w", id, err)
	}
	return a, nil
}

// Upsert creates or replaces the document. CreatedAt of an existing document is kept.
func (r *AssignmentRepository) Upsert(a *models.Assignment) error {
	if a.ID == uuid.Nil {
		return errors.New("assignment id is required")
	}
	if a.Title == "" || a.Question == "" || a.PostgresSchemaName == "" {
		return errors.New("assignment title, question and schema name are required")
	}

	now := time.Now().UTC()
	existing, err := r.GetByID(a.ID)
	switch {
	case err == nil:
		a.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrAssignmentNotFound):
		a.CreatedAt = now
	default:
		return err
	}
	a.UpdatedAt = now

	return docstore.Save(r.store, AssignmentsBucket, a.ID.String(), a)
}

func (r *AssignmentRepository) Delete(id uuid.UUID) error {
	return r.store.Delete(AssignmentsBucket, id.String())
}

// IDs returns the ids of every stored assignment.
func (r *AssignmentRepository) IDs() ([]uuid.UUID, error) {
	keys, err := r.store.Keys(AssignmentsBucket)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		id, err := uuid.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("corrupt assignment key %q: %w", k, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteAll removes every assignment document.
func (r *AssignmentRepository) DeleteAll() error {
	return r.store.Clear(AssignmentsBucket)
}

func (r *AssignmentRepository) Ping() error {
	return r.store.Ping()
}

func sortByTitle(as []models.Assignment) {
	sort.SliceStable(as, func(i, j int) bool { return as[i].Title < as[j].Title })
}
