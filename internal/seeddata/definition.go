// Package seeddata holds assignment definitions consumed by the seeder.
package seeddata

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ciphersql/internal/models"

	"github.com/google/uuid"
)

// Namespace is the UUID v5 namespace assignment ids are derived in.
var Namespace = uuid.MustParse("9a4f0d36-5c1e-4b8a-a2d7-3e61c0f58b24")

var (
	identPattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	dataTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ,()\[\]]*$`)
)

// Definition describes one assignment as written in a seed file.
type Definition struct {
	Key            string                 `json:"key,omitempty" yaml:"key,omitempty"`
	Title          string                 `json:"title" yaml:"title"`
	Description    string                 `json:"description" yaml:"description"`
	Question       string                 `json:"question" yaml:"question"`
	SampleTables   []models.SampleTable   `json:"sampleTables" yaml:"sampleTables"`
	ExpectedOutput *models.ExpectedOutput `json:"expectedOutput,omitempty" yaml:"expectedOutput,omitempty"`
}

// ID is stable for a given key (or title when no key is set), so reseeding
// keeps ids and schema names regardless of the definition's position.
func (d *Definition) ID() uuid.UUID {
	name := d.Key
	if name == "" {
		name = d.Title
	}
	return uuid.NewSHA1(Namespace, []byte(strings.TrimSpace(name)))
}

// SchemaName is the sandbox schema that holds the definition's tables.
func (d *Definition) SchemaName() string {
	return models.SchemaNameFor(d.ID())
}

// Assignment builds the document stored for the definition.
func (d *Definition) Assignment() *models.Assignment {
	return &models.Assignment{
		ID:                 d.ID(),
		Key:                d.Key,
		Title:              d.Title,
		Description:        d.Description,
		Question:           d.Question,
		SampleTables:       d.SampleTables,
		PostgresSchemaName: d.SchemaName(),
		ExpectedOutput:     d.ExpectedOutput,
	}
}

// Validate checks everything the seeder interpolates into DDL.
func (d *Definition) Validate() error {
	var errs []error

	if strings.TrimSpace(d.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if strings.TrimSpace(d.Question) == "" {
		errs = append(errs, errors.New("question is required"))
	}
	switch d.Description {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		errs = append(errs, fmt.Errorf("description must be Easy, Medium or Hard, got %q", d.Description))
	}

	tables := make(map[string]bool, len(d.SampleTables))
	for _, t := range d.SampleTables {
		if err := validateTable(t); err != nil {
			errs = append(errs, err)
		}
		name := strings.ToLower(t.TableName)
		if tables[name] {
			errs = append(errs, fmt.Errorf("table %s declared twice", t.TableName))
		}
		tables[name] = true
	}

	if d.ExpectedOutput != nil {
		switch d.ExpectedOutput.Type {
		case models.OutputTable, models.OutputSingleValue, models.OutputCount:
		default:
			errs = append(errs, fmt.Errorf("expectedOutput.type %q is not one of table, single_value, count", d.ExpectedOutput.Type))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("assignment %q: %w", d.Title, err)
	}
	return nil
}

func validateTable(t models.SampleTable) error {
	if !identPattern.MatchString(t.TableName) {
		return fmt.Errorf("invalid table name %q", t.TableName)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.TableName)
	}

	columns := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if !identPattern.MatchString(c.ColumnName) {
			return fmt.Errorf("table %s: invalid column name %q", t.TableName, c.ColumnName)
		}
		if !dataTypePattern.MatchString(c.DataType) {
			return fmt.Errorf("table %s: invalid data type %q for column %s", t.TableName, c.DataType, c.ColumnName)
		}
		name := strings.ToLower(c.ColumnName)
		if columns[name] {
			return fmt.Errorf("table %s: column %s declared twice", t.TableName, c.ColumnName)
		}
		columns[name] = true
	}

	for i, row := range t.Rows {
		for key := range row {
			if !columns[strings.ToLower(key)] {
				return fmt.Errorf("table %s row %d: unknown column %q", t.TableName, i+1, key)
			}
		}
	}
	return nil
}
