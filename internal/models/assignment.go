package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty labels accepted on an assignment.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Expected output kinds.
const (
	OutputTable       = "table"
	OutputSingleValue = "single_value"
	OutputCount       = "count"
)

// Assignment is the document stored per SQL exercise.
type Assignment struct {
	ID                 uuid.UUID       `json:"_id"`
	Key                string          `json:"key,omitempty"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"` // Easy | Medium | Hard
	Question           string          `json:"question"`
	SampleTables       []SampleTable   `json:"sampleTables"`
	PostgresSchemaName string          `json:"postgresSchemaName,omitempty"`
	ExpectedOutput     *ExpectedOutput `json:"expectedOutput,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Summary strips the answer-bearing fields before the assignment is listed.
func (a Assignment) Summary() Assignment {
	a.PostgresSchemaName = ""
	a.ExpectedOutput = nil
	return a
}

// TableNames returns the sample table names in declared order.
func (a *Assignment) TableNames() []string {
	names := make([]string, 0, len(a.SampleTables))
	for _, t := range a.SampleTables {
		names = append(names, t.TableName)
	}
	return names
}

type SampleTable struct {
	TableName string           `json:"tableName" yaml:"tableName"`
	Columns   []Column         `json:"columns" yaml:"columns"`
	Rows      []map[string]any `json:"rows" yaml:"rows"`
}

type Column struct {
	ColumnName string `json:"columnName" yaml:"columnName"`
	DataType   string `json:"dataType" yaml:"dataType"`
}

// ExpectedOutput describes the correct answer used to grade a run.
type ExpectedOutput struct {
	Type    string `json:"type" yaml:"type"` // table | single_value | count
	Value   any    `json:"value" yaml:"value"`
	Ordered bool   `json:"ordered,omitempty" yaml:"ordered,omitempty"`
}

// Gradable reports whether both a kind and a value are present.
func (e *ExpectedOutput) Gradable() bool {
	return e != nil && e.Type != "" && e.Value != nil
}

// SchemaPrefix starts every sandbox schema name.
const SchemaPrefix = "assignment_"

// SchemaNameFor derives the sandbox schema of an assignment from its durable id.
func SchemaNameFor(id uuid.UUID) string {
	return SchemaPrefix + strings.ReplaceAll(id.String(), "-", "")
}
