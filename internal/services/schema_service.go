package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"ciphersql/internal/models"
	"ciphersql/internal/repositories"

	"github.com/google/uuid"
)

const (
	maxJunctionTableColumns = 6
	minJunctionTableFKs     = 2
)

// SchemaIntrospector is satisfied by *repositories.SchemaRepository.
type SchemaIntrospector interface {
	SchemaExists(ctx context.Context, schema string) (bool, error)
	Describe(ctx context.Context, schema string) ([]models.SchemaTable, error)
	UniqueColumns(ctx context.Context, schema string) (map[string]bool, error)
}

type SchemaService struct {
	assignments AssignmentLookup
	schemas     SchemaIntrospector
}

func NewSchemaService(assignments AssignmentLookup, schemas SchemaIntrospector) *SchemaService {
	return &SchemaService{assignments: assignments, schemas: schemas}
}

// SchemaView is the live shape of an assignment's sandbox schema.
type SchemaView struct {
	Schema  string               `json:"schema"`
	Tables  []models.SchemaTable `json:"tables"`
	Mermaid string               `json:"mermaid"`
}

// Describe introspects the assignment's schema and renders it as a Mermaid ER diagram.
func (s *SchemaService) Describe(ctx context.Context, assignmentID string) (*SchemaView, error) {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return nil, ErrNotFound
	}
	assignment, err := s.assignments.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading assignment: %w", err)
	}

	schema := assignment.PostgresSchemaName
	exists, err := s.schemas.SchemaExists(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to check schema %s: %w", schema, err)
	}
	if !exists {
		// The document was stored but the seeder never provisioned its schema.
		return nil, ErrNotFound
	}

	tables, err := s.schemas.Describe(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to describe schema %s: %w", schema, err)
	}

	unique, err := s.schemas.UniqueColumns(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique constraints: %w", err)
	}

	return &SchemaView{
		Schema:  schema,
		Tables:  tables,
		Mermaid: generateMermaid(tables, buildRelationships(tables, unique)),
	}, nil
}

func buildRelationships(tables []models.SchemaTable, unique map[string]bool) []models.Relationship {
	var relationships []models.Relationship
	junctions := detectJunctionTables(tables)

	for _, table := range tables {
		// A junction table becomes many-to-many edges between the tables it links
		if junctions[table.Name] {
			for i := 0; i < len(table.ForeignKeys); i++ {
				for j := i + 1; j < len(table.ForeignKeys); j++ {
					relationships = append(relationships, models.Relationship{
						FromTable: table.ForeignKeys[i].ToTable,
						ToTable:   table.ForeignKeys[j].ToTable,
						Type:      "}o--o{",
					})
				}
			}
			continue
		}

		for _, fk := range table.ForeignKeys {
			relType := "||--o{"
			if unique[table.Name+":"+fk.FromColumn] {
				relType = "||--||"
			}
			relationships = append(relationships, models.Relationship{
				FromTable: fk.ToTable,
				ToTable:   table.Name,
				Type:      relType,
			})
		}
	}
	return relationships
}

// detectJunctionTables finds small tables whose primary key is made of at
// least two foreign keys.
func detectJunctionTables(tables []models.SchemaTable) map[string]bool {
	junctions := make(map[string]bool)
	for _, table := range tables {
		if len(table.ForeignKeys) < minJunctionTableFKs ||
			len(table.PrimaryKeys) < minJunctionTableFKs ||
			len(table.Columns) > maxJunctionTableColumns {
			continue
		}

		fkInPK := 0
		for _, fk := range table.ForeignKeys {
			if !slices.Contains(table.PrimaryKeys, fk.FromColumn) {
				fkInPK = -1
				break
			}
			fkInPK++
		}
		if fkInPK >= minJunctionTableFKs {
			junctions[table.Name] = true
		}
	}
	return junctions
}

func generateMermaid(tables []models.SchemaTable, relationships []models.Relationship) string {
	var sb strings.Builder
	sb.WriteString("erDiagram\n")

	seen := make(map[string]bool)
	for _, rel := range relationships {
		key := rel.FromTable + ":" + rel.Type + ":" + rel.ToTable
		if seen[key] {
			continue
		}
		seen[key] = true
		// Mermaid requires a label; an empty one hides it.
		fmt.Fprintf(&sb, "    %s %s %s : \"\"\n", strings.ToUpper(rel.FromTable), rel.Type, strings.ToUpper(rel.ToTable))
	}
	if len(seen) > 0 {
		sb.WriteString("\n")
	}

	for _, table := range tables {
		fmt.Fprintf(&sb, "    %s {\n", strings.ToUpper(table.Name))
		for _, col := range table.Columns {
			var annotations []string
			if slices.Contains(table.PrimaryKeys, col.Name) {
				annotations = append(annotations, "PK")
			}
			if slices.ContainsFunc(table.ForeignKeys, func(fk models.ForeignKey) bool { return fk.FromColumn == col.Name }) {
				annotations = append(annotations, "FK")
			}

			line := simplifyDataType(col.DataType) + " " + col.Name
			if len(annotations) > 0 {
				line += " " + strings.Join(annotations, ",")
			}
			fmt.Fprintf(&sb, "        %s\n", line)
		}
		sb.WriteString("    }\n")
	}
	return sb.String()
}

func simplifyDataType(dataType string) string {
	dt := strings.ToLower(dataType)

	switch {
	case dt == "integer":
		return "int"
	case strings.HasPrefix(dt, "character varying"):
		return "varchar"
	case strings.HasPrefix(dt, "character"):
		return "char"
	case strings.HasPrefix(dt, "timestamp without time zone"):
		return "timestamp"
	case strings.HasPrefix(dt, "timestamp with time zone"):
		return "timestamptz"
	case strings.HasPrefix(dt, "time without time zone"):
		return "time"
	case dt == "double precision":
		return "double"
	case strings.HasPrefix(dt, "numeric"):
		return "numeric"
	case dt == "array":
		return "array"
	default:
		return strings.ReplaceAll(dt, " ", "_")
	}
}
