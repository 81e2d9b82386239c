package seeddata

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"ciphersql/internal/models"
)

func validDefinition() Definition {
	return Definition{
		Key:         "orders",
		Title:       "Orders",
		Description: models.DifficultyEasy,
		Question:    "List all orders.",
		SampleTables: []models.SampleTable{{
			TableName: "orders",
			Columns: []models.Column{
				{ColumnName: "id", DataType: "INTEGER"},
				{ColumnName: "amount", DataType: "NUMERIC(10,2)"},
			},
			Rows: []map[string]any{{"id": 1, "amount": 9.5}},
		}},
		ExpectedOutput: &models.ExpectedOutput{Type: models.OutputCount, Value: 1},
	}
}

func TestLoadDefault(t *testing.T) {
	defs, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if len(defs) < 2 {
		t.Fatalf("got %d definitions, want several", len(defs))
	}
	for _, d := range defs {
		if !d.ExpectedOutput.Gradable() {
			t.Errorf("%s has no gradable expected output", d.Title)
		}
	}
}

func TestIDIsStable(t *testing.T) {
	a := validDefinition()
	b := validDefinition()
	b.Title = "Renamed"

	if a.ID() != b.ID() {
		t.Error("id should depend on the key only")
	}

	c := validDefinition()
	c.Key = ""
	d := validDefinition()
	d.Key = ""
	if c.ID() != d.ID() {
		t.Error("id should fall back to the title")
	}
	if c.ID() == a.ID() {
		t.Error("keyed and unkeyed definitions should differ")
	}

	if !regexp.MustCompile(`^assignment_[0-9a-f]{32}$`).MatchString(a.SchemaName()) {
		t.Errorf("schema name %q has unexpected shape", a.SchemaName())
	}
}

func TestAssignment(t *testing.T) {
	d := validDefinition()
	a := d.Assignment()

	if a.ID != d.ID() || a.PostgresSchemaName != d.SchemaName() {
		t.Errorf("identity not carried over: %+v", a)
	}
	if a.Title != d.Title || a.Question != d.Question || len(a.SampleTables) != 1 {
		t.Errorf("fields not carried over: %+v", a)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr string
	}{
		{"valid", func(d *Definition) {}, ""},
		{"missing title", func(d *Definition) { d.Title = " " }, "title"},
		{"missing question", func(d *Definition) { d.Question = "" }, "question"},
		{"bad difficulty", func(d *Definition) { d.Description = "Trivial" }, "Easy, Medium or Hard"},
		{"bad table name", func(d *Definition) { d.SampleTables[0].TableName = "orders; DROP" }, "invalid table name"},
		{"bad column name", func(d *Definition) { d.SampleTables[0].Columns[0].ColumnName = "1id" }, "invalid column name"},
		{"bad data type", func(d *Definition) { d.SampleTables[0].Columns[0].DataType = "INT); DROP TABLE x; --" }, "invalid data type"},
		{"no columns", func(d *Definition) { d.SampleTables[0].Columns = nil }, "no columns"},
		{"unknown row key", func(d *Definition) { d.SampleTables[0].Rows[0]["price"] = 3 }, "unknown column"},
		{"duplicate table", func(d *Definition) {
			d.SampleTables = append(d.SampleTables, d.SampleTables[0])
		}, "declared twice"},
		{"bad output kind", func(d *Definition) { d.ExpectedOutput.Type = "histogram" }, "expectedOutput.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDefinition()
			tt.mutate(&d)

			err := d.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseRejectsDuplicateKeys(t *testing.T) {
	data := []byte(`
- key: same
  title: First
  description: Easy
  question: q1
  sampleTables: []
- key: same
  title: Second
  description: Hard
  question: q2
  sampleTables: []
`)
	if _, err := Parse(data); err == nil || !strings.Contains(err.Error(), "same key") {
		t.Fatalf("err = %v, want duplicate key error", err)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse([]byte("[]")); err == nil {
		t.Fatal("expected error for empty list")
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assignments.json")
	body := `[{"key":"k","title":"T","description":"Medium","question":"Q",
"sampleTables":[{"tableName":"t","columns":[{"columnName":"id","dataType":"INT"}],"rows":[{"id":1}]}],
"expectedOutput":{"type":"table","value":[{"id":1}]}}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	defs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 1 || defs[0].SampleTables[0].TableName != "t" {
		t.Fatalf("defs = %+v", defs)
	}
	rows, ok := defs[0].ExpectedOutput.Value.([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("expected value = %#v", defs[0].ExpectedOutput.Value)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
