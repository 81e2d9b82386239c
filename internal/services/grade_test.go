package services

import (
	"encoding/json"
	"testing"

	"ciphersql/internal/models"
	"ciphersql/internal/seeddata"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name     string
		expected *models.ExpectedOutput
		columns  []string
		rows     []map[string]any
		want     bool
	}{
		{
			name:     "count from single cell",
			expected: &models.ExpectedOutput{Type: models.OutputCount, Value: float64(3)},
			columns:  []string{"count"},
			rows:     []map[string]any{{"count": int64(3)}},
			want:     true,
		},
		{
			name:     "count from single cell mismatch",
			expected: &models.ExpectedOutput{Type: models.OutputCount, Value: 3},
			columns:  []string{"count"},
			rows:     []map[string]any{{"count": int64(4)}},
			want:     false,
		},
		{
			name:     "count from row count",
			expected: &models.ExpectedOutput{Type: models.OutputCount, Value: 2},
			columns:  []string{"id", "name"},
			rows:     []map[string]any{{"id": 1, "name": "a"}, {"id": 2, "name": "b"}},
			want:     true,
		},
		{
			name:     "count of empty result",
			expected: &models.ExpectedOutput{Type: models.OutputCount, Value: 0},
			columns:  []string{"id"},
			rows:     []map[string]any{},
			want:     true,
		},
		{
			name:     "single value numeric string",
			expected: &models.ExpectedOutput{Type: models.OutputSingleValue, Value: 66.5},
			columns:  []string{"avg"},
			rows:     []map[string]any{{"avg": json.Number("66.50")}},
			want:     true,
		},
		{
			name:     "single value text",
			expected: &models.ExpectedOutput{Type: models.OutputSingleValue, Value: "Alice"},
			columns:  []string{"name"},
			rows:     []map[string]any{{"name": "Alice"}},
			want:     true,
		},
		{
			name:     "single value with two rows",
			expected: &models.ExpectedOutput{Type: models.OutputSingleValue, Value: "Alice"},
			columns:  []string{"name"},
			rows:     []map[string]any{{"name": "Alice"}, {"name": "Bob"}},
			want:     false,
		},
		{
			name: "table ignores row order",
			expected: &models.ExpectedOutput{Type: models.OutputTable, Value: []any{
				map[string]any{"id": float64(1), "name": "a"},
				map[string]any{"id": float64(2), "name": "b"},
			}},
			columns: []string{"id", "name"},
			rows:    []map[string]any{{"id": int32(2), "name": "b"}, {"id": int32(1), "name": "a"}},
			want:    true,
		},
		{
			name: "ordered table respects row order",
			expected: &models.ExpectedOutput{Type: models.OutputTable, Ordered: true, Value: []any{
				map[string]any{"id": 1},
				map[string]any{"id": 2},
			}},
			columns: []string{"id"},
			rows:    []map[string]any{{"id": 2}, {"id": 1}},
			want:    false,
		},
		{
			name: "table keys compare case-insensitively",
			expected: &models.ExpectedOutput{Type: models.OutputTable, Value: []map[string]any{
				{"Name": "a"},
			}},
			columns: []string{"name"},
			rows:    []map[string]any{{"name": "a"}},
			want:    true,
		},
		{
			name: "table duplicates counted",
			expected: &models.ExpectedOutput{Type: models.OutputTable, Value: []any{
				map[string]any{"id": 1},
				map[string]any{"id": 1},
			}},
			columns: []string{"id"},
			rows:    []map[string]any{{"id": 1}, {"id": 2}},
			want:    false,
		},
		{
			name: "list value under another kind compares as table",
			expected: &models.ExpectedOutput{Type: models.OutputCount, Value: []any{
				map[string]any{"n": 5},
			}},
			columns: []string{"n"},
			rows:    []map[string]any{{"n": int64(5)}},
			want:    true,
		},
		{
			name: "null cells",
			expected: &models.ExpectedOutput{Type: models.OutputTable, Value: []any{
				map[string]any{"x": nil},
			}},
			columns: []string{"x"},
			rows:    []map[string]any{{"x": nil}},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Grade(tt.expected, tt.columns, tt.rows)
			if err != nil {
				t.Fatalf("Grade: %v", err)
			}
			if got != tt.want {
				t.Errorf("Grade = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrade_DecimalAnswerAfterStorage(t *testing.T) {
	defs, err := seeddata.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	var def *seeddata.Definition
	for i := range defs {
		if defs[i].Key == "average-order-value" {
			def = &defs[i]
		}
	}
	if def == nil {
		t.Fatal("average-order-value missing from the default set")
	}

	// Documents are read back from the store as JSON, so the value becomes a float64.
	raw, err := json.Marshal(def.Assignment())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var stored models.Assignment
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	for _, cell := range []any{json.Number("133.33"), 133.33, "133.330"} {
		ok, err := Grade(stored.ExpectedOutput, []string{"round"}, []map[string]any{{"round": cell}})
		if err != nil {
			t.Fatalf("Grade: %v", err)
		}
		if !ok {
			t.Errorf("Grade(%#v) = false, want true", cell)
		}
	}

	ok, _ := Grade(stored.ExpectedOutput, []string{"round"}, []map[string]any{{"round": json.Number("133.34")}})
	if ok {
		t.Error("Grade(133.34) = true, want false")
	}
}

func TestGradeErrors(t *testing.T) {
	cases := map[string]*models.ExpectedOutput{
		"nil":           nil,
		"missing value": {Type: models.OutputCount},
		"unknown kind":  {Type: "histogram", Value: 1},
		"table scalar":  {Type: models.OutputTable, Value: "x"},
		"missing kind":  {Value: 1},
	}
	for name, expected := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Grade(expected, []string{"a"}, []map[string]any{{"a": 1}}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	equal := [][2]any{
		{3, "3"},
		{int64(3), float64(3)},
		{"3.00", json.Number("3")},
		{float32(0.5), "0.5"},
		{uint8(7), int32(7)},
		{133.33, json.Number("133.33")},
		{0.1, "0.1"},
		{float32(0.1), json.Number("0.10")},
		{1e21, "1000000000000000000000"},
	}
	for _, pair := range equal {
		if canonical(pair[0]) != canonical(pair[1]) {
			t.Errorf("canonical(%#v) != canonical(%#v)", pair[0], pair[1])
		}
	}

	distinct := [][2]any{
		{"abc", "ABC"},
		{nil, ""},
		{true, "true"},
		{1, "1.0001"},
	}
	for _, pair := range distinct {
		if canonical(pair[0]) == canonical(pair[1]) {
			t.Errorf("canonical(%#v) == canonical(%#v)", pair[0], pair[1])
		}
	}
}
