package services

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"ciphersql/internal/models"
)

// Grade compares a run's output with the stored expected output.
//
// Values are canonicalised before comparison: numbers and numeric strings
// compare by value, so 3, 3.0 and "3.00" are equal. A list-shaped expected
// value is always compared as a table regardless of its kind.
func Grade(expected *models.ExpectedOutput, columns []string, rows []map[string]any) (bool, error) {
	if !expected.Gradable() {
		return false, fmt.Errorf("expected output is incomplete")
	}

	if want, ok := asRows(expected.Value); ok {
		return compareTables(want, rows, expected.Ordered), nil
	}

	switch expected.Type {
	case models.OutputCount:
		n := canonical(expected.Value)
		if cell, ok := singleCell(columns, rows); ok {
			return canonical(cell) == n, nil
		}
		return canonical(len(rows)) == n, nil

	case models.OutputSingleValue:
		cell, ok := singleCell(columns, rows)
		if !ok {
			return false, nil
		}
		return canonical(cell) == canonical(expected.Value), nil

	case models.OutputTable:
		return false, fmt.Errorf("table output must be a list of rows, got %T", expected.Value)

	default:
		return false, fmt.Errorf("unknown expected output type %q", expected.Type)
	}
}

func singleCell(columns []string, rows []map[string]any) (any, bool) {
	if len(columns) != 1 || len(rows) != 1 {
		return nil, false
	}
	v, ok := rows[0][columns[0]]
	return v, ok
}

// asRows accepts the shapes a list of row objects takes after JSON or YAML decoding.
func asRows(v any) ([]map[string]any, bool) {
	switch x := v.(type) {
	case []map[string]any:
		return x, true
	case []any:
		rows := make([]map[string]any, 0, len(x))
		for _, item := range x {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			rows = append(rows, m)
		}
		return rows, true
	}
	return nil, false
}

func compareTables(want, got []map[string]any, ordered bool) bool {
	if len(want) != len(got) {
		return false
	}

	a := make([]string, len(want))
	b := make([]string, len(got))
	for i := range want {
		a[i] = canonicalRow(want[i])
		b[i] = canonicalRow(got[i])
	}
	if !ordered {
		sort.Strings(a)
		sort.Strings(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// canonicalRow renders a row with lower-cased, sorted column names.
func canonicalRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	values := make(map[string]string, len(row))
	for k, v := range row {
		lk := strings.ToLower(k)
		keys = append(keys, lk)
		values[lk] = canonical(v)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(values[k])
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

func canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case string:
		if r, ok := parseDecimal(x); ok {
			return "n:" + r.RatString()
		}
		return "s:" + x
	case json.Number:
		return canonical(string(x))
	case float64:
		// The shortest decimal that round-trips, so 133.33 matches numeric "133.33".
		return canonical(strconv.FormatFloat(x, 'g', -1, 64))
	case float32:
		return canonical(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case time.Time:
		return "s:" + x.Format(time.RFC3339Nano)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "n:" + strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "n:" + strconv.FormatUint(rv.Uint(), 10)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "s:" + fmt.Sprint(v)
	}
	return "j:" + string(b)
}

// parseDecimal accepts plain decimal literals such as "42", "-1.50" or "1e3".
func parseDecimal(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "/_") {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(s)
	return r, ok
}
