package services

import (
	"reflect"
	"testing"
)

func TestStatementHeads(t *testing.T) {
	tests := []struct {
		query string
		want  [][]string
	}{
		{"SELECT 1", [][]string{{"SELECT", "1"}}},
		{"commit;insert into t values (1)", [][]string{{"COMMIT"}, {"INSERT", "INTO"}}},
		{"select 'a;b'; end", [][]string{{"SELECT"}, {"END"}}},
		{"select E'it\\'s; commit'; select 2", [][]string{{"SELECT", "E"}, {"SELECT", "2"}}},
		{"select $tag$ ; rollback $tag$ ; abort", [][]string{{"SELECT"}, {"ABORT"}}},
		{"select $1; select x$y", [][]string{{"SELECT", "1"}, {"SELECT", "X$Y"}}},
		{"/* a /* nested */ ; */ begin", [][]string{{"BEGIN"}}},
		{"-- ; commit\nselect 1", [][]string{{"SELECT", "1"}}},
		{`"commit"; release`, [][]string{{""}, {"RELEASE"}}},
		{";; ;", nil},
	}
	for _, tt := range tests {
		if got := statementHeads(tt.query); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("statementHeads(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestTransactionControlStatement(t *testing.T) {
	tests := map[string]string{
		"SELECT 1; COMMIT":              "COMMIT",
		"prepare transaction 'x'":       "PREPARE TRANSACTION",
		"PREPARE q AS SELECT 1":         "",
		"SELECT 'rollback' AS word":     "",
		"with x as (select 1) select *": "",
		"Start Transaction Read Write":  "START",
	}
	for in, want := range tests {
		if got := transactionControlStatement(in); got != want {
			t.Errorf("transactionControlStatement(%q) = %q, want %q", in, got, want)
		}
	}
}
