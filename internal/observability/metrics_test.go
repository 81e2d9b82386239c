package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistered(t *testing.T) {
	RequestsTotal.WithLabelValues("GET", "/", "2xx").Inc()
	RequestDuration.WithLabelValues("GET", "/").Observe(0.01)
	SandboxRunsTotal.WithLabelValues("ok").Inc()
	SandboxRunDuration.Observe(0.002)
	SandboxVerdictsTotal.WithLabelValues("correct").Inc()
	HintsTotal.WithLabelValues("static").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"ciphersql_requests_total":               false,
		"ciphersql_request_duration_seconds":     false,
		"ciphersql_sandbox_runs_total":           false,
		"ciphersql_sandbox_run_duration_seconds": false,
		"ciphersql_sandbox_verdicts_total":       false,
		"ciphersql_hints_total":                  false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
		// The seeder never serves /metrics and logs its counts instead.
		if strings.HasPrefix(mf.GetName(), "ciphersql_seed") {
			t.Errorf("unexpected seeder metric %s", mf.GetName())
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestSandboxRunsCounter(t *testing.T) {
	before := testutil.ToFloat64(SandboxRunsTotal.WithLabelValues("forbidden"))
	SandboxRunsTotal.WithLabelValues("forbidden").Inc()
	after := testutil.ToFloat64(SandboxRunsTotal.WithLabelValues("forbidden"))

	if after-before != 1 {
		t.Errorf("forbidden counter advanced by %v, want 1", after-before)
	}
}
