package engine

import (
	"strings"
	"testing"
)

func TestMetricsSnapshot(t *testing.T) {
	m := &Metrics{}
	m.Runs.Add(2)
	m.FetchRequests.Add(5)
	m.ParseWarnings.Add(1)

	snap := m.Snapshot()
	if snap["runs"] != 2 {
		t.Errorf("runs = %d, want 2", snap["runs"])
	}
	if snap["fetch_requests"] != 5 {
		t.Errorf("fetch_requests = %d, want 5", snap["fetch_requests"])
	}
	if snap["parse_warnings"] != 1 {
		t.Errorf("parse_warnings = %d, want 1", snap["parse_warnings"])
	}
	if snap["run_errors"] != 0 {
		t.Errorf("run_errors = %d, want 0", snap["run_errors"])
	}
}

func TestMetricsFormat(t *testing.T) {
	m := &Metrics{}
	m.Runs.Add(1)

	out := m.Format()
	if !strings.Contains(out, "runs 1\n") {
		t.Errorf("Format() = %q, want a 'runs 1' line", out)
	}

	// Lines come out sorted by counter name.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i-1] >= lines[i] {
			t.Errorf("Format() lines not sorted: %q before %q", lines[i-1], lines[i])
		}
	}
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	if got := m.Snapshot(); len(got) != 0 {
		t.Errorf("nil Snapshot() = %v, want empty", got)
	}
}
