package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters for one analyzer instance.
type Metrics struct {
	Runs           atomic.Int64
	RunErrors      atomic.Int64
	FetchRequests  atomic.Int64
	FetchErrors    atomic.Int64
	ParseWarnings  atomic.Int64
	BreakerRejects atomic.Int64
}

// Snapshot returns a map of all counters.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return map[string]int64{
		"runs":            m.Runs.Load(),
		"run_errors":      m.RunErrors.Load(),
		"fetch_requests":  m.FetchRequests.Load(),
		"fetch_errors":    m.FetchErrors.Load(),
		"parse_warnings":  m.ParseWarnings.Load(),
		"breaker_rejects": m.BreakerRejects.Load(),
	}
}

// Format renders counters as sorted "name value" lines.
func (m *Metrics) Format() string {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, snap[k])
	}
	return sb.String()
}
