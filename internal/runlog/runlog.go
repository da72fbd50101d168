// Package runlog collects the diagnostics of one reconciliation pass.
// Adapters and readers append warnings as they go; the report builder
// reads the lines once at the end and merges them into the break file.
// The collector is an explicit value threaded through the pass, so there
// is no process-wide log state.
package runlog

import "fmt"

// Log accumulates diagnostic lines in emission order. One Log belongs to
// exactly one pass; runs are single-threaded so no locking is needed.
type Log struct {
	lines []string
}

// New returns an empty log.
func New() *Log { return &Log{} }

// Warnf records a non-fatal data-absence or data-quality diagnostic.
func (l *Log) Warnf(format string, args ...any) {
	l.lines = append(l.lines, "WARNING: "+fmt.Sprintf(format, args...))
}

// Infof records an informational line.
func (l *Log) Infof(format string, args ...any) {
	l.lines = append(l.lines, "INFO: "+fmt.Sprintf(format, args...))
}

// Lines returns the recorded diagnostics in emission order.
func (l *Log) Lines() []string { return l.lines }

// Len returns the number of recorded lines.
func (l *Log) Len() int { return len(l.lines) }
