package driven

// DiagnosticSink receives raw payloads and API results for offline debugging.
// Implementations must not fail the caller; write errors are theirs to handle.
type DiagnosticSink interface {
	Record(kind string, v any)
}

// NopSink discards everything.
type NopSink struct{}

// Record implements DiagnosticSink.
func (NopSink) Record(string, any) {}
