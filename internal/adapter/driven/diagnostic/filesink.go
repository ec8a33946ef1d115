// Package diagnostic implements the DiagnosticSink port as an append-only
// JSON-lines file.
package diagnostic

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DiagnosticSink = (*FileSink)(nil)

// FileSink appends one JSON object per Record call to a local file.
// Concurrent Record calls are serialized.
type FileSink struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// entry is one line of the diagnostic file.
type entry struct {
	Time time.Time `json:"time"`
	Kind string    `json:"kind"`
	Data any       `json:"data"`
}

// NewFileSink creates a FileSink writing to path. The file is created on the
// first Record call.
func NewFileSink(path string, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSink{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Record appends v under kind. Failures are logged and otherwise ignored.
func (s *FileSink) Record(kind string, v any) {
	if err := s.append(kind, v); err != nil {
		s.logger.Warn("diagnostic write failed", "path", s.path, "kind", kind, "error", err)
	}
}

func (s *FileSink) append(kind string, v any) error {
	line, err := marshalEntry(entry{Time: s.now().UTC(), Kind: kind, Data: v})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open diagnostic file: %w", err)
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write diagnostic entry: %w", err)
	}

	return f.Close()
}

// marshalEntry encodes e as a single newline-terminated line. Raw webhook
// payloads are embedded as JSON rather than as a base64 string.
func marshalEntry(e entry) ([]byte, error) {
	if raw, ok := e.Data.([]byte); ok && json.Valid(raw) {
		e.Data = json.RawMessage(raw)
	}

	line, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode diagnostic entry: %w", err)
	}
	return append(line, '\n'), nil
}
