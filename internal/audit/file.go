package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends JSON lines to a log file. All writes funnel through a
// single writer goroutine, so concurrent request completions never interleave
// partial lines.
type FileSink struct {
	file *os.File
	log  *slog.Logger

	ch   chan Record
	once sync.Once
	wg   sync.WaitGroup
}

// NewFileSink opens (creating if needed) the audit log at path and starts
// the writer goroutine.
func NewFileSink(path string, logger *slog.Logger) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	s := &FileSink{
		file: f,
		log:  logger,
		ch:   make(chan Record, 64),
	}
	s.wg.Add(1)
	go s.run()
	return s, nil
}

func (s *FileSink) run() {
	defer s.wg.Done()
	enc := json.NewEncoder(s.file)
	for rec := range s.ch {
		if err := enc.Encode(rec); err != nil {
			s.log.Error("audit write failed", slog.String("tenant", rec.Tenant), slog.String("error", err.Error()))
		}
	}
}

// Write queues a record for appending. It blocks when the writer falls
// behind rather than dropping records.
func (s *FileSink) Write(rec Record) error {
	s.ch <- rec
	return nil
}

// Close drains pending records and closes the file.
func (s *FileSink) Close() error {
	s.once.Do(func() { close(s.ch) })
	s.wg.Wait()
	return s.file.Close()
}
