package audit

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSink_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	sink, err := NewFileSink(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	records := []Record{
		{Timestamp: 100, Tenant: "acme", Provider: "openai", Model: "gpt-4o", Prompt: "p1", Response: "r1"},
		{Timestamp: 101, Tenant: "acme", Provider: "proxy", Model: "http://x", Prompt: "GET http://x", Response: "r2"},
		{Timestamp: 102, Tenant: "globex", Provider: "ollama", Model: "llama3", Prompt: "p3", Response: "r3"},
	}
	for _, rec := range records {
		if err := sink.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var got []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", len(got)+1, err)
		}
		got = append(got, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i, rec := range records {
		if got[i] != rec {
			t.Errorf("record %d = %+v, want %+v", i, got[i], rec)
		}
	}
}

func TestFileSink_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := NewFileSink(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	// Second close must not panic on the already-closed channel
	sink.Close()
}

func TestFileSink_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sink, err := NewFileSink(path, logger)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	sink.Write(Record{Timestamp: 1, Tenant: "acme"})
	sink.Close()

	sink, err = NewFileSink(path, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sink.Write(Record{Timestamp: 2, Tenant: "acme"})
	sink.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := 0
	for _, b := range raw {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("log has %d lines, want 2 (reopen must append, not truncate)", lines)
	}
}
