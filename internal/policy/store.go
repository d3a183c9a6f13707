package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Store serves immutable policy snapshots and swaps them atomically on
// reload or replace. In-flight requests keep the snapshot they started with.
type Store struct {
	path string
	doc  atomic.Pointer[Document]
}

// Open reads and parses the policy document at path.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the active policy document. The returned Document is
// immutable; callers may hold it for the duration of a request.
func (s *Store) Snapshot() *Document {
	return s.doc.Load()
}

// Reload re-reads the policy file and swaps in the new document. On any
// failure the previously active document stays in effect.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return err
	}
	s.doc.Store(doc)
	return nil
}

// Replace parses raw as a new policy document, persists it to the configured
// path, and swaps it in. The swap happens only after both the parse and the
// write succeed, so a failed replace never affects the active document.
func (s *Store) Replace(raw []byte) error {
	doc, err := Parse(raw)
	if err != nil {
		return err
	}

	normalized, err := marshalDocument(raw)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write policy file: %w", err)
		}
	}
	if err := os.WriteFile(s.path, normalized, 0o644); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}

	s.doc.Store(doc)
	return nil
}

// marshalDocument round-trips the payload through the YAML parser so the
// persisted file is normalized YAML even when the payload arrived as JSON.
func marshalDocument(raw []byte) ([]byte, error) {
	parser := yaml.Parser()
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), parser); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	out, err := parser.Marshal(k.Raw())
	if err != nil {
		return nil, fmt.Errorf("marshal policy document: %w", err)
	}
	return out, nil
}
