package srs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ExportDoc is the on-disk shape of an exported review log. There is
// no import path for it; export is a one-way backup for the user.
type ExportDoc struct {
	ExportedAt time.Time `json:"exported_at"`
	State      State     `json:"state"`
}

// Export serializes the full persisted state to w as an indented JSON
// document.
func (s *Srs) Export(w io.Writer) error {
	s.mu.Lock()
	state, err := s.loadState()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ExportDoc{ExportedAt: s.now(), State: state}); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ExportFile writes the export document to path, going through a
// temporary file and a rename so an existing export is never left
// half-written.
func (s *Srs) ExportFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".srs-export-*")
	if err != nil {
		return fmt.Errorf("create export temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.Export(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("finalize export file: %w", err)
	}
	return nil
}
