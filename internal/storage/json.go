package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/v0xg/webmacro/internal/macro"
	"go.uber.org/zap"
)

// JSONStore keeps every macro in a single JSON array on disk
type JSONStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewJSONStore opens the store at path, creating the file and its parent
// directories when missing
func NewJSONStore(path string, opts ...Option) (*JSONStore, error) {
	o := newOptions(opts)
	s := &JSONStore{path: path, logger: o.logger}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		if err := s.writeAll(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat storage file: %w", err)
	}
	return s, nil
}

func (s *JSONStore) Save(_ context.Context, m macro.Macro) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}

	replaced := false
	for i := range all {
		if all[i].Name == m.Name {
			all[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, m)
	}
	return s.writeAll(all)
}

func (s *JSONStore) Get(_ context.Context, name string) (macro.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return macro.Macro{}, err
	}
	for _, m := range all {
		if m.Name == name {
			return m, nil
		}
	}
	return macro.Macro{}, fmt.Errorf("%w: %s", macro.ErrNotFound, name)
}

func (s *JSONStore) List(_ context.Context) ([]macro.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readAll()
}

func (s *JSONStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, m := range all {
		if m.Name != name {
			kept = append(kept, m)
		}
	}
	return s.writeAll(kept)
}

// readAll treats an empty or syntactically corrupt file as an empty store.
// A well-formed file that doesn't fit the macro layout is an error, so a
// later write can't replace macros that merely failed to decode.
func (s *JSONStore) readAll() ([]macro.Macro, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var all []macro.Macro
	if err := json.Unmarshal(data, &all); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			s.logger.Warn("storage file is corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode storage file %s: %w", s.path, err)
	}
	return all, nil
}

func (s *JSONStore) writeAll(all []macro.Macro) error {
	if all == nil {
		all = []macro.Macro{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal macros: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}
