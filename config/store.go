package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Targets holds the persisted identifiers: the callout block that receives the
// final rich text, and the page that contains it.
type Targets struct {
	TargetBlock string `json:"target_block" toml:"target_block"`
	TargetPage  string `json:"target_page" toml:"target_page"`
}

// Store reads and writes Targets at a path. Files ending in ".toml" are TOML;
// everything else is JSON.
type Store struct {
	path string
}

// NewStore returns a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file location.
func (s *Store) Path() string { return s.path }

func (s *Store) isTOML() bool {
	return strings.EqualFold(filepath.Ext(s.path), ".toml")
}

// Load reads the file. It is read on every call so edits made by the admin
// helper take effect without a restart.
func (s *Store) Load() (Targets, error) {
	var t Targets
	data, err := os.ReadFile(s.path)
	if err != nil {
		return t, fmt.Errorf("read target store %s: %w", s.path, err)
	}
	if s.isTOML() {
		if _, err := toml.Decode(string(data), &t); err != nil {
			return t, fmt.Errorf("decode target store %s: %w", s.path, err)
		}
		return t, nil
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("decode target store %s: %w", s.path, err)
	}
	return t, nil
}

// Save overwrites the file with t.
func (s *Store) Save(t Targets) error {
	var buf bytes.Buffer
	if s.isTOML() {
		if err := toml.NewEncoder(&buf).Encode(t); err != nil {
			return fmt.Errorf("encode target store: %w", err)
		}
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "    ")
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encode target store: %w", err)
		}
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write target store %s: %w", s.path, err)
	}
	return nil
}

// SetTargetBlock replaces target_block, keeping the other keys.
func (s *Store) SetTargetBlock(id string) error {
	return s.update(func(t *Targets) { t.TargetBlock = id })
}

// SetTargetPage replaces target_page, keeping the other keys.
func (s *Store) SetTargetPage(id string) error {
	return s.update(func(t *Targets) { t.TargetPage = id })
}

func (s *Store) update(fn func(*Targets)) error {
	t, err := s.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fn(&t)
	return s.Save(t)
}
