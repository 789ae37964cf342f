// Package settings persists plugin preferences as scope/key/value strings.
package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"pkt.systems/pslog"
)

// GlobalScope holds settings shared with the host and every plugin.
const GlobalScope = ""

// DefaultFileName is the settings document name inside the data directory.
const DefaultFileName = "settings.yaml"

// Store reads and writes scoped settings.
type Store interface {
	Get(scope, key string) (string, bool)
	Set(scope, key, value string) error
}

type document map[string]map[string]string

func (d document) get(scope, key string) (string, bool) {
	values, ok := d[scope]
	if !ok {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (d document) set(scope, key, value string) {
	values, ok := d[scope]
	if !ok {
		values = make(map[string]string)
		d[scope] = values
	}
	values[key] = value
}

// FileStore keeps settings in a YAML document on disk. Every Set rewrites
// the document atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
	doc  document
	log  pslog.Logger
}

// Open loads the document at path. A missing file is an empty store.
func Open(path string, logger pslog.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("settings path is required")
	}
	if logger != nil {
		logger = logger.With("settings", path)
	}
	s := &FileStore{path: path, doc: make(document), log: logger}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("settings load miss")
			}
			return s, nil
		}
		if s.log != nil {
			s.log.Warn("settings load failed", "err", err)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		if s.log != nil {
			s.log.Warn("settings load failed", "err", err)
		}
		return nil, err
	}
	if s.doc == nil {
		s.doc = make(document)
	}
	if s.log != nil {
		s.log.Debug("settings load ok", "scopes", len(s.doc))
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(scope, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.get(scope, key)
}

func (s *FileStore) Set(scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.doc.get(scope, key)
	s.doc.set(scope, key, value)
	if err := s.save(); err != nil {
		if had {
			s.doc.set(scope, key, prev)
		} else {
			delete(s.doc[scope], key)
			if len(s.doc[scope]) == 0 {
				delete(s.doc, scope)
			}
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("settings save ok", "scope", scope, "key", key)
	}
	return nil
}

func (s *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.warn(err)
		return err
	}
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		s.warn(err)
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "settings-*.yaml")
	if err != nil {
		s.warn(err)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		s.warn(err)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		s.warn(err)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		s.warn(err)
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		s.warn(err)
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		s.warn(err)
		return err
	}
	return nil
}

func (s *FileStore) warn(err error) {
	if s.log != nil {
		s.log.Warn("settings save failed", "err", err)
	}
}

// MemoryStore is a Store that never touches disk.
type MemoryStore struct {
	mu  sync.Mutex
	doc document
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: make(document)}
}

func (m *MemoryStore) Get(scope, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.get(scope, key)
}

func (m *MemoryStore) Set(scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.set(scope, key, value)
	return nil
}

// String returns the stored value or def.
func String(s Store, scope, key, def string) string {
	if v, ok := s.Get(scope, key); ok {
		return v
	}
	return def
}

// Bool parses the stored value; missing or malformed values yield def.
func Bool(s Store, scope, key string, def bool) bool {
	v, ok := s.Get(scope, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// SetBool stores b in its canonical form.
func SetBool(s Store, scope, key string, b bool) error {
	return s.Set(scope, key, strconv.FormatBool(b))
}

// Float parses the stored value; missing or malformed values yield def.
func Float(s Store, scope, key string, def float64) float64 {
	v, ok := s.Get(scope, key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// SetFloat stores f with the shortest exact representation.
func SetFloat(s Store, scope, key string, f float64) error {
	return s.Set(scope, key, strconv.FormatFloat(f, 'g', -1, 64))
}
