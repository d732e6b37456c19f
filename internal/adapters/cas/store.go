// Package cas implements content-addressed result storage on a flat JSON file.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ResultStore = (*Store)(nil)

// Store implements ports.ResultStore using a flat JSON file keyed by
// fingerprint, so result caching survives process restarts.
type Store struct {
	path  string
	mu    sync.RWMutex
	cache map[domain.Fingerprint]domain.Result
}

// NewStore creates a result store backed by the file at the given path.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:  filepath.Clean(path),
		cache: make(map[domain.Fingerprint]domain.Result),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read result store")
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.cache); err != nil {
		return zerr.Wrap(err, "failed to unmarshal result store")
	}

	return nil
}

func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal result store")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create directory for result store")
	}

	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write result store")
	}

	return nil
}

// Get retrieves the result for a fingerprint. Returns nil, nil on a miss.
func (s *Store) Get(fp domain.Fingerprint) (*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.cache[fp]
	if !ok {
		return nil, nil
	}
	return &result, nil
}

// Put stores the result, overwriting any previous entry for its fingerprint.
func (s *Store) Put(result domain.Result) error {
	s.mu.Lock()
	s.cache[result.Fingerprint] = result
	s.mu.Unlock()

	return s.save()
}

// List returns all stored results in ascending fingerprint order.
func (s *Store) List() ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Result, 0, len(s.cache))
	for _, r := range s.cache {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out, nil
}
