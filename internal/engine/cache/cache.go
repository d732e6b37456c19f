// Package cache implements the result cache governing skip-vs-execute
// decisions.
package cache

import (
	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/zerr"
)

// ResultCache maps unit fingerprints to stored results. The skip policy is
// deliberately asymmetric: a cached Succeeded result skips the unit, a cached
// Failed result does not, so transient failures are always re-attempted on
// the next run.
type ResultCache struct {
	store ports.ResultStore
}

// New creates a ResultCache over the given store.
func New(store ports.ResultStore) *ResultCache {
	return &ResultCache{store: store}
}

// Lookup returns the stored result for a fingerprint, or nil on a miss.
func (c *ResultCache) Lookup(fp domain.Fingerprint) (*domain.Result, error) {
	result, err := c.store.Get(fp)
	if err != nil {
		return nil, zerr.Wrap(err, "result cache read failed")
	}
	return result, nil
}

// Skippable reports whether the unit with the given fingerprint can be
// skipped, returning the cached result when it can. force bypasses the cache
// entirely, in which case the unit is recomputed and the entry overwritten.
func (c *ResultCache) Skippable(fp domain.Fingerprint, force bool) (*domain.Result, error) {
	if force {
		return nil, nil
	}

	cached, err := c.Lookup(fp)
	if err != nil {
		return nil, err
	}
	if cached == nil || cached.Status != domain.ResultSucceeded {
		return nil, nil
	}
	return cached, nil
}

// Put stores a result, overwriting any previous entry for the fingerprint.
func (c *ResultCache) Put(result domain.Result) error {
	if err := c.store.Put(result); err != nil {
		return zerr.With(zerr.Wrap(err, "result cache write failed"), "fingerprint", string(result.Fingerprint))
	}
	return nil
}
