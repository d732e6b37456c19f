package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestIsDeterministic(t *testing.T) {
	t.Parallel()

	build := func() Fingerprint {
		return NewDigest().
			Field("kind", "workload").
			Field("id", "matmul").
			StringMap("params", map[string]string{"batch": "32", "dtype": "fp16"}).
			Sum()
	}

	assert.Equal(t, build(), build())
	assert.Len(t, string(build()), 16)
}

func TestDigestMapOrderIndependent(t *testing.T) {
	t.Parallel()

	a := NewDigest().StringMap("params", map[string]string{"a": "1", "b": "2", "c": "3"}).Sum()
	b := NewDigest().StringMap("params", map[string]string{"c": "3", "a": "1", "b": "2"}).Sum()
	assert.Equal(t, a, b)
}

func TestDigestFieldBoundaries(t *testing.T) {
	t.Parallel()

	// Adjacent fields must not be confusable by shifting bytes between them.
	a := NewDigest().Field("x", "ab").Field("y", "c").Sum()
	b := NewDigest().Field("x", "a").Field("y", "bc").Sum()
	assert.NotEqual(t, a, b)
}

func TestDigestSortedStrings(t *testing.T) {
	t.Parallel()

	a := NewDigest().SortedStrings("caps", []string{"training", "inference"}).Sum()
	b := NewDigest().SortedStrings("caps", []string{"inference", "training"}).Sum()
	assert.Equal(t, a, b)

	// Plain Strings preserves order and therefore distinguishes it.
	c := NewDigest().Strings("caps", []string{"training", "inference"}).Sum()
	d := NewDigest().Strings("caps", []string{"inference", "training"}).Sum()
	assert.NotEqual(t, c, d)
}

func TestDigestFingerprintsSorted(t *testing.T) {
	t.Parallel()

	a := NewDigest().Fingerprints("inputs", []Fingerprint{"bb", "aa"}).Sum()
	b := NewDigest().Fingerprints("inputs", []Fingerprint{"aa", "bb"}).Sum()
	assert.Equal(t, a, b)
}

func TestHashBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashBytes([]byte("payload")), HashBytes([]byte("payload")))
	assert.NotEqual(t, HashBytes([]byte("payload")), HashBytes([]byte("payloat")))
}

func TestEntityFingerprintsDifferByDefinition(t *testing.T) {
	t.Parallel()

	w1 := Workload{ID: NewInternedString("matmul"), Operation: "inference"}
	w2 := Workload{ID: NewInternedString("matmul"), Operation: "training"}
	assert.NotEqual(t, w1.Fingerprint(), w2.Fingerprint())

	// Same definition hashes identically regardless of slice ordering.
	p1 := Platform{ID: NewInternedString("torch"), Capabilities: []string{"a", "b"}, Version: "1"}
	p2 := Platform{ID: NewInternedString("torch"), Capabilities: []string{"b", "a"}, Version: "1"}
	assert.Equal(t, p1.Fingerprint(), p2.Fingerprint())

	// A version bump changes the platform definition.
	p3 := Platform{ID: NewInternedString("torch"), Capabilities: []string{"a", "b"}, Version: "2"}
	assert.NotEqual(t, p1.Fingerprint(), p3.Fingerprint())
}
