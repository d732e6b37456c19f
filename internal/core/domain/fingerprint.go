package domain

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a deterministic content hash identifying an entity definition
// or an execution unit's full input state. It is the cache key for results and
// the merge key for the unit graph, so it must be stable across processes.
type Fingerprint string

// Digest accumulates fields into a canonical xxhash digest.
// Fields are written with NUL separators; map entries are written in sorted
// key order so that the resulting fingerprint is independent of declaration
// and iteration order.
type Digest struct {
	h *xxhash.Digest
}

// NewDigest creates an empty Digest.
func NewDigest() *Digest {
	return &Digest{h: xxhash.New()}
}

// Field writes a labeled string field.
func (d *Digest) Field(label, value string) *Digest {
	_, _ = d.h.WriteString(label)
	_, _ = d.h.Write([]byte{0})
	_, _ = d.h.WriteString(value)
	_, _ = d.h.Write([]byte{0})
	return d
}

// Strings writes a labeled list of strings, preserving order.
func (d *Digest) Strings(label string, values []string) *Digest {
	_, _ = d.h.WriteString(label)
	_, _ = d.h.Write([]byte{0})
	for _, v := range values {
		_, _ = d.h.WriteString(v)
		_, _ = d.h.Write([]byte{0})
	}
	_, _ = d.h.Write([]byte{0})
	return d
}

// SortedStrings writes a labeled list of strings in sorted order.
func (d *Digest) SortedStrings(label string, values []string) *Digest {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return d.Strings(label, sorted)
}

// StringMap writes a labeled map in sorted key order.
func (d *Digest) StringMap(label string, m map[string]string) *Digest {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = d.h.WriteString(label)
	_, _ = d.h.Write([]byte{0})
	for _, k := range keys {
		_, _ = d.h.WriteString(k)
		_, _ = d.h.Write([]byte{'='})
		_, _ = d.h.WriteString(m[k])
		_, _ = d.h.Write([]byte{0})
	}
	_, _ = d.h.Write([]byte{0})
	return d
}

// Fingerprints writes a labeled list of fingerprints in sorted order.
func (d *Digest) Fingerprints(label string, fps []Fingerprint) *Digest {
	values := make([]string, len(fps))
	for i, fp := range fps {
		values[i] = string(fp)
	}
	return d.SortedStrings(label, values)
}

// Sum finalizes the digest into a Fingerprint.
func (d *Digest) Sum() Fingerprint {
	return Fingerprint(fmt.Sprintf("%016x", d.h.Sum64()))
}

// HashBytes fingerprints raw content, e.g. the bytes of a data artifact.
func HashBytes(b []byte) Fingerprint {
	return Fingerprint(fmt.Sprintf("%016x", xxhash.Sum64(b)))
}
