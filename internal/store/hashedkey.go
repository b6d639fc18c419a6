// Package store implements the storage engine: a persistent, copy-on-write
// map guarded by an atomic swap pointer, plus the append-only file that
// gives it crash durability.
package store

import "hash/fnv"

// HashedKey wraps a string key together with its precomputed hash.
// Equality is by Key (hash is a pure function of Key). SpaceData is a
// built-in Go map keyed by the whole struct, so a lookup hashes Key (and
// hash) again with the runtime's own hash function; Hash() is not consulted
// by the map.
type HashedKey struct {
	Key  string
	hash uint64
}

// NewHashedKey computes the hash once at construction, using a 64-bit FNV-1a
// — stable within a process and non-cryptographic.
func NewHashedKey(key string) HashedKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return HashedKey{Key: key, hash: h.Sum64()}
}

// Hash returns the precomputed hash.
func (k HashedKey) Hash() uint64 { return k.hash }
