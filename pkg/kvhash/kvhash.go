// Package kvhash provides the Entry value type and the tag-extraction
// helpers shared by every Formica store strategy: ExactMapStore,
// formica.Store, and chainedstore.Store all key off the same 64-bit hash
// split into a 32-bit log tag and a 32-bit hash tag.
package kvhash

import "hash/fnv"

// Entry is an immutable (key, value, hash) tuple. hash is derived from key
// deterministically at construction — deterministic within a single
// process, but not specified to be stable across processes or versions.
type Entry struct {
	Key   []byte
	Value []byte
	Hash  uint64
}

// NewEntry builds an Entry, computing its hash from key. Value is stored
// by reference, not cloned — callers that mutate value after constructing
// an Entry and before it is consumed by a store get undefined results,
// same as the source's pass-by-const-reference contract.
func NewEntry(key, value []byte) Entry {
	return Entry{Key: key, Value: value, Hash: HashKey(key)}
}

// HashKey computes the 64-bit hash used to derive an Entry's tags. FNV-1a
// is the idiomatic Go stand-in for std::hash<std::string>'s role in the
// original source: deterministic, fast, and not meant to be
// cryptographically secure or stable across processes.
func HashKey(key []byte) uint64 {
	h := fnv.New64a()
	h.Write(key)
	return h.Sum64()
}

// LogTag extracts the low 32 bits of a hash: the tag stored in and
// validated against a CircularLog record header.
func LogTag(hash uint64) uint32 {
	return uint32(hash)
}

// HashTag extracts bits 32-63 of a hash: the tag used to route into a
// LossyHash/ChainedStore bucket.
func HashTag(hash uint64) uint32 {
	return uint32(hash >> 32)
}
