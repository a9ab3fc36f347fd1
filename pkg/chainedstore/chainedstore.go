// Package chainedstore implements the chained-bucket Formica store
// strategy: each bucket is a bounded intrusive doubly-linked list of
// (tag, key, value) nodes, with no backing log at all. Overflow recycles
// the oldest node in a bucket rather than evicting by a bit-selected slot,
// unlike lossyhash.LossyHash.
package chainedstore

import (
	"formicary/pkg/kvhash"
	"formicary/pkg/kvstore"
)

// MaxChainLength is the maximum number of live nodes per bucket. Once a
// bucket is full, the next Insert recycles its oldest node instead of
// allocating, matching formica/store.cc's ChainedLossyHashStore::Insert.
const MaxChainLength = 14

// node is an intrusive doubly-linked list element. Using *node fields
// directly (rather than container/list) mirrors the reference source's
// hand-rolled Node/Bucket layout and lets Insert recycle a node in place
// without any allocation once a bucket is full.
type node struct {
	next, prev *node
	logTag     uint32
	key        []byte
	value      []byte
}

type bucket struct {
	first, last *node
	chainLen    int
}

// Store holds entries inline in bounded per-bucket chains — no circular
// log, so there is nothing to cross-check a hit against beyond the
// in-chain key comparison, and no LogOverwritten/LogOtherKey outcome is
// possible.
type Store struct {
	buckets     []bucket
	indexMisses int64
}

// New builds a chained store with the given bucket count.
func New(numBuckets int) *Store {
	return &Store{buckets: make([]bucket, numBuckets)}
}

func (s *Store) bucketFor(hash uint64) *bucket {
	idx := kvhash.HashTag(hash) % uint32(len(s.buckets))
	return &s.buckets[idx]
}

// Insert pushes entry onto the front of its bucket's chain. If the chain
// is already at MaxChainLength, the oldest node (bucket.last) is unlinked
// and reused in place for the new entry instead of discarded, so a full
// store never allocates on the hot path.
func (s *Store) Insert(entry kvhash.Entry) {
	b := s.bucketFor(entry.Hash)
	old := b.first

	var n *node
	if b.chainLen == MaxChainLength {
		n = b.last
		b.last = n.prev
		if b.last != nil {
			b.last.next = nil
		}
		n.prev = nil
	} else {
		n = &node{}
		b.chainLen++
	}

	n.logTag = kvhash.LogTag(entry.Hash)
	n.key = entry.Key
	n.value = entry.Value

	n.next = old
	if old != nil {
		old.prev = n
	} else {
		b.last = n
	}
	b.first = n
}

// Read walks hash's bucket chain front to back, returning the first node
// whose tag and exact key both match. A full walk with no match is the
// only miss outcome this strategy has, so it always attributes to
// IndexMisses.
func (s *Store) Read(key []byte, hash uint64) ([]byte, bool) {
	logTag := kvhash.LogTag(hash)
	for n := s.bucketFor(hash).first; n != nil; n = n.next {
		if n.logTag == logTag && string(n.key) == string(key) {
			return n.value, true
		}
	}
	s.indexMisses++
	return nil, false
}

// Stats returns a snapshot of this store's miss counters. LogOverwritten
// and LogOtherKey are always zero: there is no log layer to overwrite and
// every live node carries its exact key, so a node whose tag matches but
// whose key differs is simply skipped by Read's walk.
func (s *Store) Stats() kvstore.Stats {
	return kvstore.Stats{IndexMisses: s.indexMisses}
}
