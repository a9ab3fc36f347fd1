// Package lossyhash implements the MICA-style bucketed lossy hash index
// used by formica.Store: a fixed array of fixed-size buckets, each holding
// a small set of (tag, offset) entries, with a deterministic eviction rule
// on overflow.
package lossyhash

import (
	"unsafe"

	"formicary/pkg/kvhash"
)

// NumEntries is the number of (tag, offset) slots per bucket. The
// reference source picks 14 to approximate two cache lines' worth of
// entries; see the padding computation below for why Go's natural struct
// layout can't hit exactly 128 bytes with this entry shape, unlike the
// packed C++ layout the comment in formica/index.h speculates about.
const NumEntries = 14

const emptyOffset int64 = -1

type bucketEntry struct {
	tag    uint32
	offset int64
}

type entriesArray [NumEntries]bucketEntry

const (
	cacheLineSize = 64
	twoCacheLines = 2 * cacheLineSize
	entriesSize   = unsafe.Sizeof(entriesArray{})
	bucketPadding = (twoCacheLines - entriesSize%twoCacheLines) % twoCacheLines
)

// Bucket is a fixed array of NumEntries (tag, offset) slots, padded so its
// size is a multiple of two cache lines.
type Bucket struct {
	entries entriesArray
	_       [bucketPadding]byte
}

func init() {
	if unsafe.Sizeof(Bucket{})%twoCacheLines != 0 {
		panic("lossyhash: Bucket size is not a multiple of two cache lines")
	}
}

// LossyHash is a fixed array of Buckets. Inserting may silently evict an
// existing entry: readers must cross-check candidates against the backing
// log (see formica.Store).
type LossyHash struct {
	buckets []Bucket
}

// New allocates a LossyHash with the given bucket count. All entries start
// empty (offset == -1).
func New(numBuckets int) *LossyHash {
	h := &LossyHash{buckets: make([]Bucket, numBuckets)}
	for i := range h.buckets {
		for j := range h.buckets[i].entries {
			h.buckets[i].entries[j].offset = emptyOffset
		}
	}
	return h
}

// NumBuckets returns the configured bucket count.
func (h *LossyHash) NumBuckets() int { return len(h.buckets) }

// LiveEntry is one occupied (tag, offset) slot, as returned by Live.
type LiveEntry struct {
	Tag    uint32
	Offset int64
}

// Live returns every occupied slot across all buckets, for the
// cross-validation walk in formica.Store.Validate. The index only ever
// retains a 32-bit tag, not the original key or 64-bit hash, so the
// caller can check a candidate log record's tag but not its key.
func (h *LossyHash) Live() []LiveEntry {
	var live []LiveEntry
	for i := range h.buckets {
		for _, e := range h.buckets[i].entries {
			if e.offset != emptyOffset {
				live = append(live, LiveEntry{Tag: e.tag, Offset: e.offset})
			}
		}
	}
	return live
}

func (h *LossyHash) bucket(hash uint64) *Bucket {
	idx := kvhash.HashTag(hash) % uint32(len(h.buckets))
	return &h.buckets[idx]
}

// Lookup scans all NumEntries entries of hash's bucket and returns the
// first offset whose tag matches hash's log tag, or (0, false) on a miss.
func (h *LossyHash) Lookup(hash uint64) (int64, bool) {
	bucket := h.bucket(hash)
	logTag := kvhash.LogTag(hash)

	for i := range bucket.entries {
		e := bucket.entries[i]
		if e.offset != emptyOffset && e.tag == logTag {
			return e.offset, true
		}
	}
	return 0, false
}

// Insert records (logTag(hash), offset) in hash's bucket. The target slot
// is the lowest-indexed entry that is either
//   - empty (offset == -1), or
//   - holding a duplicate tag — overwritten so a stale reader never finds
//     a sibling key's offset under this key's tag;
//
// if no entry is either, a deterministic slot is chosen from low bits of
// hash. Slots fill in index order and are never emptied, so a duplicate
// tag always sits before any empty slot and is the one overwritten.
//
// logTail is accepted for API parity with the source (the original intent
// was to bias eviction toward the oldest log entry) but unused: this
// implementation matches the bit-selected eviction that ships in
// formica/store.cc, which never wires its tail parameter into the
// eviction decision either.
func (h *LossyHash) Insert(hash uint64, offset int64, logTail int64) {
	_ = logTail
	bucket := h.bucket(hash)
	logTag := kvhash.LogTag(hash)

	entryIdx := int((hash & 0xF0F0F0F0) % NumEntries)
	for i := range bucket.entries {
		e := &bucket.entries[i]
		if e.offset == emptyOffset || e.tag == logTag {
			entryIdx = i
			break
		}
	}
	bucket.entries[entryIdx] = bucketEntry{tag: logTag, offset: offset}
}
