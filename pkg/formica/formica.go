// Package formica implements the namesake lossy Formica store strategy: a
// lossyhash.LossyHash index fronting a circularlog.CircularLog. Both
// layers can silently discard data — the index by bucket eviction, the
// log by wraparound — so every read must cross-check the log record
// against the requested key's tag before trusting it.
package formica

import (
	"formicary/pkg/circularlog"
	"formicary/pkg/kvhash"
	"formicary/pkg/kvstore"
	"formicary/pkg/lossyhash"
)

// Store is "Formica"/LossyHashStore from the original source: a fixed
// number of hash buckets, each holding a bounded set of (tag, offset)
// entries, backed by a circular log.
type Store struct {
	index *lossyhash.LossyHash
	log   *circularlog.CircularLog

	indexMisses    int64
	logOverwritten int64
	logOtherKey    int64
}

// New builds a Formica store with the given log capacity and bucket count.
func New(logSize int64, numBuckets int) (*Store, error) {
	log, err := circularlog.New(logSize)
	if err != nil {
		return nil, err
	}
	return &Store{index: lossyhash.New(numBuckets), log: log}, nil
}

// Close releases the backing log's mmap region.
func (s *Store) Close() error { return s.log.Close() }

// Insert appends entry to the log, then indexes its offset in the bucket
// selected by entry.Hash — possibly evicting an existing entry in that
// bucket.
func (s *Store) Insert(entry kvhash.Entry) {
	off, err := s.log.Insert(entry.Key, entry.Value, entry.Hash)
	if err != nil {
		panic(err)
	}
	s.index.Insert(entry.Hash, off, s.log.Tail())
}

// Read looks up hash in the index, then validates the candidate offset
// against the log, distinguishing the three ways a lookup can fail (see
// Stats): the bucket may hold no entry for this tag (IndexMisses), the log
// record at that offset may have been overwritten by wraparound
// (LogOverwritten), or — on a 32-bit log-tag collision — the record may
// belong to an unrelated key (LogOtherKey).
func (s *Store) Read(key []byte, hash uint64) ([]byte, bool) {
	off, found := s.index.Lookup(hash)
	if !found {
		s.indexMisses++
		return nil, false
	}

	gotKey, value, ok := s.log.ReadFrom(off, hash)
	if !ok {
		s.logOverwritten++
		return nil, false
	}
	if string(gotKey) != string(key) {
		s.logOtherKey++
		return nil, false
	}
	return value, true
}

// Stats returns a snapshot of this store's miss counters.
func (s *Store) Stats() kvstore.Stats {
	return kvstore.Stats{
		IndexMisses:    s.indexMisses,
		LogOverwritten: s.logOverwritten,
		LogOtherKey:    s.logOtherKey,
	}
}

// Validate walks every live index entry and checks it against the log,
// satisfying kvstore.Validatable. Because the index only retains a
// 32-bit tag, a stale entry here means the log record at that offset has
// been overwritten by wraparound — it cannot detect a same-tag,
// different-key collision the way exactstore's full-key Validate can.
func (s *Store) Validate() kvstore.Report {
	live := s.index.Live()
	report := kvstore.Report{Checked: len(live)}
	for _, e := range live {
		if !s.log.HasTag(e.Offset, e.Tag) {
			report.Stale++
		}
	}
	return report
}
