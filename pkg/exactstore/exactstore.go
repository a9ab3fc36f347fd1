// Package exactstore implements the exact-key Formica store strategy: a
// full-key in-memory index over a circularlog.CircularLog. Unlike
// formica.Store, nothing is lost at the index layer — every inserted key
// is reachable until its log record itself is overwritten by wraparound.
package exactstore

import (
	"formicary/pkg/circularlog"
	"formicary/pkg/kvhash"
	"formicary/pkg/kvstore"
)

type indexEntry struct {
	offset int64
}

// Store is a StdMapStore: a Go map keyed by the exact key bytes, each
// entry pointing at an offset in a CircularLog. Because the map holds
// every live key exactly, a miss can only come from the log itself having
// wrapped past the record (LogOverwritten) or, on a 32-bit tag collision
// with an unrelated record, from the payload belonging to a different key
// (LogOtherKey).
type Store struct {
	log   *circularlog.CircularLog
	index map[string]indexEntry

	indexMisses    int64
	logOverwritten int64
	logOtherKey    int64
}

// New builds an exact-key store backed by a circular log of logSize bytes.
func New(logSize int64) (*Store, error) {
	log, err := circularlog.New(logSize)
	if err != nil {
		return nil, err
	}
	return &Store{log: log, index: make(map[string]indexEntry)}, nil
}

// Close releases the backing log's mmap region.
func (s *Store) Close() error { return s.log.Close() }

// Insert appends entry to the log and records its offset under the exact
// key. A later Insert of the same key overwrites the earlier index entry,
// same as a plain Go map assignment.
func (s *Store) Insert(entry kvhash.Entry) {
	off, err := s.log.Insert(entry.Key, entry.Value, entry.Hash)
	if err != nil {
		// The log is sized by the caller; a single record too large to
		// ever fit is a configuration error, not a runtime condition this
		// store strategy recovers from.
		panic(err)
	}
	s.index[string(entry.Key)] = indexEntry{offset: off}
}

// Read looks up key's exact index entry, then validates it against the
// log, distinguishing the three ways a lookup can fail (see Stats).
func (s *Store) Read(key []byte, hash uint64) ([]byte, bool) {
	entry, found := s.index[string(key)]
	if !found {
		s.indexMisses++
		return nil, false
	}

	gotKey, value, ok := s.log.ReadFrom(entry.offset, hash)
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

// Validate walks the live index and re-validates every entry against the
// log without mutating either, implementing kvstore.Validatable.
func (s *Store) Validate() kvstore.Report {
	report := kvstore.Report{Checked: len(s.index)}
	for key, entry := range s.index {
		gotKey, _, ok := s.log.ReadFrom(entry.offset, kvhash.HashKey([]byte(key)))
		if !ok || string(gotKey) != key {
			report.Stale++
		}
	}
	return report
}
