// Package kvstore defines the common contract shared by the three Formica
// store strategies (exactstore.Store, formica.Store, chainedstore.Store):
// insert an Entry, read a key back by key and hash, and report the same
// three observability counters regardless of strategy.
package kvstore

import "formicary/pkg/kvhash"

// Store is implemented by every KV store strategy in this module.
type Store interface {
	// Insert appends entry to the store.
	Insert(entry kvhash.Entry)

	// Read looks up key, validating hash, and reports whether it hit.
	// The three internal failure reasons (index miss, log overwritten,
	// other key) collapse to a single boolean here — see Stats for the
	// breakdown.
	Read(key []byte, hash uint64) (value []byte, ok bool)

	// Stats returns a snapshot of this store's miss counters.
	Stats() Stats
}

// Stats is the observability snapshot every store maintains: per-reason
// miss counters, even though callers only ever see a single boolean from
// Read.
type Stats struct {
	IndexMisses    int64
	LogOverwritten int64
	LogOtherKey    int64
}

// Validatable is implemented by store strategies that can cross-check
// their live index entries against their backing log without mutating
// either. Strategies with no log (chainedstore.Store) don't implement it.
type Validatable interface {
	Validate() Report
}

// Report is the result of walking a store's index and re-validating each
// candidate against the log, without inserting, updating, or evicting
// anything: a read-only diagnostic that counts structural drift without
// repairing it.
type Report struct {
	// Checked is the number of live index entries examined.
	Checked int
	// Stale is the number of entries that would currently read as
	// LogOverwritten or OtherKey if looked up.
	Stale int
}

// Validate runs a store's Validate method if it implements Validatable,
// and returns a zero Report otherwise (there is nothing to cross-check for
// a log-free strategy).
func Validate(s Store) Report {
	if v, ok := s.(Validatable); ok {
		return v.Validate()
	}
	return Report{}
}
