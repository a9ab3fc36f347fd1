// cmd/formicary/main.go
//
// formicary - drives the in-memory B+-Tree and the three Formica KV store
// strategies through a fixed workload and prints a summary.
//
// Usage:
//
//	formicary [-strategy exact|formica|chained] [-n count] [-verify]
package main

import (
	"flag"
	"fmt"
	"os"

	"formicary/pkg/btree"
	"formicary/pkg/cache"
	"formicary/pkg/chainedstore"
	"formicary/pkg/exactstore"
	"formicary/pkg/formica"
	"formicary/pkg/kvhash"
	"formicary/pkg/kvstore"
)

func main() {
	strategy := flag.String("strategy", "formica", "kv store strategy: exact, formica, or chained")
	n := flag.Int("n", 10000, "number of keys to insert")
	logSize := flag.Int64("log-size", 64<<20, "circular log size in bytes (exact/formica only)")
	buckets := flag.Int("buckets", 4096, "number of hash buckets (formica/chained only)")
	verify := flag.Bool("verify", false, "run structural self-checks after the workload")
	flag.Parse()

	budget := cache.NewMemoryBudget(0)
	budget.RegisterComponent("btree")
	budget.RegisterComponent("kvstore")

	tree := btree.New(btree.Config{MaxKeys: 64})
	for i := 0; i < *n; i++ {
		tree.Insert(int32(i), int32(i*10))
	}
	budget.Track("btree", tree.ArenaBytes())

	store, closeStore, err := openStore(*strategy, *logSize, *buckets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "formicary: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	keys := make([][]byte, *n)
	var kvBytes int64
	for i := 0; i < *n; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		value := []byte(fmt.Sprintf("value-%d", i))
		keys[i] = key
		store.Insert(kvhash.NewEntry(key, value))
		kvBytes += int64(len(key) + len(value))
	}
	budget.Track("kvstore", kvBytes)

	hits := 0
	for _, key := range keys {
		if _, ok := store.Read(key, kvhash.HashKey(key)); ok {
			hits++
		}
	}

	stats := store.Stats()
	fmt.Printf("strategy=%s n=%d hits=%d/%d\n", *strategy, *n, hits, *n)
	fmt.Printf("tree: %+v\n", tree.Stats())
	fmt.Printf("store stats: index_misses=%d log_overwritten=%d log_other_key=%d\n",
		stats.IndexMisses, stats.LogOverwritten, stats.LogOtherKey)
	fmt.Printf("memory budget: %+v\n", budget.Stats())

	if *verify {
		if err := tree.CheckSelf(); err != nil {
			fmt.Fprintf(os.Stderr, "tree self-check failed: %v\n", err)
			os.Exit(1)
		}
		report := kvstore.Validate(store)
		fmt.Printf("validate: checked=%d stale=%d\n", report.Checked, report.Stale)
	}
}

func openStore(strategy string, logSize int64, buckets int) (kvstore.Store, func(), error) {
	switch strategy {
	case "exact":
		s, err := exactstore.New(logSize)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "formica":
		s, err := formica.New(logSize, buckets)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "chained":
		s := chainedstore.New(buckets)
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown strategy %q (want exact, formica, or chained)", strategy)
	}
}
