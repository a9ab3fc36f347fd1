// Package bench compares this module's in-memory structures against a
// real SQLite table through database/sql, paired benchmark-by-benchmark
// in the usual TurDB-vs-SQLite comparison shape.
package bench

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"formicary/pkg/btree"
	"formicary/pkg/chainedstore"
	"formicary/pkg/exactstore"
	"formicary/pkg/formica"
	"formicary/pkg/kvhash"
)

func openSQLiteBench(b *testing.B) *sql.DB {
	b.Helper()
	dbPath := filepath.Join(b.TempDir(), "bench.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		b.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE bench (key TEXT PRIMARY KEY, value TEXT)"); err != nil {
		b.Fatalf("CREATE TABLE: %v", err)
	}
	return db
}

// BenchmarkInsert_BTree benchmarks point insertion into an in-memory
// B+-Tree keyed by sequential int32 ids.
func BenchmarkInsert_BTree(b *testing.B) {
	tree := btree.New(btree.Config{MaxKeys: 64})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(int32(i), int32(i*10))
	}
}

// BenchmarkInsert_SQLite benchmarks the same insertion shape against a
// real SQLite table.
func BenchmarkInsert_SQLite(b *testing.B) {
	db := openSQLiteBench(b)
	defer db.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.Exec("INSERT INTO bench VALUES (?, ?)", fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i)); err != nil {
			b.Fatalf("INSERT failed at %d: %v", i, err)
		}
	}
}

// BenchmarkInsert_ExactStore benchmarks exactstore.Store's full-key path.
func BenchmarkInsert_ExactStore(b *testing.B) {
	s, err := exactstore.New(64 << 20)
	if err != nil {
		b.Fatalf("exactstore.New: %v", err)
	}
	defer s.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("k%d", i))
		s.Insert(kvhash.NewEntry(key, []byte(fmt.Sprintf("v%d", i))))
	}
}

// BenchmarkInsert_Formica benchmarks formica.Store's lossy index path.
func BenchmarkInsert_Formica(b *testing.B) {
	s, err := formica.New(64<<20, 4096)
	if err != nil {
		b.Fatalf("formica.New: %v", err)
	}
	defer s.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("k%d", i))
		s.Insert(kvhash.NewEntry(key, []byte(fmt.Sprintf("v%d", i))))
	}
}

// BenchmarkInsert_ChainedStore benchmarks chainedstore.Store's bucketed
// linked-list path.
func BenchmarkInsert_ChainedStore(b *testing.B) {
	s := chainedstore.New(4096)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("k%d", i))
		s.Insert(kvhash.NewEntry(key, []byte(fmt.Sprintf("v%d", i))))
	}
}

// BenchmarkSelect_SQLite benchmarks a point SELECT against a pre-populated
// SQLite table, paired against BenchmarkFind_BTree below.
func BenchmarkSelect_SQLite(b *testing.B) {
	db := openSQLiteBench(b)
	defer db.Close()

	for i := 0; i < 1000; i++ {
		db.Exec("INSERT INTO bench VALUES (?, ?)", fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		row := db.QueryRow("SELECT value FROM bench WHERE key = ?", "k500")
		var value string
		if err := row.Scan(&value); err != nil {
			b.Fatalf("SELECT failed: %v", err)
		}
	}
}

// BenchmarkFind_BTree benchmarks point lookup against a pre-populated
// B+-Tree, paired against BenchmarkSelect_SQLite.
func BenchmarkFind_BTree(b *testing.B) {
	tree := btree.New(btree.Config{MaxKeys: 64})
	for i := 0; i < 1000; i++ {
		tree.Insert(int32(i), int32(i*10))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := tree.Find(500); !ok {
			b.Fatal("expected key 500 to be found")
		}
	}
}

// TestPrintBenchmarkComparison documents how to run the suite above and
// compare it against SQLite.
func TestPrintBenchmarkComparison(t *testing.T) {
	if os.Getenv("RUN_BENCHMARK_COMPARISON") != "1" {
		t.Skip("Skipping benchmark comparison. Set RUN_BENCHMARK_COMPARISON=1 to run.")
	}
	t.Log("Run benchmarks with: go test -bench=. -benchmem ./bench/")
	t.Log("Compare btree/exactstore/formica/chainedstore against the SQLite baseline")
}
