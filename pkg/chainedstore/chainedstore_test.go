package chainedstore

import (
	"fmt"
	"testing"

	"formicary/pkg/kvhash"
)

func TestStoreInsertRead(t *testing.T) {
	s := New(64)
	s.Insert(kvhash.NewEntry([]byte("hello"), []byte("world")))

	value, ok := s.Read([]byte("hello"), kvhash.HashKey([]byte("hello")))
	if !ok || string(value) != "world" {
		t.Errorf("Read(hello) = (%q, %v), want (world, true)", value, ok)
	}

	if _, ok := s.Read([]byte("missing"), kvhash.HashKey([]byte("missing"))); ok {
		t.Error("expected Read(missing) to miss")
	}
}

func TestStoreChainBounded(t *testing.T) {
	s := New(1) // force every key into the same bucket
	for i := 0; i < MaxChainLength+10; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		s.Insert(kvhash.NewEntry(key, []byte("v")))
	}

	count := 0
	for n := s.buckets[0].first; n != nil; n = n.next {
		count++
	}
	if count != MaxChainLength {
		t.Errorf("expected chain length capped at %d, got %d", MaxChainLength, count)
	}
	if s.buckets[0].chainLen != MaxChainLength {
		t.Errorf("expected chainLen %d, got %d", MaxChainLength, s.buckets[0].chainLen)
	}
}

func TestStoreOldestEvictedFirst(t *testing.T) {
	s := New(1)
	for i := 0; i < MaxChainLength; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		s.Insert(kvhash.NewEntry(key, []byte("v")))
	}

	// bucket is now full; the next insert must recycle k00, the oldest.
	s.Insert(kvhash.NewEntry([]byte("new"), []byte("v")))

	if _, ok := s.Read([]byte("k00"), kvhash.HashKey([]byte("k00"))); ok {
		t.Error("expected the oldest key to have been recycled out")
	}
	if value, ok := s.Read([]byte("new"), kvhash.HashKey([]byte("new"))); !ok || string(value) != "v" {
		t.Errorf("expected the newly inserted key to be readable, got (%q, %v)", value, ok)
	}
	for i := 1; i < MaxChainLength; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		if _, ok := s.Read(key, kvhash.HashKey(key)); !ok {
			t.Errorf("expected %s to still be present", key)
		}
	}
}

func TestStoreDoublyLinkedConsistency(t *testing.T) {
	s := New(1)
	for i := 0; i < 5; i++ {
		key := []byte(fmt.Sprintf("k%d", i))
		s.Insert(kvhash.NewEntry(key, []byte("v")))
	}

	b := &s.buckets[0]
	n := b.first
	var prev *node
	count := 0
	for n != nil {
		if n.prev != prev {
			t.Fatalf("broken prev link at node %d", count)
		}
		prev = n
		n = n.next
		count++
	}
	if prev != b.last {
		t.Error("expected walking to the end of the chain to reach bucket.last")
	}
}
