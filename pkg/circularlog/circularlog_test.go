// pkg/circularlog/circularlog_test.go
package circularlog

import (
	"bytes"
	"testing"

	"formicary/pkg/kvhash"
)

func TestCircularLogRoundTrip(t *testing.T) {
	log, err := New(256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	h := kvhash.HashKey([]byte("k"))
	off, err := log.Insert([]byte("k"), []byte("v"), h)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	key, value, ok := log.ReadFrom(off, h)
	if !ok {
		t.Fatal("expected ReadFrom to hit")
	}
	if !bytes.Equal(key, []byte("k")) || !bytes.Equal(value, []byte("v")) {
		t.Errorf("got key=%q value=%q", key, value)
	}
}

// TestCircularLogSecondInsertOffset inserts two records into a 70-byte log
// and confirms the second one starts below offset 40 and reads back
// intact. With the 17-byte header the first record ends at 21, so the
// second record fits before the end of the buffer and does not wrap;
// TestCircularLogStraddlingRecord covers the wrapping case.
func TestCircularLogSecondInsertOffset(t *testing.T) {
	log, err := New(70)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	h1 := kvhash.HashKey([]byte("he"))
	if _, err := log.Insert([]byte("he"), []byte("wo"), h1); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	h2 := kvhash.HashKey([]byte("HELLO"))
	off2, err := log.Insert([]byte("HELLO"), []byte("WORLD"), h2)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if off2 >= 40 {
		t.Errorf("expected second offset < 40, got %d", off2)
	}

	key, value, ok := log.ReadFrom(off2, h2)
	if !ok {
		t.Fatal("expected ReadFrom(off2) to hit")
	}
	if !bytes.Equal(key, []byte("HELLO")) || !bytes.Equal(value, []byte("WORLD")) {
		t.Errorf("got key=%q value=%q", key, value)
	}
}

// TestCircularLogStraddlingRecord forces tail near the end of the buffer so
// a record's key/value payload straddles the size-1 -> 0 boundary.
func TestCircularLogStraddlingRecord(t *testing.T) {
	log, err := New(64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	// Pad with small records until the tail sits close enough to the end
	// that the next record must wrap mid-payload.
	var lastOffset int64
	var lastHash uint64
	for i := 0; i < 10; i++ {
		key := []byte{byte('a' + i)}
		h := kvhash.HashKey(key)
		off, err := log.Insert(key, []byte{0}, h)
		if err != nil {
			t.Fatalf("padding insert %d: %v", i, err)
		}
		lastOffset, lastHash = off, h
	}

	key, value, ok := log.ReadFrom(lastOffset, lastHash)
	if !ok {
		t.Fatalf("expected last padding record to still be readable (tail=%d)", log.Tail())
	}
	_ = key
	_ = value

	big := bytes.Repeat([]byte("x"), 20)
	h := kvhash.HashKey(big)
	off, err := log.Insert(big, big, h)
	if err != nil {
		t.Fatalf("straddling insert: %v", err)
	}

	gotKey, gotValue, ok := log.ReadFrom(off, h)
	if !ok {
		t.Fatal("expected straddling record to read back")
	}
	if !bytes.Equal(gotKey, big) || !bytes.Equal(gotValue, big) {
		t.Errorf("straddling record corrupted: key=%q value=%q", gotKey, gotValue)
	}
}

// TestCircularLogInPlaceVsAppendUpdate covers both branches of Update: a
// shrinking update stays in place, a growing update appends anew.
func TestCircularLogInPlaceVsAppendUpdate(t *testing.T) {
	log, err := New(256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	h := kvhash.HashKey([]byte("hello"))
	off, err := log.Insert([]byte("hello"), []byte("world"), h)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	shrunk, err := log.Update(off, []byte("hel"), []byte("wor"), h)
	if err != nil {
		t.Fatalf("shrinking update: %v", err)
	}
	if shrunk != off {
		t.Errorf("expected in-place update to keep offset %d, got %d", off, shrunk)
	}

	grown, err := log.Update(off, []byte("hello"), []byte("world"), h)
	if err != nil {
		t.Fatalf("growing update: %v", err)
	}
	if grown == off || grown <= 0 {
		t.Errorf("expected growing update to append at a new offset, got %d (original %d)", grown, off)
	}
}

func TestCircularLogUpdateIdempotence(t *testing.T) {
	log, err := New(256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	h := kvhash.HashKey([]byte("k"))
	off, _ := log.Insert([]byte("k"), []byte("v"), h)

	first, err := log.Update(off, []byte("k"), []byte("v"), h)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	dump1 := log.DebugDump()

	second, err := log.Update(first, []byte("k"), []byte("v"), h)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	dump2 := log.DebugDump()

	if first != second {
		t.Errorf("expected idempotent offsets, got %d then %d", first, second)
	}
	if dump1 != dump2 {
		t.Error("expected identical log contents after two no-op updates")
	}
}

func TestCircularLogOutOfCapacity(t *testing.T) {
	log, err := New(32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	big := bytes.Repeat([]byte("x"), 64)
	h := kvhash.HashKey(big)
	if _, err := log.Insert(big, big, h); err != ErrOutOfCapacity {
		t.Errorf("expected ErrOutOfCapacity, got %v", err)
	}
}

func TestCircularLogTagMismatch(t *testing.T) {
	log, err := New(128)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	h := kvhash.HashKey([]byte("k"))
	off, _ := log.Insert([]byte("k"), []byte("v"), h)

	if _, _, ok := log.ReadFrom(off, 0); ok {
		t.Error("expected tag mismatch against an unrelated hash to miss")
	}
}
