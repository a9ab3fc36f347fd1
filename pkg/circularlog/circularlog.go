// Package circularlog implements the mmap-backed circular byte ring behind
// the log-backed Formica store strategies (exactstore.Store and
// formica.Store; chainedstore.Store has no log): a bounded buffer of framed
// (header, key, value) records supporting append, in-place shorter
// updates, and wraparound.
package circularlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"formicary/pkg/kvhash"
)

// ErrOutOfCapacity is returned when a single record would never fit in the
// log no matter where it's written.
var ErrOutOfCapacity = errors.New("circularlog: record exceeds log capacity")

const (
	sentinelByte = byte('!') // 0x21

	// Record header layout, little-endian:
	//   [sentinel:1][size:4][keylen:4][valuelen:4][log_tag:4]
	headerSize = 1 + 4 + 4 + 4 + 4
)

type recordHeader struct {
	sentinel byte
	size     uint32
	keylen   uint32
	valuelen uint32
	logTag   uint32
}

// CircularLog is a byte buffer of size S with a monotonic write cursor
// tail in [0, S). It is backed by an anonymous mmap region (see
// mmap_unix.go / mmap_windows.go), never by a file — there is no
// persistence here, only a bit-exact in-memory wire format.
type CircularLog struct {
	buf  *region
	size int64
	tail int64
}

// New allocates a circular log of the given size in bytes. size must
// exceed headerSize; Insert and Update return ErrOutOfCapacity for any
// record whose header, key and value together take size bytes or more.
func New(size int64) (*CircularLog, error) {
	if size <= headerSize {
		return nil, fmt.Errorf("circularlog: size must exceed header size %d, got %d", headerSize, size)
	}
	buf, err := newRegion(size)
	if err != nil {
		return nil, err
	}
	return &CircularLog{buf: buf, size: size}, nil
}

// Close releases the backing mmap region.
func (c *CircularLog) Close() error {
	return c.buf.Close()
}

// Size returns the log's total capacity in bytes.
func (c *CircularLog) Size() int64 { return c.size }

// Tail returns the current write cursor, for tests and diagnostics.
func (c *CircularLog) Tail() int64 { return c.tail }

// Insert appends a new record, returning its offset, or ErrOutOfCapacity if
// the record can never fit.
func (c *CircularLog) Insert(key, value []byte, hash uint64) (int64, error) {
	return c.write(-1, key, value, hash)
}

// Update attempts an in-place rewrite of the record at offset. In-place is
// permitted iff the header at offset still carries the sentinel AND its
// keylen+valuelen can hold the new payload; otherwise the call degrades to
// an append. The returned offset is either the original (in-place) or the
// new append location.
func (c *CircularLog) Update(offset int64, key, value []byte, hash uint64) (int64, error) {
	if offset < 0 || offset >= c.size {
		return -1, fmt.Errorf("circularlog: offset %d out of [0, %d)", offset, c.size)
	}
	return c.write(offset, key, value, hash)
}

func (c *CircularLog) write(offset int64, key, value []byte, hash uint64) (int64, error) {
	required := int64(headerSize) + int64(len(key)) + int64(len(value))
	if required >= c.size {
		return -1, ErrOutOfCapacity
	}

	isAppend := offset == -1
	if offset > -1 {
		hdr := c.readHeader(offset)
		isAppend = hdr.sentinel != sentinelByte ||
			int64(hdr.keylen)+int64(hdr.valuelen) < int64(len(key)+len(value))
	}
	if isAppend {
		offset = c.tail
	}

	cursor := offset
	c.writeHeader(cursor, recordHeader{
		sentinel: sentinelByte,
		size:     uint32(required),
		keylen:   uint32(len(key)),
		valuelen: uint32(len(value)),
		logTag:   kvhash.LogTag(hash),
	})
	cursor = (cursor + headerSize) % c.size
	cursor = c.putBytes(cursor, key)
	cursor = c.putBytes(cursor, value)

	if isAppend {
		c.tail = cursor % c.size
		if c.size-c.tail < headerSize {
			c.tail = 0
		}
	}

	return offset, nil
}

// ReadFrom reads the record at offset, validating its log tag against
// expectedHash's low 32 bits. A tag mismatch means the offset has been
// overwritten by a subsequent Insert that wrapped across it.
func (c *CircularLog) ReadFrom(offset int64, expectedHash uint64) (key, value []byte, ok bool) {
	if offset < 0 || offset >= c.size {
		return nil, nil, false
	}
	hdr := c.readHeader(offset)
	if hdr.sentinel != sentinelByte || hdr.logTag != kvhash.LogTag(expectedHash) {
		return nil, nil, false
	}

	keyStart := (offset + headerSize) % c.size
	key = c.readBytes(keyStart, hdr.keylen)
	value = c.readBytes(keyStart+int64(hdr.keylen), hdr.valuelen)
	return key, value, true
}

// HasTag reports whether the record at offset is still live (sentinel
// intact) and carries the given log tag. Unlike ReadFrom, it takes the
// tag directly rather than deriving it from a 64-bit hash — for callers
// that only ever retained the 32-bit tag, such as lossyhash's bucket
// entries.
func (c *CircularLog) HasTag(offset int64, tag uint32) bool {
	if offset < 0 || offset >= c.size {
		return false
	}
	hdr := c.readHeader(offset)
	return hdr.sentinel == sentinelByte && hdr.logTag == tag
}

func (c *CircularLog) putBytes(offset int64, data []byte) int64 {
	if len(data) == 0 {
		return offset
	}
	if c.size-offset > int64(len(data)) {
		copy(c.buf.Slice(int(offset), len(data)), data)
		return offset + int64(len(data))
	}

	toWrite := c.size - offset
	copy(c.buf.Slice(int(offset), int(toWrite)), data[:toWrite])
	remaining := int64(len(data)) - toWrite
	copy(c.buf.Slice(0, int(remaining)), data[toWrite:])
	return remaining
}

func (c *CircularLog) readBytes(offset int64, length uint32) []byte {
	offset %= c.size
	if length == 0 {
		return []byte{}
	}
	if offset+int64(length) < c.size {
		out := make([]byte, length)
		copy(out, c.buf.Slice(int(offset), int(length)))
		return out
	}

	out := make([]byte, 0, length)
	first := c.size - offset
	out = append(out, c.buf.Slice(int(offset), int(first))...)
	remaining := int64(length) - first
	out = append(out, c.buf.Slice(0, int(remaining))...)
	return out
}

func (c *CircularLog) writeHeader(offset int64, h recordHeader) {
	b := c.buf.Slice(int(offset), headerSize)
	b[0] = h.sentinel
	binary.LittleEndian.PutUint32(b[1:5], h.size)
	binary.LittleEndian.PutUint32(b[5:9], h.keylen)
	binary.LittleEndian.PutUint32(b[9:13], h.valuelen)
	binary.LittleEndian.PutUint32(b[13:17], h.logTag)
}

func (c *CircularLog) readHeader(offset int64) recordHeader {
	b := c.buf.Slice(int(offset), headerSize)
	return recordHeader{
		sentinel: b[0],
		size:     binary.LittleEndian.Uint32(b[1:5]),
		keylen:   binary.LittleEndian.Uint32(b[5:9]),
		valuelen: binary.LittleEndian.Uint32(b[9:13]),
		logTag:   binary.LittleEndian.Uint32(b[13:17]),
	}
}

// DebugDump renders every byte in the log as a character, marking the
// current tail — a port of the C++ original's CircularLog::DebugDump.
// It is a diagnostic used by tests, never called from the insert/read hot
// path.
func (c *CircularLog) DebugDump() string {
	var b strings.Builder
	full := c.buf.Slice(0, int(c.size))
	for i, ch := range full {
		fmt.Fprintf(&b, "%d:%c", i, ch)
		if int64(i) == c.tail {
			b.WriteString(" <-- TAIL ")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
