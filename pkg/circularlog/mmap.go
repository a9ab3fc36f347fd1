// pkg/circularlog/mmap.go
package circularlog

// region is an anonymous memory-mapped byte buffer backing a CircularLog.
// Platform-specific implementations live in mmap_unix.go and mmap_windows.go.
// Unlike a file-backed mapping, a region has no path and nothing to flush to
// disk: it exists only for the lifetime of the process and is released by
// Close.
type region struct {
	handle interface{} // platform-specific mapping handle
	data   []byte
	size   int64
}

// Size returns the mapped region size in bytes.
func (r *region) Size() int64 {
	return r.size
}

// Slice returns a slice of the mapped memory at the given offset and length.
// Returns nil if the requested range is out of bounds.
func (r *region) Slice(offset, length int) []byte {
	if offset < 0 || length < 0 || offset+length > len(r.data) {
		return nil
	}
	return r.data[offset : offset+length]
}
