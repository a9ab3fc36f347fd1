//go:build unix || darwin || linux || freebsd || openbsd || netbsd

// pkg/circularlog/mmap_unix.go
package circularlog

import (
	"errors"

	"golang.org/x/sys/unix"
)

// newRegion maps an anonymous, process-private region of the given size.
// There is no backing file: the mapping is released with munmap on Close
// and nothing is ever written to disk.
func newRegion(size int64) (*region, error) {
	if size <= 0 {
		return nil, errors.New("circularlog: region size must be positive")
	}

	data, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}

	return &region{
		handle: struct{}{},
		data:   data,
		size:   size,
	}, nil
}

// Close unmaps the region.
func (r *region) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
