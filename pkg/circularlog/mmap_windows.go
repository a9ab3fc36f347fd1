//go:build windows

// pkg/circularlog/mmap_windows.go
package circularlog

import (
	"errors"
	"reflect"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsRegion holds the Windows-specific handle for an anonymous mapping.
type windowsRegion struct {
	mapHandle windows.Handle
}

// newRegion maps an anonymous region backed by the system paging file
// (INVALID_HANDLE_VALUE as the file handle), mirroring the POSIX
// MAP_ANON|MAP_PRIVATE mapping used on unix.
func newRegion(size int64) (*region, error) {
	if size <= 0 {
		return nil, errors.New("circularlog: region size must be positive")
	}

	mapHandle, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		nil,
		windows.PAGE_READWRITE,
		uint32(size>>32),
		uint32(size&0xFFFFFFFF),
		nil,
	)
	if err != nil {
		return nil, err
	}

	addr, err := windows.MapViewOfFile(
		mapHandle,
		windows.FILE_MAP_READ|windows.FILE_MAP_WRITE,
		0, 0,
		uintptr(size),
	)
	if err != nil {
		windows.CloseHandle(mapHandle)
		return nil, err
	}

	var data []byte
	header := (*reflect.SliceHeader)(unsafe.Pointer(&data))
	header.Data = addr
	header.Len = int(size)
	header.Cap = int(size)

	return &region{
		handle: &windowsRegion{mapHandle: mapHandle},
		data:   data,
		size:   size,
	}, nil
}

// Close unmaps the region and releases the mapping handle.
func (r *region) Close() error {
	var firstErr error

	wr, ok := r.handle.(*windowsRegion)
	if !ok || wr == nil {
		return nil
	}

	if len(r.data) > 0 {
		if err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&r.data[0]))); err != nil && firstErr == nil {
			firstErr = err
		}
		r.data = nil
	}

	if wr.mapHandle != 0 {
		if err := windows.CloseHandle(wr.mapHandle); err != nil && firstErr == nil {
			firstErr = err
		}
		wr.mapHandle = 0
	}

	return firstErr
}
