package capture

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ShmBuffer is an anonymous file-backed memory region shared with the
// compositor so frame pixels can be written server-side without a socket
// copy. It lives for the duration of a single window capture.
type ShmBuffer struct {
	fd     int
	data   []byte
	Width  int
	Height int
	Stride int
}

// NewShmBuffer allocates a memfd-backed region of stride×height bytes and
// maps it into the process.
func NewShmBuffer(width, height, stride int) (*ShmBuffer, error) {
	if width <= 0 || height <= 0 || stride < width*4 {
		return nil, fmt.Errorf("invalid buffer geometry %dx%d stride %d", width, height, stride)
	}
	size := stride * height

	fd, err := unix.MemfdCreate("hyprpeek-capture", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate: %w", err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &ShmBuffer{
		fd:     fd,
		data:   data,
		Width:  width,
		Height: height,
		Stride: stride,
	}, nil
}

// Fd returns the backing file descriptor for wl_shm_pool creation.
func (b *ShmBuffer) Fd() uintptr {
	return uintptr(b.fd)
}

// Size returns the mapped region size in bytes.
func (b *ShmBuffer) Size() int {
	return len(b.data)
}

// Data returns the mapped pixels.
func (b *ShmBuffer) Data() []byte {
	return b.data
}

// Close unmaps the region and closes the backing descriptor.
func (b *ShmBuffer) Close() error {
	var firstErr error
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			firstErr = err
		}
		b.data = nil
	}
	if b.fd >= 0 {
		if err := unix.Close(b.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		b.fd = -1
	}
	return firstErr
}
