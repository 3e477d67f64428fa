// Package mem provides aligned buffer allocation for partitions.
package mem

import "unsafe"

// Alignment is the byte alignment of partition buffers. 64 bytes keeps
// row slots cache-line aligned and leaves headroom for vectorized bulk
// copies by downstream consumers.
const Alignment = 64

// AllocAligned allocates a byte slice of the given size whose first byte
// sits on an Alignment boundary. The backing array is kept alive by the
// returned slice.
func AllocAligned(size int) []byte {
	if size == 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // required for alignment math
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}
