// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netbuf

import "unsafe"

// PageSize defines the standard memory page size (4 KiB) used for alignment.
var PageSize uintptr = 4096

// SetPageSize updates the package-level page size used for allocations.
func SetPageSize(size int) {
	PageSize = uintptr(size)
}

// AlignedMem returns a byte slice with the specified size and starting
// address aligned to the memory page size.
//
// ContigBuf uses this for its initial allocation and every grow, so the
// backing buffer's address stays suitable for O_DIRECT/io_uring
// registration by whatever flush path reads it via IOVGet/IOVBuffers.
//
// The returned slice shares underlying memory with a larger allocation;
// do not assume len(result) == cap(result).
func AlignedMem(size int, pageSize uintptr) []byte {
	p := make([]byte, uintptr(size)+pageSize-1)
	base := unsafe.Pointer(unsafe.SliceData(p))
	offset := ((uintptr(base)+pageSize-1)/pageSize)*pageSize - uintptr(base)
	return unsafe.Slice((*byte)(unsafe.Add(base, offset)), size)
}

// Buffer size tiers follow a power-of-4 progression starting at 32 bytes.
// GetRegion's pinned-path standalone allocation (spec §4.2 case 3) rounds
// its request up to the next tier via BufferSizeFor, so repeated
// similarly-sized pinned allocations reuse the same Go size classes
// instead of each landing on a bespoke allocation size.
const (
	BufferSizePico   = 1 << 5  // 32 B
	BufferSizeNano   = 1 << 7  // 128 B
	BufferSizeMicro  = 1 << 9  // 512 B
	BufferSizeSmall  = 1 << 11 // 2 KiB
	BufferSizeMedium = 1 << 13 // 8 KiB
	BufferSizeBig    = 1 << 15 // 32 KiB
	BufferSizeLarge  = 1 << 17 // 128 KiB
	BufferSizeGreat  = 1 << 19 // 512 KiB
	BufferSizeHuge   = 1 << 21 // 2 MiB
	BufferSizeVast   = 1 << 23 // 8 MiB
	BufferSizeGiant  = 1 << 25 // 32 MiB
	BufferSizeTitan  = 1 << 27 // 128 MiB
)

// BufferTier represents a buffer tier index in the 12-tier system.
type BufferTier int

// Buffer tier indices for the 12-tier buffer system.
const (
	TierPico BufferTier = iota
	TierNano
	TierMicro
	TierSmall
	TierMedium
	TierBig
	TierLarge
	TierGreat
	TierHuge
	TierVast
	TierGiant
	TierTitan
	tierEnd // sentinel marking end of tiers
)

var bufferSizes = [tierEnd]int{
	TierPico:   BufferSizePico,
	TierNano:   BufferSizeNano,
	TierMicro:  BufferSizeMicro,
	TierSmall:  BufferSizeSmall,
	TierMedium: BufferSizeMedium,
	TierBig:    BufferSizeBig,
	TierLarge:  BufferSizeLarge,
	TierGreat:  BufferSizeGreat,
	TierHuge:   BufferSizeHuge,
	TierVast:   BufferSizeVast,
	TierGiant:  BufferSizeGiant,
	TierTitan:  BufferSizeTitan,
}

// TierBySize returns the smallest buffer tier that can hold 'size' bytes.
// Returns TierTitan for sizes larger than BufferSizeTitan.
func TierBySize(size int) BufferTier {
	switch {
	case size <= BufferSizePico:
		return TierPico
	case size <= BufferSizeNano:
		return TierNano
	case size <= BufferSizeMicro:
		return TierMicro
	case size <= BufferSizeSmall:
		return TierSmall
	case size <= BufferSizeMedium:
		return TierMedium
	case size <= BufferSizeBig:
		return TierBig
	case size <= BufferSizeLarge:
		return TierLarge
	case size <= BufferSizeGreat:
		return TierGreat
	case size <= BufferSizeHuge:
		return TierHuge
	case size <= BufferSizeVast:
		return TierVast
	case size <= BufferSizeGiant:
		return TierGiant
	default:
		return TierTitan
	}
}

// Size returns the buffer size for this tier.
func (t BufferTier) Size() int {
	if t < 0 || t >= tierEnd {
		return BufferSizeTitan
	}
	return bufferSizes[t]
}

// BufferSizeFor returns a buffer size large enough to hold 'size' bytes.
// For size within the tier system it is TierBySize(size).Size(); TierBySize
// collapses everything past BufferSizeTitan into the TierTitan bucket for
// classification purposes, so above that threshold BufferSizeFor rounds
// size itself up to the next power of two instead, rather than handing
// back the smaller BufferSizeTitan constant.
func BufferSizeFor(size int) int {
	if size > BufferSizeTitan {
		return nextPowerOfTwo(size)
	}
	return TierBySize(size).Size()
}

// nextPowerOfTwo returns the smallest power of two >= n. n must be positive
// and not exceed math.MaxInt/2 (GetRegion's pinned path returns ErrOverflow
// for larger sizes before calling BufferSizeFor).
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
