// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netbuf

import (
	"math"
	"unsafe"
)

// initCapacity is the initial backing allocation size in bytes.
const initCapacity = 1024

// ContigBuf is a single heap block with a window [startOffset,
// startOffset+length) of live bytes. It supports appending at the tail,
// reserving an uninitialized tail segment, chopping bytes off the head,
// and compacting or growing the backing allocation.
//
// Growth and compaction both invalidate raw addresses previously handed
// out by ReserveTail; RegionPool is the only caller that may invoke
// those operations, and it repairs every outstanding Handle.Buf in the
// same call (see relocateHandles in region_pool.go).
type ContigBuf struct {
	data        []byte
	alloc       int
	startOffset int
	length      int
}

// Init allocates the initial page-aligned backing buffer.
func (b *ContigBuf) Init() {
	b.data = AlignedMem(initCapacity, PageSize)
	b.alloc = initCapacity
	b.startOffset = 0
	b.length = 0
}

// Cleanup releases the backing buffer and zeroes the struct.
func (b *ContigBuf) Cleanup() {
	b.data = nil
	b.alloc = 0
	b.startOffset = 0
	b.length = 0
}

// Space returns the tail headroom: bytes available at the tail without
// compacting or growing.
func (b *ContigBuf) Space() int {
	return b.alloc - (b.length + b.startOffset)
}

// MaxSpace returns the headroom achievable by compacting: Space plus
// whatever a compaction to offset 0 would reclaim from the head.
func (b *ContigBuf) MaxSpace() int {
	return b.Space() + b.startOffset
}

// Len returns the number of live bytes currently in the window.
func (b *ContigBuf) Len() int {
	return b.length
}

func (b *ContigBuf) head() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(b.data)), b.startOffset)
}

func (b *ContigBuf) tail() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(b.data)), b.startOffset+b.length)
}

// ReserveTail returns the address where the caller may write n bytes
// and advances length by n, compacting and/or growing the backing
// allocation first if necessary. Resolution order:
//
//  1. If Space() >= n, return the existing tail.
//  2. Otherwise if MaxSpace() >= n, compact to offset 0 and return the tail.
//  3. Otherwise double alloc until Space() would hold n, grow, and return the tail.
func (b *ContigBuf) ReserveTail(n int) (unsafe.Pointer, error) {
	if n < 0 {
		return nil, ErrOverflow
	}
	if n > math.MaxInt-b.length-b.startOffset {
		return nil, ErrOverflow
	}

	if b.Space() >= n {
		ret := b.tail()
		b.length += n
		return ret, nil
	}

	if b.MaxSpace() >= n {
		b.Compact()
		ret := b.tail()
		b.length += n
		return ret, nil
	}

	newAlloc := b.alloc
	for newAlloc-b.length-b.startOffset < n {
		if newAlloc > math.MaxInt/2 {
			return nil, ErrOverflow
		}
		newAlloc *= 2
	}
	grown := AlignedMem(newAlloc, PageSize)
	copy(grown, b.data[:b.startOffset+b.length])
	b.data = grown
	b.alloc = newAlloc

	ret := b.tail()
	b.length += n
	return ret, nil
}

// Append reserves and copies data onto the tail of the buffer.
func (b *ContigBuf) Append(data []byte) error {
	ptr, err := b.ReserveTail(len(data))
	if err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(ptr), len(data))
	copy(dst, data)
	return nil
}

// Compact slides the live window down to offset 0. Go's builtin copy
// already handles overlapping source/destination ranges correctly (the
// C source picks between memcpy and memmove for this reason; Go needs
// no such branch).
func (b *ContigBuf) Compact() {
	if b.startOffset == 0 {
		return
	}
	copy(b.data[:b.length], b.data[b.startOffset:b.startOffset+b.length])
	b.startOffset = 0
}

// ChopNoCompact advances startOffset by n and decreases length by n,
// without reclaiming head-side space via compaction.
func (b *ContigBuf) ChopNoCompact(n int) error {
	if n < 0 || n > b.length {
		return ErrChopExceedsLength
	}
	b.startOffset += n
	b.length -= n
	return nil
}

// Chop is ChopNoCompact followed by a compaction once startOffset grows
// past half of alloc, reclaiming head-side space for the common FIFO
// drain pattern.
func (b *ContigBuf) Chop(n int) error {
	if err := b.ChopNoCompact(n); err != nil {
		return err
	}
	if b.startOffset > b.alloc/2 {
		b.Compact()
	}
	return nil
}
