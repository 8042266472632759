// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netbuf

import (
	"container/list"
	"unsafe"
)

// HandleFlags is a bitset of per-region state.
type HandleFlags uint8

const (
	// FlagAllocated marks a handle whose Buf points to a standalone heap
	// allocation rather than into the pool's backing ContigBuf.
	FlagAllocated HandleFlags = 1 << iota

	// FlagPinned marks a handle with an outstanding pin: Buf must not move.
	FlagPinned

	// FlagStructUser marks a handle whose storage is caller-owned; the
	// pool must not recycle or free the struct itself on FreeRegion.
	FlagStructUser

	// FlagFlushed marks a handle fully drained by the consumer and moved
	// from the live list to the flushed list.
	FlagFlushed
)

// Handle is the metadata through which callers refer to a region: a
// contiguous, addressable slice of either RegionPool's backing buffer or
// a standalone allocation.
//
// Buf is deliberately a raw unsafe.Pointer rather than a []byte: the
// pool's relocation fixup (relocateHandles) rewrites it in place when
// the backing buffer grows or compacts, which is the single invariant
// this package exists to maintain. Writing through Bytes() between pool
// calls is safe; the pointer value itself is only stable between calls
// that might relocate the backing buffer.
type Handle struct {
	Flags  HandleFlags
	Length uint64
	Buf    unsafe.Pointer

	owner    *RegionPool
	elem     *list.Element
	inList   *list.List
	fromSlab bool
	slabIdx  int
}

// Bytes returns a slice view of the region's current bytes. The slice
// is only valid until the next RegionPool call that could relocate the
// backing buffer (any GetRegion while unpinned).
func (h *Handle) Bytes() []byte {
	if h.Buf == nil || h.Length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(h.Buf), h.Length)
}

// DefaultHandleSlabCapacity is the default size of the handle-struct
// recycling slab passed to NewRegionPool.
const DefaultHandleSlabCapacity = 256

func (p *RegionPool) acquireHandle() *Handle {
	if p.slab != nil {
		if idx, err := p.slab.Get(); err == nil {
			h := p.slab.Value(idx)
			*h = Handle{fromSlab: true, slabIdx: idx}
			return h
		}
	}
	return &Handle{}
}

func (p *RegionPool) releaseHandle(h *Handle) {
	if !h.fromSlab {
		return
	}
	idx := h.slabIdx
	*h = Handle{}
	p.slab.Put(idx)
}
