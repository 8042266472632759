// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netbuf

import (
	"container/list"
	"math"
	"unsafe"
)

// RegionPool owns one ContigBuf plus two ordered lists of handles: the
// live list (regions not yet fully flushed) and the flushed list
// (regions fully drained by the consumer but not yet freed by the
// producer). See the package doc for the relocation, pinning, and
// vectored-flush contract this type maintains.
type RegionPool struct {
	_ noCopy

	buf     ContigBuf
	live    *list.List
	flushed *list.List
	slab    *BoundedPool[*Handle]

	pinned         int
	flushOffset    int
	iovOutstanding bool
}

// NewRegionPool creates an empty, ready RegionPool. handleSlabCapacity
// sizes the BoundedPool used to recycle Handle structs for callers that
// pass a nil handle to GetRegion; pass 0 to allocate a fresh *Handle on
// every such call instead.
func NewRegionPool(handleSlabCapacity int) *RegionPool {
	p := &RegionPool{
		live:    list.New(),
		flushed: list.New(),
	}
	p.buf.Init()
	if handleSlabCapacity > 0 {
		p.slab = NewBoundedPool[*Handle](handleSlabCapacity)
		p.slab.SetNonblock(true)
		p.slab.Fill(func() *Handle { return &Handle{} })
	}
	return p
}

// Clean releases the backing buffer. It panics if any region is still
// live or flushed-but-unfreed, since the caller would otherwise be left
// holding handles whose Buf points at freed memory.
func (p *RegionPool) Clean() {
	if p.live.Len() != 0 || p.flushed.Len() != 0 {
		panic("netbuf: Clean called with live or flushed regions outstanding")
	}
	p.buf.Cleanup()
}

// Pinned reports the current pin count: handles with FlagPinned set
// plus 1 if an IOVGet/IOVBuffers call is outstanding.
func (p *RegionPool) Pinned() int {
	return p.pinned
}

// GetRegion reserves a size-byte region and returns its handle.
//
// If handle is nil, a handle is drawn from the recycling slab (or
// freshly allocated if the slab is exhausted or disabled). If handle is
// non-nil, the caller owns that storage: FlagStructUser is set and the
// pool will never recycle or free it.
//
// Placement follows the fast path (tail space available), the
// relocation path (space grown/compacted, no pin held), or the pinned
// path (standalone allocation), in that order — see the package doc.
func (p *RegionPool) GetRegion(size int, handle *Handle) (*Handle, error) {
	if size <= 0 {
		return nil, ErrBadSize
	}

	var h *Handle
	if handle != nil {
		h = handle
		h.Flags |= FlagStructUser
	} else {
		h = p.acquireHandle()
	}
	h.owner = p
	h.Length = uint64(size)

	switch {
	case p.buf.Space() >= size:
		ptr, err := p.buf.ReserveTail(size)
		if err != nil {
			return nil, err
		}
		h.Buf = ptr

	case p.pinned == 0:
		base := unsafe.Pointer(unsafe.SliceData(p.buf.data))
		oldOffset := p.buf.startOffset

		ptr, err := p.buf.ReserveTail(size)
		if err != nil {
			return nil, err
		}
		p.relocateHandles(base, oldOffset)
		h.Buf = ptr

	default:
		if size > math.MaxInt/2 {
			return nil, ErrOverflow
		}
		allocSize := BufferSizeFor(size)
		standalone := make([]byte, allocSize)
		h.Buf = unsafe.Pointer(unsafe.SliceData(standalone))
		h.Flags |= FlagAllocated
	}

	h.elem = p.live.PushBack(h)
	h.inList = p.live
	return h, nil
}

// relocateHandles rewrites every non-ALLOCATED handle's Buf so it keeps
// addressing the same logical byte after the backing buffer moved (grew
// and/or compacted). oldBase/oldOffset are the buffer's data pointer and
// startOffset captured immediately before the relocating ReserveTail call.
//
// logical = old_buf - (old_data + old_offset); new_buf = new_data +
// new_start_offset + logical. This single formula is equivalent to the
// five case-by-case branches in the original source (see spec ch.4.3);
// it's used directly rather than replicated as branches.
func (p *RegionPool) relocateHandles(oldBase unsafe.Pointer, oldOffset int) {
	newBase := unsafe.Pointer(unsafe.SliceData(p.buf.data))
	newOffset := p.buf.startOffset

	fix := func(e *list.Element) {
		h := e.Value.(*Handle)
		if h.Flags&FlagAllocated != 0 {
			return
		}
		logical := uintptr(h.Buf) - uintptr(oldBase) - uintptr(oldOffset)
		h.Buf = unsafe.Add(newBase, uintptr(newOffset)+logical)
	}

	for e := p.live.Front(); e != nil; e = e.Next() {
		fix(e)
	}
	for e := p.flushed.Front(); e != nil; e = e.Next() {
		fix(e)
	}
}

// FreeRegion releases a handle. It panics if the handle is pinned or
// belongs to a different pool. Standalone (FlagAllocated) bytes are
// dropped for GC; otherwise, if the region sits at the head of the live
// window, its bytes are chopped off without compacting (the cheap FIFO
// path). The handle is unlinked from whichever list holds it, and its
// storage is recycled or freed unless FlagStructUser is set.
func (p *RegionPool) FreeRegion(h *Handle) {
	if h.owner != nil && h.owner != p {
		panic("netbuf: handle belongs to a different pool")
	}
	if h.Flags&FlagPinned != 0 {
		panic("netbuf: free of pinned region")
	}

	if h.Flags&FlagAllocated != 0 {
		h.Buf = nil
	} else if h.Buf == p.buf.head() {
		_ = p.buf.ChopNoCompact(int(h.Length))
	}

	if h.inList != nil && h.elem != nil {
		h.inList.Remove(h.elem)
	}
	h.elem, h.inList = nil, nil

	if h.Flags&FlagStructUser == 0 {
		p.releaseHandle(h)
	}
}

// Pin marks a handle's bytes as temporarily unmovable. A no-op if the
// handle is already pinned or is a standalone (FlagAllocated) region,
// since standalone bytes never move.
func (p *RegionPool) Pin(h *Handle) {
	if h.Flags&(FlagAllocated|FlagPinned) != 0 {
		return
	}
	h.Flags |= FlagPinned
	p.pinned++
}

// Unpin releases a previously acquired pin. A no-op for standalone
// regions; panics if the handle was not pinned.
func (p *RegionPool) Unpin(h *Handle) {
	if h.Flags&FlagAllocated != 0 {
		return
	}
	if h.Flags&FlagPinned == 0 {
		panic("netbuf: unpin of non-pinned region")
	}
	h.Flags &^= FlagPinned
	p.pinned--
}

// IOVGet fills iov with one entry per contiguous run of live bytes, in
// live-list (insertion) order, and pins the pool until the matching
// IOVDone. Adjacent regions (next.Buf == prev.Buf+prev.Length) coalesce
// into a single entry. The very first entry is shrunk by flushOffset,
// the byte offset left over from a prior partial IOVDone.
//
// len(iov) is a hard capacity: IOVGet returns ErrIOVCapacity rather than
// writing past it (the original source computed iov_end as niov+1 and
// could write one entry past the caller's array; this reimplementation
// treats the requested capacity as exact, per spec ch.9).
//
// It panics if a prior IOVGet/IOVBuffers call has not yet been
// acknowledged by IOVDone.
func (p *RegionPool) IOVGet(iov []IoVec) (n int, err error) {
	if p.iovOutstanding {
		panic("netbuf: iov_get already outstanding")
	}

	flushOffset := p.flushOffset
	var expected unsafe.Pointer
	started := false

	emit := func(cur *Handle) error {
		if n >= len(iov) {
			return ErrIOVCapacity
		}
		base := (*byte)(cur.Buf)
		length := cur.Length
		if flushOffset > 0 {
			if uint64(flushOffset) >= cur.Length {
				panic("netbuf: flush offset exceeds leading region length")
			}
			base = (*byte)(unsafe.Add(cur.Buf, flushOffset))
			length -= uint64(flushOffset)
			flushOffset = 0
		}
		iov[n] = IoVec{Base: base, Len: length}
		expected = unsafe.Add(cur.Buf, cur.Length)
		n++
		started = true
		return nil
	}

	for e := p.live.Front(); e != nil; e = e.Next() {
		cur := e.Value.(*Handle)
		switch {
		case !started:
			if err := emit(cur); err != nil {
				return 0, err
			}
		case cur.Buf == expected:
			iov[n-1].Len += cur.Length
			expected = unsafe.Add(cur.Buf, cur.Length)
		default:
			if err := emit(cur); err != nil {
				return 0, err
			}
		}
	}

	if !started {
		if len(iov) == 0 {
			return 0, ErrIOVCapacity
		}
		iov[0] = IoVec{Base: nil, Len: 0}
		n = 1
	}

	p.pinned++
	p.iovOutstanding = true
	return n, nil
}

// IOVBuffers is an alternative to IOVGet for callers that prefer
// net.Buffers (e.g. for (*net.TCPConn).Write) over a raw IoVec slice.
// It shares IOVGet's pin contract: it must be matched by exactly one
// IOVDone, and panics if a prior call is already outstanding.
func (p *RegionPool) IOVBuffers() (Buffers, error) {
	if p.iovOutstanding {
		panic("netbuf: iov_get already outstanding")
	}

	bufs := make(Buffers, 0, p.live.Len())
	flushOffset := p.flushOffset

	for e := p.live.Front(); e != nil; e = e.Next() {
		cur := e.Value.(*Handle)
		b := cur.Bytes()
		if flushOffset > 0 {
			if flushOffset >= len(b) {
				panic("netbuf: flush offset exceeds leading region length")
			}
			b = b[flushOffset:]
			flushOffset = 0
		}
		bufs = append(bufs, b)
	}

	p.pinned++
	p.iovOutstanding = true
	return bufs, nil
}

// IOVDone acknowledges n bytes sent since the matching IOVGet/IOVBuffers
// call, unpins the pool, and retires any live regions fully drained by
// n (moving them to the flushed list). If n only partially drains the
// leading region, flushOffset is set so the next IOVGet/IOVBuffers
// resumes mid-region. It panics if there is no outstanding
// IOVGet/IOVBuffers to acknowledge.
func (p *RegionPool) IOVDone(n int) error {
	if !p.iovOutstanding {
		panic("netbuf: iov_done without matching iov_get")
	}
	p.iovOutstanding = false
	p.pinned--

	remaining := n + p.flushOffset
	p.flushOffset = 0

	for remaining > 0 {
		e := p.live.Front()
		if e == nil {
			return ErrNUsedTooLarge
		}
		cur := e.Value.(*Handle)
		if remaining >= int(cur.Length) {
			cur.Flags |= FlagFlushed
			remaining -= int(cur.Length)
			p.live.Remove(e)
			cur.elem = p.flushed.PushBack(cur)
			cur.inList = p.flushed
		} else {
			p.flushOffset = remaining
			remaining = 0
		}
	}
	return nil
}
