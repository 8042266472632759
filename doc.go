// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package netbuf provides a buffered-output region pool for network
// clients and servers whose send path gathers many small writes into
// one contiguous backing buffer and flushes them via scatter/gather I/O.
//
// # Problem
//
// A producer asks for logically independent, variable-sized write
// regions ([Handle] values) and writes into them. The pool keeps those
// regions physically coalesced in a single growable [ContigBuf]
// whenever it can, to minimize syscalls and allocator traffic. A
// separate flushing subsystem reads the pending bytes through a
// vectored I/O view ([RegionPool.IOVGet]) and reports partial progress
// ([RegionPool.IOVDone]); the pool retires regions only once fully
// drained.
//
// # Region Pool
//
// [RegionPool] owns one [ContigBuf] plus two ordered lists of handles:
// the live list (regions not yet fully flushed) and the flushed list
// (regions the network has fully drained but the producer has not yet
// freed). Three concerns make this harder than a plain growable buffer:
//
//   - Relocation safety: growing or compacting the backing buffer moves
//     every live region's bytes; every outstanding [Handle] must be
//     rewritten in place to keep pointing at its own bytes.
//   - Pinning: a region may be temporarily owned by a reader elsewhere
//     (an outstanding [RegionPool.IOVGet], or an explicit
//     [RegionPool.Pin]) and must not move; while any pin is held,
//     growth falls back to a standalone allocation instead of
//     relocating the backing buffer.
//   - Vectored flushing with partial progress: regions freed out of
//     order leave holes, so [RegionPool.IOVGet] returns one segment per
//     contiguous run, and a byte offset into the leading region
//     survives across partial [RegionPool.IOVDone] calls.
//
// # Indirect Pool Pattern
//
// [RegionPool] reuses the lock-free [BoundedPool] to recycle [Handle]
// structs instead of allocating one per [RegionPool.GetRegion] call on
// the common path:
//
//	pool := netbuf.NewRegionPool(netbuf.DefaultHandleSlabCapacity)
//	h, _ := pool.GetRegion(1024, nil)
//	// write into h.Bytes()...
//	iov := make([]netbuf.IoVec, 4)
//	n, _ := pool.IOVGet(iov)
//	// perform vectored I/O against iov[:n]...
//	pool.IOVDone(nwritten)
//	pool.FreeRegion(h)
//
// # Dependencies
//
// netbuf depends on:
//   - iox: semantic error sentinels (iox.ErrWouldBlock) for non-blocking
//     control flow in the handle slab.
//   - spin: spin-wait primitives used inside BoundedPool's CAS loop.
package netbuf
