// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netbuf

import "errors"

// Sentinel errors returned by RegionPool and ContigBuf for sizes and
// counts that are out of range, including capacity arithmetic that would
// overflow, matching the semantic error convention iox uses for
// ErrWouldBlock. None of them reports allocation failure: a failed Go
// allocation is not returned as an error.
//
// Contract violations (freeing a pinned handle, unpinning a non-pinned
// handle, an unmatched IOVDone, or passing a handle to the wrong pool)
// are programmer errors and panic instead, the way the C source's
// assert() calls would abort — see RegionPool.FreeRegion, Unpin,
// IOVGet and IOVDone.
var (
	// ErrBadSize is returned by GetRegion when size is not positive.
	ErrBadSize = errors.New("netbuf: region size must be positive")

	// ErrOverflow is returned when a requested size would overflow the
	// backing buffer's capacity arithmetic.
	ErrOverflow = errors.New("netbuf: size overflows buffer capacity")

	// ErrChopExceedsLength is returned when Chop/ChopNoCompact is asked
	// to remove more bytes than are currently live.
	ErrChopExceedsLength = errors.New("netbuf: chop offset exceeds buffer length")

	// ErrIOVCapacity is returned by IOVGet when the live list needs more
	// contiguous segments than the caller's iov slice can hold.
	ErrIOVCapacity = errors.New("netbuf: iov slice too small for live segments")

	// ErrNUsedTooLarge is returned by IOVDone when n exceeds the bytes
	// currently pending send.
	ErrNUsedTooLarge = errors.New("netbuf: iov_done n exceeds pending bytes")
)
