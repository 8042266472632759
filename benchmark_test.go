// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netbuf_test

import (
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/netbuf"
	"code.hybscloud.com/spin"
)

// Handle-slab benchmarks

func BenchmarkRegionPool_GetFreeRegion(b *testing.B) {
	pool := netbuf.NewRegionPool(netbuf.DefaultHandleSlabCapacity)
	defer pool.Clean()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, err := pool.GetRegion(256, nil)
		if err != nil {
			b.Fatal(err)
		}
		pool.FreeRegion(h)
	}
}

func BenchmarkRegionPool_GetFreeRegion_Parallel(b *testing.B) {
	// RegionPool itself is single-threaded; this drives independent pools
	// per goroutine to exercise the handle slab's BoundedPool contention
	// path instead.
	b.RunParallel(func(pb *testing.PB) {
		pool := netbuf.NewRegionPool(netbuf.DefaultHandleSlabCapacity)
		defer pool.Clean()
		for pb.Next() {
			h, err := pool.GetRegion(256, nil)
			if err != nil {
				b.Fatal(err)
			}
			pool.FreeRegion(h)
		}
	})
}

func BenchmarkBoundedPool_GetPut(b *testing.B) {
	pool := netbuf.NewBoundedPool[int](1024)
	pool.Fill(func() int { return 0 })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx, err := pool.Get()
			if err != nil {
				b.Fatal(err)
			}
			spin.Yield()
			_ = pool.Put(idx)
		}
	})
}

// Memory allocation benchmarks

func BenchmarkAlignedMem_4K(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = netbuf.AlignedMem(4096, netbuf.PageSize)
	}
}

func BenchmarkAlignedMem_64K(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = netbuf.AlignedMem(65536, netbuf.PageSize)
	}
}

// ContigBuf benchmarks

func BenchmarkContigBuf_Append(b *testing.B) {
	var buf netbuf.ContigBuf
	buf.Init()
	defer buf.Cleanup()
	data := make([]byte, 128)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := buf.Append(data); err != nil {
			b.Fatal(err)
		}
		if err := buf.Chop(len(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// IoVec benchmarks

func BenchmarkIoVecFromBytesSlice_8(b *testing.B) {
	slices := make([][]byte, 8)
	for i := range slices {
		slices[i] = make([]byte, 256)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = netbuf.IoVecFromBytesSlice(slices)
	}
}

func BenchmarkIoVecAddrLen(b *testing.B) {
	iov := []netbuf.IoVec{{Base: nil, Len: 256}, {Base: nil, Len: 256}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = netbuf.IoVecAddrLen(iov)
	}
}

func BenchmarkRegionPool_IOVGet(b *testing.B) {
	pool := netbuf.NewRegionPool(netbuf.DefaultHandleSlabCapacity)
	defer pool.Clean()
	handles := make([]*netbuf.Handle, 0, 8)
	for i := 0; i < 8; i++ {
		h, err := pool.GetRegion(256, nil)
		if err != nil {
			b.Fatal(err)
		}
		handles = append(handles, h)
	}
	defer func() {
		for _, h := range handles {
			pool.FreeRegion(h)
		}
	}()
	iov := make([]netbuf.IoVec, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n, err := pool.IOVGet(iov)
		if err != nil {
			b.Fatal(err)
		}
		_ = n
		if err := pool.IOVDone(0); err != nil {
			b.Fatal(err)
		}
	}
}

// High-contention benchmarks demonstrating Backoff behavior
//
// These benchmarks simulate handle-slab exhaustion scenarios where
// multiple goroutines compete for a small BoundedPool. When the pool is
// empty, Get() uses iox.Backoff (linear block-backoff with jitter) to
// wait for a handle to be returned.

func BenchmarkBoundedPool_HighContention_SmallPool(b *testing.B) {
	pool := netbuf.NewBoundedPool[int](16)
	pool.Fill(func() int { return 0 })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var ba iox.Backoff
		for pb.Next() {
			idx, err := pool.Get()
			if err != nil {
				b.Fatal(err)
			}
			ba.Wait()
			_ = pool.Put(idx)
		}
	})
}

func BenchmarkBoundedPool_HighContention_TinyPool(b *testing.B) {
	pool := netbuf.NewBoundedPool[int](4)
	pool.Fill(func() int { return 0 })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx, err := pool.Get()
			if err != nil {
				b.Fatal(err)
			}
			spin.Yield()
			_ = pool.Put(idx)
		}
	})
}
