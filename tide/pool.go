package tide

import "sync"

// Size-classed byte-slice pools, grounded on hemi/web_general.go's
// GetNK/PutNK/Get16K helpers: a handful of power-of-two classes, each
// backed by its own sync.Pool, rather than one pool of variously-sized
// slices (which would force every Get to discard and reallocate whenever
// the requested size didn't match what's sitting in the pool).
const (
	size4K  = 4 * 1024
	size16K = 16 * 1024
	size64K = 64 * 1024
)

var (
	pool4K  = sync.Pool{New: func() any { b := make([]byte, size4K); return &b }}
	pool16K = sync.Pool{New: func() any { b := make([]byte, size16K); return &b }}
	pool64K = sync.Pool{New: func() any { b := make([]byte, size64K); return &b }}
)

// getNK returns a pooled buffer with capacity >= n, rounded up to the
// smallest size class that fits, or a freshly allocated slice if n exceeds
// every class.
func getNK(n int) []byte {
	switch {
	case n <= size4K:
		b := pool4K.Get().(*[]byte)
		return (*b)[:size4K]
	case n <= size16K:
		b := pool16K.Get().(*[]byte)
		return (*b)[:size16K]
	case n <= size64K:
		b := pool64K.Get().(*[]byte)
		return (*b)[:size64K]
	default:
		return make([]byte, n)
	}
}

// putNK returns a buffer obtained from getNK to its size class. Buffers
// larger than size64K were never pooled and are simply dropped.
func putNK(b []byte) {
	switch cap(b) {
	case size4K:
		pool4K.Put(&b)
	case size16K:
		pool16K.Put(&b)
	case size64K:
		pool64K.Put(&b)
	}
}

func get16K() []byte  { return getNK(size16K) }
func put16K(b []byte) { putNK(b) }
