// Package fileprovider is spec.md §6's minimal file-I/O seam: seek, read,
// close, plus an os-backed Open. URL-to-path resolution stays with the host
// (spec.md §1 lists file I/O primitives as an external collaborator; only
// the interface the pump drives is specified).
package fileprovider

import "os"

// File is the subset of file operations the C8 pump needs.
type File interface {
	ReadAt(p []byte, off int64) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// osFile adapts *os.File to File — the reference, grounded implementation;
// a host may substitute its own (e.g. a virtual filesystem, an in-memory
// fake for tests).
type osFile struct{ f *os.File }

// Open wraps os.Open and returns the file as a File together with its size
// from Stat (the caller's filelen). The pump itself only ever Reads and
// Seeks.
func Open(name string) (File, int64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return osFile{f}, info.Size(), nil
}

func (o osFile) ReadAt(p []byte, off int64) (int, error) { return o.f.ReadAt(p, off) }
func (o osFile) Seek(offset int64, whence int) (int64, error) { return o.f.Seek(offset, whence) }
func (o osFile) Close() error                                 { return o.f.Close() }
