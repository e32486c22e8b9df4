// Package testutil provides content trees and in-memory sources for
// archive tests.
package testutil

import (
	"bytes"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
)

// MemSource implements an in-memory byte source for tests.
type MemSource struct {
	data   []byte
	closed atomic.Int32
}

// NewMemSource returns a byte source backed by the provided data.
func NewMemSource(data []byte) *MemSource {
	return &MemSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MemSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MemSource) Size() int64 {
	return int64(len(m.data))
}

// Close counts calls so tests can check that a reader released its source.
func (m *MemSource) Close() error {
	m.closed.Add(1)
	return nil
}

// Closed returns how many times Close was called.
func (m *MemSource) Closed() int {
	return int(m.closed.Load())
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MemSource) Bytes() []byte {
	return m.data
}

// WriteTree creates files under root from a map of slash-separated
// relative paths to contents and returns their absolute paths, sorted.
func WriteTree(tb testing.TB, root string, files map[string][]byte) []string {
	tb.Helper()
	paths := make([]string, 0, len(files))
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, content, 0o644); err != nil {
			tb.Fatalf("write %s: %v", p, err)
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Compressible returns n bytes of repetitive text.
func Compressible(n int) []byte {
	line := []byte("function update(self, dt) go.set_position(vmath.vector3(0, 0, 0)) end\n")
	return bytes.Repeat(line, n/len(line)+1)[:n]
}

// Random returns n pseudo-random bytes from a fixed seed. The output does
// not compress.
func Random(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(r.Uint32())
	}
	return buf
}
