package manifest

import (
	_ "crypto/sha256" // register digest.SHA256
	_ "crypto/sha512" // register digest.SHA384 and digest.SHA512
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/darc/manifest/internal/fb"
)

// Version is the manifest format version written by Builder.
const Version uint32 = 1

var (
	// ErrDuplicatePath is returned when a path is added twice.
	ErrDuplicatePath = errors.New("manifest: duplicate path")

	// ErrInvalid is returned when manifest bytes cannot be parsed.
	ErrInvalid = errors.New("manifest: invalid data")
)

// Resource is one manifest record.
type Resource struct {
	// Path is the entry path inside the archive.
	Path string
	// Digest is the digest of the entry's stored bytes.
	Digest digest.Digest
	// Size is the stored length in bytes.
	Size uint32
}

// Option configures a Builder.
type Option func(*Builder)

// WithAlgorithm sets the digest algorithm. The default is digest.SHA256.
func WithAlgorithm(alg digest.Algorithm) Option {
	return func(b *Builder) {
		b.alg = alg
	}
}

// WithLogger sets the logger for the Builder.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder accumulates resources and encodes them as a manifest.
type Builder struct {
	alg       digest.Algorithm
	logger    *slog.Logger
	resources []Resource
	seen      map[string]struct{}
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		alg:  digest.SHA256,
		seen: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if !b.alg.Available() {
		return nil, fmt.Errorf("manifest: hash algorithm %q is not available", b.alg)
	}
	return b, nil
}

func (b *Builder) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.New(slog.DiscardHandler)
}

// AddResourceEntry records the digest of data under path.
func (b *Builder) AddResourceEntry(path string, data []byte) error {
	if _, ok := b.seen[path]; ok {
		return &fs.PathError{Op: "manifest", Path: path, Err: ErrDuplicatePath}
	}
	if uint64(len(data)) > uint64(^uint32(0)) {
		return fmt.Errorf("manifest: %s: %d bytes exceeds 32-bit size", path, len(data))
	}
	b.seen[path] = struct{}{}
	r := Resource{
		Path:   path,
		Digest: b.alg.FromBytes(data),
		Size:   uint32(len(data)),
	}
	b.resources = append(b.resources, r)
	b.log().Debug("manifest resource", "path", path, "digest", r.Digest.String(), "size", r.Size)
	return nil
}

// Algorithm returns the digest algorithm.
func (b *Builder) Algorithm() digest.Algorithm {
	return b.alg
}

// Resources returns the recorded resources in the order they were added.
func (b *Builder) Resources() []Resource {
	return slices.Clone(b.resources)
}

// Bytes encodes the manifest. Resources are sorted by path.
func (b *Builder) Bytes() ([]byte, error) {
	sorted := slices.Clone(b.resources)
	slices.SortFunc(sorted, func(x, y Resource) int {
		return strings.Compare(x.Path, y.Path)
	})

	builder := flatbuffers.NewBuilder(1024)

	// Build resources in reverse order (FlatBuffers requirement)
	offsets := make([]flatbuffers.UOffsetT, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		hash, err := hex.DecodeString(r.Digest.Encoded())
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: %w", r.Path, err)
		}

		pathOffset := builder.CreateString(r.Path)

		fb.ResourceStartHashVector(builder, len(hash))
		for j := len(hash) - 1; j >= 0; j-- {
			builder.PrependByte(hash[j])
		}
		hashOffset := builder.EndVector(len(hash))

		fb.ResourceStart(builder)
		fb.ResourceAddPath(builder, pathOffset)
		fb.ResourceAddHash(builder, hashOffset)
		fb.ResourceAddSize(builder, r.Size)
		offsets[i] = fb.ResourceEnd(builder)
	}

	fb.ManifestStartResourcesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	resourcesOffset := builder.EndVector(len(offsets))
	algOffset := builder.CreateString(string(b.alg))

	fb.ManifestStart(builder)
	fb.ManifestAddVersion(builder, Version)
	fb.ManifestAddHashAlgorithm(builder, algOffset)
	fb.ManifestAddResources(builder, resourcesOffset)
	builder.Finish(fb.ManifestEnd(builder))
	return builder.FinishedBytes(), nil
}

// WriteFile encodes the manifest to path, replacing it atomically.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	b.log().Info("wrote manifest", "path", path, "resources", len(b.resources))
	return nil
}

// Manifest is a parsed manifest.
//
// Manifest is backed by FlatBuffers; the data passed to Load is retained
// and must not be modified.
type Manifest struct {
	data []byte
	root *fb.Manifest
	alg  digest.Algorithm
}

// Load parses FlatBuffers-encoded manifest bytes.
func Load(data []byte) (m *Manifest, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalid, len(data))
	}

	root := fb.GetRootAsManifest(data, 0)
	if v := root.Version(); v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalid, v)
	}
	alg := digest.Algorithm(root.HashAlgorithm())
	if !alg.Available() {
		return nil, fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalid, alg)
	}

	m = &Manifest{data: data, root: root, alg: alg}
	// touch every record so corrupt offsets fail here rather than later
	for r := range m.Resources() {
		_ = r
	}
	return m, nil
}

// ReadFile loads the manifest stored at path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Version returns the format version of the manifest.
func (m *Manifest) Version() uint32 {
	return m.root.Version()
}

// Algorithm returns the digest algorithm of every resource.
func (m *Manifest) Algorithm() digest.Algorithm {
	return m.alg
}

// Len returns the number of resources.
func (m *Manifest) Len() int {
	return m.root.ResourcesLength()
}

// Lookup returns the resource with the given path.
func (m *Manifest) Lookup(path string) (Resource, bool) {
	n := m.root.ResourcesLength()
	var rec fb.Resource
	i := sort.Search(n, func(i int) bool {
		m.root.Resources(&rec, i)
		return string(rec.Path()) >= path
	})
	if i >= n {
		return Resource{}, false
	}
	m.root.Resources(&rec, i)
	if string(rec.Path()) != path {
		return Resource{}, false
	}
	return m.resource(&rec), true
}

// Resources returns an iterator over all resources sorted by path.
func (m *Manifest) Resources() iter.Seq[Resource] {
	return func(yield func(Resource) bool) {
		var rec fb.Resource
		for i := range m.root.ResourcesLength() {
			if !m.root.Resources(&rec, i) {
				return
			}
			if !yield(m.resource(&rec)) {
				return
			}
		}
	}
}

func (m *Manifest) resource(rec *fb.Resource) Resource {
	return Resource{
		Path:   string(rec.Path()),
		Digest: digest.NewDigestFromBytes(m.alg, rec.HashBytes()),
		Size:   rec.Size(),
	}
}
