package manifest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	darc "github.com/meigma/darc/core"
	"github.com/meigma/darc/core/testutil"
)

func TestBuilderRoundTrip(t *testing.T) {
	t.Parallel()

	b, err := NewBuilder()
	require.NoError(t, err)
	require.NoError(t, b.AddResourceEntry("/z.txt", []byte("zulu")))
	require.NoError(t, b.AddResourceEntry("/a.txt", []byte("alpha")))
	require.NoError(t, b.AddResourceEntry("/m/empty", nil))
	require.ErrorIs(t, b.AddResourceEntry("/a.txt", []byte("again")), ErrDuplicatePath)

	added := b.Resources()
	require.Len(t, added, 3)
	assert.Equal(t, "/z.txt", added[0].Path, "insertion order")

	data, err := b.Bytes()
	require.NoError(t, err)
	m, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, Version, m.Version())
	assert.Equal(t, digest.SHA256, m.Algorithm())
	assert.Equal(t, 3, m.Len())

	var got []string
	for r := range m.Resources() {
		got = append(got, r.Path)
	}
	assert.Equal(t, []string{"/a.txt", "/m/empty", "/z.txt"}, got)

	r, ok := m.Lookup("/a.txt")
	require.True(t, ok)
	assert.Equal(t, digest.FromString("alpha"), r.Digest)
	assert.Equal(t, uint32(5), r.Size)

	r, ok = m.Lookup("/m/empty")
	require.True(t, ok)
	assert.Equal(t, digest.FromBytes(nil), r.Digest)
	assert.Zero(t, r.Size)

	_, ok = m.Lookup("/b.txt")
	assert.False(t, ok)
	_, ok = m.Lookup("/zz")
	assert.False(t, ok)
}

func TestBuilderAlgorithm(t *testing.T) {
	t.Parallel()

	b, err := NewBuilder(WithAlgorithm(digest.SHA512))
	require.NoError(t, err)
	require.NoError(t, b.AddResourceEntry("/a", []byte("a")))
	data, err := b.Bytes()
	require.NoError(t, err)

	m, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, digest.SHA512, m.Algorithm())
	r, ok := m.Lookup("/a")
	require.True(t, ok)
	assert.Equal(t, digest.SHA512.FromString("a"), r.Digest)

	_, err = NewBuilder(WithAlgorithm("crc32"))
	require.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, {1, 2}, bytes.Repeat([]byte{0xff}, 64)} {
		_, err := Load(data)
		require.ErrorIs(t, err, ErrInvalid)
	}
}

func TestEmptyManifest(t *testing.T) {
	t.Parallel()

	b, err := NewBuilder()
	require.NoError(t, err)
	data, err := b.Bytes()
	require.NoError(t, err)
	m, err := Load(data)
	require.NoError(t, err)
	assert.Zero(t, m.Len())
	_, ok := m.Lookup("/a")
	assert.False(t, ok)
}

func TestManifestMatchesArchive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := testutil.WriteTree(t, root, map[string][]byte{
		"main/main.luac":        testutil.Compressible(3000),
		"main/main.texturec":    testutil.Random(900, 2),
		"main/main.collectionc": []byte("collection"),
	})

	b, err := NewBuilder()
	require.NoError(t, err)
	w, err := darc.NewWriter(root,
		darc.WriteWithManifest(b),
		darc.WriteWithEncryption([]byte("0123456789abcdef")))
	require.NoError(t, err)
	for _, p := range paths {
		require.NoError(t, w.Add(p, true))
	}

	out := filepath.Join(t.TempDir(), "game.arc")
	require.NoError(t, w.WriteFile(context.Background(), out))
	manifestPath := filepath.Join(filepath.Dir(out), "game.dmanifest")
	require.NoError(t, b.WriteFile(manifestPath))

	m, err := ReadFile(manifestPath)
	require.NoError(t, err)
	r, err := darc.Open(out)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.Entries()
	require.NoError(t, err)
	require.Equal(t, len(entries), m.Len())
	for _, e := range entries {
		stored, err := r.Content(e)
		require.NoError(t, err)
		res, ok := m.Lookup(e.Path)
		require.True(t, ok, e.Path)
		assert.Equal(t, digest.FromBytes(stored), res.Digest, e.Path)
		assert.Equal(t, e.CompressedSize, res.Size, e.Path)
	}

	_, err = os.Stat(manifestPath)
	require.NoError(t, err)
}
