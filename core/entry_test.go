package darc

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/darc/core/testutil"
)

func TestNewEntry(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := testutil.WriteTree(t, root, map[string][]byte{
		"main/main.collectionc": []byte("collection"),
	})

	e, err := NewEntry(root, paths[0], true)
	require.NoError(t, err)
	assert.Equal(t, "/main/main.collectionc", e.Path)
	assert.Equal(t, paths[0], e.SourcePath)
	assert.Equal(t, uint32(10), e.Size)
	assert.Equal(t, uint32(0), e.CompressedSize)
	assert.Equal(t, uint32(0), e.Flags)

	e, err = NewEntry(root, paths[0], false)
	require.NoError(t, err)
	assert.Equal(t, FlagUncompressed, e.CompressedSize)
}

func TestNewEntryErrors(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	root := filepath.Join(base, "content")
	testutil.WriteTree(t, base, map[string][]byte{
		"content/dir/a.txt": []byte("a"),
		"content2/b.txt":    []byte("b"),
		"outside.txt":       []byte("c"),
	})

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", filepath.Join(root, "nope.txt"), ErrNotFound},
		{"directory", filepath.Join(root, "dir"), ErrNotFound},
		{"outside root", filepath.Join(base, "outside.txt"), ErrOutsideRoot},
		{"sibling with root prefix", filepath.Join(base, "content2", "b.txt"), ErrOutsideRoot},
		{"missing and outside", filepath.Join(base, "gone.txt"), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewEntry(root, tt.path, false)
			require.ErrorIs(t, err, tt.want)
			var pathErr *fs.PathError
			require.ErrorAs(t, err, &pathErr)
		})
	}
}

func TestNewEntryNotFoundMatchesErrNotExist(t *testing.T) {
	t.Parallel()

	_, err := NewEntry(t.TempDir(), "/does/not/exist", false)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewEntryRelativePaths(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{"a/b.txt": []byte("x")})

	t.Chdir(root)

	e, err := NewEntry(".", filepath.Join("a", "b.txt"), false)
	require.NoError(t, err)
	assert.Equal(t, "/a/b.txt", e.Path)
}

func TestRelativeTo(t *testing.T) {
	t.Parallel()

	sep := string(filepath.Separator)
	tests := []struct {
		name   string
		root   string
		abs    string
		want   string
		wantOK bool
	}{
		{"nested", sep + "r", filepath.Join(sep+"r", "a", "b"), "/a/b", true},
		{"root is filesystem root", sep, sep + "a", "/a", true},
		{"sibling prefix", sep + "r", sep + "r2" + sep + "a", "", false},
		{"root itself", sep + "r", sep + "r", "", false},
		{"unrelated", sep + "r", sep + "x" + sep + "a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := relativeTo(tt.root, tt.abs)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
