package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	darc "github.com/meigma/darc/core"
	"github.com/meigma/darc/manifest"
	"github.com/meigma/darc/textureset"
)

// run executes the CLI with a fresh root command and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "darc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: error\nno_progress: true\n"), 0o644))

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeContent(t *testing.T) (string, []string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main/main.collectionc": strings.Repeat("embedded_instances { id: \"go\" }\n", 64),
		"main/readme.txt":       strings.Repeat("the quick brown fox jumps over the lazy dog\n", 64),
	}
	var paths []string
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		paths = append(paths, p)
	}
	return root, paths
}

func TestBuildAndListCompressed(t *testing.T) {
	root, paths := writeContent(t)
	out := filepath.Join(t.TempDir(), "game.arc")

	_, _, err := run(t, "", append([]string{"build", root, out, "-c"}, paths...)...)
	require.NoError(t, err)

	listing, _, err := run(t, "", "read", out)
	require.NoError(t, err)

	var ratios, encrypted []string
	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "ratio: "); ok {
			ratios = append(ratios, v)
		}
		if v, ok := strings.CutPrefix(line, "encrypted: "); ok {
			encrypted = append(encrypted, v)
		}
	}
	require.Len(t, ratios, 2)
	for _, v := range ratios {
		ratio, err := strconv.ParseFloat(v, 64)
		require.NoError(t, err)
		assert.Less(t, ratio, 1.0)
	}
	assert.Equal(t, []string{"-", "-"}, encrypted)
	assert.Contains(t, listing, "> /main/main.collectionc\n")
	assert.Contains(t, listing, "> /main/readme.txt\n")
}

func TestBuildSplitWithManifest(t *testing.T) {
	root, paths := writeContent(t)
	script := filepath.Join(root, "main", "player.luac")
	require.NoError(t, os.WriteFile(script, []byte(strings.Repeat("bytecode ", 100)), 0o644))
	paths = append(paths, script)

	dir := t.TempDir()
	out := filepath.Join(dir, "game")
	manifestPath := filepath.Join(dir, "game.dmanifest")
	args := append([]string{"build", "--split", "--manifest", manifestPath, root, out, "-c"}, paths...)
	_, _, err := run(t, "", args...)
	require.NoError(t, err)

	stdout, _, err := run(t, "", "read", "--json", "--data", out+".arcd", out+".arci")
	require.NoError(t, err)

	var listing jsonListing
	require.NoError(t, json.Unmarshal([]byte(stdout), &listing))
	assert.Equal(t, darc.VersionSplit, listing.Version)
	require.Len(t, listing.Entries, 3)
	byPath := map[string]jsonEntry{}
	for _, e := range listing.Entries {
		byPath[e.Path] = e
		assert.Len(t, e.Hash, 64, "sha256 hex")
	}
	assert.True(t, byPath["/main/player.luac"].Encrypted)
	assert.False(t, byPath["/main/readme.txt"].Encrypted)

	m, err := manifest.ReadFile(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	extractDir := filepath.Join(dir, "extracted")
	stdout, _, err = run(t, "", "read", "--decode", "--data", out+".arcd", out+".arci", extractDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Extracting entries to "+extractDir)
	got, err := os.ReadFile(filepath.Join(extractDir, "main", "player.luac"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("bytecode ", 100), string(got))
}

func TestReadRemoteArchive(t *testing.T) {
	root, paths := writeContent(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "game.arc")

	_, _, err := run(t, "", append([]string{"build", root, out, "-c"}, paths...)...)
	require.NoError(t, err)

	server := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(server.Close)

	local, _, err := run(t, "", "read", out)
	require.NoError(t, err)
	remote, _, err := run(t, "", "read", server.URL+"/game.arc")
	require.NoError(t, err)
	assert.Equal(t, local, remote)

	dest := t.TempDir()
	_, _, err = run(t, "", "read", server.URL+"/game.arc", dest, "--decode", "--concurrency", "2")
	require.NoError(t, err)
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		want, err := os.ReadFile(p)
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dest, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got, rel)
	}

	_, _, err = run(t, "", "read", server.URL+"/game.arc", "--data", out)
	require.ErrorContains(t, err, "cannot mix URLs and local files")
}

func TestBuildUsageHint(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "default.arc")
	cfgPath := filepath.Join(t.TempDir(), "darc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("root: "+root+"\noutput: "+out+"\nno_progress: true\nlog_level: error\n"), 0o644))

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", cfgPath, "build"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), buildUsage)

	r, err := darc.Open(out)
	require.NoError(t, err)
	defer r.Close()
	assert.Zero(t, r.Len())
}

func TestBuildRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	_, _, err := run(t, "", "build", root, filepath.Join(t.TempDir(), "a.arc"), outside)
	require.ErrorIs(t, err, darc.ErrOutsideRoot)
}

func TestReadMissingArchive(t *testing.T) {
	_, _, err := run(t, "", "read", filepath.Join(t.TempDir(), "missing.arc"))
	require.ErrorIs(t, err, darc.ErrNotFound)

	_, _, err = run(t, "", "read")
	require.Error(t, err)
}

func TestLayoutCommand(t *testing.T) {
	input := `[{"id":"a","width":16,"height":16},{"id":"b","width":16,"height":16},
{"id":"c","width":16,"height":16},{"id":"d","width":16,"height":16}]`

	stdout, _, err := run(t, input, "layout", "--margin", "2")
	require.NoError(t, err)

	var layout textureset.Layout
	require.NoError(t, json.Unmarshal([]byte(stdout), &layout))
	assert.Equal(t, 128, layout.Width)
	assert.Equal(t, 32, layout.Height)
	require.Len(t, layout.Rectangles, 4)
	assert.Equal(t, "b", layout.Rectangles[1].ID)
	assert.Equal(t, 18, layout.Rectangles[1].X)

	file := filepath.Join(t.TempDir(), "rects.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"id":1,"width":10,"height":10},{"id":2,"width":10,"height":10}]`), 0o644))
	stdout, _, err = run(t, "", "layout", "--power-of-two=false", file)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &layout))
	assert.Equal(t, 20, layout.Width)
	assert.Equal(t, 10, layout.Height)

	_, _, err = run(t, `[{"id":"bad","width":0,"height":4}]`, "layout")
	require.ErrorIs(t, err, textureset.ErrInvalidRect)
}
