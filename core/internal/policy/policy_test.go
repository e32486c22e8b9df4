package policy

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"simple", "/main/main.luac", "luac"},
		{"underscore ext", "/gui/menu.gui_scriptc", "gui_scriptc"},
		{"multiple dots", "/a/b.tar.gz", "gz"},
		{"no ext", "/a/README", ""},
		{"dot in dir only", "/a.b/file", ""},
		{"windows separators", `C:\proj\build\x.scriptc`, "scriptc"},
		{"trailing dot", "/a/file.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.path))
		})
	}
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("/x/y.luac", DefaultEncryptedExtensions))
	assert.True(t, HasExtension("/x/y.render_scriptc", DefaultEncryptedExtensions))
	assert.False(t, HasExtension("/x/y.LUAC", DefaultEncryptedExtensions))
	assert.False(t, HasExtension("/x/y.texturec", DefaultEncryptedExtensions))
	assert.False(t, HasExtension("/x/luac", DefaultEncryptedExtensions))
}

func TestDefaultSkipCompression(t *testing.T) {
	skip := DefaultSkipCompression(0)
	assert.True(t, skip("/img/a.PNG", nil))
	assert.True(t, skip("/snd/b.ogg", nil))
	assert.False(t, skip("/scripts/c.luac", nil))
}

func TestShouldSkip(t *testing.T) {
	never := func(string, fs.FileInfo) bool { return false }
	assert.False(t, ShouldSkip("/a.png", nil, nil))
	assert.False(t, ShouldSkip("/a.png", nil, []SkipCompressionFunc{nil, never}))
	assert.True(t, ShouldSkip("/a.dat", nil, []SkipCompressionFunc{never, SkipExtensions(".DAT")}))
}
