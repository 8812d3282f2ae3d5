package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name  string
		isDir bool
		mime  string
		want  Flags
	}{
		{"directory", true, "", FlagSupportsCreate | FlagSupportsDelete},
		{"directory ignores mime", true, "image/png", FlagSupportsCreate | FlagSupportsDelete},
		{"image file", false, "image/jpeg", FlagSupportsDelete | FlagSupportsThumbnail},
		{"text file", false, "text/plain", FlagSupportsDelete},
		{"unknown type", false, "", FlagSupportsDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Capabilities(tt.isDir, tt.mime))
		})
	}
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "cd-", (FlagSupportsCreate | FlagSupportsDelete).String())
	assert.Equal(t, "-dt", (FlagSupportsDelete | FlagSupportsThumbnail).String())
	assert.Equal(t, "---", Flags(0).String())
}

func TestStatDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Pictures")
	require.NoError(t, os.Mkdir(dir, 0o755))

	meta := Stat(dir)

	assert.Equal(t, dir, meta.ID)
	assert.Equal(t, "Pictures", meta.DisplayName)
	assert.Equal(t, MIMETypeDir, meta.MIMEType)
	assert.True(t, meta.IsDir())
	assert.True(t, meta.Flags.Has(FlagSupportsCreate|FlagSupportsDelete))
	assert.False(t, meta.Flags.Has(FlagSupportsThumbnail))
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.PNG")
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0o644))
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	meta := Stat(path)

	assert.Equal(t, "photo.PNG", meta.DisplayName)
	assert.Equal(t, int64(16), meta.Size)
	assert.Equal(t, mtime.UnixMilli(), meta.LastModified)
	assert.Equal(t, "image/png", meta.MIMEType)
	assert.Equal(t, FlagSupportsDelete|FlagSupportsThumbnail, meta.Flags)
}

func TestStatMissingPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")

	meta := Stat(path)

	assert.Equal(t, path, meta.ID)
	assert.Equal(t, "gone.txt", meta.DisplayName)
	assert.Zero(t, meta.Size)
	assert.Zero(t, meta.LastModified)
	assert.Equal(t, "text/plain", meta.MIMEType)
	assert.Equal(t, FlagSupportsDelete, meta.Flags)
}

func TestListChildren(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), nil, 0o644))

	entries := ListChildren(dir)
	require.Len(t, entries, 3)

	byName := map[string]EntryMetadata{}
	for _, e := range entries {
		byName[e.DisplayName] = e
	}
	assert.True(t, byName["sub"].IsDir())
	assert.Equal(t, "image/jpeg", byName["a.jpg"].MIMEType)
	assert.Equal(t, int64(2), byName["b.txt"].Size)
	assert.NotContains(t, byName, "nested.txt")
}

func TestListChildrenNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.Empty(t, ListChildren(file))
	assert.NotNil(t, ListChildren(file))
	assert.Empty(t, ListChildren(filepath.Join(dir, "missing")))
}

func TestMIMETypeFromName(t *testing.T) {
	assert.Equal(t, "image/jpeg", MIMETypeFromName("/a/b/IMG_0001.JPG"))
	assert.Equal(t, "text/plain", MIMETypeFromName("note.txt"))
	assert.Equal(t, "application/pdf", MIMETypeFromName("doc.pdf"))
	assert.Equal(t, "", MIMETypeFromName("Makefile"))
	assert.Equal(t, "", MIMETypeFromName("archive.nosuchext"))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "photo.png", EntryName("photo", "image/png"))
	assert.Equal(t, "photo.png", EntryName("photo.png", "image/png"))
	assert.Equal(t, "note.txt", EntryName("note", "text/plain"))
	assert.Equal(t, "blob", EntryName("blob", "application/x-no-such-type"))
	assert.Equal(t, "blob", EntryName("blob", "application/octet-stream"))
}

func TestExtensionAgreesWithNameLookup(t *testing.T) {
	assert.Equal(t, ".md", ExtensionForMIME("text/markdown"))
	assert.Equal(t, "notes.md", EntryName("notes", "text/markdown"))
	assert.Equal(t, "image/jpeg", MIMETypeFromName("x"+ExtensionForMIME("image/jpeg")))

	// Every type the name lookup knows maps back to an extension it accepts
	for ext, mimeType := range commonTypes {
		back := ExtensionForMIME(mimeType)
		require.NotEmpty(t, back, "no extension for %s (from %s)", mimeType, ext)
		assert.Equal(t, mimeType, MIMETypeFromName("x"+back), "round trip of %s", ext)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		mode string
		want int
	}{
		{"r", os.O_RDONLY},
		{"w", os.O_WRONLY | os.O_CREATE | os.O_TRUNC},
		{"wt", os.O_WRONLY | os.O_CREATE | os.O_TRUNC},
		{"wa", os.O_WRONLY | os.O_CREATE | os.O_APPEND},
		{"rw", os.O_RDWR | os.O_CREATE},
		{"rwt", os.O_RDWR | os.O_CREATE | os.O_TRUNC},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := ParseMode(tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("x")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestOpenModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	_, err := Open(path, "r")
	assert.True(t, os.IsNotExist(err))

	f, err := Open(path, "w")
	require.NoError(t, err)
	_, err = f.WriteString("hello")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path, "wa")
	require.NoError(t, err)
	_, err = f.WriteString(" world")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	f, err = Open(path, "rwt")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
