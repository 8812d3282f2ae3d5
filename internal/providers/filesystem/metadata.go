package filesystem

import (
	"os"
	"path/filepath"
)

// Stat projects path into an EntryMetadata.
//
// A path that cannot be stat'ed still yields a record: the ID, display name,
// MIME type and flags are derived from the name alone, while Size and
// LastModified stay zero.
func Stat(path string) EntryMetadata {
	abs := AbsPath(path)
	meta := EntryMetadata{
		ID:          abs,
		DisplayName: displayName(abs),
	}

	info, err := os.Stat(abs)
	if err == nil {
		meta.Size = info.Size()
		meta.LastModified = info.ModTime().UnixMilli()
	}

	if err == nil && info.IsDir() {
		meta.MIMEType = MIMETypeDir
		meta.Flags = Capabilities(true, "")
		return meta
	}

	meta.MIMEType = MIMETypeFromName(abs)
	meta.Flags = Capabilities(false, meta.MIMEType)
	return meta
}

// AbsPath returns the absolute form of path, falling back to the cleaned
// input when the working directory is unavailable.
func AbsPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// ParentPath returns the absolute path of the directory holding path.
func ParentPath(path string) string {
	return filepath.Dir(AbsPath(path))
}

func displayName(abs string) string {
	name := filepath.Base(abs)
	if name == string(filepath.Separator) {
		return ""
	}
	return name
}
