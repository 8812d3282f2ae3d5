package filesystem

import (
	"os"
	"path/filepath"
)

// ListChildren projects every direct child of dir. Entries come back in the
// order the directory yields them, which is unspecified. A path that is not a
// readable directory yields an empty, non-nil slice.
func ListChildren(dir string) []EntryMetadata {
	entries := []EntryMetadata{}

	f, err := os.Open(dir)
	if err != nil {
		return entries
	}
	defer f.Close()

	// File.ReadDir keeps the on-disk order; os.ReadDir would sort.
	children, err := f.ReadDir(-1)
	if err != nil {
		return entries
	}

	for _, child := range children {
		entries = append(entries, Stat(filepath.Join(dir, child.Name())))
	}
	return entries
}
