package filesystem

import "strings"

// MIMETypeDir is the MIME sentinel reported for directories.
const MIMETypeDir = "vnd.android.document/directory"

// Flags is the capability bitset attached to an entry. Values match the
// document-provider column so callers can forward them untouched.
type Flags uint32

const (
	FlagSupportsThumbnail Flags = 1 << 0
	FlagSupportsDelete    Flags = 1 << 2
	FlagSupportsCreate    Flags = 1 << 3
)

// Has reports whether every bit in want is set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// String renders the set as a compact "cdt" style mask for logs and listings.
func (f Flags) String() string {
	var sb strings.Builder
	for _, bit := range []struct {
		flag Flags
		c    byte
	}{
		{FlagSupportsCreate, 'c'},
		{FlagSupportsDelete, 'd'},
		{FlagSupportsThumbnail, 't'},
	} {
		if f.Has(bit.flag) {
			sb.WriteByte(bit.c)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// EntryMetadata is the projection of one filesystem entry
type EntryMetadata struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"last_modified"`
	MIMEType     string `json:"mime_type"`
	Flags        Flags  `json:"flags"`
}

// IsDir reports whether the entry carries the directory sentinel.
func (e EntryMetadata) IsDir() bool {
	return e.MIMEType == MIMETypeDir
}

// Capabilities computes the flag set for an entry. It is a pure function of
// the entry kind and its MIME type.
func Capabilities(isDir bool, mimeType string) Flags {
	if isDir {
		return FlagSupportsCreate | FlagSupportsDelete
	}
	flags := FlagSupportsDelete
	if IsImage(mimeType) {
		flags |= FlagSupportsThumbnail
	}
	return flags
}

// IsImage reports whether mimeType is in the image/* family.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
