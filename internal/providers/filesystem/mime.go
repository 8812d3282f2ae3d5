package filesystem

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// commonTypes backs the extension lookup with the document and media types
// callers browse most. The stdlib table only knows a handful of web types
// unless the host ships /etc/mime.types.
var commonTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".3gp":  "video/3gpp",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".json": "application/json",
	".apk":  "application/vnd.android.package-archive",
}

// MIMETypeFromName maps the extension of name to a MIME type. It returns ""
// when the extension is missing or unknown.
func MIMETypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := commonTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return ""
	}
	if media, _, err := mime.ParseMediaType(t); err == nil {
		return media
	}
	return t
}

// commonExtensions is commonTypes inverted, preferring the shortest
// extension so image/jpeg maps to .jpg
var commonExtensions = func() map[string]string {
	out := make(map[string]string, len(commonTypes))
	for ext, t := range commonTypes {
		prev, ok := out[t]
		if !ok || len(ext) < len(prev) || (len(ext) == len(prev) && ext < prev) {
			out[t] = ext
		}
	}
	return out
}()

// ExtensionForMIME returns the canonical extension, dot included, for
// mimeType. The table MIMETypeFromName reads comes first so the two
// directions agree, then the mimetype registry, then the stdlib table.
// Unknown types and the generic octet-stream return "".
func ExtensionForMIME(mimeType string) string {
	if mimeType == "" || mimeType == "application/octet-stream" {
		return ""
	}
	if ext, ok := commonExtensions[mimeType]; ok {
		return ext
	}
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// EntryName applies the naming rule for new files: the extension implied by
// mimeType is appended to name unless name already ends with it.
func EntryName(name, mimeType string) string {
	ext := ExtensionForMIME(mimeType)
	if ext == "" || strings.HasSuffix(name, ext) {
		return name
	}
	return name + ext
}
