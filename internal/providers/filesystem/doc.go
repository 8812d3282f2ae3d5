// Package filesystem projects native filesystem entries into the
// document-provider shape the shuttle hands across the boundary.
//
// This package is organized into small pure pieces:
//   - types: EntryMetadata and the capability flag set
//   - metadata: projection of a path into an EntryMetadata
//   - directory: direct-children listing in directory order
//   - mime: extension to MIME type and MIME type to extension mapping
//   - modes: document-provider open mode tokens ("r", "rwt", ...)
//
// Nothing here caches. Every projection stats the path again, so a caller
// always sees the entry as it is on disk at request time.
//
// Capability Rules:
//   - Directories: create + delete
//   - Files: delete, plus thumbnail when the MIME type is image/*
//
// Example Usage:
//
//	meta := filesystem.Stat("/storage/DCIM/a.jpg")
//	meta.Flags.Has(filesystem.FlagSupportsThumbnail) // true
package filesystem
