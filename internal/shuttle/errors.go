package shuttle

import "errors"

var (
	// ErrNoResult is the absent result of an operation
	ErrNoResult = errors.New("shuttle: no result")

	// ErrStopped is returned by every call after the service stopped
	ErrStopped = errors.New("shuttle: service stopped")

	// ErrNotIndexed is returned by a MediaIndex for paths it does not know
	ErrNotIndexed = errors.New("shuttle: path not indexed")

	// ErrNoThumbnail is returned by a ThumbnailCache on a cache miss
	ErrNoThumbnail = errors.New("shuttle: no thumbnail")
)
