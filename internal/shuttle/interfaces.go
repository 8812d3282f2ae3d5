package shuttle

import "context"

// MediaID identifies a file in the media index
type MediaID int64

// MediaIndex maps paths to media index identifiers
type MediaIndex interface {
	// Lookup returns the id registered for path, or ErrNotIndexed
	Lookup(ctx context.Context, path string) (MediaID, error)
}

// ThumbnailCache stores thumbnails keyed by media id
type ThumbnailCache interface {
	// Query returns the path of the cached thumbnail, or ErrNoThumbnail
	Query(ctx context.Context, id MediaID) (string, error)

	// Generate renders and stores the thumbnail for id
	Generate(ctx context.Context, id MediaID) error
}

// Owner is told when a Service stops itself after the idle timeout
type Owner interface {
	NotifyShuttleStopped()
}

// OwnerFunc adapts a function to Owner
type OwnerFunc func()

// NotifyShuttleStopped calls f
func (f OwnerFunc) NotifyShuttleStopped() { f() }
