// Package thumbs keeps an on-disk JPEG thumbnail cache keyed by media id.
package thumbs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shuttle"
)

const (
	DefaultSize = 512
	Quality     = 80
)

// SourceResolver finds the original file for a media id
type SourceResolver interface {
	SourcePath(ctx context.Context, id shuttle.MediaID) (string, error)
}

// Cache stores thumbnails as <dir>/<id>.jpg
type Cache struct {
	dir     string
	size    int
	sources SourceResolver
	log     *zap.Logger
}

// New creates the cache directory if needed
func New(dir string, size int, sources SourceResolver, log *zap.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	return &Cache{dir: dir, size: size, sources: sources, log: log}, nil
}

// Path returns where the thumbnail for id lives, whether or not it exists
func (c *Cache) Path(id shuttle.MediaID) string {
	return filepath.Join(c.dir, strconv.FormatInt(int64(id), 10)+".jpg")
}

// Query returns the cached thumbnail path for id, or shuttle.ErrNoThumbnail.
// A thumbnail older than its source, or whose source is gone, is dropped
// and reported as a miss.
func (c *Cache) Query(ctx context.Context, id shuttle.MediaID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := c.Path(id)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", shuttle.ErrNoThumbnail
	}
	if err != nil {
		return "", fmt.Errorf("stat thumbnail: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", shuttle.ErrNoThumbnail
	}

	stale, err := c.stale(ctx, id, info.ModTime())
	if err != nil {
		return "", err
	}
	if stale {
		if err := c.Invalidate(id); err != nil {
			c.log.Warn("Failed to drop stale thumbnail", zap.Int64("media_id", int64(id)), zap.Error(err))
		}
		return "", shuttle.ErrNoThumbnail
	}
	return path, nil
}

// stale reports whether the source of id changed after thumbAt or vanished
func (c *Cache) stale(ctx context.Context, id shuttle.MediaID, thumbAt time.Time) (bool, error) {
	if c.sources == nil {
		return false, nil
	}

	src, err := c.sources.SourcePath(ctx, id)
	if errors.Is(err, shuttle.ErrNotIndexed) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check thumbnail %d: %w", id, err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return true, nil
	}
	return info.ModTime().After(thumbAt), nil
}

// Generate decodes the source image, fits it within size x size with EXIF
// orientation applied, and stores it as JPEG. The write goes through a
// temp file and rename so readers never see a partial thumbnail.
func (c *Cache) Generate(ctx context.Context, id shuttle.MediaID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.sources == nil {
		return fmt.Errorf("generate %d: no source resolver", id)
	}

	src, err := c.sources.SourcePath(ctx, id)
	if err != nil {
		return fmt.Errorf("generate %d: %w", id, err)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}
	thumb := imaging.Fit(img, c.size, c.size, imaging.Lanczos)

	tmp, err := os.CreateTemp(c.dir, ".thumb-*")
	if err != nil {
		return fmt.Errorf("create temp thumbnail: %w", err)
	}
	tmpPath := tmp.Name()

	if err := imaging.Encode(tmp, thumb, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp thumbnail: %w", err)
	}
	if err := os.Rename(tmpPath, c.Path(id)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store thumbnail: %w", err)
	}

	b := thumb.Bounds()
	c.log.Debug("Generated thumbnail",
		zap.Int64("media_id", int64(id)),
		zap.String("source", src),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()))
	return nil
}

// Invalidate drops the cached thumbnail for id
func (c *Cache) Invalidate(id shuttle.MediaID) error {
	err := os.Remove(c.Path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
