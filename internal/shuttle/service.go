package shuttle

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/paths"
	"go.uber.org/zap"
)

// Operation names, shared with the wire protocol and metric labels
const (
	OpPing          = "ping"
	OpListChildren  = "list_children"
	OpGetMetadata   = "get_metadata"
	OpOpenFile      = "open_file"
	OpOpenThumbnail = "open_thumbnail"
	OpCreateEntry   = "create_entry"
	OpDeleteEntry   = "delete_entry"
)

// Service serves filesystem operations for one bind
type Service struct {
	resolver paths.Resolver
	index    MediaIndex
	thumbs   ThumbnailCache
	owner    Owner
	log      *zap.Logger
	metrics  *monitoring.Metrics
	timeout  time.Duration
	after    afterFunc
	now      func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	timer      stopTimer
	deadline   time.Time
}

// Option configures a Service
type Option func(*Service)

// WithIdleTimeout sets the idle timeout. Non-positive values keep the default.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMediaIndex sets the index used by OpenThumbnail
func WithMediaIndex(index MediaIndex) Option {
	return func(s *Service) { s.index = index }
}

// WithThumbnails sets the thumbnail cache used by OpenThumbnail
func WithThumbnails(cache ThumbnailCache) Option {
	return func(s *Service) { s.thumbs = cache }
}

// WithOwner sets the owner notified on idle stop
func WithOwner(owner Owner) Option {
	return func(s *Service) { s.owner = owner }
}

// WithMetrics records calls and lifecycle changes
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates an Active Service and starts its idle countdown
func New(resolver paths.Resolver, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		resolver: resolver,
		log:      log,
		timeout:  DefaultIdleTimeout,
		after:    realAfterFunc,
		now:      time.Now,
		state:    StateActive,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	_ = s.renewLocked()
	s.mu.Unlock()

	s.metrics.InstanceBound()
	s.log.Info("Shuttle bound",
		zap.String("root", resolver.Root()),
		zap.Duration("idle_timeout", s.timeout))
	return s
}

// begin serializes a call and renews the idle timer. The returned function
// releases the call and records its outcome.
func (s *Service) begin(ctx context.Context, op string) (func(error), error) {
	timer := monitoring.NewTimer(s.metrics, op)
	s.mu.Lock()
	if err := s.renewLocked(); err != nil {
		s.mu.Unlock()
		timer.Stop(monitoring.ResultStopped)
		return nil, err
	}

	return func(err error) {
		s.mu.Unlock()
		switch {
		case err == nil:
			timer.Stop(monitoring.ResultOK)
		case errors.Is(err, ErrNoResult):
			timer.Stop(monitoring.ResultAbsent)
		default:
			timer.Stop(monitoring.ResultFault)
		}
	}, nil
}

func (s *Service) callLog(ctx context.Context, op, path string) *zap.Logger {
	fields := []zap.Field{logging.Op(op), logging.Path(path)}
	if rid := id.RequestIDFrom(ctx); rid != "" {
		fields = append(fields, logging.RequestID(rid.String()))
	}
	return s.log.With(fields...)
}

// Ping is a liveness probe. It only renews the idle timer.
func (s *Service) Ping(ctx context.Context) error {
	done, err := s.begin(ctx, OpPing)
	if err != nil {
		return err
	}
	done(nil)
	return nil
}

// ListChildren returns the direct children of path. A path that is not a
// readable directory yields an empty slice.
func (s *Service) ListChildren(ctx context.Context, path string) ([]filesystem.EntryMetadata, error) {
	done, err := s.begin(ctx, OpListChildren)
	if err != nil {
		return nil, err
	}
	defer done(nil)

	entries := filesystem.ListChildren(s.resolver.Resolve(path))
	s.callLog(ctx, OpListChildren, path).Debug("Listed children", zap.Int("count", len(entries)))
	return entries, nil
}

// GetMetadata projects path into an EntryMetadata. A missing path yields a
// record with name-derived fields and zero size and time.
func (s *Service) GetMetadata(ctx context.Context, path string) (filesystem.EntryMetadata, error) {
	done, err := s.begin(ctx, OpGetMetadata)
	if err != nil {
		return filesystem.EntryMetadata{}, err
	}
	defer done(nil)

	return filesystem.Stat(s.resolver.Resolve(path)), nil
}

// OpenFile opens path with a mode token (r, w, wt, wa, rw, rwt). The
// caller owns the returned file.
func (s *Service) OpenFile(ctx context.Context, path, mode string) (f *os.File, err error) {
	done, err := s.begin(ctx, OpOpenFile)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	f, openErr := filesystem.Open(s.resolver.Resolve(path), mode)
	if openErr != nil {
		s.callLog(ctx, OpOpenFile, path).Debug("Open failed", zap.String("mode", mode), zap.Error(openErr))
		return nil, ErrNoResult
	}
	return f, nil
}

// OpenThumbnail opens the cached thumbnail for path read-only. The lookup
// uses path as given, before resolution. A cache miss triggers exactly one
// generation attempt; a path with no media id never generates.
func (s *Service) OpenThumbnail(ctx context.Context, path string) (f *os.File, err error) {
	done, err := s.begin(ctx, OpOpenThumbnail)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	log := s.callLog(ctx, OpOpenThumbnail, path)
	if s.index == nil || s.thumbs == nil {
		return nil, ErrNoResult
	}

	mediaID, lookupErr := s.index.Lookup(ctx, path)
	if lookupErr != nil {
		log.Debug("No media id", zap.Error(lookupErr))
		return nil, ErrNoResult
	}

	thumb, queryErr := s.thumbs.Query(ctx, mediaID)
	if queryErr != nil {
		if genErr := s.thumbs.Generate(ctx, mediaID); genErr != nil {
			s.metrics.RecordThumbnail(monitoring.ResultFailed)
			log.Debug("Thumbnail generation failed", zap.Int64("media_id", int64(mediaID)), zap.Error(genErr))
		} else {
			s.metrics.RecordThumbnail(monitoring.ResultOK)
		}
		thumb, queryErr = s.thumbs.Query(ctx, mediaID)
		if queryErr != nil {
			return nil, ErrNoResult
		}
	}

	f, openErr := os.Open(thumb)
	if openErr != nil {
		log.Debug("Thumbnail open failed", zap.String("thumbnail", thumb), zap.Error(openErr))
		return nil, ErrNoResult
	}
	return f, nil
}

// CreateEntry creates displayName under parent and returns its absolute
// path. The directory sentinel creates a directory. Any other MIME type
// creates an empty file, appending the implied extension when displayName
// lacks it. An existing target is never overwritten.
func (s *Service) CreateEntry(ctx context.Context, parent, mimeType, displayName string) (docID string, err error) {
	done, err := s.begin(ctx, OpCreateEntry)
	if err != nil {
		return "", err
	}
	defer func() { done(err) }()

	log := s.callLog(ctx, OpCreateEntry, parent)
	if !validName(displayName) {
		log.Debug("Rejected entry name", zap.String("name", displayName))
		return "", ErrNoResult
	}

	name := displayName
	if mimeType != filesystem.MIMETypeDir {
		name = filesystem.EntryName(displayName, mimeType)
	}
	target := filesystem.AbsPath(s.resolver.Resolve(parent + "/" + name))

	if mimeType == filesystem.MIMETypeDir {
		if mkErr := os.Mkdir(target, 0o777); mkErr != nil {
			log.Debug("Mkdir failed", zap.Error(mkErr))
			return "", ErrNoResult
		}
		return target, nil
	}

	f, createErr := os.OpenFile(target, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if createErr != nil {
		log.Debug("Create failed", zap.Error(createErr))
		return "", ErrNoResult
	}
	_ = f.Close()
	return target, nil
}

// DeleteEntry removes path without recursing and returns the absolute path
// of its parent. A failed delete is not reported.
func (s *Service) DeleteEntry(ctx context.Context, path string) (string, error) {
	done, err := s.begin(ctx, OpDeleteEntry)
	if err != nil {
		return "", err
	}
	defer done(nil)

	target := filesystem.AbsPath(s.resolver.Resolve(path))
	if rmErr := os.Remove(target); rmErr != nil {
		s.callLog(ctx, OpDeleteEntry, path).Debug("Delete failed", zap.Error(rmErr))
	}
	return filesystem.ParentPath(target), nil
}

// validName reports whether name is a single path element
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}
