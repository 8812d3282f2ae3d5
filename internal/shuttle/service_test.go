package shuttle_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shuttle"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	root    string
	clock   *shuttle.FakeClock
	owner   *testutil.CountingOwner
	service *shuttle.Service
}

func newFixture(t *testing.T, opts ...shuttle.Option) *fixture {
	t.Helper()
	fx := &fixture{
		root:  t.TempDir(),
		clock: shuttle.NewFakeClock(),
		owner: &testutil.CountingOwner{},
	}
	opts = append([]shuttle.Option{
		shuttle.WithClock(fx.clock),
		shuttle.WithOwner(fx.owner),
	}, opts...)
	fx.service = shuttle.New(paths.NewResolver(fx.root), zaptest.NewLogger(t), opts...)
	t.Cleanup(fx.service.Close)
	return fx
}

func virtual(name string) string {
	return paths.VirtualRoot + "/" + name
}

func names(entries []filesystem.EntryMetadata) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.DisplayName)
	}
	return out
}

func TestPing(t *testing.T) {
	fx := newFixture(t)
	assert.NoError(t, fx.service.Ping(context.Background()))
}

func TestCreateDirectory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	docID, err := fx.service.CreateEntry(ctx, paths.VirtualRoot, filesystem.MIMETypeDir, "docs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.root, "docs"), docID)

	meta, err := fx.service.GetMetadata(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, filesystem.MIMETypeDir, meta.MIMEType)
	assert.True(t, meta.Flags.Has(filesystem.FlagSupportsCreate|filesystem.FlagSupportsDelete))
	assert.False(t, meta.Flags.Has(filesystem.FlagSupportsThumbnail))
	assert.Equal(t, "docs", meta.DisplayName)
}

func TestCreateImageFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	docID, err := fx.service.CreateEntry(ctx, paths.VirtualRoot, "image/png", "photo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.root, "photo.png"), docID)

	meta, err := fx.service.GetMetadata(ctx, virtual("photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "photo.png", meta.DisplayName)
	assert.Equal(t, "image/png", meta.MIMEType)
	assert.Equal(t, int64(0), meta.Size)
	assert.True(t, meta.Flags.Has(filesystem.FlagSupportsDelete|filesystem.FlagSupportsThumbnail))
	assert.False(t, meta.Flags.Has(filesystem.FlagSupportsCreate))
}

func TestCreateKeepsExistingExtension(t *testing.T) {
	fx := newFixture(t)

	docID, err := fx.service.CreateEntry(context.Background(), paths.VirtualRoot, "image/png", "photo.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.root, "photo.png"), docID)
}

func TestCreateNeverOverwrites(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.service.CreateEntry(ctx, paths.VirtualRoot, "text/plain", "note")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.root, "note.txt"), first)

	require.NoError(t, os.WriteFile(first, []byte("keep"), 0o644))

	_, err = fx.service.CreateEntry(ctx, paths.VirtualRoot, "text/plain", "note")
	assert.ErrorIs(t, err, shuttle.ErrNoResult)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestCreateFailures(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		parent   string
		mimeType string
		display  string
	}{
		{"missing parent", virtual("nope"), "text/plain", "a"},
		{"existing directory", paths.VirtualRoot, filesystem.MIMETypeDir, "dup"},
		{"empty name", paths.VirtualRoot, "text/plain", ""},
		{"dot dot", paths.VirtualRoot, filesystem.MIMETypeDir, ".."},
		{"separator", paths.VirtualRoot, "text/plain", "a/b"},
	}

	_, err := fx.service.CreateEntry(ctx, paths.VirtualRoot, filesystem.MIMETypeDir, "dup")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docID, err := fx.service.CreateEntry(ctx, tt.parent, tt.mimeType, tt.display)
			assert.ErrorIs(t, err, shuttle.ErrNoResult)
			assert.Empty(t, docID)
		})
	}
}

func TestDeleteReturnsParent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	testutil.WriteFile(t, fx.root, "gone.txt", "x")
	testutil.WriteFile(t, fx.root, "stay.txt", "y")

	parent, err := fx.service.DeleteEntry(ctx, virtual("gone.txt"))
	require.NoError(t, err)
	assert.Equal(t, fx.root, parent)

	entries, err := fx.service.ListChildren(ctx, parent)
	require.NoError(t, err)
	assert.Equal(t, []string{"stay.txt"}, names(entries))
}

func TestDeleteNonEmptyDirectoryIsSilent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	testutil.WriteFile(t, fx.root, "album/one.jpg", "x")

	parent, err := fx.service.DeleteEntry(ctx, virtual("album"))
	require.NoError(t, err)
	assert.Equal(t, fx.root, parent)
	assert.DirExists(t, filepath.Join(fx.root, "album"))
}

func TestDeleteMissingPath(t *testing.T) {
	fx := newFixture(t)

	parent, err := fx.service.DeleteEntry(context.Background(), virtual("a/b/missing"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.root, "a", "b"), parent)
}

func TestListChildren(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	testutil.WriteFile(t, fx.root, "a.txt", "aaa")
	testutil.WriteFile(t, fx.root, "sub/b.txt", "b")

	entries, err := fx.service.ListChildren(ctx, paths.VirtualRoot)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "sub"}, names(entries))

	for _, e := range entries {
		assert.Equal(t, filepath.Join(fx.root, e.DisplayName), e.ID)
		if e.DisplayName == "a.txt" {
			assert.Equal(t, int64(3), e.Size)
			assert.Equal(t, "text/plain", e.MIMEType)
		}
	}
}

func TestListChildrenNotADirectory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	file := testutil.WriteFile(t, fx.root, "a.txt", "a")

	for _, p := range []string{file, virtual("missing")} {
		entries, err := fx.service.ListChildren(ctx, p)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	}
}

func TestGetMetadataMissingPath(t *testing.T) {
	fx := newFixture(t)

	meta, err := fx.service.GetMetadata(context.Background(), virtual("ghost.pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.root, "ghost.pdf"), meta.ID)
	assert.Equal(t, "ghost.pdf", meta.DisplayName)
	assert.Equal(t, "application/pdf", meta.MIMEType)
	assert.Zero(t, meta.Size)
	assert.Zero(t, meta.LastModified)
}

func TestOpenFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	testutil.WriteFile(t, fx.root, "read.txt", "hello")

	f, err := fx.service.OpenFile(ctx, virtual("read.txt"), "r")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(data))

	f, err = fx.service.OpenFile(ctx, virtual("new.txt"), "w")
	require.NoError(t, err)
	_, err = f.WriteString("written")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.FileExists(t, filepath.Join(fx.root, "new.txt"))
}

func TestOpenFileAbsent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	testutil.WriteFile(t, fx.root, "a.txt", "a")

	_, err := fx.service.OpenFile(ctx, virtual("missing.txt"), "r")
	assert.ErrorIs(t, err, shuttle.ErrNoResult)

	_, err = fx.service.OpenFile(ctx, virtual("a.txt"), "x")
	assert.ErrorIs(t, err, shuttle.ErrNoResult)
}

func TestOpenThumbnailWithoutMediaID(t *testing.T) {
	index := testutil.NewMockMediaIndex(t)
	thumbs := testutil.NewMockThumbnailCache(t)
	fx := newFixture(t, shuttle.WithMediaIndex(index), shuttle.WithThumbnails(thumbs))

	index.On("Lookup", mock.Anything, virtual("a.jpg")).Return(shuttle.MediaID(0), shuttle.ErrNotIndexed)

	f, err := fx.service.OpenThumbnail(context.Background(), virtual("a.jpg"))
	assert.ErrorIs(t, err, shuttle.ErrNoResult)
	assert.Nil(t, f)
	thumbs.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	thumbs.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestOpenThumbnailWithoutCollaborators(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.OpenThumbnail(context.Background(), virtual("a.jpg"))
	assert.ErrorIs(t, err, shuttle.ErrNoResult)
}

func TestOpenThumbnailCached(t *testing.T) {
	index := testutil.NewMockMediaIndex(t)
	thumbs := testutil.NewMockThumbnailCache(t)
	fx := newFixture(t, shuttle.WithMediaIndex(index), shuttle.WithThumbnails(thumbs))
	cached := testutil.WriteFile(t, t.TempDir(), "7.jpg", "jpeg")

	index.On("Lookup", mock.Anything, virtual("a.jpg")).Return(shuttle.MediaID(7), nil)
	thumbs.On("Query", mock.Anything, shuttle.MediaID(7)).Return(cached, nil)

	f, err := fx.service.OpenThumbnail(context.Background(), virtual("a.jpg"))
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	thumbs.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestOpenThumbnailGeneratesOnce(t *testing.T) {
	index := testutil.NewMockMediaIndex(t)
	thumbs := testutil.NewMockThumbnailCache(t)
	metrics := monitoring.NewMetrics()
	fx := newFixture(t,
		shuttle.WithMediaIndex(index),
		shuttle.WithThumbnails(thumbs),
		shuttle.WithMetrics(metrics))
	cached := filepath.Join(t.TempDir(), "3.jpg")

	index.On("Lookup", mock.Anything, "/real/a.jpg").Return(shuttle.MediaID(3), nil)
	thumbs.On("Query", mock.Anything, shuttle.MediaID(3)).Return("", shuttle.ErrNoThumbnail).Once()
	thumbs.On("Generate", mock.Anything, shuttle.MediaID(3)).Run(func(mock.Arguments) {
		require.NoError(t, os.WriteFile(cached, []byte("thumb"), 0o644))
	}).Return(nil).Once()
	thumbs.On("Query", mock.Anything, shuttle.MediaID(3)).Return(cached, nil).Once()

	f, err := fx.service.OpenThumbnail(context.Background(), "/real/a.jpg")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.ThumbnailsGenerated.WithLabelValues(monitoring.ResultOK)))
}

func TestOpenThumbnailGenerationFails(t *testing.T) {
	index := testutil.NewMockMediaIndex(t)
	thumbs := testutil.NewMockThumbnailCache(t)
	fx := newFixture(t, shuttle.WithMediaIndex(index), shuttle.WithThumbnails(thumbs))

	index.On("Lookup", mock.Anything, "/real/b.jpg").Return(shuttle.MediaID(4), nil)
	thumbs.On("Query", mock.Anything, shuttle.MediaID(4)).Return("", shuttle.ErrNoThumbnail).Twice()
	thumbs.On("Generate", mock.Anything, shuttle.MediaID(4)).Return(assert.AnError).Once()

	_, err := fx.service.OpenThumbnail(context.Background(), "/real/b.jpg")
	assert.ErrorIs(t, err, shuttle.ErrNoResult)
	thumbs.AssertNumberOfCalls(t, "Generate", 1)
}

func TestOpenThumbnailUnreadableCacheEntry(t *testing.T) {
	index := testutil.NewMockMediaIndex(t)
	thumbs := testutil.NewMockThumbnailCache(t)
	fx := newFixture(t, shuttle.WithMediaIndex(index), shuttle.WithThumbnails(thumbs))

	index.On("Lookup", mock.Anything, "/real/c.jpg").Return(shuttle.MediaID(5), nil)
	thumbs.On("Query", mock.Anything, shuttle.MediaID(5)).Return(filepath.Join(t.TempDir(), "vanished.jpg"), nil)

	_, err := fx.service.OpenThumbnail(context.Background(), "/real/c.jpg")
	assert.ErrorIs(t, err, shuttle.ErrNoResult)
}

func TestCallMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	fx := newFixture(t, shuttle.WithMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, fx.service.Ping(ctx))
	_, err := fx.service.OpenFile(ctx, virtual("missing"), "r")
	require.ErrorIs(t, err, shuttle.ErrNoResult)

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.CallsTotal.WithLabelValues(shuttle.OpPing, monitoring.ResultOK)))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.CallsTotal.WithLabelValues(shuttle.OpOpenFile, monitoring.ResultAbsent)))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.InstancesActive))

	fx.clock.Advance(time.Minute)
	assert.Equal(t, 0.0, promtest.ToFloat64(metrics.InstancesActive))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.IdleStops))
}

func TestConcurrentCalls(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fx.service.CreateEntry(ctx, paths.VirtualRoot, "text/plain", "race")
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, shuttle.ErrNoResult)
			}
			_, err = fx.service.CreateEntry(ctx, paths.VirtualRoot, "text/plain", fmt.Sprintf("own-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	entries, err := fx.service.ListChildren(ctx, paths.VirtualRoot)
	require.NoError(t, err)
	assert.Len(t, entries, workers+1)
}
