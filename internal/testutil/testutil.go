// Package testutil provides testing utilities and mocks for shuttle tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shuttle"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMediaIndex is a mock implementation of shuttle.MediaIndex.
type MockMediaIndex struct {
	mock.Mock
}

// Lookup mocks the Lookup method.
func (m *MockMediaIndex) Lookup(ctx context.Context, path string) (shuttle.MediaID, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(shuttle.MediaID), args.Error(1)
}

// MockThumbnailCache is a mock implementation of shuttle.ThumbnailCache.
type MockThumbnailCache struct {
	mock.Mock
}

// Query mocks the Query method.
func (m *MockThumbnailCache) Query(ctx context.Context, id shuttle.MediaID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// Generate mocks the Generate method.
func (m *MockThumbnailCache) Generate(ctx context.Context, id shuttle.MediaID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// NewMockMediaIndex creates a mock index that knows no paths by default.
func NewMockMediaIndex(t *testing.T) *MockMediaIndex {
	t.Helper()
	m := new(MockMediaIndex)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// NewMockThumbnailCache creates a mock cache with no default behavior.
func NewMockThumbnailCache(t *testing.T) *MockThumbnailCache {
	t.Helper()
	m := new(MockThumbnailCache)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// CountingOwner counts stop notifications.
type CountingOwner struct {
	stops atomic.Int32
}

// NotifyShuttleStopped records one notification.
func (o *CountingOwner) NotifyShuttleStopped() { o.stops.Add(1) }

// Stops returns the number of notifications so far.
func (o *CountingOwner) Stops() int { return int(o.stops.Load()) }

// WriteFile creates a file with content under dir and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
