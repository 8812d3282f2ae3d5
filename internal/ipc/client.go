package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shuttle"
)

// ErrNoResult is the absent result, identical to shuttle.ErrNoResult
var ErrNoResult = shuttle.ErrNoResult

// FaultError is a transport-level fault reported by the server
type FaultError struct {
	Fault string
}

func (e *FaultError) Error() string {
	return "shuttle fault: " + e.Fault
}

// Unwrap lets errors.Is(err, shuttle.ErrStopped) match a stopped service
func (e *FaultError) Unwrap() error {
	if e.Fault == FaultStopped {
		return shuttle.ErrStopped
	}
	return nil
}

// Client issues shuttle calls over one connection. Calls are serialized.
type Client struct {
	mu    sync.Mutex
	conn  *net.UnixConn
	codec codec
}

// Dial connects to the shuttle socket
func Dial(ctx context.Context, socket string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to shuttle: %w", err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}
	return &Client{conn: uc, codec: codec{conn: uc}}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends req and waits for its response. The context deadline, or its
// cancellation, bounds the whole exchange.
func (c *Client) call(ctx context.Context, req Request) (Response, *os.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Response{}, nil, err
	}
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return Response{}, nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	req.ID = id.NewRequestID().String()
	if err := c.codec.send(req, nil); err != nil {
		return Response{}, nil, c.ctxErr(ctx, err)
	}

	resp, file, err := c.codec.recvResponse()
	if err != nil {
		return Response{}, nil, c.ctxErr(ctx, fmt.Errorf("shuttle call %s: %w", req.Op, err))
	}
	if resp.Fault != "" {
		closeFile(file)
		return resp, nil, &FaultError{Fault: resp.Fault}
	}
	if !resp.OK {
		closeFile(file)
		return resp, nil, ErrNoResult
	}
	return resp, file, nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// expectHandle returns file, or ErrMissingHandle when the server sent none
func expectHandle(resp Response, file *os.File) (*os.File, error) {
	if !resp.Handle || file == nil {
		closeFile(file)
		return nil, ErrMissingHandle
	}
	return file, nil
}

// Ping probes liveness and renews the idle timer
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.call(ctx, Request{Op: shuttle.OpPing})
	return err
}

// ListChildren lists the direct children of path
func (c *Client) ListChildren(ctx context.Context, path string) ([]filesystem.EntryMetadata, error) {
	resp, file, err := c.call(ctx, Request{Op: shuttle.OpListChildren, Path: path})
	closeFile(file)
	if err != nil {
		return nil, err
	}
	if resp.Entries == nil {
		return []filesystem.EntryMetadata{}, nil
	}
	return resp.Entries, nil
}

// GetMetadata fetches the metadata for path
func (c *Client) GetMetadata(ctx context.Context, path string) (filesystem.EntryMetadata, error) {
	resp, file, err := c.call(ctx, Request{Op: shuttle.OpGetMetadata, Path: path})
	closeFile(file)
	if err != nil {
		return filesystem.EntryMetadata{}, err
	}
	if resp.Entry == nil {
		return filesystem.EntryMetadata{}, ErrNoResult
	}
	return *resp.Entry, nil
}

// OpenFile opens path with a mode token. The caller owns the file.
func (c *Client) OpenFile(ctx context.Context, path, mode string) (*os.File, error) {
	resp, file, err := c.call(ctx, Request{Op: shuttle.OpOpenFile, Path: path, Mode: mode})
	if err != nil {
		return nil, err
	}
	return expectHandle(resp, file)
}

// OpenThumbnail opens the thumbnail for path read-only
func (c *Client) OpenThumbnail(ctx context.Context, path string) (*os.File, error) {
	resp, file, err := c.call(ctx, Request{Op: shuttle.OpOpenThumbnail, Path: path})
	if err != nil {
		return nil, err
	}
	return expectHandle(resp, file)
}

// CreateEntry creates a file or directory and returns its identifier
func (c *Client) CreateEntry(ctx context.Context, parent, mimeType, displayName string) (string, error) {
	resp, file, err := c.call(ctx, Request{
		Op:          shuttle.OpCreateEntry,
		Path:        parent,
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	closeFile(file)
	if err != nil {
		return "", err
	}
	return resp.DocID, nil
}

// DeleteEntry deletes path and returns its parent's identifier
func (c *Client) DeleteEntry(ctx context.Context, path string) (string, error) {
	resp, file, err := c.call(ctx, Request{Op: shuttle.OpDeleteEntry, Path: path})
	closeFile(file)
	if err != nil {
		return "", err
	}
	return resp.DocID, nil
}
