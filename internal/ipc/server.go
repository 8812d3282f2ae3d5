package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shuttle"
)

// HealthReporter is told whether a service instance is bound
type HealthReporter interface {
	SetServing(serving bool)
}

// Options configures a Server
type Options struct {
	Socket      string
	Resolver    paths.Resolver
	IdleTimeout time.Duration
	Index       shuttle.MediaIndex
	Thumbnails  shuttle.ThumbnailCache
	Health      HealthReporter
	Metrics     *monitoring.Metrics
}

// BindState describes the currently bound instance
type BindState struct {
	Bound       bool      `json:"bound"`
	Instance    string    `json:"instance,omitempty"`
	Deadline    time.Time `json:"deadline,omitempty"`
	Connections int       `json:"connections"`
}

// binding is one bound service instance and the connections using it
type binding struct {
	instance string
	service  *shuttle.Service
	conns    map[*net.UnixConn]struct{}
}

// Server accepts connections and routes calls to the bound service
type Server struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	listener *net.UnixListener
	current  *binding
	closed   bool

	wg sync.WaitGroup
}

// NewServer creates a server. Call Listen then Serve, or just Serve.
func NewServer(opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{opts: opts, log: log}
}

// Listen binds the socket, replacing a stale socket file
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	if s.closed {
		return net.ErrClosed
	}

	_ = os.Remove(s.opts.Socket)
	addr, err := net.ResolveUnixAddr("unix", s.opts.Socket)
	if err != nil {
		return fmt.Errorf("resolve socket %s: %w", s.opts.Socket, err)
	}
	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("failed to create unix socket: %w", err)
	}
	s.listener = l

	s.log.Info("Shuttle listening", zap.String("socket", s.opts.Socket))
	return nil
}

// Serve accepts connections until ctx is done or Close is called
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := l.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("Accept failed", zap.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}

		b, ok := s.attach(conn)
		if !ok {
			_ = conn.Close()
			return nil
		}

		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, b, conn)
		}()
	}
}

// Close stops accepting, closes the bound service without notifying, and
// waits for connection handlers to finish
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}
	s.closed = true
	l := s.listener
	b := s.current
	s.current = nil
	var conns []*net.UnixConn
	if b != nil {
		conns = b.detachAll()
	}
	s.mu.Unlock()

	var err error
	if l != nil {
		err = l.Close()
		_ = os.Remove(s.opts.Socket)
	}
	if b != nil {
		b.service.Close()
		s.setServing(false)
	}
	for _, c := range conns {
		_ = c.Close()
	}

	s.wg.Wait()
	return err
}

// State reports the bound instance, if any
func (s *Server) State() BindState {
	s.mu.Lock()
	b := s.current
	var n int
	if b != nil {
		n = len(b.conns)
	}
	s.mu.Unlock()

	if b == nil || b.service.State() == shuttle.StateStopped {
		return BindState{}
	}
	return BindState{
		Bound:       true,
		Instance:    b.instance,
		Deadline:    b.service.Deadline(),
		Connections: n,
	}
}

// attach adds conn to the current binding, binding a new service if none is
// live. On success the handler is counted in s.wg before Close can observe
// the server as closed.
func (s *Server) attach(conn *net.UnixConn) (*binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}
	if s.current == nil || s.current.service.State() == shuttle.StateStopped {
		s.current = s.bind()
	}
	s.current.conns[conn] = struct{}{}
	s.opts.Metrics.IncConnections()
	s.wg.Add(1)
	return s.current, true
}

// bind creates a fresh service instance. Caller holds s.mu.
func (s *Server) bind() *binding {
	b := &binding{
		instance: uuid.NewString(),
		conns:    make(map[*net.UnixConn]struct{}),
	}

	opts := []shuttle.Option{
		shuttle.WithIdleTimeout(s.opts.IdleTimeout),
		shuttle.WithMetrics(s.opts.Metrics),
		shuttle.WithOwner(shuttle.OwnerFunc(func() { s.unbind(b) })),
	}
	if s.opts.Index != nil {
		opts = append(opts, shuttle.WithMediaIndex(s.opts.Index))
	}
	if s.opts.Thumbnails != nil {
		opts = append(opts, shuttle.WithThumbnails(s.opts.Thumbnails))
	}

	b.service = shuttle.New(s.opts.Resolver, s.log.With(logging.Instance(b.instance)), opts...)
	s.setServing(true)
	return b
}

// unbind runs when a service stops itself. Its connections are closed so
// callers see the endpoint go away.
func (s *Server) unbind(b *binding) {
	s.mu.Lock()
	if s.current == b {
		s.current = nil
	}
	conns := b.detachAll()
	s.mu.Unlock()

	s.setServing(false)
	for _, c := range conns {
		_ = c.Close()
	}
	s.log.Info("Shuttle instance released",
		logging.Instance(b.instance),
		zap.Int("connections", len(conns)))
}

// detachAll empties the connection set. Caller holds s.mu.
func (b *binding) detachAll() []*net.UnixConn {
	conns := make([]*net.UnixConn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.conns = make(map[*net.UnixConn]struct{})
	return conns
}

func (s *Server) detach(b *binding, conn *net.UnixConn) {
	s.mu.Lock()
	delete(b.conns, conn)
	s.mu.Unlock()
	s.opts.Metrics.DecConnections()
}

func (s *Server) setServing(serving bool) {
	if s.opts.Health != nil {
		s.opts.Health.SetServing(serving)
	}
}

func (s *Server) handleConn(ctx context.Context, b *binding, conn *net.UnixConn) {
	connID := id.NewConnID()
	log := s.log.With(logging.Instance(b.instance), zap.String("conn", connID.String()))
	log.Debug("Connection opened")

	defer func() {
		s.detach(b, conn)
		_ = conn.Close()
		log.Debug("Connection closed")
	}()

	c := codec{conn: conn}
	for {
		var req Request
		file, err := c.recv(&req)
		closeFile(file)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug("Read failed", zap.Error(err))
				_ = c.send(Response{Fault: err.Error()}, nil)
			}
			return
		}

		resp, handle := s.dispatch(ctx, b.service, req)
		err = c.sendResponse(resp, handle)
		if handle != nil {
			// The receiver holds its own descriptor now
			_ = handle.Close()
			if err == nil {
				s.opts.Metrics.RecordHandleSent(handleKind(req.Op))
			}
		}
		if errors.Is(err, ErrFrameTooLarge) {
			// Nothing of the oversized frame was written
			log.Warn("Response too large", logging.Op(req.Op), zap.Error(err))
			err = c.send(Response{ID: req.ID, Fault: err.Error()}, nil)
		}
		if err != nil {
			log.Debug("Write failed", zap.Error(err))
			return
		}
	}
}

// dispatch runs one request against svc
func (s *Server) dispatch(ctx context.Context, svc *shuttle.Service, req Request) (resp Response, handle *os.File) {
	rid := id.RequestID(req.ID)
	if rid == "" {
		rid = id.NewRequestID()
	}
	ctx = id.WithRequestID(ctx, rid)
	resp.ID = req.ID

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Shuttle call panicked",
				logging.Op(req.Op),
				logging.RequestID(rid.String()),
				zap.Any("panic", r))
			if handle != nil {
				_ = handle.Close()
			}
			resp = Response{ID: req.ID, Fault: FaultInternal}
			handle = nil
		}
	}()

	var err error
	switch req.Op {
	case shuttle.OpPing:
		err = svc.Ping(ctx)
	case shuttle.OpListChildren:
		resp.Entries, err = svc.ListChildren(ctx, req.Path)
	case shuttle.OpGetMetadata:
		var meta filesystem.EntryMetadata
		meta, err = svc.GetMetadata(ctx, req.Path)
		if err == nil {
			resp.Entry = &meta
		}
	case shuttle.OpOpenFile:
		handle, err = svc.OpenFile(ctx, req.Path, req.Mode)
	case shuttle.OpOpenThumbnail:
		handle, err = svc.OpenThumbnail(ctx, req.Path)
	case shuttle.OpCreateEntry:
		resp.DocID, err = svc.CreateEntry(ctx, req.Path, req.MIMEType, req.DisplayName)
	case shuttle.OpDeleteEntry:
		resp.DocID, err = svc.DeleteEntry(ctx, req.Path)
	default:
		resp.Fault = FaultUnknownOp
		return resp, nil
	}

	switch {
	case err == nil:
		resp.OK = true
		resp.Handle = handle != nil
	case errors.Is(err, shuttle.ErrNoResult):
	case errors.Is(err, shuttle.ErrStopped):
		resp.Fault = FaultStopped
	default:
		resp.Fault = err.Error()
	}
	return resp, handle
}

func handleKind(op string) string {
	if op == shuttle.OpOpenThumbnail {
		return "thumbnail"
	}
	return "file"
}
