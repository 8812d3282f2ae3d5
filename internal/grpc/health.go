package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the health service name for the shuttle
const ServiceName = "fileshuttle.FileShuttle"

// HealthServer serves grpc.health.v1 on a Unix socket
type HealthServer struct {
	socket string
	log    *zap.Logger
	server *grpc.Server
	health *health.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewHealthServer creates a health server. The shuttle starts NOT_SERVING.
func NewHealthServer(socket string, log *zap.Logger) *HealthServer {
	if log == nil {
		log = zap.NewNop()
	}

	srv := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: false,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{socket: socket, log: log, server: srv, health: hs}
}

// SetServing flips the shuttle service status
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
}

// Listen binds the socket, replacing a stale socket file
func (h *HealthServer) Listen() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		return nil
	}

	_ = os.Remove(h.socket)
	l, err := net.Listen("unix", h.socket)
	if err != nil {
		return fmt.Errorf("failed to create health socket: %w", err)
	}
	h.listener = l
	return nil
}

// Serve handles health checks until ctx is done or Close is called
func (h *HealthServer) Serve(ctx context.Context) error {
	if err := h.Listen(); err != nil {
		return err
	}
	h.mu.Lock()
	l := h.listener
	h.mu.Unlock()

	stop := context.AfterFunc(ctx, h.Close)
	defer stop()

	h.log.Info("Health server listening", zap.String("socket", h.socket))
	if err := h.server.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Close marks everything NOT_SERVING and stops the server
func (h *HealthServer) Close() {
	h.health.Shutdown()
	h.server.GracefulStop()
	_ = os.Remove(h.socket)
}

// HealthClient checks a shuttle health socket
type HealthClient struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewHealthClient creates a client for the health socket. The connection is
// established lazily on the first Check.
func NewHealthClient(socket string) (*HealthClient, error) {
	abs, err := filepath.Abs(socket)
	if err != nil {
		return nil, fmt.Errorf("resolve health socket: %w", err)
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
	}

	conn, err := grpc.NewClient("unix://"+abs, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial health socket: %w", err)
	}
	return &HealthClient{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Check returns the shuttle service status
func (c *HealthClient) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check: %w", err)
	}
	return resp.GetStatus(), nil
}

// Close closes the connection
func (c *HealthClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
