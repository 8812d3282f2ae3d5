package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/grpc"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/server"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/media/index"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/media/thumbs"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/paths"
)

type serveOptions struct {
	root        string
	idleTimeout time.Duration
	scan        bool
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the shuttle, health and admin servers",
		Long: `Serve the shuttle socket until interrupted.

Configuration comes from the environment (SHUTTLE_*, MEDIA_*, ADMIN_ADDR,
LOG_*, RATE_LIMIT_*). Flags override the matching variables.

While serving, the media index is pruned and rescanned every
MEDIA_RESCAN_INTERVAL so new images get thumbnails without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("root") {
				cfg.Shuttle.Root = opts.root
			}
			if cmd.Flags().Changed("idle-timeout") {
				cfg.Shuttle.IdleTimeout = opts.idleTimeout
			}
			if cmd.Flags().Changed("socket") {
				cfg.Shuttle.Socket = flags.socket
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts.scan)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "Real directory behind the virtual root (overrides SHUTTLE_ROOT)")
	cmd.Flags().DurationVar(&opts.idleTimeout, "idle-timeout", 0, "Idle timeout per bound instance (overrides SHUTTLE_IDLE_TIMEOUT)")
	cmd.Flags().BoolVar(&opts.scan, "scan", false, "Scan the root into the media index before serving")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, scan bool) error {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Initializing FileShuttle",
		zap.String("root", cfg.Shuttle.Root),
		zap.String("socket", cfg.Shuttle.Socket),
		zap.Duration("idle_timeout", cfg.Shuttle.IdleTimeout),
	)

	metrics := monitoring.NewMetrics()

	opts := ipc.Options{
		Socket:      cfg.Shuttle.Socket,
		Resolver:    paths.NewResolver(cfg.Shuttle.Root),
		IdleTimeout: cfg.Shuttle.IdleTimeout,
		Metrics:     metrics,
	}

	// Thumbnails are optional; the shuttle serves files without them
	mediaIndex, err := index.Open(cfg.Media.IndexDir, logger.Component("index"))
	if err != nil {
		logger.Warn("Media index unavailable, thumbnails disabled", zap.Error(err))
	} else {
		defer func() { _ = mediaIndex.Close() }()
		cache, err := thumbs.New(cfg.Media.ThumbDir, cfg.Media.ThumbSize, mediaIndex, logger.Component("thumbs"))
		if err != nil {
			logger.Warn("Thumbnail cache unavailable", zap.Error(err))
		} else {
			opts.Index = mediaIndex
			opts.Thumbnails = cache
		}

		if scan {
			total, err := mediaIndex.Refresh(ctx, cfg.Shuttle.Root, cfg.Media.Exclude)
			if err != nil {
				logger.Warn("Media scan failed", zap.Error(err))
			} else {
				metrics.SetIndexedMedia(total)
			}
		}
	}

	var health *grpc.HealthServer
	if cfg.Shuttle.HealthSocket != "" {
		health = grpc.NewHealthServer(cfg.Shuttle.HealthSocket, logger.Component("health"))
		opts.Health = health
	}

	shuttleServer := ipc.NewServer(opts, logger.Component("shuttle"))
	if err := shuttleServer.Listen(); err != nil {
		return err
	}

	// The first failure takes everything down
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	running := 1
	go func() { errCh <- shuttleServer.Serve(ctx) }()

	if health != nil {
		running++
		go func() { errCh <- health.Serve(ctx) }()
	}

	if cfg.Admin.Addr != "" {
		admin := server.NewServer(cfg, shuttleServer, metrics, logger.Component("admin"))
		running++
		go func() { errCh <- admin.Run(ctx) }()
	}

	if opts.Index != nil && cfg.Media.RescanInterval > 0 {
		rescanDone := make(chan struct{})
		go func() {
			defer close(rescanDone)
			mediaIndex.Rescan(ctx, cfg.Shuttle.Root, cfg.Media.Exclude, cfg.Media.RescanInterval, metrics.SetIndexedMedia)
		}()
		// The index closes on return; let an in-flight pass finish first
		defer func() {
			cancel()
			<-rescanDone
		}()
		logger.Info("Media rescan enabled", zap.Duration("interval", cfg.Media.RescanInterval))
	}

	logger.Info("FileShuttle ready")

	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			logger.Error("Server error", zap.Error(err))
			cancel()
		}
	}

	logger.Info("Shutting down gracefully...")
	return firstErr
}
