package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/grpc"
)

func newHealthCmd(defaultSocket string) *cobra.Command {
	var (
		socket  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service",
		Long: `Print SERVING while a shuttle instance is bound and NOT_SERVING after it
stopped itself. Exits non-zero unless SERVING. Unlike ping, this does not
renew the idle timer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := grpc.NewHealthClient(socket)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			status, err := client.Check(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.String())
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("shuttle not serving")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&socket, "health-socket", defaultSocket, "Health socket path")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Check timeout")
	return cmd
}
