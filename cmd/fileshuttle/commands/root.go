// Package commands implements the fileshuttle CLI.
package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/config"
)

// Version information injected at build time.
var Version = "dev"

// globalFlags are shared by every subcommand
type globalFlags struct {
	socket      string
	callTimeout time.Duration
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	defaults := config.LoadOrDefault()
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "fileshuttle",
		Short: "FileShuttle - filesystem access across an isolation boundary",
		Long: `fileshuttle serves a remote filesystem surface over a Unix socket and
passes open file handles to callers on the other side.

Run "fileshuttle serve" on the side that owns the files, then use the
client commands (ls, stat, cat, put, thumb, mkdir, touch, rm) from the other.

Paths starting with /__cross_profile_root__ are rewritten to the served root.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.socket, "socket", defaults.Shuttle.Socket, "Shuttle socket path")
	root.PersistentFlags().DurationVar(&flags.callTimeout, "call-timeout", 5*time.Second, "Timeout for a single client call")

	root.AddCommand(
		newServeCmd(flags),
		newIndexCmd(),
		newHealthCmd(defaults.Shuttle.HealthSocket),
	)
	root.AddCommand(newClientCmds(flags)...)
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}
