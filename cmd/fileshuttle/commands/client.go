package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/ipc"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
)

// withClient dials the shuttle and runs fn under the per-call timeout
func withClient(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, c *ipc.Client) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), flags.callTimeout)
	defer cancel()

	c, err := ipc.Dial(ctx, flags.socket)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	err = fn(ctx, c)
	if errors.Is(err, ipc.ErrNoResult) {
		return fmt.Errorf("no result")
	}
	return err
}

func newClientCmds(flags *globalFlags) []*cobra.Command {
	ping := &cobra.Command{
		Use:   "ping",
		Short: "Check the shuttle responds (renews its idle timer)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
				if err := c.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pong")
				return nil
			})
		},
	}

	ls := &cobra.Command{
		Use:   "ls PATH",
		Short: "List the children of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
				entries, err := c.ListChildren(ctx, args[0])
				if err != nil {
					return err
				}
				renderEntries(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}

	stat := &cobra.Command{
		Use:   "stat PATH",
		Short: "Show the metadata of one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
				meta, err := c.GetMetadata(ctx, args[0])
				if err != nil {
					return err
				}
				renderEntry(cmd.OutOrStdout(), meta)
				return nil
			})
		},
	}

	cat := &cobra.Command{
		Use:   "cat PATH",
		Short: "Copy a file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
				f, err := c.OpenFile(ctx, args[0], "r")
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = io.Copy(cmd.OutOrStdout(), f)
				return err
			})
		},
	}

	var putMode string
	put := &cobra.Command{
		Use:   "put PATH",
		Short: "Write stdin to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
				f, err := c.OpenFile(ctx, args[0], putMode)
				if err != nil {
					return err
				}
				if _, err := io.Copy(f, cmd.InOrStdin()); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	put.Flags().StringVar(&putMode, "mode", "w", "Open mode (w, wt, wa, rw, rwt)")

	thumb := &cobra.Command{
		Use:   "thumb PATH OUT",
		Short: "Save the thumbnail of a media file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
				f, err := c.OpenThumbnail(ctx, args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				out, err := os.Create(args[1])
				if err != nil {
					return err
				}
				if _, err := io.Copy(out, f); err != nil {
					_ = out.Close()
					return err
				}
				return out.Close()
			})
		},
	}

	mkdir := &cobra.Command{
		Use:   "mkdir PARENT NAME",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createEntry(cmd, flags, args[0], filesystem.MIMETypeDir, args[1])
		},
	}

	var touchMIME string
	touch := &cobra.Command{
		Use:   "touch PARENT NAME",
		Short: "Create an empty file; the extension follows --mime",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createEntry(cmd, flags, args[0], touchMIME, args[1])
		},
	}
	touch.Flags().StringVar(&touchMIME, "mime", "application/octet-stream", "MIME type of the new file")

	rm := &cobra.Command{
		Use:   "rm PATH",
		Short: "Delete a file or empty directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
				parent, err := c.DeleteEntry(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), parent)
				return nil
			})
		},
	}

	return []*cobra.Command{ping, ls, stat, cat, put, thumb, mkdir, touch, rm}
}

func createEntry(cmd *cobra.Command, flags *globalFlags, parent, mimeType, name string) error {
	return withClient(cmd, flags, func(ctx context.Context, c *ipc.Client) error {
		docID, err := c.CreateEntry(ctx, parent, mimeType, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), docID)
		return nil
	})
}
