package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"replayrig/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active playback session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.StopSession(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session stopped")
				return nil
			})
		},
	}
}

func newShutdownCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Shut the daemon process down",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Shutdown()
				if err != nil {
					return err
				}
				if !resp.ShuttingDown {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon did not accept the shutdown request")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon shutting down")
				return nil
			})
		},
	}
}
