package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"replayrig/internal/ipc"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var loop bool
	var shuffle bool

	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Write the pending queue to a descriptor file",
		Long: `Write the pending queue to a playback descriptor file at the given path.

The pending queue is left intact; the descriptor can be loaded again later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Export(ipc.ExportRequest{
					Path:    args[0],
					Loop:    loop,
					Shuffle: shuffle,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d replays to %s\n", resp.Entries, resp.Path)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Mark the exported queue to loop")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "Mark the exported queue to shuffle")
	return cmd
}
