package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"replayrig/internal/config"
	"replayrig/internal/ipc"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var loop bool
	var shuffle bool
	var record bool
	var pauseBetween bool
	var fromPending bool

	cmd := &cobra.Command{
		Use:   "play [replay files...]",
		Short: "Load replays into the playback engine and start a session",
		Long: `Load replay files into the playback engine and start a session.

With --pending the persisted pending queue is played and consumed instead of
an explicit file list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := modeOverrides(cmd, record, pauseBetween)

			if fromPending {
				if len(args) > 0 {
					return errors.New("--pending cannot be combined with a file list")
				}
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.PlayPending(ipc.PlayPendingRequest{
						Loop:    loop,
						Shuffle: shuffle,
						Mode:    overrides,
					})
					if err != nil {
						return err
					}
					return printPlayResult(cmd, resp)
				})
			}

			if len(args) == 0 {
				return errors.New("at least one replay file is required (or use --pending)")
			}
			files := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				files = append(files, expanded)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Play(ipc.PlayRequest{
					Files:   files,
					Loop:    loop,
					Shuffle: shuffle,
					Mode:    overrides,
				})
				if err != nil {
					return err
				}
				return printPlayResult(cmd, resp)
			})
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Loop the queue when it finishes")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "Shuffle queue order")
	cmd.Flags().BoolVar(&record, "record", false, "Enable recording for this session")
	cmd.Flags().BoolVar(&pauseBetween, "pause-between", false, "Pause instead of stopping the recording between entries")
	cmd.Flags().BoolVar(&fromPending, "pending", false, "Play the persisted pending queue")
	return cmd
}

// modeOverrides turns explicitly set flags into overrides; unset flags leave
// the daemon's configured policy in effect.
func modeOverrides(cmd *cobra.Command, record, pauseBetween bool) ipc.ModeOverrides {
	var overrides ipc.ModeOverrides
	if cmd.Flags().Changed("record") {
		overrides.RecordingEnabled = &record
	}
	if cmd.Flags().Changed("pause-between") {
		overrides.PauseBetweenEntries = &pauseBetween
	}
	return overrides
}

func printPlayResult(cmd *cobra.Command, resp *ipc.PlayResponse) error {
	if resp == nil {
		return errors.New("missing play response")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s started with %d replays\n", resp.SessionID, resp.Entries)
	return nil
}
