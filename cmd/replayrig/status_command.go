package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"replayrig/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, recorder, and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				renderStatus(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func renderStatus(out io.Writer, status *ipc.StatusResponse) {
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
	runningKind := statusError
	runningMsg := "stopped"
	if status.Running {
		runningKind = statusOK
		runningMsg = fmt.Sprintf("pid %d", status.PID)
	}
	fmt.Fprintln(out, renderStatusLine("Running", runningKind, runningMsg, colorize))
	fmt.Fprintln(out, renderStatusLine("Pending queue", statusInfo, fmt.Sprintf("%d replays", status.PendingCount), colorize))

	fmt.Fprintln(out, renderSectionHeader("Recorder", colorize))
	connectedKind := statusWarn
	connectedMsg := "disconnected"
	if status.RecorderConnected {
		connectedKind = statusOK
		connectedMsg = "connected"
	}
	fmt.Fprintln(out, renderStatusLine("Connection", connectedKind, connectedMsg, colorize))
	recordingMsg := "idle"
	if status.RecorderRecording {
		recordingMsg = "recording"
	}
	fmt.Fprintln(out, renderStatusLine("Recording", statusInfo, recordingMsg, colorize))

	if len(status.Dependencies) > 0 {
		fmt.Fprintln(out, renderSectionHeader("Environment", colorize))
		for _, dep := range status.Dependencies {
			kind := statusOK
			message := dep.Command
			if !dep.Available {
				kind = statusError
				if dep.Optional {
					kind = statusWarn
				}
				message = dep.Detail
			}
			fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
		}
	}

	fmt.Fprintln(out, renderSectionHeader("Session", colorize))
	if !status.SessionActive {
		fmt.Fprintln(out, renderStatusLine("Active", statusInfo, "no session loaded", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Active", statusOK, status.SessionID, colorize))
	fmt.Fprintln(out, renderStatusLine("Entries", statusInfo, fmt.Sprintf("%d replays", status.SessionEntries), colorize))
	if status.CurrentBasename != "" {
		fmt.Fprintln(out, renderStatusLine("Now playing", statusInfo, status.CurrentBasename, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Recording enabled", statusInfo, yesNo(status.RecordingEnabled), colorize))
	fmt.Fprintln(out, renderStatusLine("Pause between", statusInfo, yesNo(status.PauseBetweenEntries), colorize))
}
