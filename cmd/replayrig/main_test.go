package main

import (
	"strings"
	"testing"
)

func TestRootHelpListsCommands(t *testing.T) {
	out, err := runCommand(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, want := range []string{"play", "queue", "export", "status", "stop", "logs"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestPlayRequiresFilesOrPending(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"play", "--socket", "/nonexistent/replayrig.sock"})
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for play without arguments")
	}
}
