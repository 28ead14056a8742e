// Package deps verifies the external tools replayrig shells out to.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"replayrig/internal/config"
)

// Requirement defines an external dependency replayrig relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig lists the external tools the configured setup needs.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "playback engine",
			Command:     cfg.Engine.Binary,
			Description: "replay playback engine binary",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Commands containing a path separator are checked on disk; bare names are
// resolved through PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		case strings.ContainsRune(cmd, os.PathSeparator):
			info, err := os.Stat(cmd)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else if info.IsDir() {
				status.Detail = fmt.Sprintf("%q is a directory", cmd)
			} else {
				status.Available = true
			}
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found in PATH", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}
