package queuefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"replayrig/internal/fileutil"
	"replayrig/internal/services"
)

// replayExtensions lists the file extensions recognized as playable replays.
var replayExtensions = map[string]struct{}{
	".slp": {},
}

// Options are queue-level playback options, serialized at the top level of
// the descriptor document.
type Options struct {
	Loop    bool `json:"loop"`
	Shuffle bool `json:"shuffle"`
}

// Entry references one replay file in queue order.
type Entry struct {
	Path string `json:"path"`
}

// Descriptor is the persisted queue document handed to the playback engine.
type Descriptor struct {
	Options
	Queue []Entry `json:"queue"`
}

// Paths returns the ordered file list referenced by the descriptor.
func (d *Descriptor) Paths() []string {
	paths := make([]string, 0, len(d.Queue))
	for _, entry := range d.Queue {
		paths = append(paths, entry.Path)
	}
	return paths
}

// IsReplayFile reports whether the path carries a recognized replay extension.
func IsReplayFile(path string) bool {
	_, ok := replayExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Materialize filters files to recognized replays and writes the descriptor
// to a uniquely named file under tempDir. When no file survives filtering it
// returns a nil descriptor and writes nothing; callers must check for nil
// before loading the engine.
func Materialize(tempDir string, files []string, opts Options) (*Descriptor, string, error) {
	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		if IsReplayFile(file) {
			entries = append(entries, Entry{Path: file})
		}
	}
	if len(entries) == 0 {
		return nil, "", nil
	}

	descriptor := &Descriptor{Options: opts, Queue: entries}
	path := filepath.Join(tempDir, uniqueName())
	if err := write(path, descriptor); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "queuefile", "materialize", "", err)
	}
	return descriptor, path, nil
}

// Export persists a descriptor to a caller-chosen permanent location. Unlike
// Materialize this has no orchestration side effects; it exists so a pending
// queue can be reloaded in a later session.
func Export(path string, descriptor *Descriptor) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "queuefile", "export", "save path required", nil)
	}
	if descriptor == nil || len(descriptor.Queue) == 0 {
		return services.Wrap(services.ErrValidation, "queuefile", "export", "queue is empty", nil)
	}
	if err := write(path, descriptor); err != nil {
		return services.Wrap(services.ErrTransient, "queuefile", "export", "", err)
	}
	return nil
}

// Read parses a descriptor document from disk.
func Read(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queue descriptor: %w", err)
	}
	return Parse(data)
}

// Parse decodes a descriptor document.
func Parse(data []byte) (*Descriptor, error) {
	var descriptor Descriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, fmt.Errorf("parse queue descriptor: %w", err)
	}
	for _, entry := range descriptor.Queue {
		if strings.TrimSpace(entry.Path) == "" {
			return nil, errors.New("queue descriptor contains an entry without a path")
		}
	}
	return &descriptor, nil
}

func write(path string, descriptor *Descriptor) error {
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue descriptor: %w", err)
	}
	data = append(data, '\n')
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// uniqueName derives a collision-free descriptor file name from the current
// time plus a random suffix, so concurrent materializations never clash.
func uniqueName() string {
	return fmt.Sprintf("queue-%d-%s.json", time.Now().UnixNano(), uuid.NewString()[:8])
}
