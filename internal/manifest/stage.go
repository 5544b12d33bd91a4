package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Stage holds what one stage read and wrote.
type Stage struct {
	Name      string        `json:"name"`
	Inputs    []string      `json:"inputs"`
	Artifacts []Artifact    `json:"artifacts"`
	Warnings  []string      `json:"warnings,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Artifact is a file produced by a stage.
type Artifact struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Bytes int64  `json:"bytes"`
}

// NewStage starts a stage record with the given inputs.
func NewStage(name string, inputs ...string) *Stage {
	return &Stage{Name: name, Inputs: inputs, StartedAt: time.Now()}
}

// Add stats path and appends it as an artifact. The kind is taken from the
// file extension.
func (s *Stage) Add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	s.Artifacts = append(s.Artifacts, Artifact{
		Path:  path,
		Kind:  strings.TrimPrefix(filepath.Ext(path), "."),
		Bytes: info.Size(),
	})
	return nil
}

// Warn appends a warning to the stage record.
func (s *Stage) Warn(msg string) { s.Warnings = append(s.Warnings, msg) }

// Finish sets the stage duration.
func (s *Stage) Finish() { s.Duration = time.Since(s.StartedAt) }
