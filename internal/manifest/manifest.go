// Package manifest records what each pipeline stage produced in a
// run_manifest.json next to the results.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

// FileName is the manifest file name inside the results directory.
const FileName = "run_manifest.json"

// Manifest is the record of one pipeline run persisted on disk.
type Manifest struct {
	RunID     string            `json:"run_id"`
	Stages    map[string]*Stage `json:"stages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Not serialized: on-disk location of the manifest
	dir string `json:"-"`
}

// New constructs an in-memory manifest with a fresh run ID. Call Save() to persist.
func New(dir string) *Manifest {
	now := time.Now()
	return &Manifest{
		RunID:     uuid.NewString(),
		Stages:    make(map[string]*Stage),
		CreatedAt: now,
		UpdatedAt: now,
		dir:       dir,
	}
}

// Load reads the manifest from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Stages == nil {
		m.Stages = make(map[string]*Stage)
	}
	m.dir = dir
	return &m, nil
}

// Open loads the manifest in dir, or starts a new run when there is none.
func Open(dir string) (*Manifest, error) {
	m, err := Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return New(dir), nil
	}
	return m, err
}

// Dir returns the directory the manifest is saved in.
func (m *Manifest) Dir() string { return m.dir }

// Save writes the manifest using an atomic write.
func (m *Manifest) Save() error {
	if m.dir == "" {
		return errors.New("manifest directory not set")
	}
	m.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(m.dir, FileName), data)
}

// Record replaces the entry for s.Name with s.
func (m *Manifest) Record(s *Stage) {
	if m.Stages == nil {
		m.Stages = make(map[string]*Stage)
	}
	m.Stages[s.Name] = s
	m.UpdatedAt = time.Now()
}

// Artifacts lists every artifact of every stage, sorted by path.
func (m *Manifest) Artifacts() []Artifact {
	var out []Artifact
	for _, s := range m.Stages {
		out = append(out, s.Artifacts...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
