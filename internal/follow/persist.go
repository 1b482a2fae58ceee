// ABOUTME: Durable storage for the follow-status snapshot.
// ABOUTME: FilePersister keeps it as one YAML document replaced atomically on every save.
package follow

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/futurefeed/internal/fsutil"
	"github.com/2389-research/futurefeed/internal/models"
)

// Snapshot is the persisted follow state.
type Snapshot struct {
	Statuses  map[int64]bool `yaml:"statuses"`
	Following []models.User  `yaml:"following,omitempty"`
	Followers []models.User  `yaml:"followers,omitempty"`
}

// Persister defines how a follow snapshot is loaded and saved.
type Persister interface {
	// Load returns the persisted snapshot, or nil when none has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the persisted snapshot.
	Save(snap *Snapshot) error
}

// FilePersister stores the snapshot as YAML at a fixed path.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads and parses the snapshot file.
func (p *FilePersister) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read follow snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse follow snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes snap atomically.
func (p *FilePersister) Save(snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode follow snapshot: %w", err)
	}
	return fsutil.AtomicWrite(p.path, data)
}

type nopPersister struct{}

func (nopPersister) Load(context.Context) (*Snapshot, error) { return nil, nil }

func (nopPersister) Save(*Snapshot) error { return nil }
