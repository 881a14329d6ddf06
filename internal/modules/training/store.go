package training

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pricewise/pricewise/internal/modules/pricing"
)

// CurrentArtifactName is the well-known filename of the published model
const CurrentArtifactName = "pricing_model.msgpack"

var versionedName = regexp.MustCompile(`^pricing_model-v(\d+)\.msgpack$`)

// Store persists model artifacts on the filesystem. Publishing is atomic
// (write temp, then rename) so a half-written artifact is never observed as
// present. Each version is also kept under its own name for rollback.
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore creates an artifact store rooted at dir
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir: dir,
		log: log.With().Str("component", "artifact_store").Logger(),
	}
}

// Dir returns the artifact directory
func (s *Store) Dir() string {
	return s.dir
}

// CurrentPath returns the path of the published model artifact
func (s *Store) CurrentPath() string {
	return filepath.Join(s.dir, CurrentArtifactName)
}

// NextVersion returns one past the highest version present in the store
func (s *Store) NextVersion() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		m := versionedName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v > highest {
			highest = v
		}
	}

	return highest + 1, nil
}

// Save publishes an artifact: the versioned copy is written first, then the
// current pointer is replaced by an atomic rename.
func (s *Store) Save(a *Artifact) error {
	if err := a.validate(); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := msgpack.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	versionedPath := filepath.Join(s.dir, fmt.Sprintf("pricing_model-v%d.msgpack", a.ModelVersion))
	if err := os.WriteFile(versionedPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write versioned artifact: %w", err)
	}

	// Atomic publish: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(s.dir, "pricing_model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err := os.Rename(tmpPath, s.CurrentPath()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to publish artifact: %w", err)
	}

	s.log.Info().
		Int("version", a.ModelVersion).
		Str("path", s.CurrentPath()).
		Msg("Published model artifact")

	return nil
}

// CurrentArtifact reads and validates the published artifact
func (s *Store) CurrentArtifact() (*Artifact, error) {
	data, err := os.ReadFile(s.CurrentPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var a Artifact
	if err := msgpack.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to deserialize model artifact: %w", err)
	}

	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("model artifact is corrupt: %w", err)
	}

	return &a, nil
}

// LoadCurrent loads the published artifact as a pricing model. Any problem -
// missing file, bad serialization, structural corruption - is an error the
// learned strategy treats as "model absent". Never retried.
func (s *Store) LoadCurrent() (pricing.Model, error) {
	return s.CurrentArtifact()
}
