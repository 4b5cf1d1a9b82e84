package result

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Archive is the raw results file written at the end of a campaign. It keeps
// every measurement and cache test so reports can be rebuilt later.
type Archive struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Campaign configuration
	Sizes      []int `json:"sizes"`
	Iterations int   `json:"iterations"`

	Benchmarks []Measurement `json:"benchmarks"`
	CacheTests []CacheTest   `json:"cache_tests"`
}

// NewArchive creates an archive with a fresh run id.
func NewArchive(sizes []int, iterations int, started time.Time) *Archive {
	return &Archive{
		RunID:      uuid.New().String(),
		StartedAt:  started,
		Sizes:      append([]int(nil), sizes...),
		Iterations: iterations,
		Benchmarks: []Measurement{},
		CacheTests: []CacheTest{},
	}
}

// WriteArchive writes a to path, creating parent directories.
func WriteArchive(path string, a *Archive) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	buf, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding results archive")
	}
	if err := os.WriteFile(path, append(buf, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// ReadArchive loads an archive previously written by WriteArchive.
func ReadArchive(path string) (*Archive, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	a := &Archive{}
	if err := json.Unmarshal(buf, a); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return a, nil
}
