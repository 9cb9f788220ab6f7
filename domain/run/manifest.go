package run

import (
	"fmt"
	"time"

	"jtpadensity/domain/core"
)

// CodeVersion is recorded with every run so stored results can be traced to the estimator revision
const CodeVersion = "1.0.0"

// Settings are the estimation parameters that determine a run's numbers
type Settings struct {
	Seed       int64   `json:"seed" db:"seed"`
	BWSelect   string  `json:"bwselect" db:"bwselect"`
	Kernel     string  `json:"kernel" db:"kernel"`
	PolyOrder  int     `json:"p" db:"poly_order"`
	GridMin    float64 `json:"grid_min" db:"grid_min"`
	GridMax    float64 `json:"grid_max" db:"grid_max"`
	GridPoints int     `json:"grid_points" db:"grid_points"`
	CILevel    float64 `json:"ci_level" db:"ci_level"`
	CIReps     int     `json:"ci_reps" db:"ci_reps"`
	Uniform    bool    `json:"uniform" db:"uniform"`
}

// Manifest describes one pipeline execution
type Manifest struct {
	RunID       core.RunID `json:"run_id" db:"run_id"`
	InputFile   string     `json:"input_file" db:"input_file"`
	InputHash   core.Hash  `json:"input_hash" db:"input_hash"`
	Settings    `json:"settings"`
	CodeVersion string    `json:"code_version" db:"code_version"`
	Fingerprint core.Hash `json:"fingerprint" db:"fingerprint"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewManifest creates a manifest with a fresh run id and a determinism fingerprint
func NewManifest(inputFile string, inputHash core.Hash, settings Settings) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		InputFile:   inputFile,
		InputHash:   inputHash,
		Settings:    settings,
		CodeVersion: CodeVersion,
		Fingerprint: Fingerprint(inputHash, settings, CodeVersion),
		CreatedAt:   time.Now().UTC(),
	}
}

// Fingerprint hashes everything that determines the numbers of a run. Two runs with the
// same fingerprint produce identical tables, estimates and bands.
func Fingerprint(inputHash core.Hash, s Settings, codeVersion string) core.Hash {
	data := fmt.Sprintf("input:%s|seed:%d|bw:%s|kernel:%s|p:%d|grid:%g:%g:%d|ci:%g:%d:%t|code:%s",
		inputHash, s.Seed, s.BWSelect, s.Kernel, s.PolyOrder, s.GridMin, s.GridMax, s.GridPoints,
		s.CILevel, s.CIReps, s.Uniform, codeVersion)
	return core.NewHash([]byte(data))
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return fmt.Errorf("run manifest: run_id cannot be empty")
	}
	if m.InputHash.IsEmpty() {
		return fmt.Errorf("run manifest: input_hash cannot be empty")
	}
	if m.Fingerprint.IsEmpty() {
		return fmt.Errorf("run manifest: fingerprint cannot be empty")
	}
	return nil
}
