package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Run statuses persisted in the state file.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Stage statuses recorded per attempt.
const (
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
)

// RemakeInput is the caller's request for one run.
type RemakeInput struct {
	SourceLocator     string   `json:"source_locator"`
	Goal              string   `json:"goal"`
	DurationSpec      string   `json:"duration_spec,omitempty"`
	Language          string   `json:"language,omitempty"`
	StyleDirectives   string   `json:"style_directives,omitempty"`
	StoryInstructions string   `json:"story_instructions,omitempty"`
	Persona           string   `json:"persona,omitempty"`
	ForbiddenTerms    []string `json:"forbidden_terms,omitempty"`
}

// Validate rejects inputs the pipeline cannot act on.
func (in RemakeInput) Validate() error {
	if strings.TrimSpace(in.SourceLocator) == "" {
		return fmt.Errorf("source locator required")
	}
	if strings.TrimSpace(in.Goal) == "" {
		return fmt.Errorf("goal required")
	}
	return nil
}

// StageResult records the outcome of one stage.
type StageResult struct {
	Stage      StageKind         `json:"stage"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Output     map[string]string `json:"output,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// State is the resumable run record. It is checkpointed to the workdir after
// every stage attempt, so a crashed or stopped run re-enters at CurrentStage
// with all completed work intact.
type State struct {
	RunID        string        `json:"run_id"`
	Input        RemakeInput   `json:"input"`
	WorkDir      string        `json:"work_dir"`
	Status       string        `json:"status"`
	CurrentStage StageKind     `json:"current_stage"`
	Results      []StageResult `json:"results,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`

	// Cross-stage values small enough to live in the state file directly.
	// Larger artifacts stay in workdir files referenced from Artifacts.
	SourceID      string            `json:"source_id,omitempty"`
	TargetSeconds float64           `json:"target_seconds,omitempty"`
	QAScore       int               `json:"qa_score,omitempty"`
	QAPassed      bool              `json:"qa_passed,omitempty"`
	OutputPath    string            `json:"output_path,omitempty"`
	Artifacts     map[string]string `json:"artifacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState seeds a run at the first stage.
func NewState(runID string, input RemakeInput, workDir string) *State {
	now := time.Now().UTC()
	return &State{
		RunID:        runID,
		Input:        input,
		WorkDir:      workDir,
		Status:       RunStatusRunning,
		CurrentStage: StageOrder[0],
		Artifacts:    map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddWarning appends a stage-prefixed advisory to the run-level accumulator.
func (s *State) AddWarning(stage StageKind, warning string) {
	warning = strings.TrimSpace(warning)
	if warning == "" {
		return
	}
	s.Warnings = append(s.Warnings, fmt.Sprintf("[%s] %s", stage, warning))
}

// RecordResult appends a stage outcome and merges its artifacts.
func (s *State) RecordResult(result StageResult) {
	s.Results = append(s.Results, result)
	if s.Artifacts == nil {
		s.Artifacts = map[string]string{}
	}
	for key, value := range result.Output {
		s.Artifacts[key] = value
	}
	for _, warning := range result.Warnings {
		s.AddWarning(result.Stage, warning)
	}
	s.UpdatedAt = time.Now().UTC()
}

// StageCompleted reports whether a stage already finished successfully.
func (s *State) StageCompleted(kind StageKind) bool {
	for _, result := range s.Results {
		if result.Stage == kind && result.Status == StageStatusCompleted {
			return true
		}
	}
	return false
}

// Save checkpoints the state atomically.
func Save(state *State, path string) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: encode state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("pipeline: write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("pipeline: replace state: %w", err)
	}
	return nil
}

// Load reads a checkpointed state.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("pipeline: parse state %s: %w", filepath.Base(path), err)
	}
	if state.RunID == "" {
		return nil, fmt.Errorf("pipeline: state %s has no run id", filepath.Base(path))
	}
	if StageIndex(state.CurrentStage) < 0 {
		return nil, fmt.Errorf("pipeline: state %s has unknown stage %q", filepath.Base(path), state.CurrentStage)
	}
	return &state, nil
}
