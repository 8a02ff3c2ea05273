package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/runledger"
	"remake/internal/services"
	"remake/internal/workdir"
)

// RemakeOutput is the final summary returned to the caller.
type RemakeOutput struct {
	RunID      string
	WorkDir    string
	OutputPath string
	QAScore    int
	QAPassed   bool
	Warnings   []string
	Completed  bool
}

// Coordinator drives the staged workflow over one working directory.
type Coordinator struct {
	cfg      *config.Config
	logger   *slog.Logger
	handlers Handlers
	ledger   *runledger.Store
	layout   workdir.Layout

	stopAfter StageKind
}

// CoordinatorOption customizes a coordinator.
type CoordinatorOption func(*Coordinator)

// WithStopAfter ends the run after the named stage completes. Used by dry
// runs that want the recipe without rendering anything.
func WithStopAfter(stage StageKind) CoordinatorOption {
	return func(c *Coordinator) {
		c.stopAfter = stage
	}
}

// NewCoordinator wires a coordinator. The ledger may be nil, in which case
// run history is not recorded.
func NewCoordinator(cfg *config.Config, logger *slog.Logger, handlers Handlers, ledger *runledger.Store, layout workdir.Layout, opts ...CoordinatorOption) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config required")
	}
	if err := handlers.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	coordinator := &Coordinator{
		cfg:      cfg,
		logger:   logger,
		handlers: handlers,
		ledger:   ledger,
		layout:   layout,
	}
	for _, opt := range opts {
		opt(coordinator)
	}
	return coordinator, nil
}

// Run starts a fresh run for the given input.
func (c *Coordinator) Run(ctx context.Context, input RemakeInput) (*RemakeOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "coordinator", "validate input", err.Error(), nil)
	}
	if err := c.layout.Ensure(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "coordinator", "prepare workdir", "", err)
	}
	if _, err := os.Stat(c.layout.StatePath()); err == nil {
		return nil, services.Wrap(services.ErrValidation, "coordinator", "start run",
			fmt.Sprintf("state already exists in %s, use resume or a fresh directory", c.layout.Root), nil)
	}

	state := NewState(uuid.NewString(), input, c.layout.Root)
	if c.ledger != nil {
		err := c.ledger.StartRun(ctx, runledger.Run{
			ID:            state.RunID,
			SourceLocator: input.SourceLocator,
			Goal:          input.Goal,
			CurrentStage:  string(state.CurrentStage),
			WorkDir:       c.layout.Root,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "coordinator", "record run", "", err)
		}
	}
	return c.execute(ctx, state)
}

// Resume continues a checkpointed run from its current stage. Completed
// stages are never re-run; the interrupted stage restarts from scratch.
func (c *Coordinator) Resume(ctx context.Context) (*RemakeOutput, error) {
	state, err := Load(c.layout.StatePath())
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "coordinator", "load state", "", err)
	}
	if state.Status == RunStatusCompleted {
		return nil, services.Wrap(services.ErrValidation, "coordinator", "resume",
			"run already completed", nil)
	}
	state.Status = RunStatusRunning
	return c.execute(ctx, state)
}

func (c *Coordinator) execute(ctx context.Context, state *State) (*RemakeOutput, error) {
	lock, err := workdir.Acquire(c.layout.Root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "coordinator", "lock workdir", "", err)
	}
	defer func() { _ = lock.Release() }()

	ctx = services.WithRunID(ctx, state.RunID)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("run started",
		slog.String("source", state.Input.SourceLocator),
		slog.String("stage", string(state.CurrentStage)))

	start := StageIndex(state.CurrentStage)
	if start < 0 {
		start = 0
	}
	handlers := c.handlers.ordered()

	for i := start; i < len(StageOrder); i++ {
		stage := StageOrder[i]
		if state.StageCompleted(stage) {
			continue
		}
		state.CurrentStage = stage
		if err := Save(state, c.layout.StatePath()); err != nil {
			return nil, err
		}
		if c.ledger != nil {
			_ = c.ledger.UpdateStage(ctx, state.RunID, string(stage))
		}

		result, stageErr := c.runStage(ctx, handlers[i], stage, state)

		if stageErr != nil {
			state.Status = RunStatusFailed
			_ = Save(state, c.layout.StatePath())
			if c.ledger != nil {
				_ = c.ledger.FailRun(ctx, state.RunID, string(stage), services.Details(stageErr).Message)
			}
			c.appendChangelog(state, fmt.Sprintf("%s failed: %s", stage, services.Details(stageErr).Message))
			logger.Error("run failed",
				slog.String("stage", string(stage)),
				logging.Error(stageErr))
			return nil, stageErr
		}

		c.appendChangelog(state, fmt.Sprintf("%s completed (%d attempt(s))", stage, result.Attempts))
		if c.stopAfter != "" && stage == c.stopAfter {
			logger.Info("run stopped after stage", slog.String("stage", string(stage)))
			return c.summary(state, false), Save(state, c.layout.StatePath())
		}
	}

	state.Status = RunStatusCompleted
	if err := Save(state, c.layout.StatePath()); err != nil {
		return nil, err
	}
	if c.ledger != nil {
		_ = c.ledger.FinishRun(ctx, state.RunID, state.QAScore, state.QAPassed, state.OutputPath)
	}
	logger.Info("run completed",
		slog.Int("qa_score", state.QAScore),
		slog.String("output", state.OutputPath))
	return c.summary(state, true), nil
}

// runStage drives one stage through its attempts. Every attempt, failed or
// not, is appended to the state history and checkpointed, so the state file
// always reflects exactly what ran.
func (c *Coordinator) runStage(ctx context.Context, handler Handler, stage StageKind, state *State) (StageResult, error) {
	stageCtx := logging.WithStage(ctx, string(stage))
	logger := logging.WithContext(stageCtx, c.logger)

	maxAttempts := 1 + c.maxRetries()
	var lastErr error
	var result StageResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result = StageResult{
			Stage:     stage,
			Attempts:  attempt,
			StartedAt: time.Now().UTC(),
		}
		logger.Info("stage started",
			slog.String(logging.FieldEventType, "stage_start"),
			slog.Int("attempt", attempt))

		report, err := c.executeAttempt(stageCtx, handler, stage, state)
		result.FinishedAt = time.Now().UTC()
		if err == nil {
			result.Status = StageStatusCompleted
			if report != nil {
				result.Output = report.Output
				result.Warnings = report.Warnings
			}
			state.RecordResult(result)
			if saveErr := Save(state, c.layout.StatePath()); saveErr != nil {
				return result, saveErr
			}
			logger.Info("stage completed",
				slog.String(logging.FieldEventType, "stage_complete"),
				slog.Int("attempt", attempt))
			return result, nil
		}

		lastErr = err
		result.Status = StageStatusFailed
		result.Error = err.Error()
		state.RecordResult(result)
		if saveErr := Save(state, c.layout.StatePath()); saveErr != nil {
			return result, saveErr
		}
		logger.Warn("stage attempt failed",
			slog.String(logging.FieldEventType, "stage_failure"),
			slog.Int("attempt", attempt),
			logging.Error(err))
		if !services.Retryable(err) {
			break
		}
	}

	return result, lastErr
}

func (c *Coordinator) executeAttempt(ctx context.Context, handler Handler, stage StageKind, state *State) (*Report, error) {
	if timeout := c.stageTimeout(stage); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return handler.Execute(ctx, state)
}

func (c *Coordinator) maxRetries() int {
	if c.cfg.Workflow.MaxStageRetries < 0 {
		return 0
	}
	return c.cfg.Workflow.MaxStageRetries
}

// stageTimeout maps each stage onto the configured timeout class for its
// dominant operation. Zero means no stage-level bound.
func (c *Coordinator) stageTimeout(stage StageKind) time.Duration {
	seconds := 0
	switch stage {
	case StageIngest:
		seconds = c.cfg.Workflow.DownloadTimeout
	case StageNormalize:
		seconds = c.cfg.Workflow.ProbeTimeout
	case StageUnderstand:
		seconds = c.cfg.Workflow.TranscribeTimeout
	case StageExecute, StagePackage:
		seconds = c.cfg.Workflow.RenderTimeout
	case StageQA:
		seconds = c.cfg.Workflow.ProbeTimeout
	}
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (c *Coordinator) summary(state *State, completed bool) *RemakeOutput {
	return &RemakeOutput{
		RunID:      state.RunID,
		WorkDir:    state.WorkDir,
		OutputPath: state.OutputPath,
		QAScore:    state.QAScore,
		QAPassed:   state.QAPassed,
		Warnings:   append([]string(nil), state.Warnings...),
		Completed:  completed,
	}
}

// appendChangelog records run progress in a human-readable log next to the
// artifacts. Failures to write it never fail the run.
func (c *Coordinator) appendChangelog(state *State, entry string) {
	file, err := os.OpenFile(c.layout.ChangelogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	fmt.Fprintf(file, "- %s %s\n", time.Now().UTC().Format(time.RFC3339), entry)
}
