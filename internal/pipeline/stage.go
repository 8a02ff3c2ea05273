package pipeline

import (
	"context"
	"fmt"
)

// StageKind identifies one stage of the remake workflow.
type StageKind string

// The stages, in execution order.
const (
	StageRightsGate StageKind = "rights_gate"
	StageIngest     StageKind = "ingest"
	StageNormalize  StageKind = "normalize"
	StageUnderstand StageKind = "understand"
	StagePlan       StageKind = "plan"
	StageExecute    StageKind = "execute"
	StageQA         StageKind = "qa"
	StagePackage    StageKind = "package"
)

// StageOrder is the fixed execution order.
var StageOrder = [8]StageKind{
	StageRightsGate,
	StageIngest,
	StageNormalize,
	StageUnderstand,
	StagePlan,
	StageExecute,
	StageQA,
	StagePackage,
}

// StageIndex returns the position of a stage in the execution order, or -1
// for an unknown stage.
func StageIndex(kind StageKind) int {
	for i, stage := range StageOrder {
		if stage == kind {
			return i
		}
	}
	return -1
}

// Report carries a stage's artifacts and advisories back to the coordinator.
type Report struct {
	// Output holds artifact references (paths, identifiers, short values)
	// merged into the run state for later stages and the final summary.
	Output map[string]string
	// Warnings are advisory findings that do not fail the stage.
	Warnings []string
}

// Handler executes one stage against the shared run state.
type Handler interface {
	Kind() StageKind
	Execute(ctx context.Context, state *State) (*Report, error)
}

// Handlers is the closed set of stage implementations. Every field must be
// populated; the struct form keeps the set exhaustive at compile time.
type Handlers struct {
	RightsGate Handler
	Ingest     Handler
	Normalize  Handler
	Understand Handler
	Plan       Handler
	Execute    Handler
	QA         Handler
	Package    Handler
}

func (h Handlers) ordered() []Handler {
	return []Handler{
		h.RightsGate,
		h.Ingest,
		h.Normalize,
		h.Understand,
		h.Plan,
		h.Execute,
		h.QA,
		h.Package,
	}
}

// Validate checks that every stage has a handler and that each handler
// reports the kind matching its slot.
func (h Handlers) Validate() error {
	for i, handler := range h.ordered() {
		if handler == nil {
			return fmt.Errorf("pipeline: no handler for stage %s", StageOrder[i])
		}
		if handler.Kind() != StageOrder[i] {
			return fmt.Errorf("pipeline: handler for slot %s reports kind %s", StageOrder[i], handler.Kind())
		}
	}
	return nil
}
