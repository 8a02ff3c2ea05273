// Package rights screens remake requests before any network or disk work
// happens. The gate is purely local: it inspects the request text for
// duplication intent and lets transformative requests through, optionally
// with advisories.
package rights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media/toolchain"
	"remake/internal/pipeline"
	"remake/internal/services"
)

// builtinDeniedTerms flag requests that ask for a copy rather than a remake.
// The list carries common localized phrasings because requests arrive in the
// requester's language, not ours.
var builtinDeniedTerms = []string{
	"duplicate",
	"copy",
	"replicate",
	"clone",
	"re-upload",
	"reupload",
	"re upload",
	"repost as-is",
	"repost as is",
	"exact copy",
	"identical copy",
	"1:1 copy",
	"verbatim copy",
	"mirror the video",
	"download and repost",
	"without any changes",
	"without modification",
	"just copy",
	// es
	"duplicar",
	"copiar",
	"replicar",
	"clonar",
	"copia exacta",
	"resubir",
	"volver a subir",
	// fr
	"dupliquer",
	"copier",
	"répliquer",
	"cloner",
	"copie exacte",
	"republier tel quel",
	// de
	"duplizieren",
	"kopieren",
	"replizieren",
	"klonen",
	"exakte kopie",
	"erneut hochladen",
	// pt (duplicar/copiar/replicar shared with es above)
	"cópia exata",
	"reenviar o vídeo",
}

// Handler implements the rights gate stage.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler builds the rights gate.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StageRightsGate }

// Execute screens the request. A duplication intent is a final failure; the
// stage never retries and never calls out to anything.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)

	requestText := strings.ToLower(strings.Join([]string{
		state.Input.Goal,
		state.Input.StoryInstructions,
		state.Input.StyleDirectives,
	}, "\n"))

	denied := append([]string{}, builtinDeniedTerms...)
	if h.cfg != nil {
		denied = append(denied, h.cfg.Rights.ExtraDeniedTerms...)
	}
	for _, term := range denied {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(requestText, term) {
			return nil, services.Wrap(services.ErrValidation, "rights_gate", "screen request",
				fmt.Sprintf("request reads as duplication, not transformation (matched %q)", term), nil)
		}
	}

	report := &pipeline.Report{Output: map[string]string{"verdict": "clear"}}

	if platform := toolchain.PlatformForLocator(state.Input.SourceLocator); platform != "" {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("source is hosted on %s; confirm the platform's license terms permit redistribution", platform))
	}
	if strings.TrimSpace(state.Input.Persona) != "" {
		report.Warnings = append(report.Warnings,
			"persona imitation requested; confirm the persona is licensed or fictional before publishing")
	}
	if strings.TrimSpace(state.Input.DurationSpec) == "original" &&
		strings.TrimSpace(state.Input.StyleDirectives) == "" &&
		strings.TrimSpace(state.Input.StoryInstructions) == "" {
		report.Warnings = append(report.Warnings,
			"target keeps the original duration with no style or story directives; verify the plan is transformative")
	}

	logger.Info("request cleared", slog.Int("warnings", len(report.Warnings)))
	return report, nil
}
