package rights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"remake/internal/config"
	"remake/internal/pipeline"
	"remake/internal/services"
)

func runGate(t *testing.T, cfg *config.Config, input pipeline.RemakeInput) (*pipeline.Report, error) {
	t.Helper()
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	handler := NewHandler(cfg, nil)
	state := pipeline.NewState("run", input, t.TempDir())
	return handler.Execute(context.Background(), state)
}

func TestGateRejectsDuplicationIntent(t *testing.T) {
	requests := []string{
		"just re-upload this to my channel",
		"make an EXACT COPY of this video",
		"download and repost it",
		"quiero una copia exacta del video",
	}
	for _, goal := range requests {
		_, err := runGate(t, nil, pipeline.RemakeInput{SourceLocator: "x", Goal: goal})
		if err == nil {
			t.Fatalf("expected rejection for %q", goal)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("rejection must be a validation error, got %v", err)
		}
		if services.Retryable(err) {
			t.Fatalf("rights rejection must be final: %v", err)
		}
	}
}

func TestGateRejectsBareDuplicationTerms(t *testing.T) {
	requests := []string{
		"duplicate this video for my channel",
		"copy this over to my account",
		"replicate the original for me",
		"clone it and post it",
		"duplicar este video para mi canal",
	}
	for _, goal := range requests {
		_, err := runGate(t, nil, pipeline.RemakeInput{SourceLocator: "x", Goal: goal})
		if err == nil {
			t.Fatalf("expected rejection for %q", goal)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("rejection must be a validation error, got %v", err)
		}
	}
}

func TestGateAdvisesOnPlatformSource(t *testing.T) {
	report, err := runGate(t, nil, pipeline.RemakeInput{
		SourceLocator: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Goal:          "condense this lecture into a 90 second summary",
		DurationSpec:  "90s",
	})
	if err != nil {
		t.Fatalf("platform source should pass with advisory: %v", err)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "youtube") {
		t.Fatalf("expected license advisory naming the platform, got %v", report.Warnings)
	}
}

func TestGateClearsTransformativeRequest(t *testing.T) {
	report, err := runGate(t, nil, pipeline.RemakeInput{
		SourceLocator: "x",
		Goal:          "condense this lecture into a 90 second summary",
		DurationSpec:  "90s",
	})
	if err != nil {
		t.Fatalf("transformative request rejected: %v", err)
	}
	if report.Output["verdict"] != "clear" {
		t.Fatalf("unexpected verdict: %+v", report.Output)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestGateWarnsOnPersona(t *testing.T) {
	report, err := runGate(t, nil, pipeline.RemakeInput{
		SourceLocator: "x",
		Goal:          "retell this as a nature documentary",
		Persona:       "david the narrator",
	})
	if err != nil {
		t.Fatalf("persona request should pass with warning: %v", err)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "persona") {
		t.Fatalf("expected persona advisory, got %v", report.Warnings)
	}
}

func TestGateWarnsOnOriginalDurationWithoutDirectives(t *testing.T) {
	report, err := runGate(t, nil, pipeline.RemakeInput{
		SourceLocator: "x",
		Goal:          "freshen this up",
		DurationSpec:  "original",
	})
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected transformation advisory, got %v", report.Warnings)
	}
}

func TestGateHonorsConfiguredExtraTerms(t *testing.T) {
	defaults := config.Default()
	cfg := &defaults
	cfg.Rights.ExtraDeniedTerms = []string{"clone channel"}
	_, err := runGate(t, cfg, pipeline.RemakeInput{
		SourceLocator: "x",
		Goal:          "clone channel content for me",
	})
	if err == nil {
		t.Fatal("expected configured term to reject")
	}
}
