package deps

import (
	"testing"

	"remake/internal/config"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "Shell", Command: "sh", Description: "posix shell"},
		{Name: "Ghost", Command: "remake-test-no-such-binary", Description: "should not exist"},
		{Name: "Blank", Command: "  ", Description: "not configured"},
	})
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("sh should be available: %+v", statuses[0])
	}
	if statuses[1].Available {
		t.Fatalf("nonexistent binary reported available: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("blank command should be flagged: %+v", statuses[2])
	}
}

func TestCheckServices(t *testing.T) {
	defaults := config.Default()
	cfg := &defaults
	cfg.LLM.APIKey = ""
	statuses := CheckServices(cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 service statuses, got %d", len(statuses))
	}
	if statuses[0].Available {
		t.Fatalf("LLM should be unavailable without a key: %+v", statuses[0])
	}
	if statuses[1].Available {
		t.Fatalf("generation should be unavailable when disabled: %+v", statuses[1])
	}

	cfg.LLM.APIKey = "key"
	cfg.Generation.Enabled = true
	cfg.Generation.APIKey = "gen-key"
	statuses = CheckServices(cfg)
	if !statuses[0].Available || !statuses[1].Available {
		t.Fatalf("expected both services available: %+v", statuses)
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "A", Available: true},
		{Name: "B", Available: false},
		{Name: "C", Available: false, Optional: true},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "B" {
		t.Fatalf("unexpected missing list: %v", missing)
	}
}
