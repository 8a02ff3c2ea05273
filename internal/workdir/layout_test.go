package workdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayoutEnsureCreatesAllDirectories(t *testing.T) {
	layout := NewLayout(filepath.Join(t.TempDir(), "run"))
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	for _, dir := range []string{
		layout.SourceDir(),
		layout.SegmentsDir(),
		layout.FramesDir(),
		layout.TempDir(),
		layout.LogsDir(),
		layout.OutputDir(),
	} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("missing directory %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestLayoutEnsureRejectsEmptyRoot(t *testing.T) {
	if err := (Layout{}).Ensure(); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestCaptionPathFindsFetchedCaptions(t *testing.T) {
	layout := NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if _, ok := layout.CaptionPath(); ok {
		t.Fatal("expected no caption file in a fresh layout")
	}
	captionFile := filepath.Join(layout.SourceDir(), "captions.en.srt")
	if err := os.WriteFile(captionFile, []byte("1\n"), 0o644); err != nil {
		t.Fatalf("write caption file: %v", err)
	}
	path, ok := layout.CaptionPath()
	if !ok {
		t.Fatal("expected caption file to be found")
	}
	if path != captionFile {
		t.Fatalf("got %q want %q", path, captionFile)
	}
}

func TestLockRejectsSecondAcquire(t *testing.T) {
	root := t.TempDir()
	first, err := Acquire(root)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer first.Release()

	if _, err := Acquire(root); err == nil {
		t.Fatal("expected second acquire to fail while lock is held")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	second, err := Acquire(root)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	_ = second.Release()
}
