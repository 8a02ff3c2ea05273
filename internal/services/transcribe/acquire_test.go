package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeCaptions struct {
	path string
	err  error
}

func (f *fakeCaptions) FetchCaptions(ctx context.Context, locator, lang, destDir string) (string, error) {
	return f.path, f.err
}

type fakeAudio struct {
	called bool
	err    error
}

func (f *fakeAudio) ExtractAudio(ctx context.Context, source, dest string) error {
	f.called = true
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("wav"), 0o644)
}

func TestAcquirePrefersCaptions(t *testing.T) {
	dir := t.TempDir()
	captionPath := filepath.Join(dir, "captions.en.srt")
	if err := os.WriteFile(captionPath, []byte(sampleSRT), 0o644); err != nil {
		t.Fatalf("write captions: %v", err)
	}

	service := NewService(Config{}, "uvx")
	audio := &fakeAudio{}
	transcript, warnings, err := service.Acquire(context.Background(), &fakeCaptions{path: captionPath}, audio, AcquireRequest{
		Locator:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		VideoPath:  filepath.Join(dir, "source.mp4"),
		CaptionDir: dir,
		WorkDir:    dir,
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if transcript.Source != SourceCaptions {
		t.Fatalf("expected captions source, got %q", transcript.Source)
	}
	if len(warnings) != 0 {
		t.Fatalf("caption path should produce no warnings: %v", warnings)
	}
	if audio.called {
		t.Fatal("audio extraction must not run when captions are usable")
	}
	if !strings.Contains(transcript.Text, "Welcome to the channel.") {
		t.Fatalf("unexpected transcript text %q", transcript.Text)
	}
}

func TestAcquireFallsBackToSpeech(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(videoPath, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	service := NewService(Config{Model: "large-v3-turbo"}, "uvx")
	var uvxArgs []string
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		uvxArgs = args
		// Simulate WhisperX writing its JSON output.
		payload := `{"segments":[{"text":"hello from speech","start":0,"end":2.5}]}`
		return os.WriteFile(filepath.Join(dir, "source.json"), []byte(payload), 0o644)
	})

	audio := &fakeAudio{}
	transcript, warnings, err := service.Acquire(context.Background(), &fakeCaptions{err: errors.New("no captions")}, audio, AcquireRequest{
		Locator:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		VideoPath:  videoPath,
		CaptionDir: dir,
		WorkDir:    dir,
		Language:   "en-US",
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if transcript.Source != SourceSpeech {
		t.Fatalf("expected speech source, got %q", transcript.Source)
	}
	if transcript.Text != "hello from speech" {
		t.Fatalf("unexpected transcript %q", transcript.Text)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "falling back to speech-to-text") {
		t.Fatalf("expected fallback warning, got %v", warnings)
	}
	if !audio.called {
		t.Fatal("audio extraction should have run")
	}
	if len(transcript.Cues) != 1 || transcript.Cues[0].End != 2.5 {
		t.Fatalf("timed cues not loaded: %+v", transcript.Cues)
	}

	joined := strings.Join(uvxArgs, " ")
	if !strings.Contains(joined, "--model large-v3-turbo") {
		t.Fatalf("model flag missing from args: %s", joined)
	}
	if !strings.Contains(joined, "--language en") {
		t.Fatalf("region subtag should be stripped for whisperx: %s", joined)
	}
}

func TestAcquireErrorsWithoutLocalVideo(t *testing.T) {
	service := NewService(Config{}, "uvx")
	_, _, err := service.Acquire(context.Background(), &fakeCaptions{err: errors.New("nope")}, &fakeAudio{}, AcquireRequest{
		Locator: "https://example.com/video",
		WorkDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error when no captions and no video are available")
	}
}
