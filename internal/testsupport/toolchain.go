package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"remake/internal/media"
	"remake/internal/media/toolchain"
)

// FakeToolchain is a scriptable toolchain.Toolchain. Every operation has a
// default that succeeds and writes a placeholder artifact where one is
// expected; tests override individual funcs to shape behavior. Calls records
// operation names in order.
type FakeToolchain struct {
	Calls []string

	ResolveIDFunc         func(locator string) (string, error)
	FetchMetadataFunc     func(ctx context.Context, locator string) (media.VideoMetadata, error)
	DownloadFunc          func(ctx context.Context, locator, destDir string) (string, error)
	FetchCaptionsFunc     func(ctx context.Context, locator, lang, destDir string) (string, error)
	ProbeFunc             func(ctx context.Context, path string) (media.VideoMetadata, error)
	CutFunc               func(ctx context.Context, source string, start, end, speed float64, dest string) error
	ConcatFunc            func(ctx context.Context, clips []string, dest string) error
	NormalizeLoudnessFunc func(ctx context.Context, source, dest string) error
	BurnSubtitlesFunc     func(ctx context.Context, source, subtitlePath, dest string) error
	ExtractFrameFunc      func(ctx context.Context, source string, at float64, dest string) error
	ExtractAudioFunc      func(ctx context.Context, source, dest string) error
	DetectScenesFunc      func(ctx context.Context, source string) ([]float64, error)
	DetectSilenceFunc     func(ctx context.Context, source string, minDuration float64) ([]toolchain.Interval, error)
	DetectBlackFunc       func(ctx context.Context, source string, minDuration float64) ([]toolchain.Interval, error)
	MeasureAudioFunc      func(ctx context.Context, source string) (toolchain.AudioStats, error)
}

var _ toolchain.Toolchain = (*FakeToolchain)(nil)

// DefaultMetadata is the probe result fakes return unless overridden.
func DefaultMetadata() media.VideoMetadata {
	return media.VideoMetadata{
		ID:              "dQw4w9WgXcQ",
		Title:           "sample source",
		DurationSeconds: 120,
		Width:           1920,
		Height:          1080,
		FrameRate:       30,
		Codec:           "h264",
		SizeBytes:       1 << 20,
	}
}

func (f *FakeToolchain) record(op string) {
	f.Calls = append(f.Calls, op)
}

func (f *FakeToolchain) ResolveID(locator string) (string, error) {
	f.record("resolve_id")
	if f.ResolveIDFunc != nil {
		return f.ResolveIDFunc(locator)
	}
	return "dQw4w9WgXcQ", nil
}

func (f *FakeToolchain) FetchMetadata(ctx context.Context, locator string) (media.VideoMetadata, error) {
	f.record("fetch_metadata")
	if f.FetchMetadataFunc != nil {
		return f.FetchMetadataFunc(ctx, locator)
	}
	return DefaultMetadata(), nil
}

func (f *FakeToolchain) Download(ctx context.Context, locator, destDir string) (string, error) {
	f.record("download")
	if f.DownloadFunc != nil {
		return f.DownloadFunc(ctx, locator, destDir)
	}
	dest := filepath.Join(destDir, "source.mp4")
	return dest, placeholder(dest)
}

func (f *FakeToolchain) FetchCaptions(ctx context.Context, locator, lang, destDir string) (string, error) {
	f.record("fetch_captions")
	if f.FetchCaptionsFunc != nil {
		return f.FetchCaptionsFunc(ctx, locator, lang, destDir)
	}
	return "", fmt.Errorf("no captions published")
}

func (f *FakeToolchain) Probe(ctx context.Context, path string) (media.VideoMetadata, error) {
	f.record("probe")
	if f.ProbeFunc != nil {
		return f.ProbeFunc(ctx, path)
	}
	return DefaultMetadata(), nil
}

func (f *FakeToolchain) Cut(ctx context.Context, source string, start, end, speed float64, dest string) error {
	f.record("cut")
	if f.CutFunc != nil {
		return f.CutFunc(ctx, source, start, end, speed, dest)
	}
	return placeholder(dest)
}

func (f *FakeToolchain) Concat(ctx context.Context, clips []string, dest string) error {
	f.record("concat")
	if f.ConcatFunc != nil {
		return f.ConcatFunc(ctx, clips, dest)
	}
	return placeholder(dest)
}

func (f *FakeToolchain) NormalizeLoudness(ctx context.Context, source, dest string) error {
	f.record("normalize_loudness")
	if f.NormalizeLoudnessFunc != nil {
		return f.NormalizeLoudnessFunc(ctx, source, dest)
	}
	return placeholder(dest)
}

func (f *FakeToolchain) BurnSubtitles(ctx context.Context, source, subtitlePath, dest string) error {
	f.record("burn_subtitles")
	if f.BurnSubtitlesFunc != nil {
		return f.BurnSubtitlesFunc(ctx, source, subtitlePath, dest)
	}
	return placeholder(dest)
}

func (f *FakeToolchain) ExtractFrame(ctx context.Context, source string, at float64, dest string) error {
	f.record("extract_frame")
	if f.ExtractFrameFunc != nil {
		return f.ExtractFrameFunc(ctx, source, at, dest)
	}
	return placeholder(dest)
}

func (f *FakeToolchain) ExtractAudio(ctx context.Context, source, dest string) error {
	f.record("extract_audio")
	if f.ExtractAudioFunc != nil {
		return f.ExtractAudioFunc(ctx, source, dest)
	}
	return placeholder(dest)
}

func (f *FakeToolchain) DetectScenes(ctx context.Context, source string) ([]float64, error) {
	f.record("detect_scenes")
	if f.DetectScenesFunc != nil {
		return f.DetectScenesFunc(ctx, source)
	}
	return []float64{10, 30, 60, 90}, nil
}

func (f *FakeToolchain) DetectSilence(ctx context.Context, source string, minDuration float64) ([]toolchain.Interval, error) {
	f.record("detect_silence")
	if f.DetectSilenceFunc != nil {
		return f.DetectSilenceFunc(ctx, source, minDuration)
	}
	return nil, nil
}

func (f *FakeToolchain) DetectBlackFrames(ctx context.Context, source string, minDuration float64) ([]toolchain.Interval, error) {
	f.record("detect_black")
	if f.DetectBlackFunc != nil {
		return f.DetectBlackFunc(ctx, source, minDuration)
	}
	return nil, nil
}

func (f *FakeToolchain) MeasureAudio(ctx context.Context, source string) (toolchain.AudioStats, error) {
	f.record("measure_audio")
	if f.MeasureAudioFunc != nil {
		return f.MeasureAudioFunc(ctx, source)
	}
	return toolchain.AudioStats{HasAudio: true, PeakDB: -1.5, MeanDB: -18}, nil
}

func placeholder(dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("placeholder"), 0o644)
}
