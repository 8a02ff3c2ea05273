package toolchain

import (
	"context"

	"remake/internal/media"
)

// Interval is a detected time range (silence, black frames).
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the interval length in seconds.
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// AudioStats summarizes measured audio levels of a rendered artifact.
type AudioStats struct {
	HasAudio bool
	PeakDB   float64
	MeanDB   float64
}

// Toolchain is the contract the pipeline expects from the external media
// tooling. Implementations must be safe for sequential use from a single
// goroutine; the pipeline never calls them concurrently.
type Toolchain interface {
	// ResolveID derives a canonical source id from a locator (URL or path).
	ResolveID(locator string) (string, error)
	// FetchMetadata probes a remote or local source without downloading it.
	FetchMetadata(ctx context.Context, locator string) (media.VideoMetadata, error)
	// Download fetches the source artifact into destDir and returns its path.
	Download(ctx context.Context, locator, destDir string) (string, error)
	// FetchCaptions retrieves platform captions into destDir, returning the
	// caption file path. A missing caption track is an error the caller is
	// expected to degrade on.
	FetchCaptions(ctx context.Context, locator, lang, destDir string) (string, error)
	// Probe inspects a local file.
	Probe(ctx context.Context, path string) (media.VideoMetadata, error)
	// Cut extracts [start,end) into dest, applying a playback speed factor
	// when speed != 1.
	Cut(ctx context.Context, source string, start, end, speed float64, dest string) error
	// Concat joins clips in order into dest. Callers handle the single-clip
	// pass-through case.
	Concat(ctx context.Context, clips []string, dest string) error
	// NormalizeLoudness applies loudness normalization.
	NormalizeLoudness(ctx context.Context, source, dest string) error
	// BurnSubtitles renders the subtitle file into the video track.
	BurnSubtitles(ctx context.Context, source, subtitlePath, dest string) error
	// ExtractFrame grabs a single frame at the given offset.
	ExtractFrame(ctx context.Context, source string, at float64, dest string) error
	// ExtractAudio produces a mono 16kHz WAV suitable for transcription.
	ExtractAudio(ctx context.Context, source, dest string) error
	// DetectScenes returns scene-change timestamps in seconds.
	DetectScenes(ctx context.Context, source string) ([]float64, error)
	// DetectSilence returns silence intervals of at least minDuration seconds.
	DetectSilence(ctx context.Context, source string, minDuration float64) ([]Interval, error)
	// DetectBlackFrames returns black intervals of at least minDuration seconds.
	DetectBlackFrames(ctx context.Context, source string, minDuration float64) ([]Interval, error)
	// MeasureAudio reports peak and mean levels of the first audio track.
	MeasureAudio(ctx context.Context, source string) (AudioStats, error)
}
