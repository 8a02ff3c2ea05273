package toolchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"remake/internal/media"
	"remake/internal/media/ffprobe"
)

// Binaries names the external commands the toolchain shells out to.
type Binaries struct {
	FFmpeg     string
	FFprobe    string
	Downloader string
}

// Runner executes one external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpegToolchain implements Toolchain on top of ffmpeg, ffprobe, and a
// yt-dlp compatible downloader.
type FFmpegToolchain struct {
	bins   Binaries
	log    *CommandLog
	runner Runner
}

// New constructs a toolchain using the given binaries and command log.
func New(bins Binaries, log *CommandLog) *FFmpegToolchain {
	if bins.FFmpeg == "" {
		bins.FFmpeg = "ffmpeg"
	}
	if bins.FFprobe == "" {
		bins.FFprobe = "ffprobe"
	}
	if bins.Downloader == "" {
		bins.Downloader = "yt-dlp"
	}
	return &FFmpegToolchain{bins: bins, log: log}
}

// WithRunner overrides command execution (used in tests).
func (t *FFmpegToolchain) WithRunner(runner Runner) *FFmpegToolchain {
	t.runner = runner
	return t
}

func (t *FFmpegToolchain) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	t.log.Record(name, args)
	if t.runner != nil {
		return t.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, trimOutput(output))
	}
	return output, nil
}

func trimOutput(output []byte) string {
	text := strings.TrimSpace(string(output))
	const limit = 400
	if len(text) > limit {
		text = "..." + text[len(text)-limit:]
	}
	return text
}

// ResolveID implements Toolchain.
func (t *FFmpegToolchain) ResolveID(locator string) (string, error) {
	return ResolveSourceID(locator)
}

type downloaderInfo struct {
	ID                string                       `json:"id"`
	Title             string                       `json:"title"`
	Duration          float64                      `json:"duration"`
	Width             int                          `json:"width"`
	Height            int                          `json:"height"`
	FPS               float64                      `json:"fps"`
	VCodec            string                       `json:"vcodec"`
	FilesizeApprox    int64                        `json:"filesize_approx"`
	Language          string                       `json:"language"`
	Subtitles         map[string][]json.RawMessage `json:"subtitles"`
	AutomaticCaptions map[string][]json.RawMessage `json:"automatic_captions"`
}

// FetchMetadata implements Toolchain. Local files are probed directly; remote
// locators are described by the downloader without fetching media.
func (t *FFmpegToolchain) FetchMetadata(ctx context.Context, locator string) (media.VideoMetadata, error) {
	if IsLocalFile(locator) {
		meta, err := t.Probe(ctx, locator)
		if err != nil {
			return media.VideoMetadata{}, err
		}
		id, err := ResolveSourceID(locator)
		if err != nil {
			return media.VideoMetadata{}, err
		}
		meta.ID = id
		meta.Title = id
		return meta, nil
	}

	output, err := t.run(ctx, t.bins.Downloader, "--dump-single-json", "--no-download", "--", locator)
	if err != nil {
		return media.VideoMetadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	var info downloaderInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return media.VideoMetadata{}, fmt.Errorf("fetch metadata: parse downloader json: %w", err)
	}

	meta := media.VideoMetadata{
		ID:              info.ID,
		Title:           strings.TrimSpace(info.Title),
		DurationSeconds: info.Duration,
		Width:           info.Width,
		Height:          info.Height,
		FrameRate:       info.FPS,
		Codec:           strings.TrimSpace(info.VCodec),
		SizeBytes:       info.FilesizeApprox,
	}
	if lang, ok := firstCaptionLanguage(info.Subtitles); ok {
		meta.HasCaptions = true
		meta.CaptionLanguage = lang
	} else if lang, ok := firstCaptionLanguage(info.AutomaticCaptions); ok {
		meta.HasCaptions = true
		meta.CaptionLanguage = lang
	}
	return meta, nil
}

func firstCaptionLanguage(tracks map[string][]json.RawMessage) (string, bool) {
	if len(tracks) == 0 {
		return "", false
	}
	langs := make([]string, 0, len(tracks))
	for lang := range tracks {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs[0], true
}

// Probe implements Toolchain for local files.
func (t *FFmpegToolchain) Probe(ctx context.Context, path string) (media.VideoMetadata, error) {
	t.log.Record(t.bins.FFprobe, []string{"-show_format", "-show_streams", path})
	result, err := t.probeResult(ctx, path)
	if err != nil {
		return media.VideoMetadata{}, err
	}
	meta := media.VideoMetadata{
		DurationSeconds: result.DurationSeconds(),
		SizeBytes:       result.SizeBytes(),
		FrameRate:       result.FrameRate(),
	}
	if stream, ok := result.VideoStream(); ok {
		meta.Width = stream.Width
		meta.Height = stream.Height
		meta.Codec = stream.CodecName
	}
	return meta, nil
}

func (t *FFmpegToolchain) probeResult(ctx context.Context, path string) (ffprobe.Result, error) {
	if t.runner != nil {
		output, err := t.runner(ctx, t.bins.FFprobe, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
		if err != nil {
			return ffprobe.Result{}, err
		}
		return ffprobe.Parse(output)
	}
	return ffprobe.Inspect(ctx, t.bins.FFprobe, path)
}

// Download implements Toolchain. Local sources are copied into destDir so the
// working directory stays self-contained.
func (t *FFmpegToolchain) Download(ctx context.Context, locator, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("download: ensure dest dir: %w", err)
	}

	if IsLocalFile(locator) {
		dest := filepath.Join(destDir, "source"+filepath.Ext(locator))
		if err := copyFile(locator, dest); err != nil {
			return "", fmt.Errorf("download: copy local source: %w", err)
		}
		return dest, nil
	}

	template := filepath.Join(destDir, "source.%(ext)s")
	args := []string{
		"--no-playlist",
		"--merge-output-format", "mp4",
		"-o", template,
		"--", locator,
	}
	if _, err := t.run(ctx, t.bins.Downloader, args...); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(destDir, "source.*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("download: no artifact produced in %s", destDir)
	}
	sort.Strings(matches)
	for _, match := range matches {
		switch strings.ToLower(filepath.Ext(match)) {
		case ".mp4", ".mkv", ".webm", ".mov":
			return match, nil
		}
	}
	return matches[0], nil
}

// FetchCaptions implements Toolchain.
func (t *FFmpegToolchain) FetchCaptions(ctx context.Context, locator, lang, destDir string) (string, error) {
	if IsLocalFile(locator) {
		return "", fmt.Errorf("fetch captions: local source has no caption track")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("fetch captions: ensure dest dir: %w", err)
	}
	subLang := strings.TrimSpace(lang)
	if subLang == "" {
		subLang = "en"
	}
	template := filepath.Join(destDir, "captions.%(ext)s")
	args := []string{
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", subLang,
		"--convert-subs", "srt",
		"-o", template,
		"--", locator,
	}
	if _, err := t.run(ctx, t.bins.Downloader, args...); err != nil {
		return "", fmt.Errorf("fetch captions: %w", err)
	}
	matches, _ := filepath.Glob(filepath.Join(destDir, "captions*.srt"))
	if len(matches) == 0 {
		return "", fmt.Errorf("fetch captions: no caption file produced for language %s", subLang)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Cut implements Toolchain.
func (t *FFmpegToolchain) Cut(ctx context.Context, source string, start, end, speed float64, dest string) error {
	if end <= start {
		return fmt.Errorf("cut: end %.3f not after start %.3f", end, start)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", source,
	}
	if speed > 0 && speed != 1 {
		filter := fmt.Sprintf("[0:v]setpts=PTS/%.4f[v];[0:a]atempo=%.4f[a]", speed, speed)
		args = append(args, "-filter_complex", filter, "-map", "[v]", "-map", "[a]")
	} else {
		args = append(args, "-c:v", "libx264", "-c:a", "aac")
	}
	args = append(args, dest)
	_, err := t.run(ctx, t.bins.FFmpeg, args...)
	return err
}

// Concat implements Toolchain using the concat demuxer.
func (t *FFmpegToolchain) Concat(ctx context.Context, clips []string, dest string) error {
	if len(clips) == 0 {
		return fmt.Errorf("concat: no clips")
	}
	listPath := dest + ".clips.txt"
	var builder strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&builder, "file '%s'\n", strings.ReplaceAll(clip, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("concat: write list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dest,
	}
	_, err := t.run(ctx, t.bins.FFmpeg, args...)
	return err
}

// NormalizeLoudness implements Toolchain using the EBU R128 loudnorm filter.
func (t *FFmpegToolchain) NormalizeLoudness(ctx context.Context, source, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-c:v", "copy",
		dest,
	}
	_, err := t.run(ctx, t.bins.FFmpeg, args...)
	return err
}

// BurnSubtitles implements Toolchain.
func (t *FFmpegToolchain) BurnSubtitles(ctx context.Context, source, subtitlePath, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-vf", fmt.Sprintf("subtitles=%s", escapeFilterPath(subtitlePath)),
		"-c:a", "copy",
		dest,
	}
	_, err := t.run(ctx, t.bins.FFmpeg, args...)
	return err
}

// ExtractFrame implements Toolchain.
func (t *FFmpegToolchain) ExtractFrame(ctx context.Context, source string, at float64, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(at),
		"-i", source,
		"-frames:v", "1",
		"-q:v", "2",
		dest,
	}
	_, err := t.run(ctx, t.bins.FFmpeg, args...)
	return err
}

// ExtractAudio implements Toolchain.
func (t *FFmpegToolchain) ExtractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		dest,
	}
	_, err := t.run(ctx, t.bins.FFmpeg, args...)
	return err
}

// DetectScenes implements Toolchain. Scene changes are reported by the
// showinfo filter on frames selected above the scene-score threshold.
func (t *FFmpegToolchain) DetectScenes(ctx context.Context, source string) ([]float64, error) {
	args := []string{
		"-hide_banner",
		"-i", source,
		"-vf", "select='gt(scene,0.4)',showinfo",
		"-f", "null", "-",
	}
	output, err := t.run(ctx, t.bins.FFmpeg, args...)
	if err != nil {
		return nil, err
	}
	return parseShowinfoTimestamps(string(output)), nil
}

// DetectSilence implements Toolchain via the silencedetect filter.
func (t *FFmpegToolchain) DetectSilence(ctx context.Context, source string, minDuration float64) ([]Interval, error) {
	args := []string{
		"-hide_banner",
		"-i", source,
		"-af", fmt.Sprintf("silencedetect=noise=-30dB:d=%s", formatSeconds(minDuration)),
		"-f", "null", "-",
	}
	output, err := t.run(ctx, t.bins.FFmpeg, args...)
	if err != nil {
		return nil, err
	}
	return parseSilenceIntervals(string(output)), nil
}

// DetectBlackFrames implements Toolchain via the blackdetect filter.
func (t *FFmpegToolchain) DetectBlackFrames(ctx context.Context, source string, minDuration float64) ([]Interval, error) {
	args := []string{
		"-hide_banner",
		"-i", source,
		"-vf", fmt.Sprintf("blackdetect=d=%s:pix_th=0.10", formatSeconds(minDuration)),
		"-f", "null", "-",
	}
	output, err := t.run(ctx, t.bins.FFmpeg, args...)
	if err != nil {
		return nil, err
	}
	return parseBlackIntervals(string(output)), nil
}

// MeasureAudio implements Toolchain via the volumedetect filter.
func (t *FFmpegToolchain) MeasureAudio(ctx context.Context, source string) (AudioStats, error) {
	probe, err := t.probeResult(ctx, source)
	if err != nil {
		return AudioStats{}, err
	}
	if probe.AudioStreamCount() == 0 {
		return AudioStats{HasAudio: false}, nil
	}

	args := []string{
		"-hide_banner",
		"-i", source,
		"-af", "volumedetect",
		"-f", "null", "-",
	}
	output, err := t.run(ctx, t.bins.FFmpeg, args...)
	if err != nil {
		return AudioStats{}, err
	}
	stats := parseVolumeStats(string(output))
	stats.HasAudio = true
	return stats, nil
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.3f", value)
}

func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	return replacer.Replace(path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
