package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Transcript source markers.
const (
	SourceCaptions = "captions"
	SourceSpeech   = "speech"
)

// Transcript is the acquired transcript with its provenance.
type Transcript struct {
	Text   string `json:"text"`
	Cues   []Cue  `json:"cues,omitempty"`
	Source string `json:"source"`
	Path   string `json:"path,omitempty"`
}

// CaptionFetcher retrieves platform captions. Satisfied by the media
// toolchain.
type CaptionFetcher interface {
	FetchCaptions(ctx context.Context, locator, lang, destDir string) (string, error)
}

// AudioExtractor produces a transcription-ready WAV. Satisfied by the media
// toolchain.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, source, dest string) error
}

// AcquireRequest describes one transcript acquisition.
type AcquireRequest struct {
	// Locator is the original source locator (URL or path) used for caption
	// retrieval.
	Locator string
	// VideoPath is the downloaded local video used for audio extraction.
	VideoPath string
	// CaptionDir receives fetched caption files.
	CaptionDir string
	// WorkDir receives the extracted WAV and WhisperX output.
	WorkDir string
	// Language is the expected content language (BCP-47 or ISO code).
	Language string
}

// Acquire obtains a transcript, preferring creator captions and falling back
// to speech-to-text. The returned warnings record any degraded path taken.
func (s *Service) Acquire(ctx context.Context, captions CaptionFetcher, audio AudioExtractor, req AcquireRequest) (Transcript, []string, error) {
	var warnings []string

	if req.Locator != "" && captions != nil {
		captionPath, err := captions.FetchCaptions(ctx, req.Locator, req.Language, req.CaptionDir)
		if err == nil && captionPath != "" {
			cues, parseErr := LoadSRT(captionPath)
			if parseErr == nil && len(cues) > 0 {
				return Transcript{
					Text:   JoinText(cues),
					Cues:   cues,
					Source: SourceCaptions,
					Path:   captionPath,
				}, warnings, nil
			}
			if parseErr != nil {
				warnings = append(warnings, fmt.Sprintf("captions at %s unreadable, falling back to speech-to-text: %v", captionPath, parseErr))
			} else {
				warnings = append(warnings, fmt.Sprintf("captions at %s empty, falling back to speech-to-text", captionPath))
			}
		} else if err != nil {
			warnings = append(warnings, fmt.Sprintf("caption fetch failed, falling back to speech-to-text: %v", err))
		} else {
			warnings = append(warnings, "no captions published for source, falling back to speech-to-text")
		}
	}

	if req.VideoPath == "" {
		return Transcript{}, warnings, fmt.Errorf("transcribe: no captions and no local video to transcribe")
	}
	if audio == nil {
		return Transcript{}, warnings, fmt.Errorf("transcribe: no audio extractor available")
	}

	wavPath := filepath.Join(req.WorkDir, audioBaseName(req.VideoPath)+".wav")
	if err := audio.ExtractAudio(ctx, req.VideoPath, wavPath); err != nil {
		return Transcript{}, warnings, fmt.Errorf("transcribe: extract audio: %w", err)
	}

	result, err := s.TranscribeFile(ctx, wavPath, req.WorkDir, req.Language)
	if err != nil {
		return Transcript{}, warnings, err
	}

	transcript := Transcript{
		Text:   result.Text,
		Source: SourceSpeech,
		Path:   result.JSONPath,
	}
	if segments, err := LoadSegments(result.JSONPath); err == nil {
		for i, seg := range segments {
			if text := strings.TrimSpace(seg.Text); text != "" {
				transcript.Cues = append(transcript.Cues, Cue{
					Index: i + 1,
					Start: seg.Start,
					End:   seg.End,
					Text:  text,
				})
			}
		}
	}
	return transcript, warnings, nil
}

func audioBaseName(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
