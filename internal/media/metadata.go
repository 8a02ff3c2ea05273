package media

import (
	"fmt"
	"strings"
)

// VideoMetadata captures the probed properties of the source artifact. It is
// created once by the Ingest stage and read-only afterwards.
type VideoMetadata struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
	Codec           string  `json:"codec"`
	SizeBytes       int64   `json:"size_bytes"`
	HasCaptions     bool    `json:"has_captions"`
	CaptionLanguage string  `json:"caption_language,omitempty"`
}

// Resolution renders the WxH form used in logs and the metadata document.
func (m VideoMetadata) Resolution() string {
	if m.Width <= 0 || m.Height <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Validate reports whether the metadata is complete enough for planning.
func (m VideoMetadata) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("metadata: missing source id")
	}
	if m.DurationSeconds <= 0 {
		return fmt.Errorf("metadata: non-positive duration %.2f", m.DurationSeconds)
	}
	return nil
}
