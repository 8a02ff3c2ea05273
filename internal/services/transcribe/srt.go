package transcribe

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Cue is one timed subtitle entry.
type Cue struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var srtTimingPattern = regexp.MustCompile(
	`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`,
)

// ParseSRT reads SubRip cues. Malformed blocks are skipped rather than
// failing the whole file, since auto-generated captions are frequently
// sloppy.
func ParseSRT(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []Cue
	var current *Cue
	var textLines []string

	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(textLines, " "))
			if current.Text != "" && current.End > current.Start {
				cues = append(cues, *current)
			}
		}
		current = nil
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "\ufeff")
		if line == "" {
			flush()
			continue
		}
		if match := srtTimingPattern.FindStringSubmatch(line); match != nil {
			flush()
			current = &Cue{
				Index: len(cues) + 1,
				Start: timestampSeconds(match[1], match[2], match[3], match[4]),
				End:   timestampSeconds(match[5], match[6], match[7], match[8]),
			}
			continue
		}
		if current == nil {
			// Numeric counter line before the timing row, or stray header.
			continue
		}
		textLines = append(textLines, stripMarkup(line))
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transcribe: scan srt: %w", err)
	}
	return cues, nil
}

// LoadSRT parses cues from a subtitle file on disk.
func LoadSRT(path string) ([]Cue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: open srt: %w", err)
	}
	defer file.Close()
	return ParseSRT(file)
}

// WriteSRT renders cues back to SubRip format, re-indexing from 1.
func WriteSRT(w io.Writer, cues []Cue) error {
	for i, cue := range cues {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(cue.Start),
			FormatTimestamp(cue.End),
			strings.TrimSpace(cue.Text),
		)
		if err != nil {
			return fmt.Errorf("transcribe: write srt: %w", err)
		}
	}
	return nil
}

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	hours := millis / 3600000
	millis -= hours * 3600000
	minutes := millis / 60000
	millis -= minutes * 60000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// JoinText concatenates cue text into a plain transcript.
func JoinText(cues []Cue) string {
	parts := make([]string, 0, len(cues))
	for _, cue := range cues {
		if text := strings.TrimSpace(cue.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func timestampSeconds(hh, mm, ss, frac string) float64 {
	hours, _ := strconv.Atoi(hh)
	minutes, _ := strconv.Atoi(mm)
	seconds, _ := strconv.Atoi(ss)
	for len(frac) < 3 {
		frac += "0"
	}
	millis, _ := strconv.Atoi(frac[:3])
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000
}

var markupPattern = regexp.MustCompile(`<[^>]+>|\{[^}]+\}`)

func stripMarkup(line string) string {
	return strings.TrimSpace(markupPattern.ReplaceAllString(line, ""))
}
