// Package transcribe acquires a timed transcript for a source video. Creator
// captions are preferred when the platform provides them; otherwise the audio
// track is extracted and run through WhisperX under uvx as a speech-to-text
// fallback.
package transcribe
