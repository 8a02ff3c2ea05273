// Package language provides language code normalization shared by the
// ingest, transcription, and packaging paths.
package language
