// Package services holds cross-cutting helpers shared by the external
// collaborators (media toolchain, transcription, LLM, asset generation):
// the sentinel error taxonomy used to classify stage failures and the
// context annotation helpers used for structured logging correlation.
package services
