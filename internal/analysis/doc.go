// Package analysis holds the semantic understanding artifacts: the
// LLM-assisted content analysis and the purely computed style fingerprint.
package analysis
