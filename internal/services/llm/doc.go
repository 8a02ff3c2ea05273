// Package llm wraps the OpenRouter-compatible chat completion API used for
// content analysis, remake planning, and narration scripting. Every call
// demands JSON output and decodes it defensively, since models wrap payloads
// in prose or code fences more often than they should.
package llm
