// Package toolchain abstracts the external media binaries (ffmpeg, ffprobe,
// yt-dlp) behind a narrow interface so pipeline stages stay testable without
// spawning real processes. Every invocation is appended to the run's command
// log for postmortem auditability.
package toolchain
