// Package ffprobe wraps the ffprobe binary for container and stream
// inspection. The toolchain uses it for source probing and QA re-probing.
package ffprobe
