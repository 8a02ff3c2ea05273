// Package media defines the artifact types shared across pipeline stages:
// probed source metadata and the segment timeline produced by decomposition.
package media
