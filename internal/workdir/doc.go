// Package workdir owns the deterministic on-disk layout of a pipeline run.
// The working directory is both scratch space and the durable resume
// checkpoint; deleting it destroys resumability. A flock-based lock enforces
// one run per directory at a time.
package workdir
