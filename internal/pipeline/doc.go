// Package pipeline defines the staged remake workflow and the coordinator
// that drives it. Stages are a closed, ordered set; each one reads the shared
// run state, does its work through injected services, and records artifacts
// before the state is checkpointed to disk. A run can be resumed from its
// last incomplete stage after a crash or a deliberate stop.
package pipeline
