// Package recipe defines the declarative, versioned edit description the
// Plan stage emits and the Execute stage realizes. The recipe is the single
// source of truth for the edit and is serialized to disk in two equivalent
// forms (JSON and YAML) for auditability.
package recipe
