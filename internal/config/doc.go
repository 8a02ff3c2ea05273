// Package config loads and validates the remake pipeline configuration.
//
// Configuration is TOML, resolved from an explicit --config path, then
// ~/.config/remake/config.toml, then a project-local remake.toml. Defaults
// cover every field so the tool runs without a config file as long as the
// LLM key is supplied via environment.
package config
