// Command remake is the CLI entry point for the video remake pipeline. It
// wires configuration, the media toolchain, and the stage handlers into the
// coordinator, and exposes run management and diagnostics subcommands.
package main
