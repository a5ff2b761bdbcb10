// Package cli implements the streamwatch command-line interface.
//
// Each Cobra command loads and validates the config, applies its flag
// overrides, and hands off to the package that does the work:
//
//	streamwatch watch       - Live dashboard (internal/dashboard)
//	streamwatch render      - Headless chart to stdout or a file
//	streamwatch simulate    - Development producer (internal/simulator)
//	streamwatch init        - Create .streamwatch.yaml
//	streamwatch version     - Build information
//	streamwatch completion  - Shell completion scripts
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color, --log-file) are defined on
// the root command. --host and --port on watch and render override the
// stream section of the config for one run. --redis and --sqlite on
// simulate pick where the producer keeps its history.
//
// # Output
//
// Errors from internal packages are structured (internal/errors) and print
// their own suggestion. Execute writes them to stderr and exits 1. While the
// dashboard owns the terminal, the standard logger is pointed at --log-file
// or discarded.
package cli
