// Package cli constructs the gitanon command-line interface, wiring the Cobra
// command hierarchy, the configuration loader and structured logging.
package cli
