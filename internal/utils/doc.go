// Package utils houses the configuration loader, logger factory and command
// context helpers shared by the CLI entrypoint and its commands.
package utils
