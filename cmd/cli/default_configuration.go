package cli

import _ "embed"

// defaultConfigurationContent holds gitanon's built-in settings: log level and format under
// common, and the anonymous identity, reset backend and run toggles under tools.anonymize.
//
//go:embed default_config.yaml
var defaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of gitanon's built-in configuration and its format,
// which the configuration loader merges before any file or GITANON_* environment override.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte(nil), defaultConfigurationContent...), configurationTypeConstant
}
