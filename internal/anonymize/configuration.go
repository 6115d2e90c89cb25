package anonymize

import (
	"strings"

	"github.com/temirov/gitanon/internal/gitstore"
	"github.com/temirov/gitanon/internal/history"
)

const configurationKeySeparatorConstant = "."

// IdentityConfiguration captures the anonymous identity written into rewritten commits.
type IdentityConfiguration struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// CommandConfiguration captures configuration values for the anonymize command.
type CommandConfiguration struct {
	Identity         IdentityConfiguration `mapstructure:"identity"`
	ResetBackend     string                `mapstructure:"reset_backend"`
	Discover         bool                  `mapstructure:"discover"`
	DryRun           bool                  `mapstructure:"dry_run"`
	RequireClean     bool                  `mapstructure:"require_clean"`
	ReportPath       string                `mapstructure:"report"`
	ShowIdentityDiff bool                  `mapstructure:"show_identity_diff"`
	RepositoryRoots  []string              `mapstructure:"roots"`
}

// DefaultCommandConfiguration provides baseline configuration values for anonymization.
func DefaultCommandConfiguration() CommandConfiguration {
	defaultIdentity := history.DefaultIdentity()
	return CommandConfiguration{
		Identity:     IdentityConfiguration{Name: defaultIdentity.Name, Email: defaultIdentity.Email},
		ResetBackend: string(gitstore.ResetBackendNative),
	}
}

// DefaultConfigurationValues returns the default configuration entries keyed under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	keyPrefix := strings.TrimSuffix(prefix, configurationKeySeparatorConstant) + configurationKeySeparatorConstant
	return map[string]any{
		keyPrefix + "identity.name":      defaults.Identity.Name,
		keyPrefix + "identity.email":     defaults.Identity.Email,
		keyPrefix + "reset_backend":      defaults.ResetBackend,
		keyPrefix + "discover":           defaults.Discover,
		keyPrefix + "dry_run":            defaults.DryRun,
		keyPrefix + "require_clean":      defaults.RequireClean,
		keyPrefix + "report":             defaults.ReportPath,
		keyPrefix + "show_identity_diff": defaults.ShowIdentityDiff,
		keyPrefix + "roots":              []string{},
	}
}

// Sanitize trims configuration values and restores defaults for blank identity fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	identity := configuration.IdentityValue()
	sanitized.Identity = IdentityConfiguration{Name: identity.Name, Email: identity.Email}
	sanitized.ResetBackend = string(gitstore.ResetBackend(configuration.ResetBackend).Sanitize())
	sanitized.ReportPath = strings.TrimSpace(configuration.ReportPath)
	sanitized.RepositoryRoots = sanitizeRoots(configuration.RepositoryRoots)

	return sanitized
}

// IdentityValue converts the configured identity into a history.Identity.
func (configuration CommandConfiguration) IdentityValue() history.Identity {
	return history.Identity{Name: configuration.Identity.Name, Email: configuration.Identity.Email}.Sanitize()
}

func sanitizeRoots(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
