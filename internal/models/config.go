package models

import (
	"fmt"

	"roleflow/internal/errors"
)

// Template storage formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultProfileName is the profile created by `roleflow init` and the
// target of legacy single-runner config migration.
const DefaultProfileName = "default"

// Config is the process-wide configuration: the profile registry backing
// store, the default profile pointer, and the preferred template format.
type Config struct {
	DefaultProfile string              `json:"default_profile,omitempty"`
	DefaultFormat  string              `json:"default_format,omitempty"`
	Profiles       map[string]*Profile `json:"profiles"`

	// Runner is the legacy single-runner form; migrated to Profiles on load.
	Runner *Profile `json:"runner,omitempty"`
}

// Normalize migrates legacy configs, applies defaults, and validates the
// invariant that DefaultProfile, when set, names an existing profile.
func (c *Config) Normalize() error {
	if c.Profiles == nil && c.Runner != nil {
		c.Profiles = map[string]*Profile{DefaultProfileName: c.Runner}
		c.DefaultProfile = DefaultProfileName
		c.Runner = nil
	}
	if c.Profiles == nil {
		c.Profiles = map[string]*Profile{}
	}

	for name, profile := range c.Profiles {
		if profile == nil {
			return errors.ValidationError(fmt.Sprintf("profile `%s` must be an object", name))
		}
		if err := profile.Normalize(name); err != nil {
			return err
		}
	}

	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return errors.ValidationError(
				fmt.Sprintf("config default_profile `%s` was not found in profiles", c.DefaultProfile))
		}
	}

	if c.DefaultFormat == "" {
		c.DefaultFormat = FormatJSON
	}
	if c.DefaultFormat != FormatJSON && c.DefaultFormat != FormatYAML {
		return errors.ValidationError("config default_format must be `json` or `yaml`")
	}

	return nil
}

// DefaultConfig returns the configuration written by `roleflow init`: a
// single stdin-mode `codex` profile marked as the default.
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile: DefaultProfileName,
		DefaultFormat:  FormatJSON,
		Profiles: map[string]*Profile{
			DefaultProfileName: {
				Name:       DefaultProfileName,
				Command:    "codex",
				PromptMode: PromptModeStdin,
				PromptFlag: DefaultPromptFlag,
			},
		},
	}
}
