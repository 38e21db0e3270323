// Package registry provides the in-memory view of named runner profiles
// and the precedence rules for selecting one at run time.
package registry

import (
	"sort"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

// Registry wraps a Config's profile map with lookup and mutation helpers.
// All references are by name and re-resolved at use time, so a deleted or
// renamed profile surfaces as ProfileNotFound at next use rather than a
// dangling handle.
type Registry struct {
	config *models.Config
}

// New creates a registry over the given config.
func New(config *models.Config) *Registry {
	return &Registry{config: config}
}

// Resolve selects a profile by precedence: the explicit run-time override,
// then the template-bound name, then the configured default. A selected
// name that does not exist yields ProfileNotFound; no name at any tier
// yields NoProfileConfigured.
func (r *Registry) Resolve(explicit, templateBound string) (*models.Profile, error) {
	name := explicit
	if name == "" {
		name = templateBound
	}
	if name == "" {
		name = r.config.DefaultProfile
	}
	if name == "" {
		return nil, errors.NoProfileConfigured()
	}
	return r.Get(name)
}

// Get looks up a profile by name.
func (r *Registry) Get(name string) (*models.Profile, error) {
	profile, ok := r.config.Profiles[name]
	if !ok {
		return nil, errors.ProfileNotFound(name)
	}
	return profile, nil
}

// Add inserts or replaces a profile after validation. The first profile
// added to an empty registry becomes the default.
func (r *Registry) Add(name string, profile *models.Profile) error {
	if err := profile.Normalize(name); err != nil {
		return err
	}
	wasEmpty := len(r.config.Profiles) == 0
	r.config.Profiles[name] = profile
	if wasEmpty && r.config.DefaultProfile == "" {
		r.config.DefaultProfile = name
	}
	return nil
}

// Remove deletes a profile. Removing the current default clears the
// default pointer rather than leaving a dangling reference.
func (r *Registry) Remove(name string) error {
	if _, ok := r.config.Profiles[name]; !ok {
		return errors.ProfileNotFound(name)
	}
	delete(r.config.Profiles, name)
	if r.config.DefaultProfile == name {
		r.config.DefaultProfile = ""
	}
	return nil
}

// SetDefault marks an existing profile as the process-wide default.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.config.Profiles[name]; !ok {
		return errors.ProfileNotFound(name)
	}
	r.config.DefaultProfile = name
	return nil
}

// DefaultName returns the configured default profile name, empty if unset.
func (r *Registry) DefaultName() string {
	return r.config.DefaultProfile
}

// Names returns all profile names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.config.Profiles))
	for name := range r.config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
