package models

import (
	"fmt"
	"strings"

	"roleflow/internal/errors"
)

// Scope classifies a template as reusable or tied to one subject.
type Scope string

const (
	ScopeGeneral  Scope = "general"
	ScopeSpecific Scope = "specific"
)

// DefaultRepeatEvery is the cadence interval used when a template declares
// repeat_for without repeat_every.
const DefaultRepeatEvery = "10m"

// Template represents a named, reusable role definition: a prompt preamble
// and body that may contain {{variable}} placeholders, plus scope metadata
// and an optional runner profile binding.
type Template struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	Role         string `json:"role" yaml:"role"`
	Instructions string `json:"instructions" yaml:"instructions"`
	Scope        Scope  `json:"scope,omitempty" yaml:"scope,omitempty"`
	SpecificTo   string `json:"specific_to,omitempty" yaml:"specific_to,omitempty"`

	// Profile is a weak name reference into the profile registry. It is
	// re-resolved at run time, never stored as a handle.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`

	// Optional cadence: rerun the template every RepeatEvery for RepeatFor.
	RepeatFor   string `json:"repeat_for,omitempty" yaml:"repeat_for,omitempty"`
	RepeatEvery string `json:"repeat_every,omitempty" yaml:"repeat_every,omitempty"`

	FilePath string `json:"-" yaml:"-"` // Path to the backing file
}

// Normalize trims all fields, applies defaults, and validates the template
// invariants. fallbackName fills an absent name (the file stem).
func (t *Template) Normalize(fallbackName string) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		if fallbackName == "" {
			return errors.ValidationError("template is missing required field: name")
		}
		t.Name = fallbackName
	}

	t.Description = strings.TrimSpace(t.Description)
	t.Role = strings.TrimSpace(t.Role)
	t.Instructions = strings.TrimSpace(t.Instructions)
	required := []struct{ field, value string }{
		{"description", t.Description},
		{"role", t.Role},
		{"instructions", t.Instructions},
	}
	for _, f := range required {
		if f.value == "" {
			return errors.ValidationError(fmt.Sprintf("template field `%s` cannot be empty", f.field))
		}
	}

	t.Profile = strings.TrimSpace(t.Profile)

	scope := Scope(strings.ToLower(strings.TrimSpace(string(t.Scope))))
	if scope == "" {
		scope = ScopeGeneral
	}
	if scope != ScopeGeneral && scope != ScopeSpecific {
		return errors.ValidationError("template scope must be `general` or `specific`")
	}
	t.Scope = scope

	t.SpecificTo = strings.TrimSpace(t.SpecificTo)
	if t.Scope == ScopeSpecific && t.SpecificTo == "" {
		return errors.ValidationError("template scope is `specific` but `specific_to` is missing")
	}
	if t.Scope == ScopeGeneral {
		t.SpecificTo = ""
	}

	t.RepeatFor = strings.TrimSpace(t.RepeatFor)
	t.RepeatEvery = strings.TrimSpace(t.RepeatEvery)
	if t.RepeatFor != "" {
		if _, err := ParseCadenceDuration(t.RepeatFor, "repeat_for"); err != nil {
			return err
		}
	}
	if t.RepeatEvery != "" {
		if _, err := ParseCadenceDuration(t.RepeatEvery, "repeat_every"); err != nil {
			return err
		}
	}
	if t.RepeatEvery != "" && t.RepeatFor == "" {
		return errors.ValidationError("template has `repeat_every` but `repeat_for` is missing")
	}

	return nil
}

// ScopeText renders the scope for display, e.g. "general" or
// "specific:payments-api".
func (t *Template) ScopeText() string {
	if t.Scope == ScopeSpecific {
		return fmt.Sprintf("specific:%s", t.SpecificTo)
	}
	return string(ScopeGeneral)
}

// CadenceText renders the repeat cadence for display, e.g. "once" or
// "repeat:2h/10m".
func (t *Template) CadenceText() string {
	if t.RepeatFor == "" {
		return "once"
	}
	every := t.RepeatEvery
	if every == "" {
		every = DefaultRepeatEvery
	}
	return fmt.Sprintf("repeat:%s/%s", t.RepeatFor, every)
}
