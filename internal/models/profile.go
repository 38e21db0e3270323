package models

import (
	"fmt"
	"strings"

	"roleflow/internal/errors"
)

// PromptMode selects how the resolved prompt is delivered to the runner.
type PromptMode string

const (
	// PromptModeStdin feeds the prompt on the runner's standard input.
	PromptModeStdin PromptMode = "stdin"
	// PromptModeArg passes the prompt as a flag argument on the command line.
	PromptModeArg PromptMode = "arg"
)

// DefaultPromptFlag precedes the prompt argument when PromptMode is "arg".
const DefaultPromptFlag = "--prompt"

// Profile is a named binding describing how to invoke an external
// command-line runner.
type Profile struct {
	Command    string     `json:"command" yaml:"command"`
	Args       []string   `json:"args,omitempty" yaml:"args,omitempty"`
	PromptMode PromptMode `json:"prompt_mode" yaml:"prompt_mode"`
	PromptFlag string     `json:"prompt_flag,omitempty" yaml:"prompt_flag,omitempty"`

	Name string `json:"-" yaml:"-"` // Registry key, set on load
}

// Normalize trims fields, applies defaults, and validates the profile.
func (p *Profile) Normalize(name string) error {
	p.Name = strings.TrimSpace(name)
	p.Command = strings.TrimSpace(p.Command)
	if p.Command == "" {
		return errors.ValidationError(fmt.Sprintf("profile `%s` has empty command", p.Name))
	}

	mode := PromptMode(strings.TrimSpace(string(p.PromptMode)))
	if mode == "" {
		mode = PromptModeStdin
	}
	if mode != PromptModeStdin && mode != PromptModeArg {
		return errors.ValidationError(
			fmt.Sprintf("profile `%s` prompt_mode must be `stdin` or `arg`", p.Name))
	}
	p.PromptMode = mode

	p.PromptFlag = strings.TrimSpace(p.PromptFlag)
	if p.PromptFlag == "" {
		p.PromptFlag = DefaultPromptFlag
	}

	return nil
}
