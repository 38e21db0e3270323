// Package runner builds runner command lines and executes them as
// subprocesses.
package runner

import (
	"strings"

	"roleflow/internal/models"
)

// BuildArgv turns a resolved profile and final prompt into the argument
// vector and stdin payload for execution. In arg mode the prompt rides on
// the command line after the profile's prompt flag; in stdin mode it is
// delivered on standard input.
func BuildArgv(profile *models.Profile, prompt string) ([]string, string) {
	argv := make([]string, 0, len(profile.Args)+3)
	argv = append(argv, profile.Command)
	argv = append(argv, profile.Args...)

	if profile.PromptMode == models.PromptModeArg {
		argv = append(argv, profile.PromptFlag, prompt)
		return argv, ""
	}
	return argv, prompt
}

// CommandLine renders argv as a single shell-quoted line for display
// (--print-command). Formatting is cosmetic only and never alters the
// argv used for execution.
func CommandLine(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// shellQuote quotes a single argument for POSIX shells. Safe arguments
// pass through unchanged; everything else is single-quoted with embedded
// single quotes escaped as '\''.
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n\"'\\$&|;<>()*?[]#~%{}!`") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
