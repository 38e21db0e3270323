// Package renderer substitutes {{variable}} placeholders and compiles role
// templates into final prompts.
package renderer

import (
	"regexp"
	"sort"
	"strings"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

// varPattern matches {{identifier}} placeholders. Whitespace inside the
// braces is tolerated; identifiers allow dots and hyphens after the first
// character. Anything else, including an unmatched "{{", passes through
// verbatim.
var varPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.-]*)\s*\}\}`)

// Resolve substitutes placeholders in text using vars. A substituted value
// is never re-scanned for further tokens. Missing identifiers are left
// verbatim and collected in the returned set.
func Resolve(text string, vars map[string]string) (string, []string) {
	seen := make(map[string]bool)
	out := varPattern.ReplaceAllStringFunc(text, func(token string) string {
		key := varPattern.FindStringSubmatch(token)[1]
		if value, ok := vars[key]; ok {
			return value
		}
		seen[key] = true
		return token
	})

	missing := make([]string, 0, len(seen))
	for key := range seen {
		missing = append(missing, key)
	}
	sort.Strings(missing)
	return out, missing
}

// ResolveStrict is Resolve with the strict-vars policy applied: any missing
// identifier fails the whole operation with an UnresolvedVariable error
// naming every missing identifier.
func ResolveStrict(text string, vars map[string]string, strict bool) (string, error) {
	out, missing := Resolve(text, vars)
	if strict && len(missing) > 0 {
		return "", errors.UnresolvedVariable(missing)
	}
	return out, nil
}

// CompileInput carries everything the compiler needs for one run. The
// profile name must already be resolved so that {{profile}} reflects the
// actual selection, never a placeholder.
type CompileInput struct {
	Template    *models.Template
	Task        string
	Extra       string
	UserVars    map[string]string
	ProfileName string
	Root        string
	Strict      bool
}

// Compiled is the result of Compile: the final prompt plus the identifiers
// that stayed unresolved (empty in strict mode, which fails instead).
type Compiled struct {
	Prompt  string
	Missing []string
}

// Compile merges the built-in variable set with user-supplied overrides and
// renders the template's role and instructions. The final prompt is the
// resolved role and instructions joined by a single newline.
//
// Built-ins: task, extra, template, description, profile, scope,
// specific_to, root. User variables override built-ins, last write wins.
func Compile(in CompileInput) (*Compiled, error) {
	t := in.Template

	vars := map[string]string{
		"task":        strings.TrimSpace(in.Task),
		"extra":       strings.TrimSpace(in.Extra),
		"template":    t.Name,
		"description": t.Description,
		"profile":     in.ProfileName,
		"scope":       string(t.Scope),
		"specific_to": t.SpecificTo,
		"root":        in.Root,
	}
	for key, value := range in.UserVars {
		vars[key] = value
	}

	role, missRole := Resolve(t.Role, vars)
	instructions, missInst := Resolve(t.Instructions, vars)

	missing := mergeMissing(missRole, missInst)
	if in.Strict && len(missing) > 0 {
		return nil, errors.UnresolvedVariable(missing)
	}

	return &Compiled{
		Prompt:  role + "\n" + instructions,
		Missing: missing,
	}, nil
}

func mergeMissing(sets ...[]string) []string {
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, key := range set {
			seen[key] = true
		}
	}
	merged := make([]string, 0, len(seen))
	for key := range seen {
		merged = append(merged, key)
	}
	sort.Strings(merged)
	return merged
}
