package renderer

import (
	"reflect"
	"testing"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

func TestResolveSubstitutesKnownVariables(t *testing.T) {
	out, missing := Resolve("Triage {{service}} bugs", map[string]string{"service": "payments-api"})
	if out != "Triage payments-api bugs" {
		t.Errorf("Expected substituted text, got %q", out)
	}
	if len(missing) != 0 {
		t.Errorf("Expected no missing variables, got %v", missing)
	}
}

func TestResolveIdentityOnTokenFreeText(t *testing.T) {
	text := "No placeholders here, just { braces } and {{ not-closed"
	out, missing := Resolve(text, map[string]string{"task": "x"})
	if out != text {
		t.Errorf("Token-free text must pass through unchanged, got %q", out)
	}
	if len(missing) != 0 {
		t.Errorf("Expected no missing variables, got %v", missing)
	}
}

func TestResolveToleratesWhitespaceInsideBraces(t *testing.T) {
	out, _ := Resolve("{{ task }} and {{task}}", map[string]string{"task": "fix"})
	if out != "fix and fix" {
		t.Errorf("Expected both forms substituted, got %q", out)
	}
}

func TestResolveCollectsMissingSorted(t *testing.T) {
	out, missing := Resolve("{{zeta}} {{alpha}} {{zeta}}", nil)
	if out != "{{zeta}} {{alpha}} {{zeta}}" {
		t.Errorf("Missing tokens must stay verbatim, got %q", out)
	}
	if !reflect.DeepEqual(missing, []string{"alpha", "zeta"}) {
		t.Errorf("Expected sorted deduplicated missing set, got %v", missing)
	}
}

func TestResolveDoesNotRescanSubstitutedValues(t *testing.T) {
	out, missing := Resolve("{{a}}", map[string]string{"a": "{{b}}", "b": "boom"})
	if out != "{{b}}" {
		t.Errorf("Substituted value must not be expanded again, got %q", out)
	}
	if len(missing) != 0 {
		t.Errorf("Expected no missing variables, got %v", missing)
	}
}

func TestResolveStrictFailsOnMissing(t *testing.T) {
	_, err := ResolveStrict("{{gone}}", nil, true)
	if !errors.HasCode(err, errors.ErrCodeUnresolvedVariable) {
		t.Fatalf("Expected unresolved variable error, got %v", err)
	}

	out, err := ResolveStrict("{{gone}}", nil, false)
	if err != nil {
		t.Fatalf("Lenient mode must not fail: %v", err)
	}
	if out != "{{gone}}" {
		t.Errorf("Expected token left verbatim, got %q", out)
	}
}

func triageTemplate() *models.Template {
	return &models.Template{
		Name:         "triage",
		Description:  "Bug triage",
		Role:         "Triage {{service}} bugs",
		Instructions: "Classify severity for {{task}}",
		Scope:        models.ScopeGeneral,
	}
}

func TestCompileJoinsRoleAndInstructions(t *testing.T) {
	compiled, err := Compile(CompileInput{
		Template: triageTemplate(),
		Task:     "Investigate timeout",
		UserVars: map[string]string{"service": "payments-api"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := "Triage payments-api bugs\nClassify severity for Investigate timeout"
	if compiled.Prompt != want {
		t.Errorf("Expected %q, got %q", want, compiled.Prompt)
	}
	if len(compiled.Missing) != 0 {
		t.Errorf("Expected no missing variables, got %v", compiled.Missing)
	}
}

func TestCompileBuiltins(t *testing.T) {
	template := &models.Template{
		Name:         "echo-builtins",
		Description:  "Built-in check",
		Role:         "{{template}}|{{description}}|{{profile}}|{{scope}}|{{specific_to}}|{{root}}",
		Instructions: "{{task}}|{{extra}}",
		Scope:        models.ScopeSpecific,
		SpecificTo:   "payments-api",
	}
	compiled, err := Compile(CompileInput{
		Template:    template,
		Task:        "  do the thing  ",
		Extra:       "be brief",
		ProfileName: "codex-fast",
		Root:        "/srv/lib",
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := "echo-builtins|Built-in check|codex-fast|specific|payments-api|/srv/lib\ndo the thing|be brief"
	if compiled.Prompt != want {
		t.Errorf("Expected %q, got %q", want, compiled.Prompt)
	}
}

func TestCompileUserVarsOverrideBuiltins(t *testing.T) {
	compiled, err := Compile(CompileInput{
		Template: triageTemplate(),
		Task:     "real task",
		UserVars: map[string]string{"service": "x", "task": "override"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := "Triage x bugs\nClassify severity for override"
	if compiled.Prompt != want {
		t.Errorf("Expected user variable to shadow built-in, got %q", compiled.Prompt)
	}
}

func TestCompileStrictReportsAllMissing(t *testing.T) {
	template := triageTemplate()
	template.Role = "{{service}} {{region}}"
	template.Instructions = "{{tier}}"

	_, err := Compile(CompileInput{Template: template, Strict: true})
	appErr := errors.GetAppError(err)
	if appErr == nil || appErr.Code != errors.ErrCodeUnresolvedVariable {
		t.Fatalf("Expected unresolved variable error, got %v", err)
	}
	if !reflect.DeepEqual(appErr.Missing, []string{"region", "service", "tier"}) {
		t.Errorf("Expected all missing identifiers named, got %v", appErr.Missing)
	}
}

func TestCompileLenientReturnsMissing(t *testing.T) {
	template := triageTemplate()
	compiled, err := Compile(CompileInput{Template: template, Task: "t"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !reflect.DeepEqual(compiled.Missing, []string{"service"}) {
		t.Errorf("Expected missing [service], got %v", compiled.Missing)
	}
}
