package service

import (
	"os"
	"runtime"
	"testing"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

// fakeGenerator installs a profile whose runner swallows the generation
// prompt and prints a fixed payload.
func fakeGenerator(t *testing.T, svc *Service, payload string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	profile := &models.Profile{
		Command:    "sh",
		Args:       []string{"-c", "cat >/dev/null; printf '%s' \"$0\"", payload},
		PromptMode: models.PromptModeStdin,
	}
	if err := svc.AddProfile("generator", profile); err != nil {
		t.Fatalf("AddProfile failed: %v", err)
	}
}

const generatedJSON = `{"description": "Reviews database migrations", ` +
	`"role": "You are a migration reviewer.", ` +
	`"instructions": "Review {{task}} for unsafe operations.", ` +
	`"scope": "general", "specific_to": null, "profile": null}`

func TestGenerateTemplateCreates(t *testing.T) {
	svc := newTestService(t)
	fakeGenerator(t, svc, generatedJSON)

	result, err := svc.GenerateTemplate(GenerateOptions{
		Request:       "I want a role that reviews database migrations",
		RunnerProfile: "generator",
	})
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	if result.Mode != "create" {
		t.Errorf("Expected create mode, got %q", result.Mode)
	}
	if result.Template.Name != "reviews-database-migrations" {
		t.Errorf("Expected derived name, got %q", result.Template.Name)
	}

	template, err := svc.GetTemplate("reviews-database-migrations")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if template.Role != "You are a migration reviewer." {
		t.Errorf("Unexpected role: %q", template.Role)
	}
}

func TestGenerateTemplateDryRunWritesNothing(t *testing.T) {
	svc := newTestService(t)
	fakeGenerator(t, svc, generatedJSON)

	result, err := svc.GenerateTemplate(GenerateOptions{
		Request:       "reviews database migrations",
		Name:          "preview",
		RunnerProfile: "generator",
		DryRun:        true,
	})
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	if !result.DryRun {
		t.Error("Expected dry run result")
	}
	if _, err := os.Stat(result.TargetPath); !os.IsNotExist(err) {
		t.Error("Dry run must not write the template file")
	}
}

func TestGenerateTemplateUpdatesExisting(t *testing.T) {
	svc := newTestService(t)
	fakeGenerator(t, svc, generatedJSON)
	if err := svc.CreateTemplate(newTemplate("triage"), "", false); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	result, err := svc.GenerateTemplate(GenerateOptions{
		Request:       "make it about migrations instead",
		Name:          "triage",
		RunnerProfile: "generator",
	})
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	if result.Mode != "update" {
		t.Errorf("Expected update mode, got %q", result.Mode)
	}
	template, err := svc.GetTemplate("triage")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if template.Description != "Reviews database migrations" {
		t.Errorf("Expected regenerated content, got %q", template.Description)
	}
}

func TestGenerateTemplateOverridesPin(t *testing.T) {
	svc := newTestService(t)
	fakeGenerator(t, svc, generatedJSON)

	result, err := svc.GenerateTemplate(GenerateOptions{
		Request:       "watch the payments service",
		Name:          "watcher",
		SpecificTo:    "payments-api",
		RepeatFor:     "2h",
		RepeatEvery:   "15m",
		RunnerProfile: "generator",
	})
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	template := result.Template
	if template.Scope != models.ScopeSpecific || template.SpecificTo != "payments-api" {
		t.Errorf("Expected pinned scope, got %q/%q", template.Scope, template.SpecificTo)
	}
	if template.RepeatFor != "2h" || template.RepeatEvery != "15m" {
		t.Errorf("Expected pinned cadence, got %q/%q", template.RepeatFor, template.RepeatEvery)
	}
}

func TestGenerateTemplateValidation(t *testing.T) {
	svc := newTestService(t)

	cases := []GenerateOptions{
		{Request: "   "},
		{Request: "x", Scope: "general", SpecificTo: "payments"},
		{Request: "x", RepeatEvery: "5m"},
		{Request: "x", RepeatFor: "soon"},
	}
	for _, opts := range cases {
		if _, err := svc.GenerateTemplate(opts); !errors.HasCode(err, errors.ErrCodeValidation) {
			t.Errorf("Expected validation error for %+v, got %v", opts, err)
		}
	}
}

func TestGenerateTemplateBadRunnerOutput(t *testing.T) {
	svc := newTestService(t)
	fakeGenerator(t, svc, "sorry, I cannot help with that")

	_, err := svc.GenerateTemplate(GenerateOptions{
		Request:       "reviews database migrations",
		RunnerProfile: "generator",
	})
	if !errors.HasCode(err, errors.ErrCodeAIParse) {
		t.Fatalf("Expected AI parse error, got %v", err)
	}
}

func TestNextAvailableName(t *testing.T) {
	svc := newTestService(t)
	if got := svc.nextAvailableName("fresh"); got != "fresh" {
		t.Errorf("Expected free name kept, got %q", got)
	}

	if err := svc.CreateTemplate(newTemplate("taken"), "", false); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	if got := svc.nextAvailableName("taken"); got != "taken-2" {
		t.Errorf("Expected suffixed name, got %q", got)
	}
}
