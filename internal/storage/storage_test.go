package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := s.InitLibrary(); err != nil {
		t.Fatalf("Failed to init library: %v", err)
	}
	return s
}

func sampleTemplate(name string) *models.Template {
	return &models.Template{
		Name:         name,
		Description:  "Bug triage",
		Role:         "Triage {{service}} bugs",
		Instructions: "Classify severity for {{task}}",
	}
}

func TestSplitTemplateName(t *testing.T) {
	tests := []struct {
		name, stem, ext string
	}{
		{"triage", "triage", ""},
		{"triage.json", "triage", ".json"},
		{"triage.yaml", "triage", ".yaml"},
		{"triage.yml", "triage", ".yml"},
		{"notes.txt", "notes.txt", ""},
		{"v1.2", "v1.2", ""},
	}
	for _, tt := range tests {
		stem, ext, err := SplitTemplateName(tt.name)
		if err != nil {
			t.Errorf("SplitTemplateName(%q) failed: %v", tt.name, err)
			continue
		}
		if stem != tt.stem || ext != tt.ext {
			t.Errorf("SplitTemplateName(%q) = (%q, %q), want (%q, %q)", tt.name, stem, ext, tt.stem, tt.ext)
		}
	}

	for _, bad := range []string{"", "  ", "a/b", ".json"} {
		if _, _, err := SplitTemplateName(bad); err == nil {
			t.Errorf("SplitTemplateName(%q) should fail", bad)
		}
	}
}

func TestTemplateRoundTripJSON(t *testing.T) {
	s := newTestStorage(t)
	template := sampleTemplate("triage")

	path, err := s.ResolveNew("triage", models.FormatJSON, "")
	if err != nil {
		t.Fatalf("ResolveNew failed: %v", err)
	}
	if err := s.SaveTemplate(template, path); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	loaded, err := s.LoadTemplate("triage")
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if loaded.Role != template.Role || loaded.Instructions != template.Instructions {
		t.Errorf("Round trip lost content: %+v", loaded)
	}
	if loaded.FilePath == "" || !strings.HasSuffix(loaded.FilePath, "triage.json") {
		t.Errorf("Expected relative file path, got %q", loaded.FilePath)
	}
}

func TestTemplateRoundTripYAML(t *testing.T) {
	s := newTestStorage(t)
	template := sampleTemplate("review")
	template.Scope = models.ScopeSpecific
	template.SpecificTo = "payments-api"
	template.RepeatFor = "2h"
	template.RepeatEvery = "15m"

	path, err := s.ResolveNew("review", models.FormatYAML, "")
	if err != nil {
		t.Fatalf("ResolveNew failed: %v", err)
	}
	if err := s.SaveTemplate(template, path); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	loaded, err := s.LoadTemplate("review.yaml")
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if loaded.SpecificTo != "payments-api" {
		t.Errorf("Expected specific_to preserved, got %q", loaded.SpecificTo)
	}
	if loaded.RepeatFor != "2h" || loaded.RepeatEvery != "15m" {
		t.Errorf("Expected cadence preserved, got %q/%q", loaded.RepeatFor, loaded.RepeatEvery)
	}
}

func TestNameBackfilledFromStem(t *testing.T) {
	s := newTestStorage(t)
	path := filepath.Join(s.TemplatesDir(), "anon.json")
	body := `{"description": "d", "role": "r", "instructions": "i"}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	loaded, err := s.LoadTemplate("anon")
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if loaded.Name != "anon" {
		t.Errorf("Expected name backfilled from stem, got %q", loaded.Name)
	}
}

func TestResolveExistingAmbiguousStem(t *testing.T) {
	s := newTestStorage(t)
	for _, name := range []string{"dup.json", "dup.yaml"} {
		path, err := s.ResolveNew(name, "", "")
		if err != nil {
			t.Fatalf("ResolveNew failed: %v", err)
		}
		if err := s.SaveTemplate(sampleTemplate("dup"), path); err != nil {
			t.Fatalf("SaveTemplate failed: %v", err)
		}
	}

	_, err := s.ResolveExisting("dup")
	if !errors.HasCode(err, errors.ErrCodeTemplateAmbiguous) {
		t.Fatalf("Expected ambiguous error, got %v", err)
	}

	// Explicit extension disambiguates.
	path, err := s.ResolveExisting("dup.yaml")
	if err != nil {
		t.Fatalf("ResolveExisting with extension failed: %v", err)
	}
	if filepath.Base(path) != "dup.yaml" {
		t.Errorf("Expected dup.yaml selected, got %q", path)
	}
}

func TestResolveExistingNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.ResolveExisting("ghost")
	if !errors.HasCode(err, errors.ErrCodeTemplateNotFound) {
		t.Fatalf("Expected template not found, got %v", err)
	}

	path, err := s.MaybeResolveExisting("ghost")
	if err != nil {
		t.Fatalf("MaybeResolveExisting must not fail on absence: %v", err)
	}
	if path != "" {
		t.Errorf("Expected empty path, got %q", path)
	}
}

func TestResolveNewFormatConflict(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.ResolveNew("x.json", models.FormatYAML, ""); !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("Expected conflict error, got %v", err)
	}
	path, err := s.ResolveNew("x", "", ".yaml")
	if err != nil {
		t.Fatalf("ResolveNew failed: %v", err)
	}
	if filepath.Ext(path) != ".yaml" {
		t.Errorf("Expected preserved extension, got %q", path)
	}
	path, err = s.ResolveNew("x", "", "")
	if err != nil {
		t.Fatalf("ResolveNew failed: %v", err)
	}
	if filepath.Ext(path) != ".json" {
		t.Errorf("Expected json default, got %q", path)
	}
}

func TestEnsureStemUnambiguous(t *testing.T) {
	s := newTestStorage(t)
	path, err := s.ResolveNew("one.json", "", "")
	if err != nil {
		t.Fatalf("ResolveNew failed: %v", err)
	}
	if err := s.SaveTemplate(sampleTemplate("one"), path); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	// Rewriting the same file is fine.
	if err := s.EnsureStemUnambiguous("one", path); err != nil {
		t.Errorf("Same target must be allowed: %v", err)
	}
	// A sibling extension is a conflict.
	other := filepath.Join(s.TemplatesDir(), "one.yaml")
	if err := s.EnsureStemUnambiguous("one", other); !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("Expected already exists, got %v", err)
	}
}

func TestListTemplatesSkipsBrokenFiles(t *testing.T) {
	s := newTestStorage(t)
	path, err := s.ResolveNew("good", "", "")
	if err != nil {
		t.Fatalf("ResolveNew failed: %v", err)
	}
	if err := s.SaveTemplate(sampleTemplate("good"), path); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}
	bad := filepath.Join(s.TemplatesDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{nope"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	other := filepath.Join(s.TemplatesDir(), "README.md")
	if err := os.WriteFile(other, []byte("# not a template"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	templates, err := s.ListTemplates()
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if len(templates) != 1 || templates[0].Name != "good" {
		t.Errorf("Expected only the valid template, got %+v", templates)
	}
}

func TestDeleteTemplate(t *testing.T) {
	s := newTestStorage(t)
	path, err := s.ResolveNew("gone", "", "")
	if err != nil {
		t.Fatalf("ResolveNew failed: %v", err)
	}
	if err := s.SaveTemplate(sampleTemplate("gone"), path); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}
	if err := s.DeleteTemplate("gone"); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected backing file removed")
	}
	if err := s.DeleteTemplate("gone"); !errors.HasCode(err, errors.ErrCodeTemplateNotFound) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
}

func TestConfigRoundTripAndLegacyMigration(t *testing.T) {
	s := newTestStorage(t)
	config := models.DefaultConfig()
	if err := s.SaveConfig(config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.DefaultProfile != models.DefaultProfileName {
		t.Errorf("Expected default profile preserved, got %q", loaded.DefaultProfile)
	}

	// Legacy single-runner config migrates on load.
	legacy := `{"runner": {"command": "codex", "prompt_mode": "stdin"}}`
	if err := os.WriteFile(s.ConfigPath(), []byte(legacy), 0644); err != nil {
		t.Fatalf("Failed to write legacy config: %v", err)
	}
	loaded, err = s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed on legacy shape: %v", err)
	}
	if loaded.Runner != nil {
		t.Error("Expected legacy runner cleared after migration")
	}
	profile, ok := loaded.Profiles[models.DefaultProfileName]
	if !ok || profile.Command != "codex" {
		t.Errorf("Expected migrated default profile, got %+v", loaded.Profiles)
	}

	// No temp files left behind by atomic writes.
	entries, err := os.ReadDir(s.ConfigDir())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("Leftover temp file: %s", entry.Name())
		}
	}
}

func TestEnsureInitialized(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := s.EnsureInitialized(); !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Fatalf("Expected validation error for uninitialized root, got %v", err)
	}
	if err := s.InitLibrary(); err != nil {
		t.Fatalf("InitLibrary failed: %v", err)
	}
	if err := s.SaveConfig(models.DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if err := s.EnsureInitialized(); err != nil {
		t.Errorf("Expected initialized project, got %v", err)
	}
}
