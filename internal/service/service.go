// Package service provides the business logic for roleflow: template
// management, profile management, and the compile-then-invoke run cycle.
package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sahilm/fuzzy"

	"roleflow/internal/errors"
	"roleflow/internal/models"
	"roleflow/internal/registry"
	"roleflow/internal/storage"
)

// Service wires storage, the profile registry, and the run pipeline
// together behind one API consumed by the CLI and TUI layers.
type Service struct {
	storage *storage.Storage
}

// NewService creates a service rooted at rootPath. An empty rootPath uses
// the ROLEFLOW_DIR environment variable, then the working directory.
func NewService(rootPath string) (*Service, error) {
	if rootPath == "" {
		rootPath = os.Getenv("ROLEFLOW_DIR")
	}
	store, err := storage.NewStorage(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return &Service{storage: store}, nil
}

// Root returns the project root path.
func (s *Service) Root() string {
	return s.storage.Root()
}

// Config loads and validates the current configuration.
func (s *Service) Config() (*models.Config, error) {
	if err := s.storage.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s.storage.LoadConfig()
}

// InitLibrary creates the project layout, a default config, and the
// starter templates. Existing files are left untouched.
func (s *Service) InitLibrary() error {
	if err := s.storage.InitLibrary(); err != nil {
		return err
	}

	if _, err := os.Stat(s.storage.ConfigPath()); os.IsNotExist(err) {
		if err := s.storage.SaveConfig(models.DefaultConfig()); err != nil {
			return err
		}
	}

	for _, starter := range starterTemplates() {
		existing, err := s.storage.MaybeResolveExisting(starter.Name)
		if err != nil {
			return err
		}
		if existing != "" {
			continue
		}
		path, err := s.storage.ResolveNew(starter.Name, models.FormatJSON, "")
		if err != nil {
			return err
		}
		if err := s.storage.SaveTemplate(starter, path); err != nil {
			return err
		}
	}
	return nil
}

// ListTemplates returns all templates sorted by name.
func (s *Service) ListTemplates() ([]*models.Template, error) {
	if err := s.storage.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s.storage.ListTemplates()
}

// GetTemplate loads a template by name.
func (s *Service) GetTemplate(name string) (*models.Template, error) {
	if err := s.storage.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s.storage.LoadTemplate(name)
}

// TemplatePath returns the absolute path of a template's backing file.
func (s *Service) TemplatePath(name string) (string, error) {
	if err := s.storage.EnsureInitialized(); err != nil {
		return "", err
	}
	return s.storage.ResolveExisting(name)
}

// SearchTemplates returns templates fuzzy-matched against name,
// description, and role text. An empty query returns everything.
func (s *Service) SearchTemplates(query string) ([]*models.Template, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return templates, nil
	}

	var searchStrings []string
	for _, t := range templates {
		searchStrings = append(searchStrings,
			fmt.Sprintf("%s %s %s", t.Name, t.Description, t.Role))
	}

	matches := fuzzy.Find(query, searchStrings)

	var results []*models.Template
	for _, match := range matches {
		results = append(results, templates[match.Index])
	}
	return results, nil
}

// CreateTemplate validates and writes a new template. The template's
// profile binding, if any, must name an existing profile. An explicit
// extension on the name selects the storage format; the stored name is
// always the stem. force overwrites an existing file in place.
func (s *Service) CreateTemplate(template *models.Template, format string, force bool) error {
	if err := s.storage.EnsureInitialized(); err != nil {
		return err
	}
	config, err := s.storage.LoadConfig()
	if err != nil {
		return err
	}

	if err := template.Normalize(""); err != nil {
		return err
	}
	if err := s.checkProfileBinding(config, template.Profile); err != nil {
		return err
	}

	stem, ext, err := storage.SplitTemplateName(template.Name)
	if err != nil {
		return err
	}
	// An explicit extension on the name wins over the config default.
	if format == "" && ext == "" {
		format = config.DefaultFormat
	}
	path, err := s.storage.ResolveNew(template.Name, format, "")
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return errors.AlreadyExists(fmt.Sprintf("template `%s`", stem))
	}
	if err := s.storage.EnsureStemUnambiguous(stem, path); err != nil {
		return err
	}

	template.Name = stem
	return s.storage.SaveTemplate(template, path)
}

// UpdateTemplate loads a template, applies mutate, and writes it back to
// its existing file.
func (s *Service) UpdateTemplate(name string, mutate func(*models.Template) error) error {
	if err := s.storage.EnsureInitialized(); err != nil {
		return err
	}
	config, err := s.storage.LoadConfig()
	if err != nil {
		return err
	}

	path, err := s.storage.ResolveExisting(name)
	if err != nil {
		return err
	}
	template, err := s.storage.LoadTemplate(name)
	if err != nil {
		return err
	}

	if err := mutate(template); err != nil {
		return err
	}
	if err := template.Normalize(""); err != nil {
		return err
	}
	if err := s.checkProfileBinding(config, template.Profile); err != nil {
		return err
	}

	return s.storage.SaveTemplate(template, path)
}

// RenameTemplate moves a template to a new name, keeping its storage
// format unless the new name carries an explicit extension.
func (s *Service) RenameTemplate(oldName, newName string) error {
	if err := s.storage.EnsureInitialized(); err != nil {
		return err
	}

	oldPath, err := s.storage.ResolveExisting(oldName)
	if err != nil {
		return err
	}
	template, err := s.storage.LoadTemplate(oldName)
	if err != nil {
		return err
	}

	newStem, _, err := storage.SplitTemplateName(newName)
	if err != nil {
		return err
	}
	newPath, err := s.storage.ResolveNew(newName, "", ext(oldPath))
	if err != nil {
		return err
	}
	if newPath == oldPath {
		return nil
	}
	if _, err := os.Stat(newPath); err == nil {
		return errors.AlreadyExists(fmt.Sprintf("template `%s`", newName))
	}
	if err := s.storage.EnsureStemUnambiguous(newStem, newPath); err != nil {
		return err
	}

	template.Name = newStem
	if err := s.storage.SaveTemplate(template, newPath); err != nil {
		return err
	}
	if err := os.Remove(oldPath); err != nil {
		return errors.StorageError("remove renamed template", err)
	}
	return nil
}

// CopyTemplate duplicates a template under a new name.
func (s *Service) CopyTemplate(srcName, dstName, format string) error {
	if err := s.storage.EnsureInitialized(); err != nil {
		return err
	}

	srcPath, err := s.storage.ResolveExisting(srcName)
	if err != nil {
		return err
	}
	template, err := s.storage.LoadTemplate(srcName)
	if err != nil {
		return err
	}

	dstStem, _, err := storage.SplitTemplateName(dstName)
	if err != nil {
		return err
	}
	preserve := ""
	if format == "" {
		preserve = ext(srcPath)
	}
	dstPath, err := s.storage.ResolveNew(dstName, format, preserve)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dstPath); err == nil {
		return errors.AlreadyExists(fmt.Sprintf("template `%s`", dstName))
	}
	if err := s.storage.EnsureStemUnambiguous(dstStem, dstPath); err != nil {
		return err
	}

	template.Name = dstStem
	return s.storage.SaveTemplate(template, dstPath)
}

// DeleteTemplate removes a template's backing file.
func (s *Service) DeleteTemplate(name string) error {
	if err := s.storage.EnsureInitialized(); err != nil {
		return err
	}
	return s.storage.DeleteTemplate(name)
}

// ConvertTemplateFormat rewrites a template in the given storage format,
// removing the old file when the extension changes.
func (s *Service) ConvertTemplateFormat(name, format string) error {
	if err := s.storage.EnsureInitialized(); err != nil {
		return err
	}

	oldPath, err := s.storage.ResolveExisting(name)
	if err != nil {
		return err
	}
	template, err := s.storage.LoadTemplate(name)
	if err != nil {
		return err
	}

	newPath, err := s.storage.ResolveNew(template.Name, format, "")
	if err != nil {
		return err
	}
	if err := s.storage.SaveTemplate(template, newPath); err != nil {
		return err
	}
	if newPath != oldPath {
		if err := os.Remove(oldPath); err != nil {
			return errors.StorageError("remove converted template", err)
		}
	}
	return nil
}

// AddProfile inserts or replaces a runner profile and persists the config.
func (s *Service) AddProfile(name string, profile *models.Profile) error {
	config, err := s.Config()
	if err != nil {
		return err
	}
	reg := registry.New(config)
	if err := reg.Add(name, profile); err != nil {
		return err
	}
	return s.storage.SaveConfig(config)
}

// RemoveProfile deletes a runner profile. Templates bound to it keep the
// stale name, which surfaces as ProfileNotFound at next use.
func (s *Service) RemoveProfile(name string) error {
	config, err := s.Config()
	if err != nil {
		return err
	}
	reg := registry.New(config)
	if err := reg.Remove(name); err != nil {
		return err
	}
	return s.storage.SaveConfig(config)
}

// SetDefaultProfile marks an existing profile as the default.
func (s *Service) SetDefaultProfile(name string) error {
	config, err := s.Config()
	if err != nil {
		return err
	}
	reg := registry.New(config)
	if err := reg.SetDefault(name); err != nil {
		return err
	}
	return s.storage.SaveConfig(config)
}

// checkProfileBinding validates that a template's profile binding, when
// present, names an existing profile.
func (s *Service) checkProfileBinding(config *models.Config, profileName string) error {
	if profileName == "" {
		return nil
	}
	_, err := registry.New(config).Get(profileName)
	return err
}

func ext(path string) string {
	return filepath.Ext(path)
}

// starterTemplates returns the templates written on init.
func starterTemplates() []*models.Template {
	return []*models.Template{
		{
			Name:        "planning",
			Description: "Plan implementation work in clear, testable steps.",
			Role: "You are a planning specialist. Break problems into concrete steps, " +
				"highlight tradeoffs, and define verification criteria before coding.",
			Instructions: "Output a short execution plan for {{task}} with risks, assumptions, and checkpoints.",
			Scope:        models.ScopeGeneral,
		},
		{
			Name:        "testing",
			Description: "Design and implement targeted tests for reliability.",
			Role: "You are a testing specialist. Focus on regressions, edge cases, and " +
				"reproducible checks.",
			Instructions: "Prioritize high-signal tests for {{task}} first. Include setup, assertions, and " +
				"commands to run tests.",
			Scope: models.ScopeGeneral,
		},
		{
			Name:        "review",
			Description: "Perform code review with findings-first output.",
			Role: "You are a code reviewer. Identify behavioral bugs, risks, and missing " +
				"tests before style suggestions.",
			Instructions: "Review {{task}} and list findings ordered by severity with file/line references.",
			Scope:        models.ScopeGeneral,
		},
	}
}
