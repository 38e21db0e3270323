// Package storage handles all file system operations for role templates
// and the roleflow configuration.
//
// Templates live under <root>/.roleflow/templates as flat mapping files in
// JSON or YAML; the config lives at <root>/.roleflow/config.json. All
// writes are atomic single-file replacements.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

const (
	configDirName    = ".roleflow"
	templatesDirName = "templates"
	configFileName   = "config.json"
)

// extToFormat maps recognized template file extensions to storage formats.
var extToFormat = map[string]string{
	".json": models.FormatJSON,
	".yaml": models.FormatYAML,
	".yml":  models.FormatYAML,
}

var formatToExt = map[string]string{
	models.FormatJSON: ".json",
	models.FormatYAML: ".yaml",
}

// Storage provides file-backed persistence rooted at a project directory.
type Storage struct {
	rootPath string
}

// NewStorage creates a storage instance. An empty rootPath resolves to the
// current working directory.
func NewStorage(rootPath string) (*Storage, error) {
	if rootPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		rootPath = cwd
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	return &Storage{rootPath: abs}, nil
}

// Root returns the project root path.
func (s *Storage) Root() string {
	return s.rootPath
}

// ConfigDir returns the .roleflow directory path.
func (s *Storage) ConfigDir() string {
	return filepath.Join(s.rootPath, configDirName)
}

// TemplatesDir returns the templates directory path.
func (s *Storage) TemplatesDir() string {
	return filepath.Join(s.ConfigDir(), templatesDirName)
}

// ConfigPath returns the config file path.
func (s *Storage) ConfigPath() string {
	return filepath.Join(s.ConfigDir(), configFileName)
}

// InitLibrary creates the directory structure for a roleflow project.
func (s *Storage) InitLibrary() error {
	dirs := []string{s.ConfigDir(), s.TemplatesDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureInitialized verifies the project layout exists, listing anything
// missing in the error.
func (s *Storage) EnsureInitialized() error {
	var missing []string
	for _, path := range []string{s.ConfigDir(), s.TemplatesDir(), s.ConfigPath()} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return errors.ValidationError("project is not initialized, run `roleflow init` first").
			WithDetails("missing: " + strings.Join(missing, ", "))
	}
	return nil
}

// SplitTemplateName splits a user-supplied template name into its stem and
// an explicit recognized extension, if present.
func SplitTemplateName(name string) (stem, ext string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errors.ValidationError("template name cannot be empty")
	}
	if filepath.Base(name) != name {
		return "", "", errors.ValidationError("template name cannot contain path separators")
	}
	suffix := strings.ToLower(filepath.Ext(name))
	if _, ok := extToFormat[suffix]; ok {
		stem = name[:len(name)-len(suffix)]
		if stem == "" {
			return "", "", errors.ValidationError("template name cannot be empty")
		}
		return stem, suffix, nil
	}
	return name, "", nil
}

// findByStem returns the template files matching a stem across all
// recognized extensions, sorted by extension.
func (s *Storage) findByStem(stem string) []string {
	var out []string
	for ext := range extToFormat {
		candidate := filepath.Join(s.TemplatesDir(), stem+ext)
		if _, err := os.Stat(candidate); err == nil {
			out = append(out, candidate)
		}
	}
	sort.Strings(out)
	return out
}

// ResolveExisting resolves a template name to its backing file. An
// explicit extension selects the exact file; a bare stem must match
// exactly one file or the name is ambiguous.
func (s *Storage) ResolveExisting(name string) (string, error) {
	stem, ext, err := SplitTemplateName(name)
	if err != nil {
		return "", err
	}
	if ext != "" {
		path := filepath.Join(s.TemplatesDir(), stem+ext)
		if _, err := os.Stat(path); err != nil {
			return "", errors.TemplateNotFound(name)
		}
		return path, nil
	}
	matches := s.findByStem(stem)
	if len(matches) == 0 {
		return "", errors.TemplateNotFound(name)
	}
	if len(matches) > 1 {
		choices := make([]string, len(matches))
		for i, m := range matches {
			choices[i] = filepath.Base(m)
		}
		return "", errors.TemplateAmbiguous(name, choices)
	}
	return matches[0], nil
}

// MaybeResolveExisting is ResolveExisting but returns an empty path
// instead of TemplateNotFound when no file matches.
func (s *Storage) MaybeResolveExisting(name string) (string, error) {
	path, err := s.ResolveExisting(name)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeTemplateNotFound) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}

// ResolveNew resolves the target file for a template about to be written.
// format and preserveExt are optional; precedence is explicit extension in
// the name, then format, then preserveExt, then the JSON default.
func (s *Storage) ResolveNew(name, format, preserveExt string) (string, error) {
	stem, ext, err := SplitTemplateName(name)
	if err != nil {
		return "", err
	}
	if ext != "" {
		if format != "" && format != extToFormat[ext] {
			return "", errors.ValidationError(fmt.Sprintf(
				"conflicting format for `%s`: extension implies %s", name, extToFormat[ext]))
		}
		return filepath.Join(s.TemplatesDir(), stem+ext), nil
	}
	switch {
	case format != "":
		targetExt, ok := formatToExt[format]
		if !ok {
			return "", errors.ValidationError("template format must be `json` or `yaml`")
		}
		ext = targetExt
	case preserveExt != "":
		ext = preserveExt
	default:
		ext = formatToExt[models.FormatJSON]
	}
	return filepath.Join(s.TemplatesDir(), stem+ext), nil
}

// EnsureStemUnambiguous fails if the stem already resolves to a template
// file other than target.
func (s *Storage) EnsureStemUnambiguous(stem, target string) error {
	for _, path := range s.findByStem(stem) {
		if path != target {
			return errors.AlreadyExists(fmt.Sprintf("template stem `%s` (as `%s`)", stem, filepath.Base(path)))
		}
	}
	return nil
}

// LoadTemplate resolves and loads a template by name, normalizing and
// validating it. The file stem backfills an absent name field.
func (s *Storage) LoadTemplate(name string) (*models.Template, error) {
	path, err := s.ResolveExisting(name)
	if err != nil {
		return nil, err
	}
	return s.loadTemplateFile(path)
}

func (s *Storage) loadTemplateFile(path string) (*models.Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.StorageError("read template", err)
	}

	var template models.Template
	switch extToFormat[strings.ToLower(filepath.Ext(path))] {
	case models.FormatYAML:
		if err := yaml.Unmarshal(content, &template); err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("invalid YAML in %s", filepath.Base(path))).
				WithDetails(err.Error())
		}
	default:
		if err := json.Unmarshal(content, &template); err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("invalid JSON in %s", filepath.Base(path))).
				WithDetails(err.Error())
		}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := template.Normalize(stem); err != nil {
		return nil, err
	}
	relPath, err := filepath.Rel(s.rootPath, path)
	if err != nil {
		relPath = path
	}
	template.FilePath = relPath
	return &template, nil
}

// ListTemplates returns all templates sorted by name. Files that fail to
// parse are skipped with a warning so one bad file does not hide the rest.
func (s *Storage) ListTemplates() ([]*models.Template, error) {
	entries, err := os.ReadDir(s.TemplatesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.StorageError("list templates", err)
	}

	var templates []*models.Template
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := extToFormat[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		path := filepath.Join(s.TemplatesDir(), entry.Name())
		template, err := s.loadTemplateFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load template %s: %v\n", entry.Name(), err)
			continue
		}
		templates = append(templates, template)
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}

// SaveTemplate writes a template to path in the format implied by the
// path's extension.
func (s *Storage) SaveTemplate(template *models.Template, path string) error {
	if err := template.Normalize(""); err != nil {
		return err
	}

	var content []byte
	var err error
	switch extToFormat[strings.ToLower(filepath.Ext(path))] {
	case models.FormatYAML:
		content, err = yaml.Marshal(template)
	default:
		content, err = json.MarshalIndent(template, "", "  ")
		content = append(content, '\n')
	}
	if err != nil {
		return errors.StorageError("serialize template", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.StorageError("create templates directory", err)
	}
	if err := writeFileAtomic(path, content); err != nil {
		return errors.StorageError("write template", err)
	}

	relPath, relErr := filepath.Rel(s.rootPath, path)
	if relErr != nil {
		relPath = path
	}
	template.FilePath = relPath
	return nil
}

// DeleteTemplate removes a template's backing file by name.
func (s *Storage) DeleteTemplate(name string) error {
	path, err := s.ResolveExisting(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return errors.StorageError("delete template", err)
	}
	return nil
}

// writeFileAtomic writes content to a temp file in the target directory
// and renames it over path, so readers never observe a partial write.
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
