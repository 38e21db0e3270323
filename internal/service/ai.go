package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"roleflow/internal/ai"
	"roleflow/internal/errors"
	"roleflow/internal/models"
	"roleflow/internal/registry"
	"roleflow/internal/runner"
	"roleflow/internal/storage"
)

// GenerateOptions carries the inputs of an `ai` command invocation.
type GenerateOptions struct {
	// Request is the natural-language description of the wanted template.
	Request string
	// Name pins the target template name; derived from the request when
	// empty.
	Name string
	// Format selects the storage format for a new template.
	Format string

	// Overrides pinned before generation.
	Scope       string
	SpecificTo  string
	BindProfile string
	RepeatFor   string
	RepeatEvery string

	// RunnerProfile selects the profile that performs the generation;
	// falls back to the configured default.
	RunnerProfile string

	DryRun       bool
	PrintCommand bool
}

// GenerateResult reports what the generation flow produced. For a dry run
// nothing is written and TargetPath is the file that would have been.
type GenerateResult struct {
	Mode       string
	TargetPath string
	Template   *models.Template
	DryRun     bool
}

// GenerateTemplate drives the AI generation flow: build the generation
// prompt, invoke the selected runner with captured output, parse a JSON
// object out of it, and save the validated template. Updating an existing
// template feeds its current content into the prompt.
func (s *Service) GenerateTemplate(opts GenerateOptions) (*GenerateResult, error) {
	config, err := s.Config()
	if err != nil {
		return nil, err
	}

	request := strings.TrimSpace(opts.Request)
	if request == "" {
		return nil, errors.ValidationError("AI request cannot be empty")
	}
	if opts.Scope == string(models.ScopeGeneral) && opts.SpecificTo != "" {
		return nil, errors.ValidationError("--specific-to cannot be used with --scope general")
	}
	if opts.RepeatEvery != "" && opts.RepeatFor == "" {
		return nil, errors.ValidationError("--repeat-every requires --repeat-for")
	}
	for _, field := range []struct{ raw, name string }{
		{opts.RepeatFor, "repeat_for"},
		{opts.RepeatEvery, "repeat_every"},
	} {
		if field.raw != "" {
			if _, err := models.ParseCadenceDuration(field.raw, field.name); err != nil {
				return nil, err
			}
		}
	}

	templateName := strings.TrimSpace(opts.Name)
	if templateName == "" {
		templateName = s.nextAvailableName(ai.DeriveTemplateName(request))
	}

	reg := registry.New(config)
	profile, err := reg.Resolve(opts.RunnerProfile, "")
	if err != nil {
		return nil, err
	}

	existingPath, err := s.storage.MaybeResolveExisting(templateName)
	if err != nil {
		return nil, err
	}

	mode := "create"
	var existing *models.Template
	var targetPath string
	stem, _, err := storage.SplitTemplateName(templateName)
	if err != nil {
		return nil, err
	}
	if existingPath == "" {
		format := opts.Format
		if format == "" {
			format = config.DefaultFormat
		}
		targetPath, err = s.storage.ResolveNew(templateName, format, "")
		if err != nil {
			return nil, err
		}
		if err := s.storage.EnsureStemUnambiguous(stem, targetPath); err != nil {
			return nil, err
		}
	} else {
		mode = "update"
		existing, err = s.storage.LoadTemplate(templateName)
		if err != nil {
			return nil, err
		}
		targetPath, err = s.storage.ResolveNew(templateName, opts.Format, filepath.Ext(existingPath))
		if err != nil {
			return nil, err
		}
		if targetPath != existingPath {
			if _, err := os.Stat(targetPath); err == nil {
				return nil, errors.AlreadyExists(fmt.Sprintf("target file `%s`", filepath.Base(targetPath)))
			}
		}
	}

	genReq := ai.Request{
		Mode:                mode,
		TemplateName:        stem,
		Text:                request,
		Existing:            existing,
		ScopeOverride:       opts.Scope,
		SpecificToOverride:  opts.SpecificTo,
		BindProfileOverride: opts.BindProfile,
		RepeatForOverride:   opts.RepeatFor,
		RepeatEveryOverride: opts.RepeatEvery,
	}
	prompt, err := ai.BuildPrompt(genReq)
	if err != nil {
		return nil, err
	}

	argv, stdin := runner.BuildArgv(profile, prompt)
	result, err := runner.Invoke(models.ResolvedInvocation{
		Prompt:      prompt,
		ProfileName: profile.Name,
		Profile:     profile,
		Argv:        argv,
		Stdin:       stdin,
	}, runner.Options{CaptureOutput: true, PrintCommand: opts.PrintCommand})
	if err != nil {
		if result != nil && errors.HasCode(err, errors.ErrCodeRunnerFailed) {
			details := strings.TrimSpace(result.Stderr)
			if details == "" {
				details = strings.TrimSpace(result.Stdout)
			}
			if details == "" {
				details = "(no output)"
			}
			return nil, errors.GetAppError(err).WithDetails("AI generation failed: " + details)
		}
		return nil, err
	}

	payload := strings.TrimSpace(result.Stdout)
	if payload == "" {
		payload = strings.TrimSpace(result.Stderr)
	}
	generated, err := ai.ExtractJSONObject(payload)
	if err != nil {
		return nil, err
	}

	template, err := ai.BuildTemplate(genReq, generated)
	if err != nil {
		return nil, err
	}
	if err := s.checkProfileBinding(config, template.Profile); err != nil {
		return nil, err
	}

	genResult := &GenerateResult{
		Mode:       mode,
		TargetPath: targetPath,
		Template:   template,
		DryRun:     opts.DryRun,
	}
	if opts.DryRun {
		return genResult, nil
	}

	if err := s.storage.SaveTemplate(template, targetPath); err != nil {
		return nil, err
	}
	if mode == "update" && targetPath != existingPath {
		if err := os.Remove(existingPath); err != nil {
			return nil, errors.StorageError("remove replaced template", err)
		}
	}
	return genResult, nil
}

// nextAvailableName appends -2, -3, ... to base until the stem is free.
func (s *Service) nextAvailableName(base string) string {
	candidate := base
	suffix := 2
	for {
		path, err := s.storage.MaybeResolveExisting(candidate)
		// An ambiguous stem counts as taken.
		if err == nil && path == "" {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
		suffix++
	}
}
