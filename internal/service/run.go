package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"roleflow/internal/errors"
	"roleflow/internal/models"
	"roleflow/internal/registry"
	"roleflow/internal/renderer"
	"roleflow/internal/runner"
)

// RunOptions carries every run-time input for a template invocation.
type RunOptions struct {
	Task  string
	Extra string
	Vars  map[string]string

	// Profile is the explicit run-time override; it outranks the
	// template's binding and the configured default.
	Profile string

	StrictVars   bool
	DryRun       bool
	PrintCommand bool

	// Capture buffers the runner's output into the result instead of
	// inheriting the terminal.
	Capture bool

	// Cadence overrides; the template's own repeat_for/repeat_every apply
	// when these are empty.
	RepeatFor       string
	RepeatEvery     string
	MaxRuns         int
	ContinueOnError bool
}

// CompileTemplate resolves the profile and compiles the final prompt and
// argv without executing anything. Dry runs and real runs share this path,
// so both always compute identical output.
func (s *Service) CompileTemplate(name string, opts RunOptions) (*models.ResolvedInvocation, []string, error) {
	config, err := s.Config()
	if err != nil {
		return nil, nil, err
	}
	template, err := s.storage.LoadTemplate(name)
	if err != nil {
		return nil, nil, err
	}
	return s.compile(config, template, opts)
}

func (s *Service) compile(config *models.Config, template *models.Template, opts RunOptions) (*models.ResolvedInvocation, []string, error) {
	// Profile resolution happens before substitution so {{profile}}
	// reflects the actual selection.
	profile, err := registry.New(config).Resolve(opts.Profile, template.Profile)
	if err != nil {
		return nil, nil, err
	}

	compiled, err := renderer.Compile(renderer.CompileInput{
		Template:    template,
		Task:        opts.Task,
		Extra:       opts.Extra,
		UserVars:    opts.Vars,
		ProfileName: profile.Name,
		Root:        s.storage.Root(),
		Strict:      opts.StrictVars,
	})
	if err != nil {
		return nil, nil, err
	}

	argv, stdin := runner.BuildArgv(profile, compiled.Prompt)
	return &models.ResolvedInvocation{
		Prompt:      compiled.Prompt,
		ProfileName: profile.Name,
		Profile:     profile,
		Argv:        argv,
		Stdin:       stdin,
	}, compiled.Missing, nil
}

// cadence is the resolved repeat configuration for one run command.
type cadence struct {
	repeatFor    time.Duration
	repeatEvery  time.Duration
	repeatForRaw string
	everyRaw     string
}

// resolveCadence merges run-time cadence flags over the template's cadence
// fields and validates the combination.
func resolveCadence(template *models.Template, opts RunOptions) (*cadence, error) {
	repeatFor := strings.TrimSpace(opts.RepeatFor)
	if repeatFor == "" {
		repeatFor = template.RepeatFor
	}
	repeatEvery := strings.TrimSpace(opts.RepeatEvery)
	if repeatEvery == "" {
		repeatEvery = template.RepeatEvery
	}

	if opts.MaxRuns < 0 {
		return nil, errors.ValidationError("--max-runs must be greater than zero")
	}
	if repeatFor == "" {
		if repeatEvery != "" {
			return nil, errors.ValidationError("--repeat-every requires repeat-for (CLI or template default)")
		}
		if opts.MaxRuns > 0 {
			return nil, errors.ValidationError("--max-runs requires repeat-for (CLI or template default)")
		}
		if opts.ContinueOnError {
			return nil, errors.ValidationError("--continue-on-error requires repeat-for (CLI or template default)")
		}
		return nil, nil
	}

	forDuration, err := models.ParseCadenceDuration(repeatFor, "repeat_for")
	if err != nil {
		return nil, err
	}
	if repeatEvery == "" {
		repeatEvery = models.DefaultRepeatEvery
	}
	everyDuration, err := models.ParseCadenceDuration(repeatEvery, "repeat_every")
	if err != nil {
		return nil, err
	}

	return &cadence{
		repeatFor:    forDuration,
		repeatEvery:  everyDuration,
		repeatForRaw: repeatFor,
		everyRaw:     repeatEvery,
	}, nil
}

// RunTemplate performs the full compile-then-invoke cycle: load the
// template, resolve the profile, compile the prompt, build the command,
// and invoke the runner (or skip invocation for a dry run). With a repeat
// cadence the runner is re-invoked until the time budget or max-runs is
// exhausted; a failed run stops the loop unless ContinueOnError is set,
// and the last non-zero exit code is reported either way.
func (s *Service) RunTemplate(name string, opts RunOptions) (*models.InvocationResult, error) {
	config, err := s.Config()
	if err != nil {
		return nil, err
	}
	template, err := s.storage.LoadTemplate(name)
	if err != nil {
		return nil, err
	}

	inv, missing, err := s.compile(config, template, opts)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unresolved placeholders kept as-is: %s\n",
			strings.Join(missing, ", "))
	}

	cad, err := resolveCadence(template, opts)
	if err != nil {
		return nil, err
	}

	invokeOpts := runner.Options{
		DryRun:        opts.DryRun,
		CaptureOutput: opts.Capture,
		PrintCommand:  opts.PrintCommand,
	}

	if opts.DryRun || cad == nil {
		result, err := runner.Invoke(*inv, invokeOpts)
		if result != nil && cad != nil {
			result.RepeatFor = cad.repeatForRaw
			result.RepeatEvery = cad.everyRaw
		}
		return result, err
	}

	endTime := time.Now().Add(cad.repeatFor)
	runIndex := 0
	var lastFailure error
	var result *models.InvocationResult
	for {
		runIndex++
		fmt.Fprintf(os.Stderr, "[roleflow] run %d starting\n", runIndex)

		result, err = runner.Invoke(*inv, invokeOpts)
		if result != nil {
			result.RepeatFor = cad.repeatForRaw
			result.RepeatEvery = cad.everyRaw
		}
		if err != nil {
			if !errors.HasCode(err, errors.ErrCodeRunnerFailed) || !opts.ContinueOnError {
				return result, err
			}
			lastFailure = err
		}

		if opts.MaxRuns > 0 && runIndex >= opts.MaxRuns {
			break
		}
		remaining := time.Until(endTime)
		if remaining <= 0 || cad.repeatEvery > remaining {
			break
		}

		fmt.Fprintf(os.Stderr, "[roleflow] sleeping %s before next run\n", cad.everyRaw)
		time.Sleep(cad.repeatEvery)
	}
	return result, lastFailure
}
