// Package cli provides the headless command-line interface of roleflow.
// It parses subcommand arguments, delegates to the service layer, and
// formats output; error-to-exit-code translation stays in main.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"roleflow/internal/clipboard"
	"roleflow/internal/errors"
	"roleflow/internal/models"
	"roleflow/internal/runner"
	"roleflow/internal/service"
	"roleflow/internal/ui"
)

// CLI dispatches subcommands against a service instance.
type CLI struct {
	service *service.Service
}

// NewCLI creates a new CLI instance.
func NewCLI(svc *service.Service) *CLI {
	return &CLI{service: svc}
}

// ExecuteCommand processes a CLI command and returns the result.
func (c *CLI) ExecuteCommand(args []string) error {
	if len(args) == 0 {
		return c.printUsage()
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "init":
		return c.initLibrary()
	case "run":
		return c.runTemplate(commandArgs)
	case "ai":
		return c.aiGenerate(commandArgs)
	case "list", "ls":
		return c.listTemplates(commandArgs)
	case "show", "get":
		return c.showTemplate(commandArgs)
	case "search":
		return c.searchTemplates(commandArgs)
	case "create", "new":
		return c.createTemplate(commandArgs)
	case "edit":
		return c.editTemplate(commandArgs)
	case "rename", "mv":
		return c.renameTemplate(commandArgs)
	case "copy", "cp":
		return c.copyTemplate(commandArgs)
	case "delete", "rm":
		return c.deleteTemplate(commandArgs)
	case "path":
		return c.templatePath(commandArgs)
	case "format":
		return c.convertFormat(commandArgs)
	case "profile":
		return c.handleProfile(commandArgs)
	case "pick":
		return ui.RunPicker(c.service)
	case "help":
		return c.printUsage()
	default:
		return errors.ValidationError(
			fmt.Sprintf("unknown command: %s. Use 'help' for usage information", command))
	}
}

func (c *CLI) initLibrary() error {
	if err := c.service.InitLibrary(); err != nil {
		return err
	}
	fmt.Printf("Initialized roleflow project at %s\n", c.service.Root())
	return nil
}

// runTemplate resolves and executes (or previews) a template.
func (c *CLI) runTemplate(args []string) error {
	parsed, err := parseArgs(args, "strict-vars", "dry-run", "print-command", "continue-on-error")
	if err != nil {
		return err
	}
	if len(parsed.positional) < 2 {
		return errors.ValidationError("usage: roleflow run <name> <task> [flags]")
	}
	name := parsed.positional[0]
	task, err := service.ReadTextArgOrFile(strings.Join(parsed.positional[1:], " "))
	if err != nil {
		return err
	}
	extra, err := service.ReadTextArgOrFile(parsed.value("extra"))
	if err != nil {
		return err
	}
	vars, err := service.ParseVars(parsed.all("var"))
	if err != nil {
		return err
	}

	maxRuns := 0
	if raw := parsed.value("max-runs"); raw != "" {
		maxRuns, err = strconv.Atoi(raw)
		if err != nil || maxRuns <= 0 {
			return errors.ValidationError("--max-runs must be greater than zero")
		}
	}

	opts := service.RunOptions{
		Task:            task,
		Extra:           extra,
		Vars:            vars,
		Profile:         parsed.value("profile"),
		StrictVars:      parsed.bool("strict-vars"),
		DryRun:          parsed.bool("dry-run"),
		PrintCommand:    parsed.bool("print-command"),
		RepeatFor:       parsed.value("repeat-for"),
		RepeatEvery:     parsed.value("repeat-every"),
		MaxRuns:         maxRuns,
		ContinueOnError: parsed.bool("continue-on-error"),
	}

	result, err := c.service.RunTemplate(name, opts)
	if err != nil {
		return err
	}

	if result.DryRun {
		fmt.Printf("# profile: %s\n\n", result.Invocation.ProfileName)
		if result.RepeatFor != "" {
			fmt.Printf("# cadence: repeat-for=%s repeat-every=%s\n\n", result.RepeatFor, result.RepeatEvery)
		}
		if opts.PrintCommand {
			fmt.Printf("# command: %s\n\n", runner.CommandLine(result.Invocation.Argv))
		}
		fmt.Println(result.Invocation.Prompt)
	}
	return nil
}

// aiGenerate creates or updates a template from a natural-language request.
func (c *CLI) aiGenerate(args []string) error {
	parsed, err := parseArgs(args, "dry-run", "print-command")
	if err != nil {
		return err
	}

	result, err := c.service.GenerateTemplate(service.GenerateOptions{
		Request:       strings.Join(parsed.positional, " "),
		Name:          parsed.value("name"),
		Format:        parsed.value("format"),
		Scope:         parsed.value("scope"),
		SpecificTo:    parsed.value("specific-to"),
		BindProfile:   parsed.value("bind-profile"),
		RepeatFor:     parsed.value("repeat-for"),
		RepeatEvery:   parsed.value("repeat-every"),
		RunnerProfile: parsed.value("runner-profile"),
		DryRun:        parsed.bool("dry-run"),
		PrintCommand:  parsed.bool("print-command"),
	})
	if err != nil {
		return err
	}

	if result.DryRun {
		preview := struct {
			TargetFile string           `json:"target_file"`
			Template   *models.Template `json:"template"`
		}{result.TargetPath, result.Template}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(preview)
	}

	verb := "Created"
	if result.Mode == "update" {
		verb = "Updated"
	}
	fmt.Printf("%s template `%s` at %s\n", verb, result.Template.Name, result.TargetPath)
	return nil
}

func (c *CLI) listTemplates(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	templates, err := c.service.ListTemplates()
	if err != nil {
		return err
	}
	return c.formatTemplates(templates, parsed.value("format"))
}

func (c *CLI) searchTemplates(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) == 0 {
		return errors.ValidationError("usage: roleflow search <query>")
	}
	templates, err := c.service.SearchTemplates(strings.Join(parsed.positional, " "))
	if err != nil {
		return err
	}
	return c.formatTemplates(templates, parsed.value("format"))
}

func (c *CLI) showTemplate(args []string) error {
	parsed, err := parseArgs(args, "pretty", "copy")
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow show <name> [--pretty] [--copy]")
	}

	template, err := c.service.GetTemplate(parsed.positional[0])
	if err != nil {
		return err
	}

	if parsed.bool("copy") {
		text := template.Role + "\n" + template.Instructions
		if err := clipboard.Copy(text); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Println("Copied to clipboard!")
		return nil
	}

	if parsed.value("format") == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(template)
	}

	body := ui.TemplateMarkdown(template)
	if parsed.bool("pretty") {
		rendered, err := ui.RenderMarkdown(body)
		if err == nil {
			fmt.Print(rendered)
			return nil
		}
		// Fall back to plain output when the terminal renderer fails.
	}
	fmt.Print(body)
	return nil
}

// templateFlags applies the shared create/edit template flags.
func templateFlags(parsed *parsedArgs, template *models.Template) error {
	if value := parsed.value("description"); value != "" {
		template.Description = value
	}
	if value := parsed.value("role"); value != "" {
		text, err := service.ReadTextArgOrFile(value)
		if err != nil {
			return err
		}
		template.Role = text
	}
	if value := parsed.value("instructions"); value != "" {
		text, err := service.ReadTextArgOrFile(value)
		if err != nil {
			return err
		}
		template.Instructions = text
	}
	if value := parsed.value("scope"); value != "" {
		template.Scope = models.Scope(value)
	}
	if value := parsed.value("specific-to"); value != "" {
		template.SpecificTo = value
	}
	if value := parsed.value("bind-profile"); value != "" {
		template.Profile = value
	}
	if value := parsed.value("repeat-for"); value != "" {
		template.RepeatFor = value
	}
	if value := parsed.value("repeat-every"); value != "" {
		template.RepeatEvery = value
	}
	return nil
}

func (c *CLI) createTemplate(args []string) error {
	parsed, err := parseArgs(args, "force")
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow create <name> --description ... --role ... --instructions ... [--force]")
	}

	template := &models.Template{Name: parsed.positional[0]}
	if err := templateFlags(parsed, template); err != nil {
		return err
	}
	if err := c.service.CreateTemplate(template, parsed.value("format"), parsed.bool("force")); err != nil {
		return err
	}
	fmt.Printf("Created template `%s`\n", template.Name)
	return nil
}

func (c *CLI) editTemplate(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow edit <name> [field flags]")
	}

	name := parsed.positional[0]
	err = c.service.UpdateTemplate(name, func(template *models.Template) error {
		return templateFlags(parsed, template)
	})
	if err != nil {
		return err
	}
	fmt.Printf("Updated template `%s`\n", name)
	return nil
}

func (c *CLI) renameTemplate(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 2 {
		return errors.ValidationError("usage: roleflow rename <old> <new>")
	}
	if err := c.service.RenameTemplate(parsed.positional[0], parsed.positional[1]); err != nil {
		return err
	}
	fmt.Printf("Renamed template `%s` to `%s`\n", parsed.positional[0], parsed.positional[1])
	return nil
}

func (c *CLI) copyTemplate(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 2 {
		return errors.ValidationError("usage: roleflow copy <src> <dst>")
	}
	if err := c.service.CopyTemplate(parsed.positional[0], parsed.positional[1], parsed.value("format")); err != nil {
		return err
	}
	fmt.Printf("Copied template `%s` to `%s`\n", parsed.positional[0], parsed.positional[1])
	return nil
}

func (c *CLI) deleteTemplate(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow delete <name>")
	}
	if err := c.service.DeleteTemplate(parsed.positional[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted template `%s`\n", parsed.positional[0])
	return nil
}

func (c *CLI) templatePath(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow path <name>")
	}
	path, err := c.service.TemplatePath(parsed.positional[0])
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func (c *CLI) convertFormat(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 2 {
		return errors.ValidationError("usage: roleflow format <name> <json|yaml>")
	}
	if err := c.service.ConvertTemplateFormat(parsed.positional[0], parsed.positional[1]); err != nil {
		return err
	}
	fmt.Printf("Converted template `%s` to %s\n", parsed.positional[0], parsed.positional[1])
	return nil
}

// handleProfile dispatches the profile subcommands.
func (c *CLI) handleProfile(args []string) error {
	if len(args) == 0 {
		return errors.ValidationError("usage: roleflow profile <add|remove|default|list> ...")
	}
	switch args[0] {
	case "add":
		return c.profileAdd(args[1:])
	case "remove", "rm":
		return c.profileRemove(args[1:])
	case "default":
		return c.profileDefault(args[1:])
	case "list", "ls":
		return c.profileList(args[1:])
	default:
		return errors.ValidationError(fmt.Sprintf("unknown profile command: %s", args[0]))
	}
}

func (c *CLI) profileAdd(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow profile add <name> --command <cmd> [--arg <a>]... [--prompt-mode stdin|arg] [--prompt-flag <flag>]")
	}
	name := parsed.positional[0]
	profile := &models.Profile{
		Command:    parsed.value("command"),
		Args:       parsed.all("arg"),
		PromptMode: models.PromptMode(parsed.value("prompt-mode")),
		PromptFlag: parsed.value("prompt-flag"),
	}
	if err := c.service.AddProfile(name, profile); err != nil {
		return err
	}
	fmt.Printf("Saved profile `%s`\n", name)
	return nil
}

func (c *CLI) profileRemove(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow profile remove <name>")
	}
	if err := c.service.RemoveProfile(parsed.positional[0]); err != nil {
		return err
	}
	fmt.Printf("Removed profile `%s`\n", parsed.positional[0])
	return nil
}

func (c *CLI) profileDefault(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return errors.ValidationError("usage: roleflow profile default <name>")
	}
	if err := c.service.SetDefaultProfile(parsed.positional[0]); err != nil {
		return err
	}
	fmt.Printf("Default profile is now `%s`\n", parsed.positional[0])
	return nil
}

func (c *CLI) profileList(args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}
	config, err := c.service.Config()
	if err != nil {
		return err
	}

	if parsed.value("format") == "json" {
		return json.NewEncoder(os.Stdout).Encode(config)
	}

	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		profile := config.Profiles[name]
		marker := " "
		if name == config.DefaultProfile {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s: %s", marker, name, runner.CommandLine(append([]string{profile.Command}, profile.Args...)))
		if profile.PromptMode == models.PromptModeArg {
			line += fmt.Sprintf(" (prompt via %s)", profile.PromptFlag)
		} else {
			line += " (prompt via stdin)"
		}
		fmt.Println(line)
	}
	return nil
}

// formatTemplates formats templates for output.
func (c *CLI) formatTemplates(templates []*models.Template, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(templates)
	case "names":
		for _, t := range templates {
			fmt.Println(t.Name)
		}
	case "table":
		fmt.Printf("%-20s %-20s %-16s %-12s %s\n", "Name", "Scope", "Cadence", "Profile", "Description")
		fmt.Println(strings.Repeat("-", 92))
		for _, t := range templates {
			description := t.Description
			if len(description) > 40 {
				description = description[:37] + "..."
			}
			profile := t.Profile
			if profile == "" {
				profile = "-"
			}
			fmt.Printf("%-20s %-20s %-16s %-12s %s\n",
				t.Name, t.ScopeText(), t.CadenceText(), profile, description)
		}
	default:
		for _, t := range templates {
			fmt.Printf("%s - %s\n", t.Name, t.Description)
			fmt.Printf("  Scope: %s  Cadence: %s\n", t.ScopeText(), t.CadenceText())
			if t.Profile != "" {
				fmt.Printf("  Profile: %s\n", t.Profile)
			}
			fmt.Println()
		}
	}
	return nil
}

func (c *CLI) printUsage() error {
	fmt.Print(`roleflow - role template management and execution

USAGE:
    roleflow [--root <path>] <command> [args]

COMMANDS:
    init                          Initialize a roleflow project
    run <name> <task>             Resolve a template and invoke its runner
    ai <request...>               Generate or update a template via AI
    list, ls                      List templates
    show <name>                   Show a template (--pretty, --copy, --format json)
    search <query>                Fuzzy-search templates
    create <name>                 Create a template from field flags (--force overwrites)
    edit <name>                   Edit template fields
    rename <old> <new>            Rename a template
    copy <src> <dst>              Duplicate a template
    delete <name>                 Delete a template
    path <name>                   Print a template's file path
    format <name> <json|yaml>     Convert a template's storage format
    profile add|remove|default|list
                                  Manage runner profiles
    pick                          Interactive template picker
    help                          Show this help

RUN FLAGS:
    --extra <text>        Extra context ("@file" reads a file)
    --var k=v             Set a prompt variable (repeatable)
    --profile <name>      Override the runner profile for this run
    --strict-vars         Fail on unresolved {{placeholders}}
    --dry-run             Print the prompt without invoking the runner
    --print-command       Echo the runner command line
    --repeat-for <dur>    Re-run for a duration (e.g. 2h)
    --repeat-every <dur>  Interval between runs (default 10m)
    --max-runs <n>        Stop after n runs
    --continue-on-error   Keep repeating after a failed run

EXAMPLES:
    roleflow init
    roleflow run review "audit the auth flow" --var owner=qa-team
    roleflow run triage "Investigate timeout" --strict-vars --dry-run
    roleflow ai a role that reviews database migrations
    roleflow profile add codex-fast --command codex --arg --non-interactive --prompt-mode arg --prompt-flag --prompt

STORAGE:
    Templates: <root>/.roleflow/templates/*.{json,yaml}
    Config:    <root>/.roleflow/config.json
    Root override: --root <path> or ROLEFLOW_DIR=<path>
`)
	return nil
}
