// Package ai implements natural-language template generation: it builds a
// generation prompt, delegates to a configured runner profile, and parses
// the runner's output into a candidate template. The candidate goes through
// the same validation as manually created templates.
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

// Request describes one generation call.
type Request struct {
	// Mode is "create" or "update".
	Mode string
	// TemplateName is the target stem.
	TemplateName string
	// Text is the user's natural-language request.
	Text string
	// Existing is the template being updated, nil for create.
	Existing *models.Template

	// Caller overrides pinned before generation; the generated values for
	// these fields are ignored when set.
	ScopeOverride       string
	SpecificToOverride  string
	BindProfileOverride string
	RepeatForOverride   string
	RepeatEveryOverride string
}

// generationContext is serialized into the generation prompt so the runner
// sees the full request, including pinned overrides.
type generationContext struct {
	Mode             string           `json:"mode"`
	TemplateName     string           `json:"template_name"`
	Request          string           `json:"request"`
	ExistingTemplate *models.Template `json:"existing_template"`
	ScopeOverride    string           `json:"scope_override,omitempty"`
	SpecificTo       string           `json:"specific_to_override,omitempty"`
	BindProfile      string           `json:"bind_profile_override,omitempty"`
	RepeatFor        string           `json:"repeat_for_override,omitempty"`
	RepeatEvery      string           `json:"repeat_every_override,omitempty"`
}

// BuildPrompt builds the instruction prompt sent to the runner.
func BuildPrompt(req Request) (string, error) {
	ctx := generationContext{
		Mode:             req.Mode,
		TemplateName:     req.TemplateName,
		Request:          req.Text,
		ExistingTemplate: req.Existing,
		ScopeOverride:    req.ScopeOverride,
		SpecificTo:       req.SpecificToOverride,
		BindProfile:      req.BindProfileOverride,
		RepeatFor:        req.RepeatForOverride,
		RepeatEvery:      req.RepeatEveryOverride,
	}
	contextJSON, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode generation context: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are generating a roleflow template specification.\n")
	b.WriteString("Return ONLY a valid JSON object with exactly these keys:\n")
	b.WriteString("{\n")
	b.WriteString("  \"description\": \"string\",\n")
	b.WriteString("  \"role\": \"string\",\n")
	b.WriteString("  \"instructions\": \"string\",\n")
	b.WriteString("  \"scope\": \"general|specific\",\n")
	b.WriteString("  \"specific_to\": \"string|null\",\n")
	b.WriteString("  \"profile\": \"string|null\",\n")
	b.WriteString("  \"repeat_for\": \"duration|null\",\n")
	b.WriteString("  \"repeat_every\": \"duration|null\"\n")
	b.WriteString("}\n")
	b.WriteString("Rules:\n")
	b.WriteString("- No markdown, no code fences, no explanation.\n")
	b.WriteString("- Keep role and instructions practical and concise.\n")
	b.WriteString("- Use placeholders like {{task}}, {{root}}, {{specific_to}} only where useful.\n")
	b.WriteString("- repeat_for/repeat_every should use duration strings like 2h, 30m, 1h30m.\n")
	b.WriteString("- If scope is general, set specific_to to null.\n")
	b.WriteString("- If scope is specific, set specific_to to a concrete target.\n\n")
	b.WriteString("Context:\n")
	b.Write(contextJSON)
	b.WriteString("\n")
	return b.String(), nil
}

// fencedJSONPattern extracts the body of a ```json fenced block. Runners
// are told not to fence their output, but many do anyway.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject pulls a JSON object out of runner output. It tries, in
// order: a fenced block, the whole payload, then a scan for the first
// decodable object.
func ExtractJSONObject(text string) (map[string]any, error) {
	payload := strings.TrimSpace(text)
	if payload == "" {
		return nil, errors.AIParseError("runner returned empty output; expected JSON object")
	}

	if match := fencedJSONPattern.FindStringSubmatch(payload); match != nil {
		payload = strings.TrimSpace(match[1])
	}

	var whole map[string]any
	if err := json.Unmarshal([]byte(payload), &whole); err == nil {
		return whole, nil
	}

	for idx := 0; idx < len(payload); idx++ {
		if payload[idx] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(payload[idx:]))
		var candidate map[string]any
		if err := decoder.Decode(&candidate); err == nil {
			return candidate, nil
		}
	}

	return nil, errors.AIParseError("could not parse a JSON object from runner output")
}

// BuildTemplate merges the generated object with the request's pinned
// overrides into a validated template. Overrides always win over generated
// values.
func BuildTemplate(req Request, generated map[string]any) (*models.Template, error) {
	template := &models.Template{
		Name:         req.TemplateName,
		Description:  stringField(generated, "description"),
		Role:         stringField(generated, "role"),
		Instructions: stringField(generated, "instructions"),
	}

	scope := req.ScopeOverride
	if scope == "" && req.SpecificToOverride != "" {
		scope = string(models.ScopeSpecific)
	}
	if scope == "" {
		scope = stringField(generated, "scope")
	}
	template.Scope = models.Scope(scope)

	template.SpecificTo = req.SpecificToOverride
	if template.SpecificTo == "" {
		template.SpecificTo = stringField(generated, "specific_to")
	}

	template.Profile = req.BindProfileOverride
	if template.Profile == "" {
		template.Profile = stringField(generated, "profile")
	}

	template.RepeatFor = req.RepeatForOverride
	if template.RepeatFor == "" {
		template.RepeatFor = stringField(generated, "repeat_for")
	}
	template.RepeatEvery = req.RepeatEveryOverride
	if template.RepeatEvery == "" {
		template.RepeatEvery = stringField(generated, "repeat_every")
	}

	if err := template.Normalize(req.TemplateName); err != nil {
		return nil, err
	}
	return template, nil
}

func stringField(obj map[string]any, key string) string {
	value, ok := obj[key]
	if !ok || value == nil {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	return strings.TrimSpace(s)
}

// DeriveTemplateName derives a file-safe template stem from a free-form
// request, e.g. "I want a role that reviews database migrations" becomes
// "reviews-database-migrations".
func DeriveTemplateName(request string) string {
	words := wordPattern.FindAllString(strings.ToLower(request), -1)
	var filtered []string
	for _, word := range words {
		if !nameStopwords[word] {
			filtered = append(filtered, word)
		}
	}
	chosen := filtered
	if len(chosen) == 0 {
		chosen = words
	}
	if len(chosen) == 0 {
		return "generated-role"
	}
	if len(chosen) > 5 {
		chosen = chosen[:5]
	}
	base := strings.Join(chosen, "-")
	if len(base) > 48 {
		base = base[:48]
	}
	base = strings.Trim(base, "-")
	if base == "" {
		return "generated-role"
	}
	if base[0] >= '0' && base[0] <= '9' {
		base = "role-" + base
	}
	return base
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

var nameStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "from": true,
	"i": true, "is": true, "it": true, "of": true, "or": true,
	"please": true, "role": true, "template": true, "that": true,
	"the": true, "this": true, "to": true, "want": true, "with": true,
}
