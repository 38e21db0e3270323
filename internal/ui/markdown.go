package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"roleflow/internal/models"
)

// newGlamourRenderer creates a glamour renderer, honoring the
// GLAMOUR_STYLE environment override the same way the terminal ecosystem
// tools do.
func newGlamourRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
}

// RenderMarkdown renders markdown for terminal display.
func RenderMarkdown(body string) (string, error) {
	renderer, err := newGlamourRenderer(80)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(body)
}

// TemplateMarkdown renders a template as a markdown document.
func TemplateMarkdown(t *models.Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Name)
	fmt.Fprintf(&b, "%s\n\n", t.Description)
	fmt.Fprintf(&b, "- Scope: %s\n", t.ScopeText())
	fmt.Fprintf(&b, "- Cadence: %s\n", t.CadenceText())
	if t.Profile != "" {
		fmt.Fprintf(&b, "- Profile: %s\n", t.Profile)
	}
	fmt.Fprintf(&b, "\n## Role\n\n%s\n", t.Role)
	fmt.Fprintf(&b, "\n## Instructions\n\n%s\n", t.Instructions)
	return b.String()
}
