// Package ui implements the interactive template picker: a filterable
// bubbletea list with a live markdown preview of the selected template.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"roleflow/internal/clipboard"
	"roleflow/internal/models"
	"roleflow/internal/service"
)

// pickerAction is what the user asked for when leaving the picker.
type pickerAction int

const (
	actionNone pickerAction = iota
	actionShow
	actionDryRun
	actionCopy
)

// templateItem implements list.Item for a role template.
type templateItem struct {
	template *models.Template
}

func (i templateItem) FilterValue() string {
	return i.template.Name + " " + i.template.Description
}

func (i templateItem) Title() string {
	return i.template.Name
}

func (i templateItem) Description() string {
	return fmt.Sprintf("%s · %s", i.template.ScopeText(), i.template.Description)
}

type pickerModel struct {
	list    list.Model
	preview string
	width   int
	height  int

	chosen *models.Template
	action pickerAction
}

func newPickerModel(templates []*models.Template) pickerModel {
	items := make([]list.Item, len(templates))
	for i, t := range templates {
		items[i] = templateItem{template: t}
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 40, 20)
	l.Title = "Role Templates"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	m := pickerModel{list: l}
	m.refreshPreview()
	return m
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listWidth := m.width / 2
		if listWidth < 30 {
			listWidth = 30
		}
		m.list.SetSize(listWidth, m.height-2)
		m.refreshPreview()
		return m, nil

	case tea.KeyMsg:
		// While the filter input is active, keys belong to the list.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.chosen = m.selected()
			m.action = actionShow
			return m, tea.Quit
		case "r":
			m.chosen = m.selected()
			m.action = actionDryRun
			return m, tea.Quit
		case "c":
			m.chosen = m.selected()
			m.action = actionCopy
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.refreshPreview()
	return m, cmd
}

func (m *pickerModel) selected() *models.Template {
	item, ok := m.list.SelectedItem().(templateItem)
	if !ok {
		return nil
	}
	return item.template
}

func (m *pickerModel) refreshPreview() {
	template := m.selected()
	if template == nil {
		m.preview = mutedStyle.Render("No template selected")
		return
	}
	rendered, err := RenderMarkdown(TemplateMarkdown(template))
	if err != nil {
		rendered = TemplateMarkdown(template)
	}
	m.preview = rendered
}

func (m pickerModel) View() string {
	help := mutedStyle.Render("enter: show · r: dry-run · c: copy · /: filter · q: quit")

	previewWidth := m.width - m.list.Width() - 6
	if previewWidth < 20 {
		previewWidth = 20
	}
	preview := previewBorderStyle.Width(previewWidth).Render(m.preview)

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), preview)
	return lipgloss.JoinVertical(lipgloss.Left, body, help)
}

// RunPicker starts the interactive picker and performs the action the
// user chose on exit.
func RunPicker(svc *service.Service) error {
	templates, err := svc.ListTemplates()
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		fmt.Println(mutedStyle.Render("No templates yet. Create one with `roleflow create` or `roleflow ai`."))
		return nil
	}

	program := tea.NewProgram(newPickerModel(templates), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("picker failed: %w", err)
	}

	m, ok := final.(pickerModel)
	if !ok || m.chosen == nil || m.action == actionNone {
		return nil
	}

	switch m.action {
	case actionShow:
		rendered, err := RenderMarkdown(TemplateMarkdown(m.chosen))
		if err != nil {
			fmt.Print(TemplateMarkdown(m.chosen))
			return nil
		}
		fmt.Print(rendered)
	case actionDryRun:
		result, err := svc.RunTemplate(m.chosen.Name, service.RunOptions{DryRun: true})
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", titleStyle.Render("# profile: "+result.Invocation.ProfileName))
		fmt.Println(result.Invocation.Prompt)
	case actionCopy:
		text := m.chosen.Role + "\n" + m.chosen.Instructions
		if err := clipboard.Copy(text); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Failed to copy to clipboard: %v", err)))
			return nil
		}
		fmt.Println("Copied to clipboard!")
	}
	return nil
}
