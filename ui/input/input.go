package input

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SubmitMsg is emitted when the user presses enter on a valid value.
type SubmitMsg struct {
	ID    string
	Value string
}

// CancelMsg is emitted when the user presses esc.
type CancelMsg struct {
	ID string
}

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F04747"))

// Model wraps a bubbles textinput with validation and submit behaviour.
type Model struct {
	id      string
	options Options
	text    textinput.Model
	errs    []string
}

// New builds a focused input. id is echoed back in SubmitMsg so one screen
// can host several inputs.
func New(id string, options Options) Model {
	ti := textinput.New()
	ti.Placeholder = options.Placeholder
	ti.CharLimit = options.CharLimit
	if ti.CharLimit == 0 && options.WithValidation != nil && options.WithValidation.MaxLength != nil {
		// One past the maximum so overflow is reported rather than
		// silently truncated.
		ti.CharLimit = *options.WithValidation.MaxLength + 1
	}
	if options.WithValidation != nil {
		v := *options.WithValidation
		ti.Validate = func(s string) error {
			if errs := v.Validate(s); len(errs) > 0 {
				return errors.New(strings.Join(errs, " "))
			}
			return nil
		}
	}
	ti.Focus()

	return Model{id: id, options: options, text: ti}
}

// Value returns the current text.
func (m Model) Value() string {
	return m.text.Value()
}

// SetValue replaces the current text and revalidates it.
func (m *Model) SetValue(s string) {
	m.text.SetValue(s)
	m.errs = m.validate()
}

// Errors are the validation messages currently on display.
func (m Model) Errors() []string {
	return m.errs
}

// Options returns the configuration the input was built with.
func (m Model) Options() Options {
	return m.options
}

func (m Model) validate() []string {
	if m.options.WithValidation == nil {
		return nil
	}
	return m.options.WithValidation.Validate(m.text.Value())
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyEsc:
			id := m.id
			return m, func() tea.Msg { return CancelMsg{ID: id} }
		}
	}

	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	m.errs = m.validate()
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if errs := m.validate(); len(errs) > 0 {
		m.errs = errs
		return m, nil
	}

	value := m.text.Value()
	if m.options.ClearOnSubmit {
		m.text.Reset()
	}
	if m.options.ClearValidationOnSubmit {
		m.errs = nil
	}
	id := m.id
	return m, func() tea.Msg { return SubmitMsg{ID: id, Value: value} }
}

func (m Model) View() string {
	if len(m.errs) == 0 {
		return m.text.View()
	}
	return m.text.View() + "\n" + errorStyle.Render(strings.Join(m.errs, " "))
}
