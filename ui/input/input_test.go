package input

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func nameRules() *Validation {
	return &Validation{
		MaxLength:        intPtr(8),
		MinLength:        intPtr(2),
		AlphaNumericOnly: true,
		SpecialChars:     &SpecialChars{Action: Allow, Chars: []rune{'-'}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		rules Validation
		value string
		ok    bool
	}{
		{"plain", *nameRules(), "abc", true},
		{"allowed special", *nameRules(), "a-b", true},
		{"too long", *nameRules(), "abcdefghi", false},
		{"too short", *nameRules(), "a", false},
		{"special not listed", *nameRules(), "a#b", false},
		{"whitespace allowed", *nameRules(), "a b", true},
		{"whitespace blocked", Validation{NoWhitespace: true}, "a b", false},
		{"colon rejected", Validation{AlphaNumericOnly: true}, "a:b", false},
		{"colon exempt", Validation{AlphaNumericOnly: true, IgnoreColons: true}, "a:b", true},
		{"block list", Validation{SpecialChars: &SpecialChars{Action: Block, Chars: []rune{'@'}}}, "a@b", false},
		{"no rules", Validation{}, "#$%", true},
		{"unicode letters count as one", Validation{MaxLength: intPtr(3)}, "äöü", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.rules.Valid(tt.value), tt.rules.Validate(tt.value))
		})
	}
}

func TestValidateReportsEachRuleOnce(t *testing.T) {
	errs := nameRules().Validate("#a#b#c#d#e")
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Maximum of 8")
	assert.Contains(t, errs[1], `"#"`)
}

func TestModelSubmitKeepsValue(t *testing.T) {
	m := New("rename", Options{WithValidation: nameRules(), ClearValidationOnSubmit: true})
	m.SetValue("team")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SubmitMsg{ID: "rename", Value: "team"}, cmd())
	assert.Equal(t, "team", m.Value())
	assert.Empty(t, m.Errors())
}

func TestModelSubmitClears(t *testing.T) {
	m := New("msg", DefaultOptions())
	m.SetValue("hello")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "hello", cmd().(SubmitMsg).Value)
	assert.Empty(t, m.Value())
}

func TestModelRejectsInvalidSubmit(t *testing.T) {
	m := New("rename", Options{WithValidation: nameRules()})
	m.SetValue("a#")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.NotEmpty(t, m.Errors())
	assert.Contains(t, m.View(), "Not allowed")
}

func TestModelTypingRevalidates(t *testing.T) {
	m := New("rename", Options{WithValidation: nameRules()})
	m.SetValue("ab")
	require.Empty(t, m.Errors())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("#")})
	assert.True(t, strings.HasSuffix(m.Value(), "#"))
	assert.NotEmpty(t, m.Errors())
}

func TestModelCancel(t *testing.T) {
	m := New("rename", DefaultOptions())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{ID: "rename"}, cmd())
}
