// Package input is the generic text-input component shared by the chat
// screens. Callers describe what a field accepts with Options; the component
// enforces it.
package input

import (
	"fmt"
	"slices"
	"unicode"
	"unicode/utf8"
)

// SpecialCharsAction says whether SpecialChars lists allowed or blocked runes.
type SpecialCharsAction int

const (
	Allow SpecialCharsAction = iota
	Block
)

// SpecialChars is an explicit set of non-alphanumeric runes.
type SpecialChars struct {
	Action SpecialCharsAction
	Chars  []rune
}

// Validation describes the rules a field value must satisfy.
type Validation struct {
	MaxLength        *int
	MinLength        *int
	AlphaNumericOnly bool
	NoWhitespace     bool
	// Validation is shared between inputs, so colons are exempt only when
	// asked for.
	IgnoreColons bool
	SpecialChars *SpecialChars
}

// Options configures a Model.
type Options struct {
	WithValidation          *Validation
	ClearOnSubmit           bool
	ClearValidationOnSubmit bool
	Placeholder             string
	// CharLimit caps typing; zero derives it from WithValidation.MaxLength.
	CharLimit int
}

// DefaultOptions are used when a caller has no requirements.
func DefaultOptions() Options {
	return Options{
		ClearOnSubmit:           true,
		ClearValidationOnSubmit: true,
	}
}

// Validate checks value against v and returns one message per violated
// rule. An empty result means the value is acceptable.
func (v Validation) Validate(value string) []string {
	var errs []string

	n := utf8.RuneCountInString(value)
	if v.MaxLength != nil && n > *v.MaxLength {
		errs = append(errs, fmt.Sprintf("Maximum of %d characters exceeded.", *v.MaxLength))
	}
	if v.MinLength != nil && n < *v.MinLength {
		errs = append(errs, fmt.Sprintf("Please enter at least %d characters.", *v.MinLength))
	}

	var (
		badWhitespace bool
		badChars      []rune
	)
	for _, r := range value {
		if r == ':' && v.IgnoreColons {
			continue
		}
		if unicode.IsSpace(r) {
			if v.NoWhitespace {
				badWhitespace = true
			}
			continue
		}
		if !v.allowed(r) && !slices.Contains(badChars, r) {
			badChars = append(badChars, r)
		}
	}
	if badWhitespace {
		errs = append(errs, "Spaces are not allowed.")
	}
	if len(badChars) > 0 {
		errs = append(errs, fmt.Sprintf("Not allowed: %q", string(badChars)))
	}
	return errs
}

// Valid is shorthand for len(v.Validate(value)) == 0.
func (v Validation) Valid(value string) bool {
	return len(v.Validate(value)) == 0
}

func (v Validation) allowed(r rune) bool {
	if v.SpecialChars != nil && v.SpecialChars.Action == Block && slices.Contains(v.SpecialChars.Chars, r) {
		return false
	}
	if !v.AlphaNumericOnly || unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return v.SpecialChars != nil &&
		v.SpecialChars.Action == Allow &&
		slices.Contains(v.SpecialChars.Chars, r)
}
