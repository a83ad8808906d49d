package chatdata

import "github.com/puyokura/cmppview/ui/input"

const groupNameMaxLength = 64

// groupNameSpecialChars are the punctuation runes a group name may use on
// top of letters, digits and whitespace.
const groupNameSpecialChars = " .,!?_&+~(){}[]-/*"

// GroupNameValidation is the rule set for renaming a group. It only
// describes the rules; input.Validation enforces them.
func GroupNameValidation() *input.Validation {
	maxLength, minLength := groupNameMaxLength, 0
	return &input.Validation{
		MaxLength:        &maxLength,
		MinLength:        &minLength,
		AlphaNumericOnly: true,
		NoWhitespace:     false,
		IgnoreColons:     false,
		SpecialChars: &input.SpecialChars{
			Action: input.Allow,
			Chars:  []rune(groupNameSpecialChars),
		},
	}
}

// InputOptions configures the group rename field. The typed name stays in
// the field after submit; stale validation errors do not.
func InputOptions() input.Options {
	opts := input.DefaultOptions()
	opts.WithValidation = GroupNameValidation()
	opts.ClearOnSubmit = false
	opts.ClearValidationOnSubmit = true
	opts.Placeholder = "Group name"
	return opts
}
