// Package validator collects field-level validation errors so a handler can
// report everything wrong with a request in one response.
package validator

import (
	"regexp"
)

var (
	// EmailRX matches the address format accepted for account emails.
	EmailRX = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+\\/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

	// PhoneRX matches the phone formats guests and contacts use, with or
	// without separators.
	PhoneRX = regexp.MustCompile(`^\+?[0-9][0-9\-\s]{6,19}$`)
)

// Validator accumulates validation errors keyed by field name.
type Validator struct {
	Errors map[string]string
}

// New returns a Validator with no errors.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid reports whether no errors have been recorded.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records a message for a field, keeping the first message when a
// field fails more than one check.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check records message under key when ok is false.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// In reports whether value equals one of the listed strings.
func In(value string, list ...string) bool {
	for i := range list {
		if value == list[i] {
			return true
		}
	}
	return false
}

// Matches reports whether value matches the regular expression.
func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}
