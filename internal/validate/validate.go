// Package validate implements per-field form rules. Rules are pure: they see
// a value and return a message, or "" when the value is acceptable.
package validate

import (
	"net/mail"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Rule checks a single value.
type Rule func(value string) string

// CrossRule checks a value against the rest of the form.
type CrossRule func(value string, values Values) string

// Values maps field names to raw input.
type Values map[string]string

// Errors maps field names to the first failing rule's message.
type Errors map[string]string

// Error lets a non-empty Errors travel as an error. Fields are listed in
// sorted order.
func (e Errors) Error() string {
	return "invalid " + strings.Join(e.Fields(), ", ")
}

// Fields returns the failing field names, sorted.
func (e Errors) Fields() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Required fails on an empty value.
func Required(msg string) Rule {
	return func(value string) string {
		if value == "" {
			return msg
		}
		return ""
	}
}

// TrimmedRequired fails on a value that is empty after trimming whitespace.
func TrimmedRequired(msg string) Rule {
	return func(value string) string {
		if strings.TrimSpace(value) == "" {
			return msg
		}
		return ""
	}
}

// MinLength fails when the untrimmed value has fewer than n characters.
func MinLength(n int, msg string) Rule {
	return func(value string) string {
		if utf8.RuneCountInString(value) < n {
			return msg
		}
		return ""
	}
}

// TrimmedMinLength is MinLength applied to the value without surrounding
// whitespace, which is what gets stored.
func TrimmedMinLength(n int, msg string) Rule {
	return func(value string) string {
		if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
			return msg
		}
		return ""
	}
}

// Email fails on a value that is not a bare email address.
func Email(msg string) Rule {
	return func(value string) string {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return msg
		}
		return ""
	}
}

// OneOf fails unless value is one of allowed.
func OneOf(allowed []string, msg string) Rule {
	return func(value string) string {
		if !slices.Contains(allowed, value) {
			return msg
		}
		return ""
	}
}

// Matches fails unless value equals the value of field other.
func Matches(other, msg string) CrossRule {
	return func(value string, values Values) string {
		if value != values[other] {
			return msg
		}
		return ""
	}
}

// Field is a named input with its rules, evaluated in order.
type Field struct {
	Name  string
	Rules []Rule
	Cross []CrossRule
}

// Check returns the first failing message for value.
func (f Field) Check(value string, values Values) string {
	for _, rule := range f.Rules {
		if msg := rule(value); msg != "" {
			return msg
		}
	}
	for _, rule := range f.Cross {
		if msg := rule(value, values); msg != "" {
			return msg
		}
	}
	return ""
}

// Schema is an ordered set of fields.
type Schema []Field

// Validate evaluates every field and returns the failures. A nil result
// means the values are valid.
func (s Schema) Validate(values Values) Errors {
	var errs Errors
	for _, f := range s {
		if msg := f.Check(values[f.Name], values); msg != "" {
			if errs == nil {
				errs = make(Errors)
			}
			errs[f.Name] = msg
		}
	}
	return errs
}

// Valid reports whether values pass every rule.
func (s Schema) Valid(values Values) bool {
	return len(s.Validate(values)) == 0
}

func (s Schema) field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Form tracks values and errors across edits. Errors only appear after the
// first Submit; from then on each Change re-checks the edited field.
type Form struct {
	schema Schema

	mu        sync.Mutex
	values    Values
	errors    Errors
	submitted bool
}

// NewForm creates an empty form for schema.
func NewForm(schema Schema) *Form {
	return &Form{schema: schema, values: make(Values), errors: make(Errors)}
}

// Change records a keystroke and returns the field's current error.
func (f *Form) Change(name, value string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[name] = value
	if !f.submitted {
		return ""
	}
	field, ok := f.schema.field(name)
	if !ok {
		return ""
	}
	if msg := field.Check(value, f.values); msg != "" {
		f.errors[name] = msg
		return msg
	}
	delete(f.errors, name)
	return ""
}

// Submit evaluates every field against values and reports whether the form
// is valid.
func (f *Form) Submit(values Values) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for k, v := range values {
		f.values[k] = v
	}
	f.submitted = true
	f.errors = f.schema.Validate(f.values)
	if f.errors == nil {
		f.errors = make(Errors)
	}
	return len(f.errors) == 0
}

// Errors returns a copy of the current errors.
func (f *Form) Errors() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(Errors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Value returns the raw value of a field.
func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}
