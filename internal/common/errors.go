package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration matches every ConfigurationError and EntryError with errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// WrapError prefixes err with message. A nil err stays nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf is WrapError with a format string.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return WrapError(err, fmt.Sprintf(format, args...))
}

// ValidationError reports a single rejected value.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigurationError reports a configuration section that cannot be used as a whole.
type ConfigurationError struct {
	Section string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Section != "" && e.Field != "":
		return fmt.Sprintf("configuration error in section '%s', field '%s': %s", e.Section, e.Field, e.Reason)
	case e.Section != "":
		return fmt.Sprintf("configuration error in section '%s': %s", e.Section, e.Reason)
	default:
		return "configuration error: " + e.Reason
	}
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(section, field, reason string) *ConfigurationError {
	return &ConfigurationError{Section: section, Field: field, Reason: reason}
}

// EntryError pins a failure to one entry of a configuration list such as sources or outputs.
// Line is the 1-based line of the entry in the configuration file, 0 when unknown.
type EntryError struct {
	Section string
	Index   int
	Line    int
	Type    string
	Err     error
}

func (e *EntryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]", e.Section, e.Index)
	if e.Type != "" {
		fmt.Fprintf(&b, " (type %q)", e.Type)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

// Unwrap exposes both the cause and ErrInvalidConfiguration.
func (e *EntryError) Unwrap() []error {
	return []error{e.Err, ErrInvalidConfiguration}
}

// NewEntryError creates an EntryError.
func NewEntryError(section string, index, line int, typeName string, err error) *EntryError {
	return &EntryError{Section: section, Index: index, Line: line, Type: typeName, Err: err}
}

// ErrorCollector accumulates errors. The zero value is ready to use.
type ErrorCollector struct {
	errs []error
}

// Add records err unless it is nil.
func (ec *ErrorCollector) Add(err error) {
	if err != nil {
		ec.errs = append(ec.errs, err)
	}
}

// AddWithContext records err prefixed with context unless it is nil.
func (ec *ErrorCollector) AddWithContext(err error, context string) {
	ec.Add(WrapError(err, context))
}

// Len returns the number of recorded errors.
func (ec *ErrorCollector) Len() int {
	return len(ec.errs)
}

// Error returns nil, the only recorded error, or a joined error listing all of them.
// The joined error still matches every recorded error with errors.Is and errors.As.
func (ec *ErrorCollector) Error() error {
	switch len(ec.errs) {
	case 0:
		return nil
	case 1:
		return ec.errs[0]
	}
	return &multiError{errs: append([]error(nil), ec.errs...)}
}

type multiError struct {
	errs []error
}

func (m *multiError) Error() string {
	messages := make([]string, len(m.errs))
	for i, err := range m.errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: [%s]", len(m.errs), strings.Join(messages, "; "))
}

func (m *multiError) Unwrap() []error {
	return m.errs
}
