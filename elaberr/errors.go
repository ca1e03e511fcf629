package elaberr

import (
	"fmt"
	"strings"
)

// Severity defines the category of a diagnostic.
type Severity string

const (
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeveritySorry    Severity = "sorry"
	SeverityInternal Severity = "internal error"
)

// Counts reports whether a diagnostic of this severity increments the
// design error counter.
func (s Severity) Counts() bool {
	return s != SeverityWarning
}

// Locator is anything that can name its source position.
type Locator interface {
	FileLine() (string, int)
}

// ElabError is the interface for all elaboration diagnostics that escape as Go errors.
type ElabError interface {
	error
	Severity() Severity
}

// Diagnostic is one reported problem, addressed to a source line.
type Diagnostic struct {
	Sev  Severity
	File string
	Line int
	Msg  string
}

func (d *Diagnostic) Error() string {
	return d.String()
}

func (d *Diagnostic) Severity() Severity {
	return d.Sev
}

// String renders the diagnostic as "<file>:<line>: <severity>: <message>".
func (d *Diagnostic) String() string {
	if d.File != "" {
		return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Sev, d.Msg)
	}
	return fmt.Sprintf("%s: %s", d.Sev, d.Msg)
}

// NewDiagnostic creates a diagnostic at the position of loc. A nil
// locator produces a diagnostic without position.
func NewDiagnostic(sev Severity, loc Locator, msg string) *Diagnostic {
	d := &Diagnostic{Sev: sev, Msg: msg}
	if loc != nil {
		d.File, d.Line = loc.FileLine()
	}
	return d
}

// InternalError is raised (by panic) when an invariant that elaboration
// itself should have established does not hold.
type InternalError struct {
	Diagnostic
}

// Internalf panics with an InternalError. Source-level recovery does not
// apply to these conditions.
func Internalf(loc Locator, format string, args ...any) {
	d := NewDiagnostic(SeverityInternal, loc, fmt.Sprintf(format, args...))
	panic(&InternalError{Diagnostic: *d})
}

// MultiError collects multiple elaboration errors.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) occurred:\n", len(m.Errors)))
	for _, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("- %v\n", err))
	}
	return sb.String()
}

func (m *MultiError) Severity() Severity {
	if len(m.Errors) > 0 {
		if ee, ok := m.Errors[0].(ElabError); ok {
			return ee.Severity()
		}
	}
	return SeverityError
}
