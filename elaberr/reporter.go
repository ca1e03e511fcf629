package elaberr

import (
	"fmt"
	"io"
)

// Reporter accumulates diagnostics for one elaboration run. Errors and
// sorry messages increment the error counter; warnings never do.
type Reporter struct {
	out         io.Writer
	diagnostics []*Diagnostic
	errors      int
	warnings    int
}

// NewReporter creates a reporter that echoes each diagnostic line to out.
// A nil writer keeps diagnostics in memory only.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) report(sev Severity, loc Locator, format string, args []any) *Diagnostic {
	d := NewDiagnostic(sev, loc, fmt.Sprintf(format, args...))
	r.add(d)
	return d
}

func (r *Reporter) add(d *Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
	if d.Sev.Counts() {
		r.errors++
	} else {
		r.warnings++
	}
	if r.out != nil {
		fmt.Fprintln(r.out, d.String())
	}
}

// Errorf records a user error.
func (r *Reporter) Errorf(loc Locator, format string, args ...any) *Diagnostic {
	return r.report(SeverityError, loc, format, args)
}

// Warnf records an advisory warning.
func (r *Reporter) Warnf(loc Locator, format string, args ...any) *Diagnostic {
	return r.report(SeverityWarning, loc, format, args)
}

// Sorryf records an unsupported-feature error.
func (r *Reporter) Sorryf(loc Locator, format string, args ...any) *Diagnostic {
	return r.report(SeveritySorry, loc, format, args)
}

// Recover records an internal error raised with Internalf.
func (r *Reporter) Recover(ie *InternalError) {
	d := ie.Diagnostic
	r.add(&d)
}

// Errors returns the number of errors (including sorry and internal).
func (r *Reporter) Errors() int { return r.errors }

// Warnings returns the number of warnings.
func (r *Reporter) Warnings() int { return r.warnings }

// Diagnostics returns every diagnostic in report order.
func (r *Reporter) Diagnostics() []*Diagnostic { return r.diagnostics }

// Filter returns the diagnostics of one severity.
func (r *Reporter) Filter(sev Severity) []*Diagnostic {
	var res []*Diagnostic
	for _, d := range r.diagnostics {
		if d.Sev == sev {
			res = append(res, d)
		}
	}
	return res
}

// Err returns nil when no errors were recorded, otherwise a MultiError
// holding every counted diagnostic.
func (r *Reporter) Err() error {
	if r.errors == 0 {
		return nil
	}
	m := &MultiError{}
	for _, d := range r.diagnostics {
		if d.Sev.Counts() {
			m.Errors = append(m.Errors, d)
		}
	}
	return m
}
