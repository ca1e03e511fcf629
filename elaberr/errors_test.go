package elaberr_test

import (
	"bytes"
	"strings"
	"testing"

	"martianoff/velab/elaberr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pos struct {
	file string
	line int
}

func (p pos) FileLine() (string, int) { return p.file, p.line }

func TestDiagnosticString(t *testing.T) {
	d := elaberr.NewDiagnostic(elaberr.SeverityError, pos{"top.v", 12}, "unknown module type: sub")
	assert.Equal(t, "top.v:12: error: unknown module type: sub", d.String())
	assert.Equal(t, elaberr.SeverityError, d.Severity())
}

func TestDiagnosticNoPosition(t *testing.T) {
	d := elaberr.NewDiagnostic(elaberr.SeveritySorry, nil, "queue bounds")
	assert.Equal(t, "sorry: queue bounds", d.String())
}

func TestReporterCounts(t *testing.T) {
	var buf bytes.Buffer
	r := elaberr.NewReporter(&buf)

	r.Warnf(pos{"a.v", 1}, "width %d", 4)
	assert.Equal(t, 0, r.Errors())
	assert.Equal(t, 1, r.Warnings())
	assert.NoError(t, r.Err())

	r.Errorf(pos{"a.v", 2}, "bad")
	r.Sorryf(pos{"a.v", 3}, "not yet")
	assert.Equal(t, 2, r.Errors())
	assert.Len(t, r.Filter(elaberr.SeverityWarning), 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a.v:1: warning: width 4", lines[0])
	assert.Equal(t, "a.v:3: sorry: not yet", lines[2])

	err := r.Err()
	require.Error(t, err)
	var multi *elaberr.MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
	assert.Equal(t, elaberr.SeverityError, multi.Severity())
	assert.Contains(t, err.Error(), "2 error(s) occurred")
}

func TestInternalPanics(t *testing.T) {
	r := elaberr.NewReporter(nil)
	func() {
		defer func() {
			rec := recover()
			ie, ok := rec.(*elaberr.InternalError)
			require.True(t, ok)
			r.Recover(ie)
		}()
		elaberr.Internalf(pos{"x.v", 9}, "missing signal %s", "q")
	}()
	assert.Equal(t, 1, r.Errors())
	assert.Equal(t, "x.v:9: internal error: missing signal q", r.Diagnostics()[0].String())
}
