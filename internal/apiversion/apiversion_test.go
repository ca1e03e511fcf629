package apiversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentParses(t *testing.T) {
	v := Version()
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, Current, v.String())
}

func TestCheck(t *testing.T) {
	tests := []struct {
		constraint string
		wantErr    bool
	}{
		{"", false},
		{">= 1.0", false},
		{">= 1.2, < 2", false},
		{"^1.3", false},
		{"~1.4", false},
		{"1.4.0", false},
		{">= 2", true},
		{"< 1.4", true},
		{"~1.3", true},
	}

	for _, tt := range tests {
		err := Check(tt.constraint)
		if tt.wantErr {
			assert.Error(t, err, "constraint: %s", tt.constraint)
		} else {
			assert.NoError(t, err, "constraint: %s", tt.constraint)
		}
	}
}

func TestCheckInvalidConstraint(t *testing.T) {
	err := Check(">>> one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API constraint")
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"1.0.0", true},
		{"1.4.0", true},
		{"1.5.0", false},
		{"2.0.0", false},
		{"0.9.0", false},
	}

	for _, tt := range tests {
		ok, err := Compatible(tt.version)
		require.NoError(t, err, "version: %s", tt.version)
		assert.Equal(t, tt.want, ok, "version: %s", tt.version)
	}

	_, err := Compatible("not-a-version")
	assert.Error(t, err)
}
