// Package apiversion versions the netlist accessor API that backends
// read the elaborated design through.
package apiversion

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Current is the version of the accessor API this build provides. The
// minor number grows when accessors are added; the major number changes
// when an accessor changes meaning.
const Current = "1.4.0"

var current = semver.MustParse(Current)

// Version returns Current as a parsed version.
func Version() *semver.Version { return current }

// Check reports whether Current satisfies constraint, for example
// ">= 1.2, < 2". An empty constraint accepts any version.
func Check(constraint string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid API constraint %q: %w", constraint, err)
	}
	if ok, errs := c.Validate(current); !ok {
		if len(errs) > 0 {
			return fmt.Errorf("netlist API %s does not satisfy %q: %w", Current, constraint, errs[0])
		}
		return fmt.Errorf("netlist API %s does not satisfy %q", Current, constraint)
	}
	return nil
}

// Compatible reports whether a backend built against version v can read
// designs from this build: same major version, and v not newer than
// Current.
func Compatible(v string) (bool, error) {
	want, err := semver.NewVersion(v)
	if err != nil {
		return false, fmt.Errorf("invalid API version %q: %w", v, err)
	}
	return want.Major() == current.Major() && !want.GreaterThan(current), nil
}
