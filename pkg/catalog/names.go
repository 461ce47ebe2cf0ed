package catalog

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidName is returned for component names that are not class-like
// identifiers.
var ErrInvalidName = errors.New("invalid component name")

// componentNamePattern matches names usable as CSS classes. Persisted
// variant keys rely on it: a component name never contains '@'.
var componentNamePattern = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9-]*$`)

// ValidateComponentName reports whether name can identify a component.
func ValidateComponentName(name string) error {
	if !componentNamePattern.MatchString(name) {
		return fmt.Errorf("%w %q: must start with a letter or underscore and contain only letters, digits, '_' and '-'", ErrInvalidName, name)
	}
	return nil
}
