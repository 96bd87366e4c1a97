package db

import (
	"fmt"
	"regexp"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// identifierPattern accepts a bare or schema-qualified identifier.
// Table and column names are spliced into SQL text, so nothing else is allowed.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateIdentifier returns an error wrapping etl.ErrInvalidInput if name
// cannot be used as a table or column name.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q is not a valid identifier", etl.ErrInvalidInput, name)
	}
	return nil
}

var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateColumn is ValidateIdentifier without schema qualification.
func ValidateColumn(name string) error {
	if !columnPattern.MatchString(name) {
		return fmt.Errorf("%w: %q is not a valid column name", etl.ErrInvalidInput, name)
	}
	return nil
}
