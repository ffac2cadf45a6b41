package qb

import (
	"fmt"
	"regexp"
)

// identPattern accepts bare ASCII words only. Schema qualification, embedded
// quotes and unicode are rejected.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_\-$]+$`)

// ValidateIdentifier checks that id can be safely wrapped in backticks.
// It returns id unchanged on success.
func ValidateIdentifier(id string) (string, error) {
	if !identPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}

	return id, nil
}

// quoteIdent wraps an already validated identifier.
func quoteIdent(id string) string {
	return "`" + id + "`"
}

func validateAndQuote(id string) (string, error) {
	if _, err := ValidateIdentifier(id); err != nil {
		return "", err
	}

	return quoteIdent(id), nil
}
