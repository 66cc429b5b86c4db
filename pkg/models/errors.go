package models

import "fmt"

// ParseError reports input data that cannot be interpreted: an XBRL archive
// without the annual report member, a paste without a year or section marker.
type ParseError struct {
	Source string // "xbrl", "paste", ...
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s parse error: %s", e.Source, e.Reason)
}

// NewParseError builds a ParseError with a formatted reason.
func NewParseError(source, format string, args ...interface{}) *ParseError {
	return &ParseError{Source: source, Reason: fmt.Sprintf(format, args...)}
}
