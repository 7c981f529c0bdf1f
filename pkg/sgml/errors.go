package sgml

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal structural errors. A *FormatError wraps exactly one of these.
var (
	ErrInvalidLeadingMarker = errors.New("expected <SUBMISSION> or <SEC-DOCUMENT> at the start of the file")
	ErrMissingOpenBracket   = errors.New("expected '<' at start of line")
	ErrMissingCloseBracket  = errors.New("expected '>' in line")
	ErrUnterminatedText     = errors.New("unexpected end of file while reading TEXT field")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrMissingColon         = errors.New("expected ':' in SEC-HEADER line")
	ErrValueConflict        = errors.New("value kind conflicts with existing field")
)

// ErrEmptyValue is returned by Encode for an empty value under a key that is
// not a flag field. A bare tag would decode as a nested block.
var ErrEmptyValue = errors.New("empty value has no tag form")

// FormatError reports where a structural violation was found.
type FormatError struct {
	Err  error
	Line int    // 1-based, 0 when unknown
	Key  string // offending field, if any
	Text string // offending line without its terminator
}

func (e *FormatError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Err.Error())
	if e.Key != "" {
		fmt.Fprintf(&b, ": %s", e.Key)
	}
	if e.Text != "" {
		fmt.Fprintf(&b, " (in line: %q)", e.Text)
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// WarningKind classifies a non-fatal finding.
type WarningKind string

const (
	WarnUnknownHeaderKey   WarningKind = "unknown-header-key"
	WarnDuplicateHeaderKey WarningKind = "duplicate-header-key"
	WarnMissingField       WarningKind = "missing-field"
)

// Warning is a non-fatal finding. It never changes the decoded record.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Key     string      `json:"key"`
	Value   string      `json:"value,omitempty"`
	Section string      `json:"section,omitempty"`
	Line    int         `json:"line,omitempty"`
	Source  string      `json:"source,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnUnknownHeaderKey:
		return fmt.Sprintf("unknown key in SEC-HEADER: key=%s, value=%s, section=%s", w.Key, w.Value, w.Section)
	case WarnDuplicateHeaderKey:
		return fmt.Sprintf("duplicate key in SEC-HEADER: %s", w.Key)
	case WarnMissingField:
		return fmt.Sprintf("top level field %q not found in %s", w.Key, w.Source)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Key)
}
