package sample

import (
	"errors"
	"fmt"
)

// InputErrorKind classifies why an input was rejected.
type InputErrorKind string

const (
	KindEmpty      InputErrorKind = "empty"
	KindNotFound   InputErrorKind = "not_found"
	KindUnreadable InputErrorKind = "unreadable"
	KindOversized  InputErrorKind = "oversized"
)

// InputError is the only error surfaced to callers as a hard failure of an analysis.
type InputError struct {
	Kind InputErrorKind
	Path string
	Hint string
	Err  error
}

func (e *InputError) Error() string {
	msg := fmt.Sprintf("input rejected (%s)", e.Kind)
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InputError) Unwrap() error { return e.Err }

// IsInputError reports whether err carries an *InputError and returns it.
func IsInputError(err error) (*InputError, bool) {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

func newInputError(kind InputErrorKind, path string, err error) *InputError {
	var hint string
	switch kind {
	case KindEmpty:
		hint = "the file contains no data; supply a complete executable"
	case KindNotFound:
		hint = "check that the path exists and is spelled correctly"
	case KindUnreadable:
		hint = "check file permissions and that the path is a regular file"
	case KindOversized:
		hint = "raise MAX_FILE_SIZE_MB or analyze a smaller file"
	}
	return &InputError{Kind: kind, Path: path, Hint: hint, Err: err}
}
