package document

import "errors"

// Error is a stable, coded failure kind. Every violated precondition in the
// scene model maps to exactly one of the values below.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrMissingIdentifier     = &Error{100, "missing props: objects require an id"}
	ErrInvalidArgumentShape  = &Error{101, "invalid argument: expected an object record"}
	ErrInvalidBatchShape     = &Error{102, "invalid argument: expected a list of object records"}
	ErrNoSurfaceBound        = &Error{103, "invalid surface: no drawing surface bound"}
	ErrInvalidEventName      = &Error{104, "invalid argument: event name must be non-empty text"}
	ErrInvalidCallback       = &Error{105, "invalid argument: callback must be a function"}
	ErrUnknownIdentifier     = &Error{106, "invalid id: no object found with that id"}
	ErrMissingDrawCallback   = &Error{107, "missing props: custom objects require a draw callback"}
	ErrInvalidDrawCallback   = &Error{108, "invalid props: draw must be a callable drawer"}
	ErrMissingType           = &Error{109, "missing props: objects require a type"}
	ErrMissingURL            = &Error{110, "missing props: image objects require a url"}
	ErrIdentifierImmutable   = &Error{111, "update declined: id cannot be updated"}
	ErrTypeImmutable         = &Error{112, "update declined: type cannot be updated"}
	ErrInvalidDefaultsConfig = &Error{113, "invalid options: defaults must be a record"}
	ErrMissingText           = &Error{114, "missing props: text objects require text"}
	ErrMissingPath           = &Error{115, "missing props: path objects require a path"}
	ErrMissingEndpoints      = &Error{116, "missing props: line objects require positive from and to points"}
	ErrInvalidScale          = &Error{117, "invalid props: scale must be greater than zero"}
	ErrInvalidChunkType      = &Error{118, "invalid props: only circle, path and rectangle objects can be chunks"}
	ErrMissingPoints         = &Error{119, "missing props: polygon objects require points"}
	ErrInvalidType           = &Error{120, "invalid props: unknown object type"}
)

// Code returns the numeric code of the first *Error found in err's chain,
// or 0 when err carries none.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
