// Package apierr implements spec §7's error taxonomy: a typed error with a
// canonical code string and an HTTP status, which internal/dispatch
// converts to the JSON `{code, message}` body. Grounded on the teacher's
// pkg/api/handlers.go writeError/ErrorResponse pattern (status code plus
// a short machine-readable string), generalized from the teacher's ad hoc
// string codes to the fixed, spec-mandated vocabulary and load-time-fatal
// subset.
package apierr

import "fmt"

// Code is one of the canonical error code strings from spec §7.
type Code string

const (
	InvalidQuery         Code = "InvalidQuery"
	InvalidOptions       Code = "InvalidOptions"
	InvalidValue         Code = "InvalidValue"
	TooBig               Code = "TooBig"
	NoSegment            Code = "NoSegment"
	NoRoute              Code = "NoRoute"
	NoTrip               Code = "NoTrip"
	NoMatch              Code = "NoMatch"
	DisabledDataset      Code = "DisabledDataset"
	InvalidFingerprint   Code = "InvalidFingerprint"
	IncompatibleVersion  Code = "IncompatibleFileVersion"
	DatatypeSizeMismatch Code = "DatatypeSizeMismatch"
	InternalError        Code = "InternalError"
)

// loadTimeFatal are codes that can only occur while loading a tar
// container, never at query time; dispatch never produces these as an
// HTTP response, they abort process startup instead (spec §7).
var loadTimeFatal = map[Code]bool{
	InvalidFingerprint:   true,
	IncompatibleVersion:  true,
	DatatypeSizeMismatch: true,
}

// httpStatus maps each query-time code to its HTTP status. Every code not
// listed here is load-time fatal and has no HTTP status.
var httpStatus = map[Code]int{
	InvalidQuery:    400,
	InvalidOptions:  400,
	InvalidValue:    400,
	TooBig:          400,
	NoSegment:       400,
	NoRoute:         400,
	NoTrip:          400,
	NoMatch:         400,
	DisabledDataset: 400,
	InternalError:   500,
}

// Error is a dispatch-boundary error: a canonical code plus a
// human-readable message, matching the JSON body §4.K/§7 require.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus returns the status code a query-time Error maps to. Load-time
// fatal codes (InvalidFingerprint, IncompatibleFileVersion,
// DatatypeSizeMismatch) return 0, since they never reach an HTTP response;
// callers that see one of these at query time have a programming error.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return 0
}

// IsLoadTimeFatal reports whether code can only legitimately occur while
// loading a tar container (and should abort startup rather than ever be
// converted to an HTTP response).
func IsLoadTimeFatal(code Code) bool {
	return loadTimeFatal[code]
}
