package resource

import "fmt"

// Error codes reported by the SDK
const (
	CodeInvalidResourceType    = "INVALID-RESOURCE-TYPE"
	CodeInvalidResourceID      = "INVALID-RESOURCE-ID"
	CodeInvalidResourceMapping = "INVALID-RESOURCE-MAPPING"
	CodeInvalidLocation        = "INVALID-LOCATION"
	CodeCountFailed            = "COUNT-FAILED"
)

// Error is an SDK failure identified by a stable code
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is
var (
	// ErrInvalidResourceType is returned when a wire resource has no type
	ErrInvalidResourceType = &Error{
		Code:    CodeInvalidResourceType,
		Message: "The resource being loaded doesn't have the required resource type.",
	}

	// ErrInvalidResourceID is returned when a wire resource has no string id,
	// or a created resource's id header is missing
	ErrInvalidResourceID = &Error{
		Code:    CodeInvalidResourceID,
		Message: "The resource being loaded doesn't have the required resource id.",
	}

	// ErrInvalidResourceMapping is returned when data of one type is loaded
	// into an object of another
	ErrInvalidResourceMapping = &Error{
		Code:    CodeInvalidResourceMapping,
		Message: "The resource data being loaded cannot be read into this object.",
	}

	// ErrInvalidLocation is returned when a create response has no Location header
	ErrInvalidLocation = &Error{
		Code:    CodeInvalidLocation,
		Message: "The save operation was unable to retrieve the location of the resource created by the API.",
	}

	// ErrCountFailed is returned when a count response carries no numeric meta.count
	ErrCountFailed = &Error{
		Code:    CodeCountFailed,
		Message: "The request to count the number of resources related to this query was unsuccessful.",
	}
)

func newError(sentinel *Error, message string, cause error) *Error {
	if message == "" {
		message = sentinel.Message
	}
	return &Error{Code: sentinel.Code, Message: message, Err: cause}
}
