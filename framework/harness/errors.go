package harness

import (
	"errors"
	"fmt"
)

// SetupErrorKind says which part of a test's setup failed.
type SetupErrorKind string

const (
	// BindError means a listener could not be created.
	BindError SetupErrorKind = "bind"

	// InvalidRoutes means a route table was rejected before the server started.
	InvalidRoutes SetupErrorKind = "routes"

	// ServiceError means the host test service could not be reached or returned an error status.
	ServiceError SetupErrorKind = "service"

	// EntityError means the host test service did not create a window or other entity.
	EntityError SetupErrorKind = "entity"
)

// SetupError reports that a fixture could not be created. It is always fatal to the test that
// asked for the fixture; nothing in the harness retries.
type SetupError struct {
	Kind        SetupErrorKind
	Description string
	Err         error
}

func (e *SetupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("setup failed (%s): %s", e.Kind, e.Description)
	}
	return fmt.Sprintf("setup failed (%s): %s: %s", e.Kind, e.Description, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// IsSetupError returns true if err is, or wraps, a SetupError of the given kind.
func IsSetupError(err error, kind SetupErrorKind) bool {
	var se *SetupError
	return errors.As(err, &se) && se.Kind == kind
}

func newSetupError(kind SetupErrorKind, err error, format string, args ...interface{}) *SetupError {
	return &SetupError{Kind: kind, Description: fmt.Sprintf(format, args...), Err: err}
}
