package canvas

import (
	"errors"
	"fmt"
)

// Error codes. The legacy backend conflated wrong_query and
// incorrect_appkey into one condition; they are distinct here and surface
// through the config and identity endpoints unchanged.
const (
	CodeAlreadyInitialized        = "already_initialized"
	CodeUnableToRetrieveAppConfig = "unable_to_retrieve_app_config"
	CodeInvalidConfig             = "invalid_config"
	CodeInvalidCanvasConfig       = "invalid_canvas_config"
	CodeNetworkError              = "network_error"
	CodeNoSuitableAppClass        = "no_suitable_app_class"
	CodePartialResource           = "partial_resource_error"
)

// Error is a coded canvas error. Render marks errors the host should show
// inside the container; all others stay silent aside from logs and events.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Render  bool   `json:"render,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err carries the given canvas error code.
func IsCode(err error, code string) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
