// Package errcode maps the six-member entity.Kind taxonomy onto the
// registry's HTTP-facing error envelope. It is grounded on the teacher's
// registry/api/errcode package (register.go's group-registration
// mechanics and handler.go's ServeJSON envelope), but the retrieved copy
// of that package was missing the file defining ErrorCode/ErrorDescriptor/
// Error/Errors themselves; this file reconstructs that surface from how
// register.go and handler.go use it, adapted to Drawbridge's error kinds
// instead of the original registry's per-resource error codes.
package errcode

import (
	"encoding/json"
	"fmt"
)

// ErrorCode is a unique, process-assigned identifier for a registered
// error condition.
type ErrorCode int

// ErrorDescriptor describes a single registered error condition.
type ErrorDescriptor struct {
	// Code is assigned by register.
	Code ErrorCode

	// Value is the unique, human-chosen identifier for this condition,
	// rendered in the JSON envelope's "code" field.
	Value string

	// Message is the default human-readable summary for this condition.
	Message string

	// Description further explains the circumstances of the error.
	Description string

	// HTTPStatusCode is the status code ServeJSON writes for this error.
	HTTPStatusCode int
}

// Descriptor returns the descriptor this code was registered with.
func (ec ErrorCode) Descriptor() ErrorDescriptor {
	d, ok := errorCodeToDescriptors[ec]
	if !ok {
		return ErrorCodeUnknown.Descriptor()
	}
	return d
}

// String returns the error condition's unique identifier, e.g. "NOT_FOUND".
func (ec ErrorCode) String() string { return ec.Descriptor().Value }

// Message returns the default human-readable message for this code.
func (ec ErrorCode) Message() string { return ec.Descriptor().Message }

// Error implements the error interface via the default message, so an
// ErrorCode can be returned and compared against directly.
func (ec ErrorCode) Error() string { return ec.Message() }

// WithDetail attaches arbitrary detail to this code, producing an Error.
func (ec ErrorCode) WithDetail(detail interface{}) Error {
	return Error{Code: ec, Message: ec.Message(), Detail: detail}
}

// WithMessage overrides this code's default message, producing an Error.
func (ec ErrorCode) WithMessage(message string) Error {
	return Error{Code: ec, Message: message}
}

// ErrorCoder is satisfied by anything that can identify its registered
// ErrorCode; ServeJSON type-switches on it to pick the response status.
type ErrorCoder interface {
	ErrorCode() ErrorCode
}

// Error pairs a registered ErrorCode with a request-specific message and
// optional detail.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

// ErrorCode satisfies ErrorCoder.
func (e Error) ErrorCode() ErrorCode { return e.Code }

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.String(), e.Message)
}

// errorCodeJSON mirrors Error's wire shape, with Code rendered as its
// string Value rather than its process-local integer.
type errorCodeJSON struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

// MarshalJSON renders the error in the distribution-style envelope, with
// Code as its string identifier rather than the process-local int.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorCodeJSON{Code: e.Code.String(), Message: e.Message, Detail: e.Detail})
}

// UnmarshalJSON resolves Code's string identifier back to a registered
// ErrorCode.
func (e *Error) UnmarshalJSON(b []byte) error {
	var aux errorCodeJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d, ok := idToDescriptors[aux.Code]
	if !ok {
		e.Code = ErrorCodeUnknown
	} else {
		e.Code = d.Code
	}
	e.Message = aux.Message
	e.Detail = aux.Detail
	return nil
}

// Errors is a slice of errors, serialized as the top-level {"errors": [...]}
// envelope the dispatcher writes for every failed request.
type Errors []error

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "<nil>"
	case 1:
		return errs[0].Error()
	default:
		msg := "errors:\n"
		for _, err := range errs {
			msg += err.Error() + "\n"
		}
		return msg
	}
}

// MarshalJSON renders the envelope, converting any plain error (one not
// already implementing ErrorCoder) to the unknown code so every element
// has a consistent shape.
func (errs Errors) MarshalJSON() ([]byte, error) {
	var tmp struct {
		Errors []Error `json:"errors"`
	}
	for _, err := range errs {
		switch e := err.(type) {
		case Error:
			tmp.Errors = append(tmp.Errors, e)
		case ErrorCode:
			tmp.Errors = append(tmp.Errors, e.WithDetail(nil))
		default:
			tmp.Errors = append(tmp.Errors, ErrorCodeUnknown.WithMessage(err.Error()))
		}
	}
	if tmp.Errors == nil {
		tmp.Errors = []Error{}
	}
	return json.Marshal(tmp)
}

// UnmarshalJSON parses the {"errors": [...]} envelope.
func (errs *Errors) UnmarshalJSON(b []byte) error {
	var tmp struct {
		Errors []Error `json:"errors"`
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*errs = make(Errors, len(tmp.Errors))
	for i, e := range tmp.Errors {
		(*errs)[i] = e
	}
	return nil
}
