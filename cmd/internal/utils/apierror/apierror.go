package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is returned by services next to their result. A nil
// ErrorResponse means success.
type ErrorResponse interface {
	error
	Code() int
}

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindAuth       Kind = "auth"
	KindDependency Kind = "dependency"
)

type SimpleError struct {
	Status  int    `json:"-"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *SimpleError) Error() string {
	return e.Message
}

func (e *SimpleError) Code() int {
	return e.Status
}

func NewSimple(code int, message string) *SimpleError {
	return &SimpleError{Status: code, Kind: kindFor(code), Message: message}
}

func NewMissingParamError(name string) *SimpleError {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Missing required parameter '%s'", name))
}

func NewInvalidParamTypeError(name, typ string) *SimpleError {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Parameter '%s' must be of type %s", name, typ))
}

var (
	InternalServerError   = NewSimple(http.StatusInternalServerError, "Internal server error")
	MalformedBodyError    = NewSimple(http.StatusBadRequest, "Malformed request body")
	InvalidAuthTokenError = NewSimple(http.StatusUnauthorized, "Invalid or missing authorization token")

	NotFoundError            = NewSimple(http.StatusNotFound, "Appointment not found.")
	InvalidDateTimeError     = NewSimple(http.StatusBadRequest, "Please provide a valid date and time.")
	AppointmentInPastError   = NewSimple(http.StatusBadRequest, "Please provide a future date.")
	InvertedRangeError       = NewSimple(http.StatusBadRequest, "To time should be greater than from time.")
	EmptyRangeError          = NewSimple(http.StatusBadRequest, "To time and from time should not be same.")
	AppointmentOverlapError  = NewSimple(http.StatusConflict, "Appointment is overlapping with another appointment.")
	AppointmentInactiveError = NewSimple(http.StatusBadRequest, "Only scheduled appointments can be rescheduled.")
)

// dateTimeTags are validation tags whose failure means a bad date or time.
var dateTimeTags = map[string]bool{"usdate": true, "clock12": true}

var dateTimeFields = map[string]bool{"Date": true, "FromTime": true, "ToTime": true}

// FromValidationError turns the first validator failure into a 400 response.
func FromValidationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return MalformedBodyError
	}

	fe := verrs[0]
	if dateTimeTags[fe.Tag()] {
		return InvalidDateTimeError
	}
	if dateTimeFields[fe.StructField()] && fe.Tag() == "required" {
		return InvalidDateTimeError
	}

	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return NewMissingParamError(field)
	case "uuid", "uuid4":
		return NewInvalidParamTypeError(field, "uuid")
	case "max":
		return NewSimple(http.StatusBadRequest, fmt.Sprintf("Parameter '%s' must be at most %s characters", field, fe.Param()))
	default:
		return NewSimple(http.StatusBadRequest, fmt.Sprintf("Parameter '%s' is invalid", field))
	}
}

func kindFor(code int) Kind {
	switch code {
	case http.StatusConflict:
		return KindConflict
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	}
	if code >= 500 {
		return KindDependency
	}
	return KindValidation
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
