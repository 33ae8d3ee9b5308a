package routes

import (
	"errors"
	"net/http"

	"appointly/cmd/internal/utils/apierror"
	"github.com/labstack/echo/v4"
)

type envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Kind    apierror.Kind `json:"kind,omitempty"`
	Message string        `json:"message,omitempty"`
}

func success(c echo.Context, status int, data any) error {
	return c.JSON(status, &envelope{Success: true, Data: data})
}

func failure(c echo.Context, apierr apierror.ErrorResponse) error {
	resp := &envelope{Success: false, Message: apierr.Error()}
	var simple *apierror.SimpleError
	if errors.As(apierr, &simple) {
		resp.Kind = simple.Kind
	}
	code := apierr.Code()
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return c.JSON(code, resp)
}
