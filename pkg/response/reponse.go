package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "pasartani/pkg/errors"
)

// Envelope is the REST wire format the client consumes: a success carries
// the payload under "response", a failure is flagged with a message.
type Envelope struct {
	Response interface{} `json:"response,omitempty"`
	Error    bool        `json:"error,omitempty"`
	Message  string      `json:"message,omitempty"`
}

func Success(c echo.Context, payload interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Response: payload})
}

func Created(c echo.Context, payload interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Response: payload})
}

func Error(c echo.Context, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return c.JSON(appErr.Status, Envelope{Error: true, Message: appErr.Message})
	}
	return c.JSON(http.StatusInternalServerError, Envelope{Error: true, Message: "An unexpected error occurred"})
}
