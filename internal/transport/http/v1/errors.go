package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

func statusMessage(msg string) domain.StatusMessage {
	return domain.StatusMessage{Message: msg}
}

func errorJSON(c echo.Context, status int, detail string) error {
	return c.JSON(status, domain.ErrorResponse{Detail: detail})
}

// statusFor maps an error kind to its HTTP status code.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status of its kind. prefix is prepended to the
// detail of server-side failures.
func writeError(c echo.Context, err error, prefix string) error {
	status := statusFor(err)
	var detail string
	switch {
	case status == http.StatusNotFound:
		detail = "Session not found"
	case errors.Is(err, domain.ErrInvalidImage):
		detail = "Invalid image format"
	case status == http.StatusBadRequest:
		detail = causeOf(err).Error()
	default:
		detail = prefix + err.Error()
	}
	return errorJSON(c, status, detail)
}

// causeOf strips the operation name from a classified error.
func causeOf(err error) error {
	var e *domain.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}
