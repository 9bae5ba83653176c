// Package response menyeragamkan format respons API: { "status", "message", "data" }.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/pkg/apperror"
)

type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data"`
}

func JSON(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Status: status, Message: message, Data: data})
}

// ErrorHandler memetakan error dari controller ke envelope JSON.
// Error 5xx dicatat lengkap di log, tetapi client hanya menerima pesan generik.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code, message := resolve(err)
		if status >= http.StatusInternalServerError {
			log.WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Path(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"error":      err.Error(),
			}).Error("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, Envelope{Status: status, Message: message, Code: code, Data: nil})
		}
		if writeErr != nil {
			log.WithError(writeErr).Warn("failed to write error response")
		}
	}
}

func resolve(err error) (int, string, string) {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		status := apperror.HTTPStatus(ae.Kind)
		if status >= http.StatusInternalServerError {
			return status, apperror.CodeInternal, "Internal server error"
		}
		return status, ae.Code, ae.Message
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, apperror.CodeInternal, "Internal server error"
		}
		return he.Code, "", fmt.Sprint(he.Message)
	}

	return http.StatusInternalServerError, apperror.CodeInternal, "Internal server error"
}
