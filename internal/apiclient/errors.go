package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Amund211/haloclient/internal/domain"
)

type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindTransport   ErrorKind = "transport"
	KindAuth        ErrorKind = "auth"
	KindApplication ErrorKind = "application"
	KindDecode      ErrorKind = "decode"
	KindValidation  ErrorKind = "validation"
)

// KindOf classifies err so callers can pick a recovery, e.g. prompting for a new login on KindAuth
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, domain.ErrInvalidMap):
		return KindValidation
	case errors.Is(err, domain.ErrDecode):
		return KindDecode
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
		return KindAuth
	case errors.Is(err, domain.ErrTransport):
		return KindTransport
	default:
		return KindApplication
	}
}

// StatusError is returned for responses with status >= 400
type StatusError struct {
	StatusCode int
	Message    string
}

func newStatusError(statusCode int, body []byte) *StatusError {
	message := strings.TrimSpace(string(body))
	if len(message) > 512 {
		message = message[:512]
	}
	return &StatusError{
		StatusCode: statusCode,
		Message:    message,
	}
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	default:
		return domain.ErrApplication
	}
}

func (e *StatusError) Error() string {
	message := e.Message
	if message == "" {
		switch e.StatusCode {
		case http.StatusNotFound:
			message = "resource not found"
		case http.StatusInternalServerError:
			message = "server error, please try again later"
		default:
			message = http.StatusText(e.StatusCode)
		}
	}
	return fmt.Sprintf("%s (status %d): %s", e.Unwrap().Error(), e.StatusCode, message)
}
