package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
)

const (
	MsgFreeLimitExceeded = "Free usage limit exceeded. Upgrade to premium."
	MsgUpgradeRequired   = "Upgrade to premium."
	MsgRateLimited       = "API rate limit exceeded. Please try again in a few minutes."
	MsgResumeTooLarge    = "File size exceeds 5MB limit."
)

// ServiceError carries the status and user facing message for a failed operation.
// StatusCode 200 marks a policy rejection that is reported as success:false.
type ServiceError struct {
	Err        error
	Msg        string
	StatusCode int
	Env        map[string]string
}

func NewServiceError(err error, statusCode int, msg string, args ...any) *ServiceError {
	return &ServiceError{
		Err:        err,
		Msg:        fmt.Sprintf(msg, args...),
		StatusCode: statusCode,
		Env:        make(map[string]string),
	}
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether a provider error signals rate limiting or quota exhaustion.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var status interface{ HTTPStatus() int }
	if errors.As(err, &status) && status.HTTPStatus() == http.StatusTooManyRequests {
		return true
	}
	var code interface{ HTTPCode() int }
	if errors.As(err, &code) && code.HTTPCode() == http.StatusTooManyRequests {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	var oerr *openai.Error
	if errors.As(err, &oerr) && oerr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource exhausted")
}

// providerFailure maps a provider error to 429 or 500, keeping ServiceErrors as they are.
func providerFailure(err error, action string) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	if IsRateLimited(err) {
		return NewServiceError(err, http.StatusTooManyRequests, MsgRateLimited)
	}
	return NewServiceError(err, http.StatusInternalServerError, "Failed to %s. Please try again.", action)
}
