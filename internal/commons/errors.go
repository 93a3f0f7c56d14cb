package commons

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimited marks failures caused by throttling or replication lag
	ErrRateLimited = errors.New("rate limited")
	// ErrUploadWarning is returned when Commons refuses an upload with warnings
	ErrUploadWarning = errors.New("upload returned warnings")
)

// APIError is an error object returned by the MediaWiki API
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Info)
}

// Is lets errors.Is(err, ErrRateLimited) match throttling codes and messages
func (e *APIError) Is(target error) bool {
	if target != ErrRateLimited {
		return false
	}
	switch e.Code {
	case "ratelimited", "maxlag":
		return true
	}
	return mentionsRateLimit(e.Info)
}

// StatusError is returned when the API answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("commons API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == 429
}

func mentionsRateLimit(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate") || strings.Contains(lower, "throttle")
}

// IsRateLimited reports whether err indicates the caller should back off
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) || mentionsRateLimit(err.Error())
}
