package provider

import (
	"errors"
	"fmt"
)

// ErrThrottled is returned when the local outbound budget is exhausted.
var ErrThrottled = errors.New("provider outbound rate exceeded")

// ProviderError is returned when a provider responds with a non-2xx status.
//
// Message and MoreInfo carry provider text for logs only; they are never
// shown to callers.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       int
	Message    string
	MoreInfo   string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Code > 0 {
		return fmt.Sprintf("%s request failed: status %d: code %d: %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}
