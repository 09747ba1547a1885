package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies why a send attempt was not accepted.
type ErrorKind string

const (
	KindMissingParameter    ErrorKind = "MISSING_PARAMETER"
	KindInvalidFormat       ErrorKind = "INVALID_FORMAT"
	KindMessageTooLong      ErrorKind = "MESSAGE_TOO_LONG"
	KindSenderTooLong       ErrorKind = "SENDER_TOO_LONG"
	KindCooldownActive      ErrorKind = "COOLDOWN_ACTIVE"
	KindRateLimited         ErrorKind = "RATE_LIMITED"
	KindProviderRejected    ErrorKind = "PROVIDER_REJECTED"
	KindProviderUnavailable ErrorKind = "PROVIDER_UNAVAILABLE"
)

// ProviderSubkind narrows a provider rejection.
type ProviderSubkind string

const (
	SubkindInvalidNumber     ProviderSubkind = "invalid_number"
	SubkindRegionUnsupported ProviderSubkind = "region_unsupported"
	SubkindBlacklisted       ProviderSubkind = "blacklisted"
	SubkindNotSMSCapable     ProviderSubkind = "not_sms_capable"
	SubkindAuthConfigError   ProviderSubkind = "auth_config_error"
	SubkindUnknown           ProviderSubkind = "unknown"
)

// Error is the typed failure returned by validation, admission control and
// the orchestrator. Message is safe to show to callers; Err is not.
type Error struct {
	Kind       ErrorKind
	Subkind    ProviderSubkind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "send error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (e *Error) RetryAfterSeconds() int {
	if e == nil || e.RetryAfter <= 0 {
		return 0
	}
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

func NewMissingParameter(names ...string) *Error {
	msg := "Missing required parameters: phone, sender, and text are required"
	if len(names) == 1 {
		msg = fmt.Sprintf("Missing required parameter: %s", names[0])
	} else if len(names) > 1 {
		msg = fmt.Sprintf("Missing required parameters: %s", joinNames(names))
	}
	return &Error{Kind: KindMissingParameter, Message: msg}
}

func NewInvalidFormat(message string) *Error {
	return &Error{Kind: KindInvalidFormat, Message: message}
}

func NewMessageTooLong(limit int) *Error {
	return &Error{Kind: KindMessageTooLong, Message: fmt.Sprintf("Message text exceeds %d characters", limit)}
}

func NewSenderTooLong(limit int) *Error {
	return &Error{Kind: KindSenderTooLong, Message: fmt.Sprintf("Sender name exceeds %d characters", limit)}
}

func NewCooldownActive(remainingSeconds int) *Error {
	return &Error{
		Kind:       KindCooldownActive,
		Message:    fmt.Sprintf("Please wait %d seconds before sending another SMS to this number", remainingSeconds),
		RetryAfter: time.Duration(remainingSeconds) * time.Second,
	}
}

func NewRateLimited(retryAfter time.Duration) *Error {
	minutes := int(retryAfter / time.Minute)
	if retryAfter%time.Minute != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Too many SMS requests from this address, please try again in %d %s", minutes, unit),
		RetryAfter: retryAfter,
	}
}

func NewProviderRejected(subkind ProviderSubkind, cause error) *Error {
	return &Error{
		Kind:    KindProviderRejected,
		Subkind: subkind,
		Message: ProviderMessage(subkind),
		Err:     cause,
	}
}

func NewProviderUnavailable(cause error) *Error {
	return &Error{
		Kind:    KindProviderUnavailable,
		Message: "SMS service is temporarily unavailable, please try again later",
		Err:     cause,
	}
}

// ProviderMessage maps a rejection subkind to the caller-facing text.
func ProviderMessage(subkind ProviderSubkind) string {
	switch subkind {
	case SubkindInvalidNumber:
		return "The phone number is not valid"
	case SubkindRegionUnsupported:
		return "Sending SMS to this region is not supported"
	case SubkindBlacklisted:
		return "This number has opted out of receiving messages"
	case SubkindNotSMSCapable:
		return "This number cannot receive SMS messages"
	case SubkindAuthConfigError:
		return "SMS service is misconfigured, please contact the administrator"
	default:
		return "Failed to send SMS, please try again later"
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		switch {
		case i == 0:
			out = n
		case i == len(names)-1:
			out += " and " + n
		default:
			out += ", " + n
		}
	}
	return out
}
