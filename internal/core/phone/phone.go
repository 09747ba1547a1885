// Package phone validates and canonicalizes SMS destinations and message fields.
package phone

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smsgate/smsgate/internal/core"
)

const (
	// MaxBodyLength is the single-segment SMS limit in characters.
	MaxBodyLength = 160
	// MaxSenderLength is the alphanumeric sender ID limit.
	MaxSenderLength = 11
)

// Mode selects the numbering rule.
type Mode string

const (
	ModeRegional Mode = "regional"
	ModeGeneric  Mode = "generic"
)

var (
	regionalLocal = regexp.MustCompile(`^09\d{9}$`)
	regionalIntl  = regexp.MustCompile(`^\+639\d{9}$`)
	genericE164   = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// Validator normalizes destinations and checks message fields.
type Validator interface {
	Normalize(raw string) (string, error)
	ValidateMessage(sender, body string) error
}

// Regional accepts Philippine mobile numbers in trunk (09XXXXXXXXX) or
// international (+639XXXXXXXXX) form and canonicalizes to the latter.
type Regional struct{}

// Generic accepts any loose E.164 number.
type Generic struct{}

// New returns the validator for mode.
func New(mode Mode) (Validator, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case "", ModeRegional:
		return Regional{}, nil
	case ModeGeneric:
		return Generic{}, nil
	default:
		return nil, fmt.Errorf("unsupported validation mode: %s", mode)
	}
}

func (Regional) Normalize(raw string) (string, error) {
	cleaned := strip(raw)
	switch {
	case regionalIntl.MatchString(cleaned):
		return cleaned, nil
	case regionalLocal.MatchString(cleaned):
		return "+63" + cleaned[1:], nil
	default:
		return "", core.NewInvalidFormat("Invalid phone number format. Use 09XXXXXXXXX or +639XXXXXXXXX")
	}
}

func (Regional) ValidateMessage(sender, body string) error {
	if err := validateBody(body); err != nil {
		return err
	}
	if utf8.RuneCountInString(sender) > MaxSenderLength {
		return core.NewSenderTooLong(MaxSenderLength)
	}
	return nil
}

func (Generic) Normalize(raw string) (string, error) {
	cleaned := strip(raw)
	if !genericE164.MatchString(cleaned) {
		return "", core.NewInvalidFormat("Invalid phone number format. Use international format, e.g. +14155552671")
	}
	return cleaned, nil
}

func (Generic) ValidateMessage(_, body string) error {
	return validateBody(body)
}

func validateBody(body string) error {
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return core.NewMessageTooLong(MaxBodyLength)
	}
	return nil
}

// strip removes whitespace and hyphen separators.
func strip(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}
