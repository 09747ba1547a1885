package provider

import (
	"errors"
	"net/http"

	"github.com/smsgate/smsgate/internal/core"
)

// Provider error codes with a dedicated caller-facing message.
const (
	CodeAuthenticationFailed = 20003
	CodeResourceNotFound     = 20404
	CodeInvalidToNumber      = 21211
	CodeRegionNotEnabled     = 21408
	CodeUnsubscribed         = 21610
	CodeNotSMSCapable        = 21614
	CodeFromNotCapable       = 21606
	CodeInvalidFromNumber    = 21659
)

var subkindByCode = map[int]core.ProviderSubkind{
	CodeInvalidToNumber:      core.SubkindInvalidNumber,
	CodeRegionNotEnabled:     core.SubkindRegionUnsupported,
	CodeUnsubscribed:         core.SubkindBlacklisted,
	CodeNotSMSCapable:        core.SubkindNotSMSCapable,
	CodeAuthenticationFailed: core.SubkindAuthConfigError,
	CodeResourceNotFound:     core.SubkindAuthConfigError,
	CodeFromNotCapable:       core.SubkindAuthConfigError,
	CodeInvalidFromNumber:    core.SubkindAuthConfigError,
}

// Classify converts a gateway failure into a caller-safe core error.
func Classify(err error) *core.Error {
	if err == nil {
		return nil
	}

	var perr *ProviderError
	if !errors.As(err, &perr) || perr == nil {
		return core.NewProviderUnavailable(err)
	}

	if subkind, ok := subkindByCode[perr.Code]; ok {
		return core.NewProviderRejected(subkind, err)
	}

	switch {
	case perr.Code > 0:
		return core.NewProviderRejected(core.SubkindUnknown, err)
	case perr.StatusCode == http.StatusUnauthorized, perr.StatusCode == http.StatusForbidden:
		return core.NewProviderRejected(core.SubkindAuthConfigError, err)
	case perr.StatusCode == http.StatusTooManyRequests, perr.StatusCode >= http.StatusInternalServerError:
		return core.NewProviderUnavailable(err)
	default:
		return core.NewProviderRejected(core.SubkindUnknown, err)
	}
}
