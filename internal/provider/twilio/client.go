// Package twilio implements the SMS gateway on the Twilio Go SDK.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	twiliosdk "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/smsgate/smsgate/internal/provider"
)

const (
	defaultBaseURL = "https://api.twilio.com"
	defaultTimeout = 15 * time.Second
)

var _ provider.Gateway = (*Client)(nil)

// Client sends messages through the Twilio Messages API.
type Client struct {
	// BaseURL replaces the SDK's API host, for Twilio-compatible endpoints.
	BaseURL    string
	AccountID  string
	AuthSecret string

	// Transport carries SDK requests; nil uses http.DefaultTransport.
	Transport http.RoundTripper
	Timeout   time.Duration
	Clock     func() time.Time
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, accountID, authSecret string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}

	return &Client{
		BaseURL:    u,
		AccountID:  strings.TrimSpace(accountID),
		AuthSecret: strings.TrimSpace(authSecret),
		Timeout:    defaultTimeout,
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "twilio"
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.AccountID != "" && c.AuthSecret != ""
}

// Send creates a message resource.
func (c *Client) Send(ctx context.Context, msg provider.Message) (*provider.Receipt, error) {
	if c == nil {
		return nil, fmt.Errorf("twilio client not configured")
	}
	if !c.Configured() {
		return nil, &provider.ProviderError{
			Provider:   c.Name(),
			StatusCode: http.StatusUnauthorized,
			Code:       provider.CodeAuthenticationFailed,
			Message:    "account id and auth secret are required",
		}
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	rest, err := c.restClient(ctx)
	if err != nil {
		return nil, err
	}

	params := &api.CreateMessageParams{}
	params.SetPathAccountSid(c.AccountID)
	params.SetTo(msg.To)
	params.SetFrom(msg.From)
	params.SetBody(msg.Body)

	resp, err := rest.Api.CreateMessage(params)
	if err != nil {
		return nil, c.toProviderError(err)
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return nil, fmt.Errorf("decode response: missing message sid")
	}

	receipt := &provider.Receipt{
		MessageID:  *resp.Sid,
		AcceptedAt: c.now(),
	}
	if resp.Status != nil {
		receipt.Status = *resp.Status
	}
	return receipt, nil
}

// restClient builds an SDK client whose requests are bound to ctx and routed
// to BaseURL. The SDK methods take no context, so the transport carries it.
func (c *Client) restClient(ctx context.Context) (*twiliosdk.RestClient, error) {
	target, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid provider base url %q", c.BaseURL)
	}

	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(c.AccountID, c.AuthSecret),
		HTTPClient: &http.Client{
			Transport: &boundTransport{ctx: ctx, target: target, next: next},
		},
	}
	base.SetAccountSid(c.AccountID)

	return twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{Client: base}), nil
}

// toProviderError maps SDK REST errors onto ProviderError so classification
// stays driver-independent. Transport failures pass through wrapped.
func (c *Client) toProviderError(err error) error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) && restErr != nil {
		perr := &provider.ProviderError{
			Provider:   c.Name(),
			StatusCode: restErr.Status,
			Code:       restErr.Code,
			Message:    restErr.Message,
			MoreInfo:   restErr.MoreInfo,
		}
		if perr.Message == "" && perr.StatusCode > 0 {
			perr.Message = http.StatusText(perr.StatusCode)
		}
		return perr
	}
	return fmt.Errorf("request failed: %w", err)
}

type boundTransport struct {
	ctx    context.Context
	target *url.URL
	next   http.RoundTripper
}

func (t *boundTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(t.ctx)
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return t.next.RoundTrip(out)
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
