// Package vies talks to the EU VAT Information Exchange System (VIES) REST
// API and drives per-identifier validation attempts through a shared rate
// limiter with retry and exponential backoff.
package vies

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taxtools/viesbatch/internal/siren"
)

// DefaultBaseURL is the VIES REST endpoint for French VAT numbers. One GET
// per attempt, parameterised by the computed VAT number.
const DefaultBaseURL = "https://ec.europa.eu/taxation_customs/vies/rest-api/ms/FR/vat/"

// maxResponseBytes bounds how much of a response body is read; VIES answers
// are small JSON documents.
const maxResponseBytes = 1 << 20

// Client performs single VIES lookup attempts. It is safe for concurrent
// use; retry orchestration lives in Driver, not here.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the VIES endpoint, mainly for tests against a
// local server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithProxy installs a proxy resolution capability, invoked once per
// request attempt. A nil URL from the resolver means a direct connection.
func WithProxy(resolve func() (*url.URL, error)) ClientOption {
	return func(c *Client) {
		transport := c.httpClient.Transport.(*http.Transport)
		transport.Proxy = func(*http.Request) (*url.URL, error) {
			return resolve()
		}
	}
}

// NewClient creates a VIES client with the given per-request timeout.
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{},
		},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// viesResponse mirrors the two response shapes the API is known to emit.
type viesResponse struct {
	Valid     *bool  `json:"valid"`
	IsValid   *bool  `json:"isValid"`
	Err       string `json:"error"`
	UserError string `json:"userError"`
}

// errorCode returns the response's error marker, whichever field carries it.
func (r viesResponse) errorCode() string {
	if r.Err != "" {
		return r.Err
	}
	return r.UserError
}

// validity returns the boolean answer, whichever field carries it.
func (r viesResponse) validity() *bool {
	if r.Valid != nil {
		return r.Valid
	}
	return r.IsValid
}

// Check performs one lookup attempt for the given VAT number. It returns
// the service's registration answer, or a *ServiceError classifying why no
// definitive answer was obtained.
func (c *Client) Check(ctx context.Context, vat siren.VATNumber) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+string(vat), nil)
	if err != nil {
		return false, &ServiceError{Kind: FailureClient, cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, &ServiceError{Kind: FailureNetwork, Status: resp.StatusCode, cause: err}
	}

	return interpret(resp.StatusCode, body)
}

// interpret converts an HTTP status plus body into the service's answer or
// a classified failure.
//
// The API reports soft failures inside a 200 body ("error"/"userError"
// codes such as MS_MAX_CONCURRENT_REQ or SERVICE_UNAVAILABLE) as well as
// through non-200 statuses. Any error marker other than the VALID/INVALID
// sentinels counts as the service being busy, as do 5xx and 429 statuses.
// Other 4xx statuses are client mistakes and never worth a retry.
func interpret(status int, body []byte) (bool, error) {
	var parsed viesResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if code := parsed.errorCode(); decodeErr == nil && code != "" && code != "VALID" && code != "INVALID" {
		kind := FailureServiceBusy
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			kind = FailureClient
		}
		return false, &ServiceError{Kind: kind, Status: status, Code: code}
	}

	switch {
	case status >= 500 || status == http.StatusTooManyRequests:
		return false, &ServiceError{Kind: FailureServiceBusy, Status: status}
	case status >= 400:
		return false, &ServiceError{Kind: FailureClient, Status: status}
	case status != http.StatusOK:
		return false, &ServiceError{Kind: FailureServiceBusy, Status: status}
	}

	if decodeErr != nil {
		return false, &ServiceError{Kind: FailureNetwork, Status: status, cause: decodeErr}
	}

	valid := parsed.validity()
	if valid == nil {
		return false, &ServiceError{
			Kind:   FailureNetwork,
			Status: status,
			cause:  fmt.Errorf("response carries no validity flag"),
		}
	}
	return *valid, nil
}

// classifyTransport sorts a transport-level failure into the proxy or
// network transient kinds.
func classifyTransport(err error) *ServiceError {
	// The net/http proxy dialer prefixes its failures with "proxyconnect";
	// there is no typed error to match on.
	if strings.Contains(err.Error(), "proxyconnect") {
		return &ServiceError{Kind: FailureProxy, cause: err}
	}
	return &ServiceError{Kind: FailureNetwork, cause: err}
}
