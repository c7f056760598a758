// Package providers ships illustrative HTTP-based adapters for the
// optional EmbeddingProvider/TextCompletionProvider capabilities, plus
// a NullProvider pair for callers with no provider wired at all.
// Grounded on the teacher's internal/clients/base (resty HTTPClient,
// ClientError) and internal/clients/embedding/openai (request/response
// shapes), generalized from chat-completion/embedding-service clients
// into FileFlux's provider contracts.
package providers

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientError mirrors the teacher's base.ClientError: an operation,
// service name, HTTP status (if any), and wrapped cause.
type ClientError struct {
	Op         string
	Service    string
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider: %s %s failed with status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider: %s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

func newClientError(service, op string, err error) *ClientError {
	return &ClientError{Op: op, Service: service, Err: err}
}

func newHTTPError(service, op string, statusCode int, body string) *ClientError {
	return &ClientError{Op: op, Service: service, StatusCode: statusCode, Err: fmt.Errorf("HTTP %d: %s", statusCode, body)}
}

// ServiceConfig configures an HTTP-based provider adapter.
type ServiceConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// httpClient is the shared resty wrapper every adapter in this package
// builds on, matching the teacher's base.HTTPClient standardized
// timeout/retry/header setup.
type httpClient struct {
	client  *resty.Client
	service string
}

func newHTTPClient(service string, cfg ServiceConfig) *httpClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})

	return &httpClient{client: client, service: service}
}

func (h *httpClient) post(endpoint string, body, result interface{}) error {
	resp, err := h.client.R().SetBody(body).SetResult(result).Post(endpoint)
	if err != nil {
		return newClientError(h.service, "POST "+endpoint, err)
	}
	if resp.StatusCode() != 200 {
		return newHTTPError(h.service, "POST "+endpoint, resp.StatusCode(), resp.String())
	}
	return nil
}
