package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	relaypay "github.com/reserve-vault/relaypay/go"
)

// ============================================================================
// HTTP Relayer Client
// ============================================================================

// HTTPRelayerClient talks to the relayer's payment API over HTTP.
// Implements relaypay.RelayerClient.
type HTTPRelayerClient struct {
	url          string
	httpClient   *http.Client
	authProvider AuthProvider
	logger       logrus.FieldLogger
}

// AuthProvider generates authentication headers for relayer requests
type AuthProvider interface {
	// GetAuthHeaders returns authentication headers for each endpoint
	GetAuthHeaders(ctx context.Context) (AuthHeaders, error)
}

// AuthHeaders contains authentication headers for relayer endpoints
type AuthHeaders struct {
	Verify map[string]string
	Settle map[string]string
}

// RelayerConfig configures the HTTP relayer client
type RelayerConfig struct {
	// URL is the base URL of the relayer service
	URL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// AuthProvider provides authentication headers (optional)
	AuthProvider AuthProvider

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration

	// Logger for request diagnostics (optional)
	Logger logrus.FieldLogger
}

// DefaultRelayerURL is the relayer used when none is configured
const DefaultRelayerURL = "http://localhost:3000"

const (
	verifyPath = "/payment/verify"
	settlePath = "/payment/settle"
)

// NewHTTPRelayerClient creates a new HTTP relayer client
func NewHTTPRelayerClient(config *RelayerConfig) *HTTPRelayerClient {
	if config == nil {
		config = &RelayerConfig{}
	}

	url := strings.TrimSuffix(config.URL, "/")
	if url == "" {
		url = DefaultRelayerURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &HTTPRelayerClient{
		url:          url,
		httpClient:   httpClient,
		authProvider: config.AuthProvider,
		logger:       logger.WithField("component", "relayer_client"),
	}
}

// URL returns the relayer base URL
func (c *HTTPRelayerClient) URL() string {
	return c.url
}

// Verify asks the relayer whether the authorization is acceptable
func (c *HTTPRelayerClient) Verify(ctx context.Context, request relaypay.PaymentRequest) (*relaypay.RelayerResponse, error) {
	return c.post(ctx, "verify", verifyPath, request, func(h AuthHeaders) map[string]string { return h.Verify })
}

// Settle asks the relayer to submit the authorization on-chain
func (c *HTTPRelayerClient) Settle(ctx context.Context, request relaypay.PaymentRequest) (*relaypay.RelayerResponse, error) {
	return c.post(ctx, "settle", settlePath, request, func(h AuthHeaders) map[string]string { return h.Settle })
}

// ============================================================================
// Internal HTTP Methods
// ============================================================================

func (c *HTTPRelayerClient) post(
	ctx context.Context,
	operation string,
	path string,
	request relaypay.PaymentRequest,
	selectHeaders func(AuthHeaders) map[string]string,
) (*relaypay.RelayerResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("X-Request-Id", requestID)
	if request.Message.Nonce != "" {
		req.Header.Set("Idempotency-Key", request.Message.Nonce)
	}

	// Add auth headers if available
	if c.authProvider != nil {
		authHeaders, err := c.authProvider.GetAuthHeaders(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get auth headers: %w", err)
		}
		for k, v := range selectHeaders(authHeaders) {
			req.Header.Set(k, v)
		}
	}

	log := c.logger.WithFields(logrus.Fields{
		"operation":  operation,
		"request_id": requestID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("relayer request failed")
		return nil, relaypay.NewProtocolError(
			relaypay.ErrCodeTransientNetwork,
			"could not reach the relayer, please try again",
			fmt.Errorf("%s request failed: %w", operation, err),
		)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, relaypay.NewProtocolError(
			relaypay.ErrCodeTransientNetwork,
			"could not read the relayer response",
			fmt.Errorf("failed to read response body: %w", err),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Warn("relayer returned an error status")
		return nil, relaypay.NewProtocolError(
			relaypay.ErrCodeTransientNetwork,
			fmt.Sprintf("relayer %s failed (%d): %s", operation, resp.StatusCode, strings.TrimSpace(string(responseBody))),
			nil,
		)
	}

	if err := ValidateRelayerResponse(responseBody); err != nil {
		log.WithError(err).Warn("relayer returned a malformed response")
		return nil, relaypay.NewProtocolError(
			relaypay.ErrCodeTransientNetwork,
			"relayer returned an invalid response",
			err,
		)
	}

	var result relaypay.RelayerResponse
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return nil, relaypay.NewProtocolError(
			relaypay.ErrCodeTransientNetwork,
			"relayer returned an invalid response",
			fmt.Errorf("failed to decode %s response: %w", operation, err),
		)
	}

	// A rejection carries the whole body so callers can inspect every field
	if !result.Success {
		var full map[string]interface{}
		if err := json.Unmarshal(responseBody, &full); err == nil {
			result.Data = full
		}
		log.WithField("message", result.Message).Info("relayer rejected request")
	}

	return &result, nil
}
