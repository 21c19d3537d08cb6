package sendcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the Sendcloud v3 API root.
const DefaultBaseURL = "https://panel.sendcloud.sc/api/v3"

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	publicKey  string
	secretKey  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	PublicKey string // Basic Auth user
	SecretKey string // Basic Auth password
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &HTTPAPIClient{
		baseURL:   baseURL,
		publicKey: cfg.PublicKey,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchShippingOptions lists shipping options.
// POST /fetch-shipping-options
func (c *HTTPAPIClient) FetchShippingOptions(ctx context.Context, req *ShippingOptionsRequest) (*ShippingOptionsResponse, error) {
	var result ShippingOptionsResponse
	if err := c.post(ctx, "/fetch-shipping-options", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateShipment creates a shipment.
// POST /shipments
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var result ShipmentResponse
	if err := c.post(ctx, "/shipments", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnnounceShipment creates and announces a shipment with customs documents.
// POST /shipments/announce
func (c *HTTPAPIClient) AnnounceShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var result ShipmentResponse
	if err := c.post(ctx, "/shipments/announce", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends body as JSON and decodes a 2xx response into out. Any other
// status, and any undecodable body, is an error.
func (c *HTTPAPIClient) post(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "bookship/1.0")
	req.SetBasicAuth(c.publicKey, c.secretKey)

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Body:       body,
	}

	var list struct {
		Errors []ErrorItem `json:"errors"`
	}
	if err := json.Unmarshal(body, &list); err == nil && len(list.Errors) > 0 {
		first := list.Errors[0]
		if first.Code != "" {
			apiErr.Code = first.Code
		}
		apiErr.Message = first.Detail
		return apiErr
	}

	// Try to parse as a simple error message
	var simpleErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil {
		msg := simpleErr.Error
		if msg == "" {
			msg = simpleErr.Message
		}
		if msg != "" {
			apiErr.Message = msg
			return apiErr
		}
	}

	apiErr.Message = string(body)
	return apiErr
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
