// Package pinning uploads files and JSON documents to the Pinata pinning
// service and builds IPFS URLs for the returned content identifiers.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"chirp-backend/metrics"
	"chirp-backend/models"
)

const (
	DefaultBaseURL    = "https://api.pinata.cloud"
	DefaultGatewayURL = "https://gateway.pinata.cloud"

	pinFilePath  = "/pinning/pinFileToIPFS"
	pinJSONPath  = "/pinning/pinJSONToIPFS"
	testAuthPath = "/data/testAuthentication"

	apiKeyHeader    = "pinata_api_key"
	secretKeyHeader = "pinata_secret_api_key"
	adapterName     = "pinata"
)

// ErrMissingHash is returned when a success response carries no IpfsHash.
var ErrMissingHash = errors.New("pinning: response has no IpfsHash")

// StatusError is a non-success response from the pinning service.
type StatusError struct {
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pinning: status %d: %s", e.StatusCode, e.Reason)
}

type Config struct {
	APIKey    string
	SecretKey string
	BaseURL   string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a Pinata API client. Calls are single attempts with no retry.
type Client struct {
	apiKey    string
	secretKey string
	baseURL   string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient creates a new pinning Client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn("pinning API keys are missing; uploads will be rejected")
	}
	return &Client{
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
	}
}

// PinFile uploads the file as multipart form data and returns its CID.
func (c *Client) PinFile(ctx context.Context, filename string, file io.Reader, metadata *models.PinMetadata) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("pinning: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("pinning: read file: %w", err)
	}
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("pinning: encode metadata: %w", err)
		}
		if err := form.WriteField("pinataMetadata", string(encoded)); err != nil {
			return "", fmt.Errorf("pinning: write metadata: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("pinning: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pinFilePath, &body)
	if err != nil {
		return "", fmt.Errorf("pinning: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return c.pin(req, "pin_file")
}

// PinJSON uploads value as a JSON document and returns its CID.
func (c *Client) PinJSON(ctx context.Context, value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("pinning: encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pinJSONPath, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("pinning: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.pin(req, "pin_json")
}

// TestAuthentication reports whether the configured keys are accepted.
// Failures are logged, not returned.
func (c *Client) TestAuthentication(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+testAuthPath, nil)
	if err != nil {
		c.logger.Error("pinning authentication probe failed", zap.Error(err))
		return false
	}
	if _, err := c.do(req, "test_authentication"); err != nil {
		c.logger.Error("pinning authentication probe failed", zap.Error(err))
		return false
	}
	return true
}

func (c *Client) pin(req *http.Request, operation string) (string, error) {
	body, err := c.do(req, operation)
	if err != nil {
		c.logger.Error("pinning upload failed", zap.String("operation", operation), zap.Error(err))
		return "", err
	}
	hash := gjson.GetBytes(body, "IpfsHash").String()
	if hash == "" {
		return "", ErrMissingHash
	}
	return hash, nil
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set(secretKeyHeader, c.secretKey)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAdapterCall(adapterName, operation, started, err)
		return nil, fmt.Errorf("pinning: %s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode != http.StatusOK {
		err = &StatusError{StatusCode: resp.StatusCode, Reason: reason(body, resp.Status)}
	}
	metrics.ObserveAdapterCall(adapterName, operation, started, err)
	if err != nil {
		return nil, fmt.Errorf("pinning: %s: %w", operation, err)
	}
	return body, nil
}

func reason(body []byte, fallback string) string {
	for _, path := range []string{"error.details", "error.reason", "error", "message"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return fallback
}
