// Package sanity talks to the hosted content datastore over its HTTP query
// and mutation API.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"chirp-backend/datastore"
	"chirp-backend/metrics"
)

const (
	defaultAPIVersion = "2024-03-05"
	defaultDataset    = "production"
	defaultTimeout    = 30 * time.Second
	adapterName       = "sanity"
)

// Config holds the project coordinates and credentials.
type Config struct {
	ProjectID  string
	Dataset    string
	Token      string
	APIVersion string

	// BaseURL overrides https://<project>.api.sanity.io.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues GROQ queries and mutations.
type Client struct {
	baseURL    string
	dataset    string
	token      string
	apiVersion string
	http       *http.Client
	logger     *zap.Logger
}

// StatusError is a non-success response from the datastore.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sanity: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses onto datastore sentinels.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return datastore.ErrNotFound
	case http.StatusConflict:
		return datastore.ErrConflict
	}
	return nil
}

// NewClient creates a new Client for the project in cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, errors.New("sanity: project id is required")
	}
	if cfg.Dataset == "" {
		cfg.Dataset = defaultDataset
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		dataset:    cfg.Dataset,
		token:      cfg.Token,
		apiVersion: strings.TrimPrefix(cfg.APIVersion, "v"),
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// Fetch runs a GROQ query and decodes its result into out. Params are bound
// as $name variables so ids never get spliced into the query text.
func (c *Client) Fetch(ctx context.Context, query string, params map[string]any, out any) error {
	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("sanity: encode param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s", c.baseURL, c.apiVersion, c.dataset, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("sanity: build query request: %w", err)
	}
	body, err := c.do(req, "query")
	if err != nil {
		return err
	}

	result := gjson.GetBytes(body, "result")
	if !result.Exists() || result.Type == gjson.Null {
		return nil
	}
	if err := json.Unmarshal([]byte(result.Raw), out); err != nil {
		return fmt.Errorf("sanity: decode query result: %w", err)
	}
	return nil
}

// Mutate commits the mutations in a single transaction.
func (c *Client) Mutate(ctx context.Context, mutations ...Mutation) error {
	payload, err := json.Marshal(struct {
		Mutations []Mutation `json:"mutations"`
	}{Mutations: mutations})
	if err != nil {
		return fmt.Errorf("sanity: encode mutations: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v%s/data/mutate/%s?returnIds=true", c.baseURL, c.apiVersion, c.dataset)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sanity: build mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req, "mutate")
	return err
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAdapterCall(adapterName, operation, started, err)
		return nil, fmt.Errorf("sanity: %s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveAdapterCall(adapterName, operation, started, err)
		return nil, fmt.Errorf("sanity: read %s response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
		metrics.ObserveAdapterCall(adapterName, operation, started, statusErr)
		c.logger.Warn("datastore request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", statusErr.Message))
		return nil, statusErr
	}
	metrics.ObserveAdapterCall(adapterName, operation, started, nil)
	return body, nil
}

func errorMessage(body []byte, fallback string) string {
	for _, path := range []string{"error.description", "message", "error"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return fallback
}
