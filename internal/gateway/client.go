package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shareit/internal/models"
)

// forwardedHeaders are copied from the backend response to the caller.
var forwardedHeaders = []string{"Content-Type", "Content-Disposition"}

// BackendClient forwards validated requests to the server process.
type BackendClient struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	httpClient *http.Client
}

// BackendRequest is a request that already passed gateway validation.
type BackendRequest struct {
	Method    string
	Path      string
	RawQuery  string
	UserID    string
	RequestID string
	Body      []byte
}

// BackendResponse is what the backend answered, passed back unchanged.
type BackendResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewBackendClient constructs a client with baseURL, API key and extra header.
func NewBackendClient(baseURL, apiKey, apiExtra string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiExtra:   apiExtra,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward sends req to the backend. Any status the backend returns is a
// successful forward; only transport failures are errors.
func (c *BackendClient) Forward(ctx context.Context, req BackendRequest) (*BackendResponse, error) {
	endpoint := c.baseURL + req.Path
	if req.RawQuery != "" {
		endpoint += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.UserID != "" {
		httpReq.Header.Set(models.HeaderUserID, req.UserID)
	}
	if req.RequestID != "" {
		httpReq.Header.Set(models.HeaderRequestID, req.RequestID)
	}
	c.addHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	header := make(http.Header, len(forwardedHeaders))
	for _, h := range forwardedHeaders {
		if v := resp.Header.Get(h); v != "" {
			header.Set(h, v)
		}
	}
	return &BackendResponse{Status: resp.StatusCode, Header: header, Body: data}, nil
}

// Ready asks the backend's own readiness endpoint.
func (c *BackendClient) Ready(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend not ready: http %d", resp.StatusCode)
	}
	return nil
}

func (c *BackendClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
}
