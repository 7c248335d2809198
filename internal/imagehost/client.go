package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/pictura/internal/config"
	"github.com/jon4hz/pictura/internal/version"
)

// TokenSource yields the bearer token attached to outgoing requests.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// Client is the single outbound channel to the image hosting API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// New creates a new image hosting API client.
func New(cfg *config.APIConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// WithTokens returns a copy of the client that authenticates with tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AssetURL turns an asset path returned by the API into an absolute URL.
func (c *Client) AssetURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// request describes one API call.
type request struct {
	method      string
	endpoint    string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, endpoint string, body any) (*request, error) {
	r := &request{method: method, endpoint: endpoint}
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request body: %w", err)
		}
		r.body = bytes.NewReader(jsonBody)
		r.contentType = "application/json"
	}
	return r, nil
}

func multipartRequest(method, endpoint, field string, upload Upload) (*request, error) {
	if upload.Content == nil {
		return nil, fmt.Errorf("missing file content")
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := upload.Filename
	if filename == "" {
		filename = field
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}
	if upload.Title != "" {
		if err := w.WriteField("title", upload.Title); err != nil {
			return nil, fmt.Errorf("error writing title field: %w", err)
		}
	}
	if upload.Description != "" {
		if err := w.WriteField("description", upload.Description); err != nil {
			return nil, fmt.Errorf("error writing description field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("error closing multipart body: %w", err)
	}

	return &request{
		method:      method,
		endpoint:    endpoint,
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, nil
}

// do performs r and decodes a successful response into out (if non-nil).
func (c *Client) do(ctx context.Context, r *request, out any) error {
	reqURL := c.baseURL + r.endpoint
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, r.body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pictura/"+version.Version)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("error reading token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		log.Debug("API request failed", "method", r.method, "endpoint", r.endpoint, "status", resp.StatusCode)
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrInvalidResponse, r.method, r.endpoint, err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		return eb.Error
	}
	return strings.TrimSpace(string(data))
}

func pageQuery(page int) url.Values {
	if page <= 0 {
		return nil
	}
	return url.Values{"page": []string{strconv.Itoa(page)}}
}

func idPath(prefix string, id uint64) string {
	return prefix + strconv.FormatUint(id, 10)
}
