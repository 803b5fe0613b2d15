package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

const (
	resourcePath                = "api/resource"
	errorBodyReadLimit    int64 = 4096
	defaultTimeout              = 15 * time.Second
	defaultListPageLength       = 500
)

var (
	errBaseURLRequired     = errors.New("frappe base url is required")
	errCredentialsRequired = errors.New("frappe api key and secret are required")
)

// Error is a non-2xx response from the Frappe REST API.
type Error struct {
	Status  int
	ExcType string
	Message string
}

func (e *Error) Error() string {
	if e.ExcType != "" {
		return fmt.Sprintf("frappe status %d: %s: %s", e.Status, e.ExcType, e.Message)
	}
	return fmt.Sprintf("frappe status %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of the failed call.
func (e *Error) StatusCode() int { return e.Status }

// RemoteMessage returns the exception type or message reported by Frappe.
func (e *Error) RemoteMessage() string {
	if e.ExcType != "" {
		return e.ExcType
	}
	return e.Message
}

// Client talks to the Frappe document REST API with token auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a Frappe client for baseURL.
func NewClient(baseURL, apiKey, apiSecret string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		baseURL:    trimmedURL,
		apiKey:     strings.TrimSpace(apiKey),
		apiSecret:  strings.TrimSpace(apiSecret),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// GetDoc fetches one document.
func (c *Client) GetDoc(ctx context.Context, doctype, name string) (json.RawMessage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document name is required")
	}
	return c.do(ctx, http.MethodGet, c.docURL(doctype, name), nil, "get document")
}

// UpdateDoc applies a partial update to one document and returns the saved document.
func (c *Client) UpdateDoc(ctx context.Context, doctype, name string, fields map[string]any) (json.RawMessage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document name is required")
	}
	return c.do(ctx, http.MethodPut, c.docURL(doctype, name), fields, "update document")
}

// CreateDoc inserts a new document.
func (c *Client) CreateDoc(ctx context.Context, doctype string, fields map[string]any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, c.doctypeURL(doctype), fields, "create document")
}

// ListQuery selects documents of one doctype.
type ListQuery struct {
	Fields  []string
	Filters [][]any
	Limit   int
	Offset  int
	OrderBy string
}

// ListDocs returns the documents matching query.
func (c *Client) ListDocs(ctx context.Context, doctype string, query ListQuery) ([]json.RawMessage, error) {
	params := url.Values{}
	fields := query.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	encodedFields, err := json.Marshal(fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode list fields")
	}
	params.Set("fields", string(encodedFields))
	if len(query.Filters) > 0 {
		encodedFilters, err := json.Marshal(query.Filters)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode list filters")
		}
		params.Set("filters", string(encodedFilters))
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListPageLength
	}
	params.Set("limit_page_length", strconv.Itoa(limit))
	if query.Offset > 0 {
		params.Set("limit_start", strconv.Itoa(query.Offset))
	}
	if query.OrderBy != "" {
		params.Set("order_by", query.OrderBy)
	}

	data, err := c.do(ctx, http.MethodGet, c.doctypeURL(doctype)+"?"+params.Encode(), nil, "list documents")
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode list response")
	}
	return rows, nil
}

// Ping checks that the API answers with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/method/frappe.auth.get_logged_user", nil, "ping")
	return err
}

func (c *Client) do(ctx context.Context, method, target string, body any, op string) (json.RawMessage, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "frappe client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "marshal "+op+" request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+op+" request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "token "+c.apiKey+":"+c.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+op+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, decodeError(resp), op+" request failed")
	}

	var envelope struct {
		Data    json.RawMessage `json:"data"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	if len(envelope.Data) > 0 {
		return envelope.Data, nil
	}
	return envelope.Message, nil
}

func decodeError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	out := &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}

	var body struct {
		ExcType   string `json:"exc_type"`
		Exception string `json:"exception"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		out.ExcType = body.ExcType
		switch {
		case body.Exception != "":
			out.Message = body.Exception
		case body.Message != "":
			out.Message = body.Message
		}
	}
	return out
}

func (c *Client) doctypeURL(doctype string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, resourcePath, url.PathEscape(doctype))
}

func (c *Client) docURL(doctype, name string) string {
	return fmt.Sprintf("%s/%s", c.doctypeURL(doctype), url.PathEscape(name))
}
