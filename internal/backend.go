package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is where the answering service listens by default
	DefaultEndpoint = "http://localhost:3000"

	// DefaultTimeout bounds a single backend request
	DefaultTimeout = 120 * time.Second

	// DefaultTemperature is the model temperature used until the user changes it
	DefaultTemperature = 0.5

	chatPath       = "/api/chat"
	namespacesPath = "/api/getNamespaces"

	maxResponseSize = 10 * 1024 * 1024
)

// Credential headers understood by the backend
const (
	HeaderOpenAIKey           = "X-OpenAI-Key"
	HeaderPineconeKey         = "X-Pinecone-Key"
	HeaderPineconeEnvironment = "X-Pinecone-Environment"
	HeaderPineconeIndexName   = "X-Pinecone-Index-Name"
)

// ChatRequest is the body of a chat call
type ChatRequest struct {
	Question              string        `json:"question"`
	History               []HistoryPair `json:"history"`
	SelectedChatID        string        `json:"selectedChatId"`
	SelectedNamespace     string        `json:"selectedNamespace"`
	ReturnSourceDocuments bool          `json:"returnSourceDocuments"`
	ModelTemperature      float64       `json:"modelTemperature"`
}

type wireDocument struct {
	PageContent string `json:"pageContent"`
	Metadata    struct {
		Source string `json:"source"`
	} `json:"metadata"`
}

type chatResponse struct {
	Text            string         `json:"text"`
	SourceDocuments []wireDocument `json:"sourceDocuments,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Answer is a successful backend reply
type Answer struct {
	Text            string
	SourceDocuments []SourceDocument
}

// BackendClient talks to the answering service over HTTP
type BackendClient struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// BackendOption configures a BackendClient
type BackendOption func(*BackendClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *BackendClient) {
		b.httpClient = c
	}
}

// WithRateLimit paces outgoing requests. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) BackendOption {
	return func(b *BackendClient) {
		if rps <= 0 {
			b.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewBackendClient creates a client for the service at endpoint
func NewBackendClient(endpoint string, opts ...BackendOption) *BackendClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	b := &BackendClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Endpoint returns the base URL
func (b *BackendClient) Endpoint() string {
	return b.endpoint
}

// Ask sends one question with its prior history. Logical failures reported
// by the service and transport failures are both returned as *BackendError.
func (b *BackendClient) Ask(ctx context.Context, creds Credentials, req ChatRequest) (*Answer, error) {
	if req.History == nil {
		req.History = []HistoryPair{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	setCredentialHeaders(httpReq, creds, true)

	status, respBody, err := b.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		if status < 200 || status >= 300 {
			return nil, &BackendError{Status: status, Message: http.StatusText(status)}
		}
		return nil, &BackendError{Status: status, Err: errors.Wrap(err, "failed to parse response body")}
	}
	if resp.Error != "" {
		return nil, &BackendError{Status: nonOK(status), Message: resp.Error}
	}
	if status < 200 || status >= 300 {
		return nil, &BackendError{Status: status, Message: http.StatusText(status)}
	}

	answer := &Answer{Text: resp.Text}
	for _, doc := range resp.SourceDocuments {
		answer.SourceDocuments = append(answer.SourceDocuments, SourceDocument{
			Content: doc.PageContent,
			Source:  doc.Metadata.Source,
		})
	}
	return answer, nil
}

// ListNamespaces asks the backend which namespaces exist in the search index
func (b *BackendClient) ListNamespaces(ctx context.Context, creds Credentials) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+namespacesPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	setCredentialHeaders(httpReq, creds, false)

	status, respBody, err := b.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var namespaces []string
	if err := json.Unmarshal(respBody, &namespaces); err == nil && status >= 200 && status < 300 {
		return namespaces, nil
	}

	var failure chatResponse
	if err := json.Unmarshal(respBody, &failure); err == nil && failure.Error != "" {
		return nil, &BackendError{Status: nonOK(status), Message: failure.Error}
	}
	if status < 200 || status >= 300 {
		return nil, &BackendError{Status: status, Message: http.StatusText(status)}
	}
	return nil, &BackendError{Status: status, Err: errors.New("unexpected namespaces response")}
}

func (b *BackendClient) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return 0, nil, &BackendError{Err: errors.Wrap(err, "rate limiter")}
		}
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, &BackendError{Err: errors.Wrap(err, "failed to send request")}
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, &BackendError{Status: resp.StatusCode, Err: errors.Wrap(err, "failed to read response body")}
	}
	return resp.StatusCode, data, nil
}

func setCredentialHeaders(req *http.Request, creds Credentials, includeAnswering bool) {
	if includeAnswering {
		req.Header.Set(HeaderOpenAIKey, creds.OpenAIAPIKey)
	}
	req.Header.Set(HeaderPineconeKey, creds.PineconeAPIKey)
	req.Header.Set(HeaderPineconeEnvironment, creds.PineconeEnvironment)
	req.Header.Set(HeaderPineconeIndexName, creds.PineconeIndexName)
}

// nonOK keeps a 2xx status out of logical error messages
func nonOK(status int) int {
	if status >= 200 && status < 300 {
		return 0
	}
	return status
}
