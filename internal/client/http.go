package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alfredjeanlab/clubdesk/internal/model"
)

// Options tunes an HTTPClient. Zero values take defaults.
type Options struct {
	// Token is sent as a bearer token when non-empty.
	Token   string
	Timeout time.Duration
	// ReadRetries is how often idempotent GETs are retried at the transport
	// level. Mutations are never retried here; the mutation executor owns that.
	ReadRetries int
	// RatePerSecond paces outgoing requests. Zero disables pacing.
	RatePerSecond float64
	Logger        *zap.Logger
}

// HTTPClient implements ConsoleClient using the federation HTTP/JSON REST API.
type HTTPClient struct {
	baseURL string
	token   string
	reads   *http.Client
	writes  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string, opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ReadRetries < 0 {
		opts.ReadRetries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.ReadRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient = &http.Client{Timeout: opts.Timeout}
	rc.Logger = leveledLogger{logger.Named("http").Sugar()}
	// Hand the final response back instead of a "giving up" error so that
	// status codes still reach APIError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   opts.Token,
		reads:   rc.StandardClient(),
		writes:  &http.Client{Timeout: opts.Timeout},
		logger:  logger,
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Clubs ---

func (c *HTTPClient) ListClubs(ctx context.Context) ([]model.Club, error) {
	var resp ListClubsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/clubs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Clubs, nil
}

func (c *HTTPClient) GetClub(ctx context.Context, id string) (*model.Club, error) {
	var club model.Club
	if err := c.doJSON(ctx, http.MethodGet, "/v1/clubs/"+url.PathEscape(id), nil, &club); err != nil {
		return nil, err
	}
	return &club, nil
}

func (c *HTTPClient) ApproveClub(ctx context.Context, id string) (*model.Club, error) {
	var club model.Club
	if err := c.doJSON(ctx, http.MethodPost, "/v1/clubs/"+url.PathEscape(id)+"/approve", nil, &club); err != nil {
		return nil, err
	}
	return &club, nil
}

func (c *HTTPClient) RejectClub(ctx context.Context, id, reason string) (*model.Club, error) {
	var club model.Club
	if err := c.doJSON(ctx, http.MethodPost, "/v1/clubs/"+url.PathEscape(id)+"/reject", &RejectClubRequest{Reason: reason}, &club); err != nil {
		return nil, err
	}
	return &club, nil
}

func (c *HTTPClient) UpdateClub(ctx context.Context, id string, u model.ClubUpdate) (*model.Club, error) {
	var club model.Club
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/clubs/"+url.PathEscape(id), u, &club); err != nil {
		return nil, err
	}
	return &club, nil
}

func (c *HTTPClient) DeleteClub(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/clubs/"+url.PathEscape(id), nil, nil)
}

// --- Tournaments ---

func (c *HTTPClient) ListTournaments(ctx context.Context, req *ListTournamentsRequest) (*ListTournamentsResponse, error) {
	q := url.Values{}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Status != "" {
		q.Set("status", req.Status)
	}
	if len(req.Type) > 0 {
		q.Set("type", strings.Join(req.Type, ","))
	}
	if req.StartFrom != "" {
		q.Set("start_from", req.StartFrom)
	}
	if req.StartTo != "" {
		q.Set("start_to", req.StartTo)
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}

	path := "/v1/tournaments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListTournamentsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) DeleteTournament(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/tournaments/"+url.PathEscape(id), nil, nil)
}

// --- Users ---

func (c *HTTPClient) ListUsers(ctx context.Context) ([]model.User, error) {
	var resp ListUsersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *HTTPClient) DeleteUser(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil)
}

// Health checks that the server is reachable and the token is accepted.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// APIError is returned when the server responds with a non-2xx status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Status returns the HTTP status code.
func (e *APIError) Status() int { return e.StatusCode }

// ServerMessage returns the human-readable message the server sent, if any.
func (e *APIError) ServerMessage() string { return e.Message }

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	hc := c.writes
	if method == http.MethodGet {
		hc = c.reads
	}
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request", zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			if errResp.Message != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
			}
			if errResp.Error != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
			}
		}
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }

var _ ConsoleClient = (*HTTPClient)(nil)
