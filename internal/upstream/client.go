package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/workspace"
)

const (
	headerRequestID = "X-Request-ID"
	headerWorkspace = "X-Workspace-ID"
	accountPrefix   = "/auth/"
	maxResponseBody = 1 << 20
)

type ctxKey int

const (
	workspaceKey ctxKey = iota
	requestIDKey
)

// WithWorkspace marks ctx with the current workspace for scoped calls.
func WithWorkspace(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceKey, workspaceID)
}

// WorkspaceFrom returns the current workspace carried by ctx, if any.
func WorkspaceFrom(ctx context.Context) string {
	id, _ := ctx.Value(workspaceKey).(string)
	return id
}

// WithRequestID propagates an inbound request id to upstream calls.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFrom returns the request id carried by ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type outbound struct {
	path  string
	token string
	req   *http.Request
}

type interceptor func(ctx context.Context, out *outbound) error

// Client talks to the league REST API. Calls go through the standard
// pipeline (bearer, request id, workspace gate) except workspace creation,
// which uses a bypass path that attaches only the bearer and request id:
// the caller has no workspace yet and the gate would reject it.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	standard []interceptor
	bypass   []interceptor
}

// New builds a client for baseURL with its own http.Client.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout}, logger)
}

// NewWithHTTPClient builds a client around an existing http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     hc,
		logger:   logger,
		standard: []interceptor{attachBearer, attachRequestID, workspaceGate},
		bypass:   []interceptor{attachBearer, attachRequestID},
	}
}

// Me fetches the authenticated identity.
func (c *Client) Me(ctx context.Context, token string) (identity.Identity, error) {
	body, err := c.send(ctx, c.standard, http.MethodGet, "/auth/me", token, nil)
	if err != nil {
		return identity.Identity{}, err
	}
	return Unwrap[identity.Identity](body)
}

// UpdateProfile persists a partial profile and returns what the server echoed.
func (c *Client) UpdateProfile(ctx context.Context, token string, update identity.ProfileUpdate) (identity.Identity, error) {
	body, err := c.send(ctx, c.standard, http.MethodPatch, "/auth/me", token, update)
	if err != nil {
		return identity.Identity{}, err
	}
	return Unwrap[identity.Identity](body)
}

// CreateWorkspace creates a workspace owned by the caller through the bypass path.
func (c *Client) CreateWorkspace(ctx context.Context, token string, req workspace.Request) (workspace.Created, error) {
	body, err := c.send(ctx, c.bypass, http.MethodPost, "/workspaces", token, req)
	if err != nil {
		return workspace.Created{}, err
	}
	return Unwrap[workspace.Created](body)
}

// Get performs a GET through the standard pipeline and returns the raw body.
func (c *Client) Get(ctx context.Context, token, path string) ([]byte, error) {
	return c.send(ctx, c.standard, http.MethodGet, path, token, nil)
}

func (c *Client) send(ctx context.Context, chain []interceptor, method, path, token string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	out := &outbound{path: path, token: token, req: req}
	for _, step := range chain {
		if err := step(ctx, out); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	c.logger.Debug("upstream request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

func attachBearer(_ context.Context, out *outbound) error {
	if out.token != "" {
		out.req.Header.Set("Authorization", "Bearer "+out.token)
	}
	return nil
}

func attachRequestID(ctx context.Context, out *outbound) error {
	if id := RequestIDFrom(ctx); id != "" {
		out.req.Header.Set(headerRequestID, id)
	}
	return nil
}

func workspaceGate(ctx context.Context, out *outbound) error {
	if strings.HasPrefix(out.path, accountPrefix) {
		return nil
	}
	id := WorkspaceFrom(ctx)
	if id == "" {
		return ErrNoWorkspace
	}
	out.req.Header.Set(headerWorkspace, id)
	return nil
}
