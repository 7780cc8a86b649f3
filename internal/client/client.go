package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"go.uber.org/zap"
)

// ErrLoginRequired is returned when the session cannot be refreshed. The
// caller should send the user back to login.
var ErrLoginRequired = sharedErrors.ErrLoginRequired

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Options tune a Client.
type Options struct {
	HTTPClient  *http.Client
	Logger      *zap.Logger
	ScanTimeout time.Duration
}

// Client talks to the wisafe API on behalf of one operator.
type Client struct {
	baseURL     string
	http        *http.Client
	store       *SessionStore
	logger      *zap.Logger
	scanTimeout time.Duration
}

// New returns a client for baseURL. store may be nil for anonymous use.
func New(baseURL string, store *SessionStore, opts Options) *Client {
	if store == nil {
		store = NewSessionStore("")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = constants.ScanRequestTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        opts.HTTPClient,
		store:       store,
		logger:      opts.Logger,
		scanTimeout: opts.ScanTimeout,
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Session returns the stored session.
func (c *Client) Session() (Session, error) { return c.store.Load() }

// AuthorizedDo sends req with the current access token. On a 401 it refreshes
// the access token once and retries the request once. When the refresh fails
// every token is cleared and ErrLoginRequired is returned.
func (c *Client) AuthorizedDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	session, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, session.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	access, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		c.logger.Info("session refresh failed", zap.Error(err))
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Warn("failed to clear session", zap.Error(clearErr))
		}
		return nil, ErrLoginRequired
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, retry, access)
}

func (c *Client) send(ctx context.Context, req *http.Request, token string) (*http.Response, error) {
	r := req.Clone(ctx)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	return c.http.Do(r)
}

// refresh exchanges the refresh token for a new access token and stores it.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", sharedErrors.ErrTokenMissing
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/expert/refresh", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.send(ctx, req, refreshToken)
	if err != nil {
		return "", err
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", sharedErrors.ErrTokenInvalid
	}
	if err := c.store.SetAccessToken(out.AccessToken); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// rewind returns a copy of req whose body can be read again.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// call sends a JSON request and decodes the response envelope into out.
func (c *Client) call(ctx context.Context, method, path string, in, out any, authorized bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var resp *http.Response
	if authorized {
		resp, err = c.AuthorizedDo(ctx, req)
	} else {
		resp, err = c.http.Do(req)
	}
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	_ = json.Unmarshal(data, &env)
	if resp.StatusCode >= 400 || (env.Success != nil && !*env.Success) {
		msg := env.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		status := resp.StatusCode
		if status < 400 {
			status = http.StatusBadRequest
		}
		return &APIError{Status: status, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
