package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	authapi "jotter/cmd/internal/auth/api"
)

// APIError is a non-2xx response from the auth API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authclient: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("authclient: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsReuseDetected reports whether err is the server's refresh-token reuse
// rejection. The session is gone and only a new login can recover.
func IsReuseDetected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "reuse_detected"
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client calls the auth API and transparently refreshes expired access tokens.
type Client struct {
	base  *url.URL
	http  *http.Client
	coord *Coordinator
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	coordOpts  []CoordinatorOption
}

// WithHTTPClient uses hc for all requests. A cookie jar is added if hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithCoordinatorOptions passes opts to the Client's Coordinator.
func WithCoordinatorOptions(opts ...CoordinatorOption) Option {
	return func(o *clientOptions) { o.coordOpts = append(o.coordOpts, opts...) }
}

// New returns a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("authclient: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("authclient: unsupported scheme %q", u.Scheme)
	}

	var o clientOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		cp := *hc
		cp.Jar = jar
		hc = &cp
	}

	c := &Client{base: u, http: hc}
	c.coord = NewCoordinator(c.Refresh, o.coordOpts...)
	return c, nil
}

// Coordinator returns the Client's refresh coordinator.
func (c *Client) Coordinator() *Coordinator { return c.coord }

// CopySession copies src's cookies and access token into dst, which must
// target the same API. Tooling uses it to replay a session from a second
// client.
func CopySession(dst, src *Client) error {
	if dst.base.String() != src.base.String() {
		return fmt.Errorf("authclient: copy session across %s and %s", src.base, dst.base)
	}
	dst.http.Jar.SetCookies(dst.base, src.http.Jar.Cookies(src.base))
	dst.coord.SetToken(src.coord.Token())
	return nil
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, email, password, name string) (authapi.UserResponse, error) {
	return c.signIn(ctx, "/auth/register", map[string]string{"email": email, "password": password, "name": name})
}

// Login signs in with primary credentials.
func (c *Client) Login(ctx context.Context, email, password string) (authapi.UserResponse, error) {
	return c.signIn(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) signIn(ctx context.Context, path string, body any) (authapi.UserResponse, error) {
	var out authapi.SessionResponse
	if err := c.call(ctx, http.MethodPost, path, body, "", &out); err != nil {
		return authapi.UserResponse{}, err
	}
	c.coord.SetToken(out.AccessToken)
	return out.User, nil
}

// Refresh redeems the refresh cookie for a new access token. It is the
// Coordinator's RefreshFunc; callers normally go through Do instead.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var out authapi.RefreshResponse
	if err := c.call(ctx, http.MethodPost, "/auth/refresh", nil, "", &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Logout ends the session server-side and forgets the access token.
func (c *Client) Logout(ctx context.Context) error {
	defer c.coord.SetToken("")
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, "", nil)
}

// Me returns the signed-in identity.
func (c *Client) Me(ctx context.Context) (authapi.UserResponse, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return authapi.UserResponse{}, err
	}
	var out authapi.MeResponse
	if err := decodeResponse(resp, &out); err != nil {
		return authapi.UserResponse{}, err
	}
	return out.User, nil
}

// Do sends an authenticated request. On 401 it waits for a refreshed access
// token and replays the request once. The caller closes the response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	sent := c.coord.Token()
	resp, err := c.send(ctx, method, path, body, sent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	tok, err := c.coord.Await(ctx, sent)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, body, tok)
}

func (c *Client) call(ctx context.Context, method, path string, in any, bearer string, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}
	resp, err := c.send(ctx, method, path, body, bearer)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, bearer string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.http.Do(req)
}

func decodeResponse(resp *http.Response, out any) error {
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
			apiErr.Code = body.Error
			apiErr.Message = body.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
