// Package apiclient talks to the Ratiba REST API. Its typed resources implement crud.Adapter,
// so an Entity Store can be kept in sync with a remote server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

var (
	// ErrUnexpectedResponse is returned when a success body is not a {"data": ...} envelope.
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrUnauthorized       = errors.New("not authenticated")
	ErrForbidden          = errors.New("permission denied")
)

// Error is a non-2xx answer of the API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match the status code against core.ErrNotFound, ErrUnauthorized and ErrForbidden.
func (e *Error) Is(target error) bool {
	switch target {
	case core.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// Client is safe for concurrent use. The session is the only mutable state.
type Client struct {
	baseURL string
	rest    *rest.Client

	mu      sync.RWMutex
	session core.Session
}

// New returns a client of the API served at baseURL (e.g. "http://localhost:8000/v1").
// A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	vala.BeginValidation().Validate(
		vala.StringNotEmpty(baseURL, "baseURL"),
	).CheckAndPanic()

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: httpClient},
		session: core.Anonymous,
	}
}

// WithToken returns a client authenticated with an existing token.
func WithToken(baseURL, token string, httpClient *http.Client) *Client {
	c := New(baseURL, httpClient)
	c.SetSession(core.Session{Token: token, Theme: core.ThemeSystem})
	return c
}

func (c *Client) Session() core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) SetSession(sess core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = sess
}

// Logout drops the session; the display mode is kept.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = core.Anonymous.WithTheme(c.session.Theme)
}

type loginResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Login authenticates with a username or email and keeps the resulting session.
func (c *Client) Login(ctx context.Context, username, password string) (core.Session, error) {
	var resp loginResponse
	err := c.do(ctx, rest.Post, "/users/login", nil, user.LoginUser{Username: username, Password: password}, &resp)
	if err != nil {
		return core.Anonymous, err
	}
	return c.signIn(resp)
}

// Register signs up a student account and keeps the resulting session.
func (c *Client) Register(ctx context.Context, nu user.NewUser) (core.Session, error) {
	var resp loginResponse
	if err := c.do(ctx, rest.Post, "/users/register", nil, nu, &resp); err != nil {
		return core.Anonymous, err
	}
	return c.signIn(resp)
}

func (c *Client) signIn(resp loginResponse) (core.Session, error) {
	if resp.Token == "" {
		return core.Anonymous, ErrUnexpectedResponse
	}
	sess := resp.User.Session(resp.Token).WithTheme(c.Session().Theme)
	c.SetSession(sess)
	return sess, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (user.User, error) {
	var usr user.User
	err := c.do(ctx, rest.Get, "/users/me", nil, nil, &usr)
	return usr, err
}

// RefreshToken swaps the session token for a fresh one.
func (c *Client) RefreshToken(ctx context.Context) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, rest.Post, "/users/token-refresh", nil, nil, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return ErrUnexpectedResponse
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Token = resp.Token
	return nil
}

// send performs the call and turns non-2xx answers into errors.
func (c *Client) send(ctx context.Context, method rest.Method, path string, query map[string]string, in interface{}) (*rest.Response, error) {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if token := c.Session().Token; token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, responseError(resp)
	}
	return resp, nil
}

// do sends in as JSON and decodes the data envelope of the answer into out (when not nil).
func (c *Client) do(ctx context.Context, method rest.Method, path string, query map[string]string, in, out interface{}) error {
	resp, err := c.send(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeEnvelope(resp.Body, out)
}

func decodeEnvelope(body string, out interface{}) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return errors.Wrap(ErrUnexpectedResponse, err.Error())
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return errors.Wrap(ErrUnexpectedResponse, "missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(ErrUnexpectedResponse, err.Error())
	}
	return nil
}

func responseError(resp *rest.Response) error {
	var body errorBody
	msg := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal([]byte(resp.Body), &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	apiErr := &Error{StatusCode: resp.StatusCode, Message: msg}

	if resp.StatusCode == http.StatusBadRequest {
		fields := make([]core.FieldError, 0, len(body.Fields))
		for field, fieldErr := range body.Fields {
			fields = append(fields, core.FieldError{Field: field, Error: fieldErr})
		}
		return core.NewValidationError(apiErr, fields...)
	}
	return apiErr
}
