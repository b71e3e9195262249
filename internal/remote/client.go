// Package remote is the HTTP client for the question-bank REST service.
package remote

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

	"github.com/stemsi/qbank-console/internal/model"
)

// TokenSource supplies the bearer token for outgoing calls.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

type tokenKey struct{}

// ContextWithToken attaches a caller's bearer token to ctx. It takes
// precedence over the client's TokenSource, so one Client can serve many users.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Client calls the remote service. Requests carry no timeout and are never
// retried; the caller's context is the only way to abandon one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoginResult is the service's answer to login and signup.
type LoginResult struct {
	Message string `json:"msg,omitempty"`
	Token   string `json:"token,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "log in", http.MethodPost, "/api/teachers/login", nil, body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, req model.SignupRequest) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, "sign up", http.MethodPost, "/api/teachers/signup", nil, req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBoards(ctx context.Context) ([]model.Board, error) {
	return c.listTaxonomy(ctx, "load boards", "/api/boards", nil)
}

func (c *Client) ListClasses(ctx context.Context, boardID string) ([]model.Class, error) {
	return c.listTaxonomy(ctx, "load classes", "/api/classes", url.Values{"boardId": {boardID}})
}

func (c *Client) ListSubjects(ctx context.Context, classID string) ([]model.Subject, error) {
	return c.listTaxonomy(ctx, "load subjects", "/api/subjects", url.Values{"classId": {classID}})
}

func (c *Client) ListChapters(ctx context.Context, subjectID string) ([]model.Chapter, error) {
	return c.listTaxonomy(ctx, "load chapters", "/api/chapters", url.Values{"subjectId": {subjectID}})
}

func (c *Client) ListTopics(ctx context.Context, chapterID string) ([]model.Topic, error) {
	return c.listTaxonomy(ctx, "load topics", "/api/topics", url.Values{"chapterId": {chapterID}})
}

func (c *Client) listTaxonomy(ctx context.Context, op, path string, q url.Values) ([]model.TaxonomyEntity, error) {
	var out []model.TaxonomyEntity
	if err := c.do(ctx, op, http.MethodGet, path, q, nil, &out, true); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.TaxonomyEntity{}
	}
	return out, nil
}

// ListQuestions returns question summaries for the parent picker.
func (c *Client) ListQuestions(ctx context.Context, f model.QuestionFilter) ([]model.QuestionSummary, error) {
	q := url.Values{}
	if f.HasChild != nil {
		q.Set("hasChild", strconv.FormatBool(*f.HasChild))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}

	var out []model.QuestionSummary
	if err := c.do(ctx, "load questions", http.MethodGet, "/api/questions", q, nil, &out, true); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.QuestionSummary{}
	}
	return out, nil
}

// SubmitQuestion creates a question, or re-sends a parent shell with its
// child ids.
func (c *Client) SubmitQuestion(ctx context.Context, payload model.WirePayload) (*model.SubmitResult, error) {
	var out model.SubmitResult
	if err := c.do(ctx, "submit question", http.MethodPost, "/api/question/create", nil, payload, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok && tok != "" {
		return tok, nil
	}
	if c.tokens == nil {
		return "", ErrUnauthenticated
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if tok == "" {
		return "", ErrUnauthenticated
	}
	return tok, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, in, out interface{}, auth bool) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		tok, err := c.token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: serverMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func serverMessage(raw []byte) string {
	var body struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Msg != "" {
		return body.Msg
	}
	return body.Message
}
