package posapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"kasir/internal/config"
	"kasir/internal/session"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	csrfCookieName  = "csrftoken"
	csrfHeader      = "X-CSRFToken"
	requestIDHeader = "X-Request-ID"
)

// Request describes one API call. It is a value so the same call can be
// replayed after a token refresh without sharing mutable state.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
	Result any
	// SkipRefresh disables the refresh-and-replay path, used by login where
	// a 401 means bad credentials rather than an expired token.
	SkipRefresh bool
}

// attempt is one try of a Request. retried is set on the copy built for the
// replay so a second 401 is terminal.
type attempt struct {
	req     Request
	retried bool
}

func (a attempt) replay() attempt {
	return attempt{req: a.req, retried: true}
}

type Option func(*Client)

// WithLoginNavigator sets the port invoked once per failed token refresh.
func WithLoginNavigator(nav LoginNavigator) Option {
	return func(c *Client) {
		if nav != nil {
			c.refresher.nav = nav
		}
	}
}

type Client struct {
	http      *resty.Client
	baseURL   *url.URL
	jar       http.CookieJar
	store     *session.Store
	refresher *refresher
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewClient(cfg config.Config, store *session.Store, logger *zap.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("posapi")

	rawBase := strings.TrimRight(strings.TrimSpace(cfg.POSBaseURL), "/")
	if rawBase == "" {
		rawBase = config.DefaultBaseURL
	}
	baseURL, err := url.Parse(rawBase)
	if err != nil {
		return nil, fmt.Errorf("parse pos base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(rawBase).
		SetCookieJar(jar).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil || resp == nil || resp.Request == nil {
				return false
			}
			return resp.Request.Method == http.MethodGet && resp.StatusCode() == http.StatusTooManyRequests
		})

	if store == nil {
		store = session.NewStore()
	}

	c := &Client{
		http:    httpClient,
		baseURL: baseURL,
		jar:     jar,
		store:   store,
		logger:  logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	c.refresher = newRefresher(c, logger)
	httpClient.OnBeforeRequest(c.attachCSRF)

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetAuthToken installs token for every later request; an empty token
// removes the Authorization header.
func (c *Client) SetAuthToken(token string) {
	c.store.SetToken(token)
}

func (c *Client) Session() *session.Store {
	return c.store
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do issues req with the current bearer token. A 401 on the first attempt
// is recovered by a single shared token refresh followed by one replay;
// every other non-2xx answer is returned as an *APIError.
func (c *Client) Do(ctx context.Context, req Request) (*resty.Response, error) {
	return c.do(ctx, attempt{req: req})
}

func (c *Client) do(ctx context.Context, at attempt) (*resty.Response, error) {
	token := c.store.Token()
	resp, err := c.send(ctx, at.req, token)
	if err != nil {
		return nil, fmt.Errorf("pos request: %w", err)
	}
	if !resp.IsError() {
		return resp, nil
	}

	apiErr := apiErrorFromResponse(resp)
	if resp.StatusCode() != http.StatusUnauthorized || at.req.SkipRefresh {
		return nil, classify(apiErr)
	}
	if at.retried {
		c.logger.Warn("request still unauthorized after refresh",
			zap.String("method", at.req.Method),
			zap.String("path", at.req.Path),
		)
		return nil, classify(apiErr)
	}

	next := at.replay()
	if _, err := c.refresher.tokenAfter(ctx, token); err != nil {
		return nil, err
	}
	return c.do(ctx, next)
}

func (c *Client) send(ctx context.Context, req Request, token string) (*resty.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	requestID := uuid.NewString()
	r := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, requestID)
	if token != "" {
		r.SetHeader("Authorization", "Bearer "+token)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if req.Result != nil {
		r.SetResult(req.Result)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	resp, err := r.Execute(method, req.Path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("pos request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()),
	)
	return resp, nil
}

// attachCSRF mirrors the csrftoken cookie into the header Django expects on
// unsafe methods.
func (c *Client) attachCSRF(_ *resty.Client, r *resty.Request) error {
	if token := c.csrfToken(); token != "" {
		r.SetHeader(csrfHeader, token)
	}
	return nil
}

func (c *Client) csrfToken() string {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, result any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Result: result})
	return err
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Result: result})
	return err
}

func (c *Client) patch(ctx context.Context, path string, body, result any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body, Result: result})
	return err
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Result: result})
	return err
}

func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
	return err
}
