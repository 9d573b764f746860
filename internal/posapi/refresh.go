package posapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kasir/internal/flight"

	"go.uber.org/zap"
)

const refreshPath = "/auth/token/refresh/"

// LoginNavigator is told when the session can no longer be recovered and
// the user has to log in again.
type LoginNavigator interface {
	NavigateToLogin(cause error)
}

type NavigatorFunc func(cause error)

func (f NavigatorFunc) NavigateToLogin(cause error) {
	f(cause)
}

type tokenResponse struct {
	Access string `json:"access"`
}

// refresher mints a new access token from the refresh cookie. Concurrent
// 401s share one refresh call through a flight.Group; the group is back to
// idle as soon as that call settles, whatever its outcome.
type refresher struct {
	client *Client
	group  flight.Group[string]
	nav    LoginNavigator
	logger *zap.Logger
}

func newRefresher(c *Client, logger *zap.Logger) *refresher {
	return &refresher{
		client: c,
		nav:    NavigatorFunc(func(error) {}),
		logger: logger.Named("refresh"),
	}
}

// tokenAfter returns a token newer than used. When another caller already
// replaced used, that token is returned without a new refresh; when the
// session was cleared in the meantime the caller fails without a refresh.
func (r *refresher) tokenAfter(ctx context.Context, used string) (string, error) {
	replaced := func() (string, bool) {
		current := r.client.store.Token()
		return current, current != used
	}

	if r.group.State() == flight.Inflight {
		r.logger.Debug("joining token refresh", zap.Int("waiters", r.group.Waiters()))
	}
	token, leader, err := r.group.DoUnless(ctx, replaced, r.refresh)
	if leader {
		r.logger.Debug("refresh settled", zap.Bool("ok", err == nil))
	}
	if err == nil && token == "" {
		return "", fmt.Errorf("%w: session cleared", ErrSessionExpired)
	}
	return token, err
}

func (r *refresher) State() flight.State {
	return r.group.State()
}

func (r *refresher) refresh(ctx context.Context) (string, error) {
	r.logger.Info("refreshing access token")

	var body tokenResponse
	resp, err := r.client.http.R().
		SetContext(ctx).
		SetResult(&body).
		Post(refreshPath)

	var cause error
	switch {
	case err != nil:
		cause = fmt.Errorf("refresh request: %w", err)
	case resp.IsError():
		cause = classify(apiErrorFromResponse(resp))
	case strings.TrimSpace(body.Access) == "":
		cause = errors.New("refresh response has no access token")
	}

	if cause != nil {
		r.logger.Warn("token refresh failed, session cleared", zap.Error(cause))
		r.client.store.Clear()
		r.client.store.ClearIdentity()
		r.nav.NavigateToLogin(cause)
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	}

	r.client.store.SetToken(body.Access)
	r.logger.Info("access token refreshed", zap.Int("status", resp.StatusCode()))
	return body.Access, nil
}

// Refresh forces a token refresh, joining one already in flight.
func (c *Client) Refresh(ctx context.Context) error {
	_, _, err := c.refresher.group.Do(ctx, c.refresher.refresh)
	return err
}

// RefreshState reports whether a token refresh is currently in flight.
func (c *Client) RefreshState() string {
	return c.refresher.State().String()
}
