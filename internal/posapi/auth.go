package posapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"kasir/internal/session"

	"go.uber.org/zap"
)

var ErrMissingCredentials = errors.New("pos: username and password are required")

// FetchCSRFCookie asks the API to set the csrftoken cookie in the jar.
func (c *Client) FetchCSRFCookie(ctx context.Context) error {
	return c.get(ctx, "/users/csrf-cookie/", nil, nil)
}

// Login authenticates with a password, installs the access token and caches
// the returned identity.
func (c *Client) Login(ctx context.Context, username, password string) (session.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return session.User{}, ErrMissingCredentials
	}
	if err := c.FetchCSRFCookie(ctx); err != nil {
		return session.User{}, fmt.Errorf("fetch csrf cookie: %w", err)
	}

	var resp LoginResponse
	_, err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/auth/login/",
		Body:        map[string]string{"username": username, "password": password},
		Result:      &resp,
		SkipRefresh: true,
	})
	if err != nil {
		return session.User{}, err
	}
	if strings.TrimSpace(resp.Access) == "" {
		return session.User{}, errors.New("login response has no access token")
	}

	c.SetAuthToken(resp.Access)
	c.store.SetIdentity(resp.User)
	c.logger.Info("logged in", zap.String("username", resp.User.Username), zap.String("role", resp.User.Role))
	return resp.User, nil
}

// Logout ends the server session. Local state is cleared even when the
// server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.post(ctx, "/auth/logout/", nil, nil)
	if err != nil {
		c.logger.Warn("server logout failed, clearing local session anyway", zap.Error(err))
	}
	c.SetAuthToken("")
	c.store.ClearIdentity()
	return err
}

// RestoreSession silently mints an access token from the refresh cookie.
// It reports false, with local state cleared, when no session survives.
func (c *Client) RestoreSession(ctx context.Context) (bool, error) {
	if _, ok := c.store.Identity(); !ok {
		return false, nil
	}
	if err := c.Refresh(ctx); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) Profile(ctx context.Context) (session.User, error) {
	var user session.User
	if err := c.get(ctx, "/users/profil/", nil, &user); err != nil {
		return session.User{}, err
	}
	c.store.SetIdentity(user)
	return user, nil
}

func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{
		"old_password":  oldPassword,
		"new_password1": newPassword,
		"new_password2": newPassword,
	}
	return c.post(ctx, "/auth/password/change/", body, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]session.User, error) {
	var users []session.User
	if err := c.get(ctx, "/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// User roles known to the server.
const (
	RoleAdmin   = "admin"
	RoleCashier = "kasir"
)

type NewUser struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func validRole(role string) error {
	if role != RoleAdmin && role != RoleCashier {
		return fmt.Errorf("unknown role %q (want %s or %s)", role, RoleAdmin, RoleCashier)
	}
	return nil
}

// CreateUser requires an admin session.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (session.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" || u.Password == "" {
		return session.User{}, ErrMissingCredentials
	}
	if u.Role == "" {
		u.Role = RoleCashier
	}
	if err := validRole(u.Role); err != nil {
		return session.User{}, err
	}
	var created session.User
	if err := c.post(ctx, "/users/", u, &created); err != nil {
		return session.User{}, err
	}
	return created, nil
}

// SetUserRole changes a user's role. The server ignores every other field
// on this endpoint.
func (c *Client) SetUserRole(ctx context.Context, id int, role string) (session.User, error) {
	if err := validRole(role); err != nil {
		return session.User{}, err
	}
	var updated session.User
	if err := c.patch(ctx, fmt.Sprintf("/users/%d/", id), map[string]string{"role": role}, &updated); err != nil {
		return session.User{}, err
	}
	return updated, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	if me, ok := c.store.Identity(); ok && me.ID == id {
		return errors.New("cannot delete the logged-in user")
	}
	return c.delete(ctx, fmt.Sprintf("/users/%d/", id))
}
