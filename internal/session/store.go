package session

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no access token")

// User is the locally cached identity of the logged in user.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == "admin"
}

// Claims is the unverified view of an access token used for status display.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// Store is the single source of truth for the access token and the cached
// identity. The token lives in memory only; the refresh credential is an
// HTTP-only cookie owned by the transport.
type Store struct {
	mu       sync.RWMutex
	token    string
	identity *User
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken installs token for every later request. An empty token removes
// the Authorization header entirely.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}

func (s *Store) Clear() {
	s.SetToken("")
}

func (s *Store) HasToken() bool {
	return s.Token() != ""
}

func (s *Store) Identity() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return User{}, false
	}
	return *s.identity, true
}

func (s *Store) SetIdentity(u User) {
	s.mu.Lock()
	s.identity = &u
	s.mu.Unlock()
}

func (s *Store) ClearIdentity() {
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()
}

// Claims decodes the current token without verifying its signature.
func (s *Store) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, err
	}

	var out Claims
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	switch v := claims["user_id"].(type) {
	case string:
		out.UserID = v
	case float64:
		out.UserID = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out, nil
}
