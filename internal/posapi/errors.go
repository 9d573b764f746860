package posapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNotLoggedIn    = errors.New("pos: not logged in")
	ErrUnauthorized   = errors.New("pos: unauthorized")
	ErrSessionExpired = errors.New("pos: session expired")
	ErrForbidden      = errors.New("pos: forbidden")
	ErrNotFound       = errors.New("pos: not found")
	ErrRateLimited    = errors.New("pos: rate limited")
	ErrEmptyCart      = errors.New("pos: cart is empty")
)

// APIError is a non-2xx answer from the POS API. Body is kept verbatim for
// diagnostics; Message extracts the line worth showing to a cashier.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pos api error: %s", e.Status)
	}
	return fmt.Sprintf("pos api error: %s: %s", e.Status, e.Body)
}

// Message returns the first human readable message in the body: "error",
// then "detail", then "non_field_errors", then the first field error.
func (e *APIError) Message() string {
	var body map[string]any
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && len(body) > 0 {
		for _, key := range []string{"error", "detail", "non_field_errors"} {
			if msg := firstMessage(body[key]); msg != "" {
				return msg
			}
		}
		keys := make([]string, 0, len(body))
		for key := range body {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if msg := firstMessage(body[key]); msg != "" {
				return msg
			}
		}
	}
	if e.Status != "" {
		return e.Status
	}
	return http.StatusText(e.StatusCode)
}

func firstMessage(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if msg := firstMessage(item); msg != "" {
				return msg
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if msg := firstMessage(t[key]); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// UserMessage turns any error from this package into one line for the
// cashier, the terminal counterpart of an error toast.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "Sesi berakhir, silakan login kembali."
	case errors.Is(err, ErrNotLoggedIn):
		return "Belum login."
	case errors.Is(err, ErrEmptyCart):
		return "Keranjang masih kosong."
	case errors.Is(err, ErrRateLimited):
		return "Terlalu banyak permintaan. Coba lagi nanti."
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

func apiErrorFromResponse(resp *resty.Response) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       strings.TrimSpace(resp.String()),
	}
}

// classify wraps apiErr with the sentinel matching its status so callers can
// use errors.Is and still reach the *APIError with errors.As.
func classify(apiErr *APIError) error {
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrForbidden, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, apiErr)
	default:
		return apiErr
	}
}
