package posapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kasir/internal/config"
	"kasir/internal/posapi"
	"kasir/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.Handler, opts ...posapi.Option) (*posapi.Client, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := session.NewStore()
	c, err := posapi.NewClient(config.Config{POSBaseURL: srv.URL, Timeout: 5 * time.Second}, store, zap.NewNop(), opts...)
	require.NoError(t, err)
	return c, store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// barrier releases every caller once n of them have arrived.
type barrier struct {
	n       int32
	arrived atomic.Int32
	all     chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: int32(n), all: make(chan struct{})}
}

func (b *barrier) wait() {
	if b.arrived.Add(1) == b.n {
		close(b.all)
	}
	select {
	case <-b.all:
	case <-time.After(2 * time.Second):
	}
}

func TestConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	const callers = 10
	var refreshes, navigations atomic.Int32
	stale := newBarrier(callers)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		time.Sleep(50 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"access": "new"})
	})
	mux.HandleFunc("/products/kategori/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new" {
			stale.wait()
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "nama_kategori": "Sembako"}})
	})

	nav := posapi.NavigatorFunc(func(error) { navigations.Add(1) })
	c, store := newTestClient(t, mux, posapi.WithLoginNavigator(nav))
	c.SetAuthToken("old")

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			categories, err := c.ListCategories(context.Background())
			if assert.NoError(t, err) && assert.Len(t, categories, 1) {
				assert.Equal(t, "Sembako", categories[0].Name)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, refreshes.Load())
	require.Zero(t, navigations.Load())
	require.Equal(t, "new", store.Token())
	require.Equal(t, "idle", c.RefreshState())
}

func TestUnauthorizedAfterReplayIsTerminal(t *testing.T) {
	var refreshes, hits, navigations atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access": "new"})
	})
	mux.HandleFunc("/users/profil/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	})

	nav := posapi.NavigatorFunc(func(error) { navigations.Add(1) })
	c, _ := newTestClient(t, mux, posapi.WithLoginNavigator(nav))
	c.SetAuthToken("old")

	_, err := c.Profile(context.Background())
	require.ErrorIs(t, err, posapi.ErrUnauthorized)
	require.NotErrorIs(t, err, posapi.ErrSessionExpired)
	require.EqualValues(t, 2, hits.Load())
	require.EqualValues(t, 1, refreshes.Load())
	require.Zero(t, navigations.Load())
}

func TestRefreshFailureFailsEveryWaiterAndNavigatesOnce(t *testing.T) {
	const callers = 5
	var refreshes, navigations atomic.Int32
	stale := newBarrier(callers)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		time.Sleep(50 * time.Millisecond)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	mux.HandleFunc("/transactions/store-info/", func(w http.ResponseWriter, r *http.Request) {
		stale.wait()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
	})

	var cause error
	var mu sync.Mutex
	nav := posapi.NavigatorFunc(func(err error) {
		navigations.Add(1)
		mu.Lock()
		cause = err
		mu.Unlock()
	})
	c, store := newTestClient(t, mux, posapi.WithLoginNavigator(nav))
	c.SetAuthToken("old")
	store.SetIdentity(session.User{ID: 1, Username: "kasir1"})

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.StoreInfo(context.Background())
			assert.ErrorIs(t, err, posapi.ErrSessionExpired)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, refreshes.Load())
	require.EqualValues(t, 1, navigations.Load())
	require.ErrorIs(t, cause, posapi.ErrUnauthorized)
	require.False(t, store.HasToken())
	_, ok := store.Identity()
	require.False(t, ok)
	require.Equal(t, "idle", c.RefreshState())
}

func TestRefreshIsRetriedAfterSettlement(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		n := refreshes.Add(1)
		if n == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "second"})
	})

	c, store := newTestClient(t, mux)
	require.ErrorIs(t, c.Refresh(context.Background()), posapi.ErrSessionExpired)
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, "second", store.Token())
	require.EqualValues(t, 2, refreshes.Load())
}

func TestTokenSwapAppliesToNextRequest(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("/transactions/store-info/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"nama_toko": "Toko Maju"})
	})

	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	c.SetAuthToken("A")
	_, err := c.StoreInfo(ctx)
	require.NoError(t, err)
	c.SetAuthToken("B")
	_, err = c.StoreInfo(ctx)
	require.NoError(t, err)
	c.SetAuthToken("")
	info, err := c.StoreInfo(ctx)
	require.NoError(t, err)

	require.Equal(t, "Toko Maju", info.Name)
	require.Equal(t, []string{"Bearer A", "Bearer B", ""}, seen)
}

func TestLoginMirrorsCSRFCookieAndStoresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/csrf-cookie/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-123", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]string{"detail": "CSRF cookie set"})
	})
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRFToken") != "csrf-123" {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed"})
			return
		}
		if r.Header.Get("X-Request-ID") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "missing request id"})
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "kasir1" || body["password"] != "rahasia" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access": "tok-1",
			"user":   map[string]any{"id": 7, "username": "kasir1", "role": "kasir"},
		})
	})

	c, store := newTestClient(t, mux)
	ctx := context.Background()

	user, err := c.Login(ctx, "kasir1", "rahasia")
	require.NoError(t, err)
	require.Equal(t, 7, user.ID)
	require.Equal(t, "tok-1", store.Token())
	identity, ok := store.Identity()
	require.True(t, ok)
	require.Equal(t, "kasir1", identity.Username)
	require.False(t, identity.IsAdmin())
}

func TestLoginFailureDoesNotRefresh(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/csrf-cookie/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access": "x"})
	})

	c, store := newTestClient(t, mux)
	_, err := c.Login(context.Background(), "kasir1", "salah")
	require.ErrorIs(t, err, posapi.ErrUnauthorized)
	require.Equal(t, "No active account found with the given credentials", posapi.UserMessage(err, ""))
	require.Zero(t, refreshes.Load())
	require.False(t, store.HasToken())

	_, err = c.Login(context.Background(), " ", "x")
	require.ErrorIs(t, err, posapi.ErrMissingCredentials)
}

func TestLogoutClearsLocalSessionEvenWhenServerFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})

	c, store := newTestClient(t, mux)
	c.SetAuthToken("tok")
	store.SetIdentity(session.User{ID: 1})

	err := c.Logout(context.Background())
	require.Error(t, err)
	require.False(t, store.HasToken())
	_, ok := store.Identity()
	require.False(t, ok)
}

func TestRestoreSessionWithoutIdentityDoesNothing(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access": "x"})
	})

	c, store := newTestClient(t, mux)
	ok, err := c.RestoreSession(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, refreshes.Load())

	store.SetIdentity(session.User{ID: 1})
	ok, err = c.RestoreSession(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", store.Token())
}

func TestListVariantsDecodesPageAndDecimalStrings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products/varian-produk/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "beras", r.URL.Query().Get("search"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "3", r.URL.Query().Get("produk_induk__kategori"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"count": 21,
			"next": "http://pos/api/products/varian-produk/?page=3",
			"previous": null,
			"results": [{
				"id": 11,
				"nama_varian": "5kg",
				"nama_produk_induk": "Beras Pandan",
				"stok": "4.00",
				"satuan": "karung",
				"lacak_stok": true,
				"peringatan_stok_rendah": "5.00",
				"harga_jual_normal": "65000.00",
				"harga_jual_reseller": null,
				"aturan_harga": [{"id": 1, "jumlah_minimal": "10.00", "harga_total_khusus": "600000.00"}]
			}]
		}`))
	})

	c, _ := newTestClient(t, mux)
	page, err := c.ListVariants(context.Background(), posapi.VariantFilter{
		ListFilter: posapi.ListFilter{Search: "beras", Page: 2},
		CategoryID: 3,
	})
	require.NoError(t, err)
	require.Equal(t, 21, page.Count)
	require.True(t, page.HasNext())
	require.Len(t, page.Results, 1)

	v := page.Results[0]
	require.Equal(t, "Beras Pandan (5kg)", v.DisplayName())
	require.InDelta(t, 65000, v.NormalPrice.Float(), 0.001)
	require.Zero(t, v.ResellerPrice.Float())
	require.True(t, v.IsLowStock())

	line := v.PricingLine(10)
	require.Len(t, line.Breaks, 1)
	require.InDelta(t, 600000, line.Breaks[0].TotalPrice, 0.001)
}

func TestCheckoutRejectsEmptyCartLocally(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	_, err := c.Checkout(context.Background(), posapi.CheckoutRequest{})
	require.ErrorIs(t, err, posapi.ErrEmptyCart)
	_, err = c.HoldTransaction(context.Background(), posapi.HoldRequest{})
	require.ErrorIs(t, err, posapi.ErrEmptyCart)
	require.Zero(t, hits.Load())
}

func TestCheckoutSendsPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/transactions/transaksi/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Tunai", body["metode_pembayaran"])
		assert.Equal(t, "Reseller", body["customer_type"])
		assert.EqualValues(t, 50000, body["jumlah_bayar"])
		assert.Len(t, body["detail_items"], 1)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":                   99,
			"nomor_transaksi":      "TRX-20261018-0001",
			"total_setelah_diskon": "45000.00",
			"kembalian":            "5000.00",
			"status":               "Selesai",
		})
	})

	c, _ := newTestClient(t, mux)
	tx, err := c.Checkout(context.Background(), posapi.CheckoutRequest{
		Paid:         50000,
		CustomerType: "Reseller",
		DetailItems:  []posapi.DetailItem{{VariantID: 11, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, "TRX-20261018-0001", tx.Number)
	require.InDelta(t, 5000, tx.Change.Float(), 0.001)
}

func TestStatusErrorsAreClassified(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/transactions/transaksi/404/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	mux.HandleFunc("/transactions/store-info/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
	})

	c, _ := newTestClient(t, mux)
	_, err := c.GetTransaction(context.Background(), 404)
	require.ErrorIs(t, err, posapi.ErrNotFound)
	var apiErr *posapi.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "Not found.", apiErr.Message())

	_, err = c.UpdateStoreInfo(context.Background(), posapi.StoreInfo{Name: "Toko"})
	require.ErrorIs(t, err, posapi.ErrForbidden)
}

func TestRateLimitSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"count": 3})
	}))
	t.Cleanup(srv.Close)

	c, err := posapi.NewClient(config.Config{POSBaseURL: srv.URL, RateLimit: 20}, nil, nil)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		n, err := c.LowStockCount(context.Background())
		require.NoError(t, err)
		require.Equal(t, 3, n)
	}
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
