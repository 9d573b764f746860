package cli

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestLog keeps the method, path and JSON body of every request a
// handler saw.
type requestLog struct {
	mu     sync.Mutex
	calls  []string
	bodies []map[string]any
}

func (l *requestLog) record(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if r.ContentLength != 0 && r.Method != http.MethodGet && r.Method != http.MethodDelete {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, r.Method+" "+r.URL.Path)
	l.bodies = append(l.bodies, body)
	return body
}

func (l *requestLog) snapshot() ([]string, []map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...), append([]map[string]any(nil), l.bodies...)
}

func TestProductAddSendsFirstVariant(t *testing.T) {
	var log requestLog
	mux := http.NewServeMux()
	mux.HandleFunc("/products/produk/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":          5,
			"nama_produk": "Minyak Goreng",
			"kategori":    map[string]any{"id": 2, "nama_kategori": "Sembako"},
			"varian":      []map[string]any{{"id": 31, "nama_varian": "1L", "nama_produk_induk": "Minyak Goreng", "harga_jual_normal": "18000.00"}},
		})
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, `product add nama="Minyak Goreng" kategori=2 varian=1L harga=18.000 reseller=17000 stok=24 satuan=botol pemasok=3`))

	calls, bodies := log.snapshot()
	require.Equal(t, []string{"POST /products/produk/"}, calls)
	body := bodies[0]
	assert.Equal(t, "Minyak Goreng", body["nama_produk"])
	assert.EqualValues(t, 2, body["kategori"])
	first, _ := body["varian_pertama"].(map[string]any)
	assert.Equal(t, "1L", first["nama_varian"])
	assert.EqualValues(t, 18000, first["harga_jual_normal"])
	assert.EqualValues(t, 17000, first["harga_jual_reseller"])
	assert.EqualValues(t, 24, first["stok"])
	assert.EqualValues(t, 3, first["pemasok"])
	assert.Equal(t, true, first["lacak_stok"])
	assert.Contains(t, out.String(), "Produk #5 Minyak Goreng dibuat di kategori Sembako.")

	assert.Error(t, run(t, sh, "product add nama=Gula warna=putih"))
	assert.Error(t, run(t, sh, "product add Gula"))
}

func TestPriceCommandsRewriteWholeRuleSet(t *testing.T) {
	var log requestLog
	mux := http.NewServeMux()
	mux.HandleFunc("/products/varian-produk/7/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		writeJSON(w, http.StatusOK, beras)
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, "price 7"))
	assert.Contains(t, out.String(), "Rp 36.000")

	require.NoError(t, run(t, sh, "price set 7 10 115.000"))
	require.NoError(t, run(t, sh, "grosir rm 7 3"))
	require.Error(t, run(t, sh, "price rm 7 99"))

	calls, bodies := log.snapshot()
	assert.Equal(t, []string{
		"GET /products/varian-produk/7/",
		"GET /products/varian-produk/7/",
		"PUT /products/varian-produk/7/",
		"GET /products/varian-produk/7/",
		"PUT /products/varian-produk/7/",
		"GET /products/varian-produk/7/",
	}, calls)

	set, _ := bodies[2]["aturan_harga"].([]any)
	require.Len(t, set, 2)
	assert.EqualValues(t, 3, set[0].(map[string]any)["jumlah_minimal"])
	assert.EqualValues(t, 36000, set[0].(map[string]any)["harga_total_khusus"])
	assert.EqualValues(t, 10, set[1].(map[string]any)["jumlah_minimal"])
	assert.EqualValues(t, 115000, set[1].(map[string]any)["harga_total_khusus"])
	assert.EqualValues(t, 12500, bodies[2]["harga_jual_normal"])
	assert.EqualValues(t, 11000, bodies[2]["harga_jual_reseller"])

	removed, ok := bodies[4]["aturan_harga"].([]any)
	require.True(t, ok)
	assert.Empty(t, removed)
}

func TestVariantEditAndLifecycle(t *testing.T) {
	var log requestLog
	mux := http.NewServeMux()
	mux.HandleFunc("/products/varian-produk/7/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, beras)
	})
	mux.HandleFunc("/products/varian-produk/7/reactivate/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		writeJSON(w, http.StatusOK, map[string]string{"status": "varian diaktifkan"})
	})
	mux.HandleFunc("/products/varian-produk/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 8, "nama_varian": "5kg"})
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, "variant edit 7 harga=13000 reseller=- lacak=tidak"))
	require.NoError(t, run(t, sh, "variant rm 7"))
	require.NoError(t, run(t, sh, "varian on 7"))
	require.NoError(t, run(t, sh, "variant add 3 varian=5kg harga=60000"))
	assert.Error(t, run(t, sh, "variant edit 7"))

	calls, bodies := log.snapshot()
	assert.Equal(t, []string{
		"GET /products/varian-produk/7/",
		"PUT /products/varian-produk/7/",
		"DELETE /products/varian-produk/7/",
		"POST /products/varian-produk/7/reactivate/",
		"POST /products/varian-produk/",
	}, calls)

	edit := bodies[1]
	assert.EqualValues(t, 13000, edit["harga_jual_normal"])
	assert.Nil(t, edit["harga_jual_reseller"])
	assert.Equal(t, false, edit["lacak_stok"])
	assert.Equal(t, "1kg", edit["nama_varian"])
	assert.Len(t, edit["aturan_harga"], 1)

	added := bodies[4]
	assert.EqualValues(t, 3, added["produk_induk"])
	assert.Equal(t, "5kg", added["nama_varian"])

	assert.Contains(t, out.String(), "Varian #7 dinonaktifkan.")
	assert.Contains(t, out.String(), "Varian #7 diaktifkan kembali.")
	assert.Contains(t, out.String(), "Varian #8 5kg ditambahkan.")
}

func TestHeldRemoveClearsResumedCart(t *testing.T) {
	backend := &posBackend{}
	sh, out := newTestShell(t, backend.handler(t), nil)

	require.NoError(t, run(t, sh, "login sari rahasia"))
	require.NoError(t, run(t, sh, "resume 5"))
	require.False(t, sh.cart.Empty())

	require.NoError(t, run(t, sh, "held rm 5"))
	assert.Contains(t, backend.recorded(), "DELETE /transactions/transaksi/5/")
	assert.True(t, sh.cart.Empty())
	assert.Zero(t, sh.cart.ResumingID())
	assert.Contains(t, out.String(), "Transaksi ditahan #5 dihapus.")

	assert.Error(t, run(t, sh, "held hapus"))
}

func TestProductsAllWalksEveryPage(t *testing.T) {
	var pages []string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/products/varian-produk/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("page_size"))
		assert.Equal(t, "all", q.Get("status"))
		assert.Equal(t, "beras", q.Get("search"))
		mu.Lock()
		pages = append(pages, q.Get("page"))
		mu.Unlock()
		var next *string
		if q.Get("page") == "1" {
			n := "http://pos/api/products/varian-produk/?page=2"
			next = &n
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": 2, "next": next, "results": []any{beras}})
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, "products --semua --nonaktif beras"))
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Contains(t, out.String(), "2 produk.")
}

func TestCategoryAndSupplierCommands(t *testing.T) {
	var log requestLog
	mux := http.NewServeMux()
	mux.HandleFunc("/products/kategori/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "nama_kategori": "Sembako"}})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 6, "nama_kategori": "Rokok"})
	})
	mux.HandleFunc("/products/kategori/4/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 4, "nama_kategori": "Minuman Dingin"})
	})
	mux.HandleFunc("/products/pemasok/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, map[string]any{"count": 1, "results": []map[string]any{{"id": 9, "nama_pemasok": "CV Sumber Rejeki"}}})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 10, "nama_pemasok": "PT Maju"})
	})
	mux.HandleFunc("/products/pemasok/9/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusOK, map[string]any{"id": 9, "nama_pemasok": "CV Sumber Rejeki", "alamat": "Pasar Baru"})
		}
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, "categories"))
	require.NoError(t, run(t, sh, "categories add Rokok"))
	require.NoError(t, run(t, sh, "kategori rename 4 Minuman Dingin"))
	require.NoError(t, run(t, sh, "categories rm 4"))
	require.NoError(t, run(t, sh, "suppliers sumber"))
	require.NoError(t, run(t, sh, `suppliers add nama="PT Maju" telepon=0811`))
	require.NoError(t, run(t, sh, "pemasok edit 9 telepon=0812"))
	require.NoError(t, run(t, sh, "suppliers rm 9"))

	calls, bodies := log.snapshot()
	assert.Equal(t, []string{
		"GET /products/kategori/",
		"POST /products/kategori/",
		"PATCH /products/kategori/4/",
		"DELETE /products/kategori/4/",
		"GET /products/pemasok/",
		"POST /products/pemasok/",
		"GET /products/pemasok/9/",
		"PUT /products/pemasok/9/",
		"DELETE /products/pemasok/9/",
	}, calls)
	assert.Equal(t, map[string]any{"nama_kategori": "Rokok"}, bodies[1])
	assert.Equal(t, map[string]any{"nama_kategori": "Minuman Dingin"}, bodies[2])
	assert.Equal(t, "0811", bodies[5]["nomor_telepon"])
	assert.Equal(t, map[string]any{"nama_pemasok": "CV Sumber Rejeki", "nomor_telepon": "0812", "alamat": "Pasar Baru"}, bodies[7])
	assert.Contains(t, out.String(), "Sembako")
	assert.Contains(t, out.String(), "CV Sumber Rejeki")
}

func TestUsersCommands(t *testing.T) {
	var log requestLog
	mux := http.NewServeMux()
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, []map[string]any{
				{"id": 1, "username": "sari", "role": "admin", "first_name": "Sari"},
				{"id": 2, "username": "ani", "role": "kasir"},
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "username": "budi", "role": "kasir"})
	})
	mux.HandleFunc("/users/3/", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, r)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 3, "username": "budi", "role": "admin"})
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, "users"))
	require.NoError(t, run(t, sh, "users add budi rahasia"))
	require.NoError(t, run(t, sh, "pengguna role 3 admin"))
	require.NoError(t, run(t, sh, "users rm 3"))
	assert.Error(t, run(t, sh, "users role 3 pemilik"))
	assert.Error(t, run(t, sh, "users rm 1"))

	calls, bodies := log.snapshot()
	assert.Equal(t, []string{"GET /users/", "POST /users/", "PATCH /users/3/", "DELETE /users/3/"}, calls)
	assert.Equal(t, map[string]any{"username": "budi", "password": "rahasia", "role": "kasir"}, bodies[1])
	assert.Equal(t, map[string]any{"role": "admin"}, bodies[2])
	assert.Contains(t, out.String(), "ani")
	assert.Contains(t, out.String(), "budi sekarang admin.")
}

func TestBarcodeCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products/lookup-barcode/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "8991002101234", r.URL.Query().Get("barcode"))
		writeJSON(w, http.StatusOK, map[string]any{"nama_produk_induk": "Teh Celup", "nama_varian": "25 sachet", "kategori": "Minuman"})
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, "barcode 8991002101234"))
	assert.Contains(t, out.String(), "Teh Celup")
	assert.Contains(t, out.String(), "25 sachet")
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"Nama=Gula Pasir", "harga= 15000 "}, "nama", "harga")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"nama": "Gula Pasir", "harga": "15000"}, fields)

	_, err = parseFields([]string{"gula"}, "nama")
	assert.Error(t, err)
	_, err = parseFields([]string{"warna=putih"}, "nama")
	assert.ErrorContains(t, err, "kolom tidak dikenal")
}
