package cli

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhoamiShowsProfileAndRefreshState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/profil/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": "sari", "role": "kasir", "first_name": "Sari"})
	})
	sh, out := loggedInShellOutput(t, mux)

	require.NoError(t, run(t, sh, "whoami"))
	assert.Contains(t, out.String(), "sari")
	assert.Contains(t, out.String(), "Refresh token  idle")
}
