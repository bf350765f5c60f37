package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSuccess(t *testing.T) {
	var got Entry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/records", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(registerResponse{Tx: "0xabc123"})
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(Config{Endpoint: srv.URL, APIKey: "key"})
	tx, err := reg.Register(context.Background(), Entry{
		Key:        "alice",
		CID:        "bafy1",
		GatewayURL: "https://gw/ipfs/bafy1",
	})

	require.NoError(t, err)
	assert.Equal(t, TxHandle("0xabc123"), tx)
	assert.Equal(t, "alice", got.Key)
	assert.Equal(t, "bafy1", got.CID)
}

func TestRegisterServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "revert", http.StatusConflict)
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(Config{Endpoint: srv.URL})
	_, err := reg.Register(context.Background(), Entry{Key: "alice"})

	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "register", regErr.Op)
	assert.Equal(t, "alice", regErr.Key)
}

func TestLookupSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/records/alice", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Entry{Key: "alice", CID: "bafy1"})
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(Config{Endpoint: srv.URL})
	entry, err := reg.Lookup(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "bafy1", entry.CID)
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no record", http.StatusNotFound)
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(Config{Endpoint: srv.URL})
	_, err := reg.Lookup(context.Background(), "nobody")

	assert.ErrorIs(t, err, ErrNotFound)
}
