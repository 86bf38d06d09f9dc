package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmeet/favsync/internal/api"
)

func TestAPIProvider_Authenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.Session{Authenticated: true, UserID: "user-3", Name: "Ash"})
	}))
	defer server.Close()

	client, err := api.NewClient(server.URL)
	require.NoError(t, err)

	ident, err := NewAPIProvider(client).Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "user-3", ident.ID)
	assert.Equal(t, "Ash", ident.Name)
}

func TestAPIProvider_Anonymous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.Session{Authenticated: false})
	}))
	defer server.Close()

	client, err := api.NewClient(server.URL)
	require.NoError(t, err)

	ident, err := NewAPIProvider(client).Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ident)
}

func TestStatic(t *testing.T) {
	ident, err := (&Static{}).Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ident)

	fixed := &Static{Identity: &Identity{ID: "user-1"}}
	ident, err = fixed.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", ident.ID)
}
