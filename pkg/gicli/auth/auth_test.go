package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/httpclient"
	"github.com/tigerroll/gicli/pkg/gicli/session"
)

// identitySub passes every value through unchanged; auth's own tests
// exercise token extraction, not placeholder expansion (that's
// substitute's job).
type identitySub struct{}

func (identitySub) Value(v any) any    { return v }
func (identitySub) String(s string) string { return s }

func TestAuthenticateStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   120,
		})
	}))
	defer srv.Close()

	store := session.New()
	defer store.Close()
	a := New(httpclient.New(), store, identitySub{}, nil)

	origin := &config.Origin{Name: "svc", BaseURL: srv.URL}
	job := &config.Job{
		ID:              "login",
		Type:            config.JobTypeAuth,
		Method:          "POST",
		Path:            "/login",
		SessionName:     "S",
		TokenIdentifier: "access_token",
		TokenExpirationIdentifier: "expires_in",
	}

	err := a.Authenticate(context.Background(), origin, job)
	require.NoError(t, err)

	v, ok := store.Get("S")
	require.True(t, ok)
	assert.Equal(t, "tok-123", v)

	token, ok := a.GetToken("svc")
	require.True(t, ok)
	assert.Equal(t, "tok-123", token)
}

func TestAuthenticateMissingTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"nope": "x"})
	}))
	defer srv.Close()

	store := session.New()
	defer store.Close()
	a := New(httpclient.New(), store, identitySub{}, nil)

	origin := &config.Origin{Name: "svc", BaseURL: srv.URL}
	job := &config.Job{ID: "login", Method: "POST", Path: "/login", TokenIdentifier: "access_token"}

	err := a.Authenticate(context.Background(), origin, job)
	require.Error(t, err)
}

func TestRefreshAuthenticationNoOpWhenValid(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok"})
	}))
	defer srv.Close()

	store := session.New()
	defer store.Close()
	a := New(httpclient.New(), store, identitySub{}, nil)
	origin := &config.Origin{Name: "svc", BaseURL: srv.URL}
	job := &config.Job{ID: "login", Method: "POST", Path: "/login", SessionName: "S", TokenIdentifier: "access_token"}

	require.NoError(t, a.Authenticate(context.Background(), origin, job))
	require.NoError(t, a.RefreshAuthentication(context.Background(), origin, job))
	assert.Equal(t, 1, calls)
}

func TestForceRefreshAlwaysReauthenticates(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok"})
	}))
	defer srv.Close()

	store := session.New()
	defer store.Close()
	a := New(httpclient.New(), store, identitySub{}, nil)
	origin := &config.Origin{Name: "svc", BaseURL: srv.URL}
	job := &config.Job{ID: "login", Method: "POST", Path: "/login", SessionName: "S", TokenIdentifier: "access_token"}

	require.NoError(t, a.Authenticate(context.Background(), origin, job))
	require.NoError(t, a.ForceRefresh(context.Background(), origin, job))
	assert.Equal(t, 2, calls)
}
