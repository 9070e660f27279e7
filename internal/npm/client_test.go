package npm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"npmdeck/internal/config"
	"npmdeck/internal/model"
	"npmdeck/internal/upstream"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	up, err := upstream.NewClient(
		config.UpstreamConfig{BaseURL: srv.URL, RequestTimeoutSec: 5},
		config.RetryConfig{MaxAttempts: 1, InitialBackoffMs: 1},
	)
	require.NoError(t, err)
	return NewClient(up), srv
}

func TestListProxyHosts(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/nginx/proxy-hosts", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode([]model.ProxyHost{
			{ID: 1, DomainNames: []string{"a.example.com"}, ForwardHost: "backend", ForwardPort: 80},
		})
	}))

	hosts, err := c.ListProxyHosts(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, int64(1), hosts[0].ID)
	assert.Equal(t, "backend", hosts[0].ForwardHost)
}

func TestCreateProxyHostValidatesBeforeSending(t *testing.T) {
	hit := false
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))

	_, err := c.CreateProxyHost(context.Background(), "tok", &model.ProxyHost{})
	assert.ErrorIs(t, err, ErrNoDomains)
	assert.False(t, hit, "invalid payload must not reach the upstream")
}

func TestCreateProxyHostSendsNormalizedPayload(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got model.ProxyHost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, []string{"app.example.com"}, got.DomainNames)

		got.ID = 42
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(got)
	}))

	created, err := c.CreateProxyHost(context.Background(), "tok", &model.ProxyHost{
		DomainNames:   []string{"https://App.Example.com/dash"},
		ForwardScheme: "http",
		ForwardHost:   "backend",
		ForwardPort:   3000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
}

func TestAPIErrorDecoding(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"token expired"}}`))
	}))

	_, err := c.ListUsers(context.Background(), "stale")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "token expired")
}

func TestDeleteStream(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/nginx/streams/7", r.URL.Path)
		w.Write([]byte("true"))
	}))

	assert.NoError(t, c.DeleteStream(context.Background(), "tok", 7))
}

func TestSetProxyHostEnabled(t *testing.T) {
	var path string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte("true"))
	}))

	require.NoError(t, c.SetProxyHostEnabled(context.Background(), "tok", 3, false))
	assert.Equal(t, "/api/nginx/proxy-hosts/3/disable", path)

	require.NoError(t, c.SetProxyHostEnabled(context.Background(), "tok", 3, true))
	assert.Equal(t, "/api/nginx/proxy-hosts/3/enable", path)
}

func TestUploadCertificateMultipart(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/nginx/certificates/5/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		readPart := func(field string) string {
			f, _, err := r.FormFile(field)
			require.NoError(t, err)
			defer f.Close()
			buf := make([]byte, 64)
			n, _ := f.Read(buf)
			return string(buf[:n])
		}

		assert.Equal(t, "CERT-PEM", readPart("certificate"))
		assert.Equal(t, "KEY-PEM", readPart("certificate_key"))
		w.Write([]byte(`{}`))
	}))

	err := c.UploadCertificate(context.Background(), "tok", 5, &model.CertificateBundle{
		Certificate: []byte("CERT-PEM"),
		Key:         []byte("KEY-PEM"),
	})
	assert.NoError(t, err)
}

func TestUploadCertificateRejectsIncompleteBundle(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not reach upstream")
	}))

	err := c.UploadCertificate(context.Background(), "tok", 5, &model.CertificateBundle{Key: []byte("KEY")})
	assert.Error(t, err)
}

func TestSetUserAuth(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/2/auth", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)

		var got model.UserAuth
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "password", got.Type)
		w.Write([]byte("true"))
	}))

	err := c.SetUserAuth(context.Background(), "tok", 2, &model.UserAuth{Type: "password", Secret: "new-secret"})
	assert.NoError(t, err)

	err = c.SetUserAuth(context.Background(), "tok", 2, &model.UserAuth{Type: "password"})
	assert.Error(t, err, "empty secret must be rejected locally")
}
