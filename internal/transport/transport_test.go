package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
)

func TestBasicAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/products", nil)
	(&BasicAuth{Key: "ck_123", Secret: "cs_456"}).Apply(req)

	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "ck_123", user)
	assert.Equal(t, "cs_456", pass)

	empty := httptest.NewRequest(http.MethodGet, "http://example.com/products", nil)
	(&BasicAuth{}).Apply(empty)
	assert.Empty(t, empty.Header.Get("Authorization"))
}

func TestBearerAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	(&BearerAuth{Token: "tok"}).Apply(req)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestQueryAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/products?page=2", nil)
	(&QueryAuth{KeyParam: "consumer_key", SecretParam: "consumer_secret", Key: "k", Secret: "s"}).Apply(req)

	q, err := url.ParseQuery(req.URL.RawQuery)
	require.NoError(t, err)
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "k", q.Get("consumer_key"))
	assert.Equal(t, "s", q.Get("consumer_secret"))
}

func TestClientGetDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "catalogsync-test", r.Header.Get("User-Agent"))
		user, _, _ := r.BasicAuth()
		assert.Equal(t, "key", user)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))
	defer server.Close()

	client := New(&BasicAuth{Key: "key", Secret: "secret"}, WithUserAgent("catalogsync-test"))
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	var got []struct{ ID int }
	require.NoError(t, DecodeResponse(resp, "test", &got))
	assert.Len(t, got, 2)
}

func TestDecodeResponseErrors(t *testing.T) {
	t.Run("status becomes APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"code":"woocommerce_rest_cannot_view"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		resp, err := New(nil).Get(context.Background(), server.URL+"/products?page=1")
		require.NoError(t, err)

		var target []any
		err = DecodeResponse(resp, "shop", &target)

		var apiErr *errors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, server.URL+"/products", apiErr.Endpoint)
		assert.Contains(t, apiErr.Message, "woocommerce_rest_cannot_view")
		assert.ErrorIs(t, err, errors.ErrUnauthorized)
	})

	t.Run("bad json becomes ParseError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"id":`))
		}))
		defer server.Close()

		resp, err := New(nil).Get(context.Background(), server.URL)
		require.NoError(t, err)

		var target []any
		err = DecodeResponse(resp, "shop", &target)
		var parseErr *errors.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := New(nil, WithTimeout(20*time.Millisecond))
	assert.Equal(t, 20*time.Millisecond, client.Timeout())

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
}
