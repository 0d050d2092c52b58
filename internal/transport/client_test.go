package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willynilly/action-update-cff-authors/pkg/errors"
)

func TestTokenAuth(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := New(&TokenAuth{Token: "secret"})
	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)

	var out map[string]bool
	require.NoError(t, DecodeResponse("github", resp, &out))
	assert.True(t, out["ok"])
	assert.Equal(t, "token secret", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestExtraHeaders(t *testing.T) {
	var gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer server.Close()

	client := New(&NoAuth{})
	resp, err := client.Get(context.Background(), server.URL, map[string]string{
		"Accept": "application/vnd.github.mockingbird-preview+json",
	})
	require.NoError(t, err)
	require.NoError(t, DecodeResponse("github", resp, nil))
	assert.Equal(t, "application/vnd.github.mockingbird-preview+json", gotAccept)
}

func TestDecodeResponseErrors(t *testing.T) {
	t.Run("status error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := New(nil)
		resp, err := client.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)

		err = DecodeResponse("orcid", resp, nil)
		require.Error(t, err)
		assert.True(t, errors.IsServiceUnavailable(err))

		var apiErr *errors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "orcid", apiErr.Service)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json")) //nolint:errcheck
		}))
		defer server.Close()

		client := New(nil)
		resp, err := client.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)

		var out map[string]any
		err = DecodeResponse("github", resp, &out)
		var parseErr *errors.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}
