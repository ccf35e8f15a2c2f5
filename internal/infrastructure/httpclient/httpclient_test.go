package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/oidc-core/pkg/constants"
	cbcerrors "github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

func TestBackChannelSender_PostsLogoutToken(t *testing.T) {
	var gotToken, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotToken = r.PostForm.Get("logout_token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewBackChannelSender(nil, logger.NewNoopLogger())
	resp, err := sender.Send(context.Background(), srv.URL, "header.payload.sig", time.Second)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "header.payload.sig", gotToken)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestBackChannelSender_ReturnsErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
	}))
	defer srv.Close()

	resp, err := NewBackChannelSender(nil, logger.NewNoopLogger()).
		Send(context.Background(), srv.URL, "t", time.Second)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `{"error":"invalid_request"}`, resp.Body)
}

func TestBackChannelSender_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewBackChannelSender(nil, logger.NewNoopLogger()).
		Send(context.Background(), srv.URL, "t", 50*time.Millisecond)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBackChannelSender_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	resp, err := NewBackChannelSender(nil, logger.NewNoopLogger()).
		Send(context.Background(), srv.URL, "t", time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestRequestObjectGateway_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/oauth-authz-req+jwt")
			_, _ = w.Write([]byte("eyJhbGciOiJub25lIn0.eyJpc3MiOiJjIn0.\n"))
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gw := NewRequestObjectGateway(nil, 0, logger.NewNoopLogger())
	ctx := context.Background()

	raw, err := gw.Get(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOiJub25lIn0.eyJpc3MiOiJjIn0.", raw)

	for _, path := range []string{"/empty", "/missing"} {
		_, err := gw.Get(ctx, srv.URL+path)
		assert.True(t, cbcerrors.HasCode(err, constants.ErrCodeInvalidRequestURI), path)
	}

	_, err = gw.Get(ctx, "http://127.0.0.1:1/unreachable")
	assert.True(t, cbcerrors.HasCode(err, constants.ErrCodeInvalidRequestURI))

	_, err = gw.Get(ctx, "::bad")
	assert.True(t, cbcerrors.HasCode(err, constants.ErrCodeInvalidRequestURI))
}

func TestReadBody_Limits(t *testing.T) {
	body, err := readBody(strings.NewReader(strings.Repeat("a", 100)), 10)
	require.NoError(t, err)
	assert.Len(t, body, 10)
}
