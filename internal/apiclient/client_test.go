package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-client/internal/observability"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	metrics := observability.NewMetrics()
	return New(Options{BaseURL: srv.URL, Token: StaticToken("tok-1"), Metrics: metrics}), metrics
}

func TestRequestJSONSendsBearerAndBody(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CLOSED", body["status"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": 9}`)
	})

	var out struct {
		ID int64 `json:"id"`
	}
	err := client.RequestJSON(context.Background(), http.MethodPatch, "/api/helpdesk/tickets/9/status", map[string]string{"status": "CLOSED"}, "更新狀態失敗", &out)
	require.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)
	assert.Equal(t, int64(1), metrics.Snapshot().Requests["backend:/api/helpdesk/tickets/9/status|PATCH|200"])
}

func TestRequestJSONOmitsAuthorizationWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	require.NoError(t, client.RequestJSON(context.Background(), http.MethodPost, "/api/auth/logout", nil, "登出失敗", nil))
}

func TestRequestJSONUsesBackendMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message": "工單已刪除"}`)
	})

	err := client.RequestJSON(context.Background(), http.MethodGet, "/api/helpdesk/tickets", nil, "讀取工單失敗", nil)
	require.Error(t, err)
	domainErr := errorutil.ToDomainError(err)
	assert.Equal(t, "工單已刪除", domainErr.Message)
	assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
	assert.Equal(t, errorutil.CodeConflict, domainErr.Code)
}

func TestRequestJSONFallsBackWithoutMessage(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"message": 3}`, `{"message": ""}`, `[]`} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, body)
		})
		err := client.RequestJSON(context.Background(), http.MethodGet, "/api/helpdesk/tickets", nil, "讀取工單失敗", nil)
		assert.Equal(t, "讀取工單失敗", errorutil.Message(err, ""), "body %q", body)
	}
}

func TestRequestJSONUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := client.RequestJSON(context.Background(), http.MethodGet, "/api/auth/me", nil, "登入已失效", nil)
	assert.True(t, errorutil.IsUnauthorized(err))
}

func TestRequestJSONTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(Options{BaseURL: url})
	err := client.RequestJSON(context.Background(), http.MethodGet, "/api/notifications", nil, "讀取通知失敗", nil)
	domainErr := errorutil.ToDomainError(err)
	assert.Equal(t, errorutil.CodeTransport, domainErr.Code)
	assert.Equal(t, "讀取通知失敗", domainErr.Message)
	assert.False(t, errorutil.IsUnauthorized(err))
}

func TestRequestJSONDecodeFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id": "x"`)
	})
	var out map[string]any
	err := client.RequestJSON(context.Background(), http.MethodGet, "/api/auth/me", nil, "登入已失效", &out)
	assert.Equal(t, errorutil.CodeDecode, errorutil.ToDomainError(err).Code)
}

func TestParseErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", ParseErrorMessage("fallback", []byte(`{"message":"boom"}`)))
	assert.Equal(t, "fallback", ParseErrorMessage("fallback", nil))
	assert.Equal(t, "fallback", ParseErrorMessage("fallback", []byte(`{"error":"boom"}`)))
}
