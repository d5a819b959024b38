package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("debug", false))
	require.NoError(t, Init("info", true))
	assert.Error(t, Init("loud", false))
}

func TestWithLoggingHTTPMiddleware(t *testing.T) {
	require.NoError(t, Init("debug", false))

	handler := WithLoggingHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	t.Run("generates a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("keeps the incoming request id", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set(RequestIDHeader, "abc")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, request)

		assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	})
}
