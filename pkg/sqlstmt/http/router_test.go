package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterWithMiddleware(t *testing.T) {
	router := NewRouter()

	router.UseMiddleware(func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test-Middleware", "applied")
			inner.ServeHTTP(w, r)
		})
	})

	router.Add(http.MethodGet, "/test", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "applied", rec.Header().Get("X-Test-Middleware"))
}

func TestRouter_PathNormalization(t *testing.T) {
	router := NewRouter()

	router.Add(http.MethodPost, "/statements/batch", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, target := range []string{"/statements/batch", "//statements//batch", "/statements/./batch", "/statements/x/../batch"} {
		req := httptest.NewRequest(http.MethodPost, target, http.NoBody)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, target)
	}
}

func TestRouter_WalkAndRegisteredRoutes(t *testing.T) {
	router := NewRouter()
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	router.Add(http.MethodGet, "/dialect", noop)
	router.Add(http.MethodPost, "/statements", noop)

	var walked []string

	err := router.Walk(func(method, route string) error {
		walked = append(walked, method+" "+route)
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"GET /dialect", "POST /statements"}, walked)
	assert.Equal(t, []string{"GET /dialect", "POST /statements"}, *router.RegisteredRoutes)
}

func TestRouter_NotFound(t *testing.T) {
	router := NewRouter()

	router.NotFound(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/missing", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
