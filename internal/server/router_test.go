package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/anisync/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Same Path Accepts Multiple Methods", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/api/config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "read")
		}))
		router.Handle(http.MethodPost, "/api/config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "write")
		}))

		get := httptest.NewRecorder()
		router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/config", nil))
		if get.Code != http.StatusOK || get.Body.String() != "read" {
			t.Errorf("GET: expected 200 read, got %d %q", get.Code, get.Body.String())
		}

		post := httptest.NewRecorder()
		router.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/config", nil))
		if post.Code != http.StatusOK || post.Body.String() != "write" {
			t.Errorf("POST: expected 200 write, got %d %q", post.Code, post.Body.String())
		}
	})

	t.Run("Method Mismatch Answers 405", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/api/sync", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware Wraps Registered Handlers", func(t *testing.T) {
		router := NewBasicRouter()
		var order []string
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "middleware")
				next.ServeHTTP(w, r)
			})
		})
		router.Use(Logging(shared.NewLogger(nil)))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if len(order) != 2 || order[0] != "middleware" || order[1] != "handler" {
			t.Errorf("unexpected call order %v", order)
		}
	})
}
