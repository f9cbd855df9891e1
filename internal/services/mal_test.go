package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

func newTestMAL(t *testing.T, handler http.HandlerFunc) *MALService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewMALService(MALOpts{Endpoint: srv.URL, Pacer: fastPacer()})
	svc.Authorize(models.TokenRecord{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)})
	return svc
}

func TestMALFetchSnapshot(t *testing.T) {
	t.Run("Follows Pagination", func(t *testing.T) {
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer token" {
				t.Errorf("missing bearer token, got %q", got)
			}
			switch r.URL.Query().Get("offset") {
			case "":
				fmt.Fprintf(w, `{"data":[
					{"node":{"id":42,"title":"Shingeki no Kyojin"},
					 "list_status":{"status":"watching","score":7,"num_episodes_watched":5,"updated_at":"2025-04-05T06:07:08Z"}}
				],"paging":{"next":"%s/users/@me/animelist?offset=100"}}`, srv.URL)
			case "100":
				fmt.Fprint(w, `{"data":[
					{"node":{"id":99,"title":"Mushishi"},
					 "list_status":{"status":"on_hold","score":0,"num_episodes_watched":12,"updated_at":"not-a-timestamp"}}
				],"paging":{}}`)
			default:
				t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
			}
		}))
		t.Cleanup(srv.Close)

		svc := NewMALService(MALOpts{Endpoint: srv.URL, Pacer: fastPacer()})
		svc.Authorize(models.TokenRecord{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)})

		snapshot, err := svc.FetchSnapshot(context.Background())
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if snapshot.Service != models.ServiceMAL {
			t.Errorf("expected myanimelist snapshot, got %s", snapshot.Service)
		}
		if len(snapshot.Entries) != 2 {
			t.Fatalf("expected entries from both pages, got %d", len(snapshot.Entries))
		}

		first := snapshot.Entries[0]
		if first.Key != "42" {
			t.Errorf("expected key 42, got %q", first.Key)
		}
		if first.Status != models.StatusWatching {
			t.Errorf("expected watching, got %s", first.Status)
		}
		if first.Score == nil || *first.Score != 70 {
			t.Errorf("score 7 should normalize to 70, got %v", first.Score)
		}
		want := time.Date(2025, 4, 5, 6, 7, 8, 0, time.UTC)
		if !first.UpdatedAt.Equal(want) {
			t.Errorf("expected updatedAt %v, got %v", want, first.UpdatedAt)
		}

		second := snapshot.Entries[1]
		if second.Status != models.StatusPaused {
			t.Errorf("on_hold should map to paused, got %s", second.Status)
		}
		if second.Score != nil {
			t.Errorf("zero score means unset, got %v", second.Score)
		}
		if !second.UpdatedAt.IsZero() {
			t.Errorf("corrupt timestamp should leave UpdatedAt zero, got %v", second.UpdatedAt)
		}
	})

	t.Run("Unauthorized Response Maps To ErrAuthFailed", func(t *testing.T) {
		svc := newTestMAL(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := svc.FetchSnapshot(context.Background())
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Missing Token Fails Without A Request", func(t *testing.T) {
		svc := NewMALService(MALOpts{Endpoint: "http://127.0.0.1:1", Pacer: fastPacer()})

		_, err := svc.FetchSnapshot(context.Background())
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestMALApplyUpdate(t *testing.T) {
	score := 85.0
	entry := models.ListEntry{
		Key:      "42",
		Title:    "Shingeki no Kyojin",
		Status:   models.StatusPlanned,
		Progress: 3,
		Score:    &score,
	}

	t.Run("Sends A Form Encoded Patch", func(t *testing.T) {
		var method, path string
		var form url.Values
		svc := newTestMAL(t, func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			path = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			fmt.Fprint(w, `{"status":"plan_to_watch"}`)
		})

		if err := svc.ApplyUpdate(context.Background(), entry); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", method)
		}
		if path != "/anime/42/my_list_status" {
			t.Errorf("unexpected path %q", path)
		}
		if got := form.Get("status"); got != "plan_to_watch" {
			t.Errorf("planned should map to plan_to_watch, got %q", got)
		}
		if got := form.Get("num_watched_episodes"); got != "3" {
			t.Errorf("expected 3 watched episodes, got %q", got)
		}
		if got := form.Get("score"); got != "9" {
			t.Errorf("score 85 should denormalize to 9, got %q", got)
		}
	})

	t.Run("Omits An Unset Score", func(t *testing.T) {
		var form url.Values
		svc := newTestMAL(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			fmt.Fprint(w, `{}`)
		})

		unrated := entry
		unrated.Score = nil
		if err := svc.ApplyUpdate(context.Background(), unrated); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if form.Has("score") {
			t.Errorf("score field should be absent, got %q", form.Get("score"))
		}
	})

	t.Run("Rejected Write Maps To ErrRejected", func(t *testing.T) {
		svc := newTestMAL(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		err := svc.ApplyUpdate(context.Background(), entry)
		if !errors.Is(err, shared.ErrRejected) {
			t.Errorf("expected ErrRejected, got %v", err)
		}
	})

	t.Run("Non Numeric Key Is Unresolvable", func(t *testing.T) {
		svc := newTestMAL(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for an invalid key")
		})

		err := svc.ApplyUpdate(context.Background(), models.ListEntry{Key: "not-a-number"})
		if !errors.Is(err, shared.ErrUnresolvable) {
			t.Errorf("expected ErrUnresolvable, got %v", err)
		}
	})
}
