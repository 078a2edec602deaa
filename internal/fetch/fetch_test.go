package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept header = %q", r.Header.Get("Accept"))
		}

		w.Write([]byte(`{"owners":["erd1a","erd1b"]}`))
	}))
	defer srv.Close()

	var doc struct {
		Owners []string `json:"owners"`
	}

	if err := New(nil, 0).GetJSON(context.Background(), srv.URL, &doc); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}

	if len(doc.Owners) != 2 || doc.Owners[0] != "erd1a" {
		t.Errorf("owners = %v", doc.Owners)
	}
}

func TestGetJSONNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var v any
	err := New(nil, 0).GetJSON(context.Background(), srv.URL, &v)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetJSONServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var v any
	err := New(nil, 0).GetJSON(context.Background(), srv.URL, &v)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected plain error, got %v", err)
	}
}

func TestGetJSONTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()

	var v any
	if err := New(nil, 50*time.Millisecond).GetJSON(context.Background(), srv.URL, &v); err == nil {
		t.Fatal("expected timeout error")
	}

	if time.Since(start) > time.Second {
		t.Errorf("timeout not applied, took %v", time.Since(start))
	}
}

func TestGetText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  erd1owner\n"))
	}))
	defer srv.Close()

	got, err := New(nil, 0).GetText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetText failed: %v", err)
	}

	if got != "erd1owner" {
		t.Errorf("GetText = %q, want erd1owner", got)
	}
}
