package contentstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quantulabs/openrep/pkg/contentstore"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := contentstore.NewMemoryStore()
	payload := []byte(`{"name":"scout"}`)

	uri, err := store.Put(context.Background(), payload, "application/json")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(uri, "mem://") {
		t.Fatalf("uri = %q, want mem:// scheme", uri)
	}

	got, err := store.Get(context.Background(), uri)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("Get = %q, want %q", got, payload)
	}
}

func TestMemoryStoreMissingURI(t *testing.T) {
	store := contentstore.NewMemoryStore()
	if _, err := store.Get(context.Background(), "mem://missing"); !errors.Is(err, contentstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHTTPStorePut(t *testing.T) {
	var gotDigest, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || !strings.HasPrefix(r.URL.Path, "/v1/blobs/") {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		gotDigest = r.Header.Get("X-Content-Digest")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			http.Error(w, "empty body", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"uri": "https://cdn.example.com" + r.URL.Path})
	}))
	defer srv.Close()

	store := contentstore.NewHTTPStore(srv.URL)
	uri, err := store.Put(context.Background(), []byte(`{"name":"scout"}`), "application/json")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(uri, "https://cdn.example.com/v1/blobs/") {
		t.Fatalf("uri = %q", uri)
	}
	if !strings.HasPrefix(gotDigest, "sha256:") {
		t.Fatalf("digest header = %q, want sha256 prefix", gotDigest)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}
}

func TestHTTPStorePutServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	store := contentstore.NewHTTPStore(srv.URL)
	if _, err := store.Put(context.Background(), []byte("x"), ""); err == nil {
		t.Fatal("expected error from server rejection")
	}
}

func TestHTTPStoreGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blob":
			w.Write([]byte("payload"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := contentstore.NewHTTPStore(srv.URL)
	got, err := store.Get(context.Background(), srv.URL+"/blob")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Get = %q", got)
	}

	if _, err := store.Get(context.Background(), srv.URL+"/missing"); !errors.Is(err, contentstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := store.Get(context.Background(), "ipfs://abc"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
