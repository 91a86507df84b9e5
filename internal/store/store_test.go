package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestMemoryBlobStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore()

	if _, err := s.Get(ctx, "rooms.json"); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("Get on empty store: err = %v, want ErrBlobNotFound", err)
	}

	data := []byte(`{"a":1}`)
	if err := s.Put(ctx, "rooms.json", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data[0] = 'X' // the store must own its copy

	got, err := s.Get(ctx, "rooms.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Get = %q", got)
	}

	if err := s.Put(ctx, "rooms.json", []byte(`{}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Get(ctx, "rooms.json")
	if string(got) != `{}` {
		t.Errorf("after overwrite Get = %q", got)
	}
}

func TestMemoryBlobStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemoryBlobStore().Put(ctx, "k", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Put err = %v, want context.Canceled", err)
	}
}

// fakeSupabase mimics the storage object endpoints for one bucket.
func fakeSupabase(t *testing.T, key string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	objects := map[string][]byte{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+key {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			if _, exists := objects[r.URL.Path]; exists && r.Header.Get("x-upsert") != "true" {
				w.WriteHeader(http.StatusConflict)
				return
			}
			b, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = b
			w.Write([]byte(`{"Key":"ok"}`))
		case http.MethodGet:
			b, ok := objects[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
				return
			}
			w.Write(b)
		}
	}))
}

func TestSupabaseBlobStore(t *testing.T) {
	srv := fakeSupabase(t, "service-key")
	defer srv.Close()

	ctx := context.Background()
	s := NewSupabaseBlobStore(srv.URL+"/", "service-key", "rooms", srv.Client())

	if _, err := s.Get(ctx, "rooms.json"); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrBlobNotFound", err)
	}
	for _, body := range []string{`{"r1":{}}`, `{"r2":{}}`} {
		if err := s.Put(ctx, "rooms.json", []byte(body)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	got, err := s.Get(ctx, "rooms.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"r2":{}}` {
		t.Errorf("Get = %q, want last write", got)
	}
}

func TestSupabaseBlobStoreAuthFailure(t *testing.T) {
	srv := fakeSupabase(t, "service-key")
	defer srv.Close()

	s := NewSupabaseBlobStore(srv.URL, "wrong", "rooms", srv.Client())
	if err := s.Put(context.Background(), "rooms.json", []byte(`{}`)); err == nil {
		t.Fatal("Put with bad key should fail")
	}
	_, err := s.Get(context.Background(), "rooms.json")
	if err == nil || errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("Get with bad key: err = %v, want transport error", err)
	}
}
