package multidownloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/dawkit/dawkit/internal/downloader"
)

func TestRunPreservesIdentityAndCompletesAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := downloader.New(downloader.Options{Client: srv.Client()})

	const n = 10
	items := make([]Item[int], n)
	for i := 0; i < n; i++ {
		items[i] = Item[int]{
			Request: downloader.Request{URL: srv.URL, Destination: filepath.Join(dir, fmt.Sprintf("f%d.bin", i))},
			Label:   fmt.Sprintf("item-%d", i),
			Payload: i,
		}
	}

	results := Run(context.Background(), d, items, Options{Concurrency: 3})
	if len(results) != n {
		t.Fatalf("expected %d results, got %d", n, len(results))
	}
	for i, r := range results {
		if r.Payload != i {
			t.Errorf("result %d has payload %d, identity not preserved", i, r.Payload)
		}
		if r.Err != nil {
			t.Errorf("result %d: unexpected error %v", i, r.Err)
		}
	}
}

func TestRunReportsPerItemFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := downloader.New(downloader.Options{Client: srv.Client(), Retries: 0})

	items := []Item[string]{
		{Request: downloader.Request{URL: srv.URL + "/good", Destination: filepath.Join(dir, "good")}, Label: "good", Payload: "good"},
		{Request: downloader.Request{URL: srv.URL + "/bad", Destination: filepath.Join(dir, "bad")}, Label: "bad", Payload: "bad"},
	}

	results := Run(context.Background(), d, items, Options{Concurrency: 2})
	if results[0].Err != nil {
		t.Errorf("expected good item to succeed, got %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("expected bad item to fail")
	}
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if cur <= m || maxInFlight.CompareAndSwap(m, cur) {
				break
			}
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := downloader.New(downloader.Options{Client: srv.Client()})

	const n = 20
	const concurrency = 4
	items := make([]Item[int], n)
	for i := 0; i < n; i++ {
		items[i] = Item[int]{
			Request: downloader.Request{URL: srv.URL, Destination: filepath.Join(dir, fmt.Sprintf("f%d", i))},
			Payload: i,
		}
	}
	_ = Run(context.Background(), d, items, Options{Concurrency: concurrency})

	if maxInFlight.Load() > concurrency {
		t.Errorf("observed %d concurrent downloads, want at most %d", maxInFlight.Load(), concurrency)
	}
}
