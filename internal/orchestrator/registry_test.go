package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sitelens/sitelens/internal/store"
	"github.com/sitelens/sitelens/pkg/seo"
	"go.uber.org/zap"
)

func TestRegistryStartTracksAndRemovesOnExit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Home Page Title Long Enough To Pass</title></head><body><h1>Home</h1></body></html>`))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	st := store.NewMemory()
	st.CreateCrawl(context.Background(), &seo.Crawl{ID: 1, StartURL: srv.URL, Status: seo.StatusPending})

	reg := NewRegistry(st, zap.NewNop(), nil)
	if err := reg.Start(context.Background(), 1, srv.URL, Config{Concurrency: 2, MaxPages: 10, WallClock: 5 * time.Second}); err != nil {
		t.Fatal(err)
	}

	if err := reg.Start(context.Background(), 1, srv.URL, Config{}); err == nil {
		t.Error("expected error starting an already-running crawl")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if reg.Get(1) == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if reg.Get(1) != nil {
		t.Error("expected crawl to be removed from registry after completion")
	}
}

func TestRegistryPauseStopUnknownCrawl(t *testing.T) {
	reg := NewRegistry(store.NewMemory(), zap.NewNop(), nil)
	if reg.Pause(999) {
		t.Error("expected Pause to report false for unknown crawl")
	}
	if reg.Stop(999) {
		t.Error("expected Stop to report false for unknown crawl")
	}
	if reg.ResumeActive(999) {
		t.Error("expected ResumeActive to report false for unknown crawl")
	}
}
