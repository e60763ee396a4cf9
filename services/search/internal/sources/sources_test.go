package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"duunihaku/common/cache"
	"duunihaku/common/cache/memory"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/models"

	"go.uber.org/zap/zaptest"
)

func testOptions() Options {
	return Options{Timeout: 2 * time.Second}
}

func TestDuunitoriSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`[{"title":"Kuljettaja","company":"Acme","location":"Helsinki","url":"https://x/1"}]`))
	}))
	defer srv.Close()

	d := NewDuunitori(srv.URL, testOptions(), nil, zaptest.NewLogger(t))
	listings, err := d.Search(context.Background(), models.Query{Haku: "kuljettaja", Alue: "Helsinki", Page: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "alue=Helsinki&haku=kuljettaja&sivu=2" {
		t.Errorf("query = %q", gotQuery)
	}
	want := models.Listing{Title: "Kuljettaja", Company: "Acme", City: "Helsinki", Source: models.SourceDuunitori, Link: "https://x/1"}
	if len(listings) != 1 || listings[0] != want {
		t.Errorf("listings = %+v, want [%+v]", listings, want)
	}
}

func TestDuunitoriNonJSONIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	d := NewDuunitori(srv.URL, testOptions(), nil, zaptest.NewLogger(t))
	listings, err := d.Search(context.Background(), models.Query{Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("got %d listings, want 0", len(listings))
	}
}

func TestTESearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"jobs":[{"title":"Hitsaaja","company":"Oy Ab","city":"Tampere","url":"https://te/1"}]}`))
	}))
	defer srv.Close()

	te := NewTE(srv.URL, testOptions(), nil, zaptest.NewLogger(t))
	listings, err := te.Search(context.Background(), models.Query{Haku: "hitsaaja", Alue: "Tampere", Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "location=Tampere&page=1&q=hitsaaja" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(listings) != 1 || listings[0].Source != models.SourceTE || listings[0].City != "Tampere" {
		t.Errorf("listings = %+v", listings)
	}
}

func TestSourceErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errors.ErrorType
	}{
		{"server error", http.StatusInternalServerError, "", errors.ErrTypeUnavailable},
		{"rate limited", http.StatusTooManyRequests, "", errors.ErrTypeRateLimit},
		{"malformed body", http.StatusOK, "{not json", errors.ErrTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			te := NewTE(srv.URL, testOptions(), nil, zaptest.NewLogger(t))
			_, err := te.Search(context.Background(), models.Query{Page: 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.TypeOf(err); got != tt.wantType {
				t.Errorf("error type = %s, want %s (%v)", got, tt.wantType, err)
			}
		})
	}
}

func TestSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	te := NewTE(url, testOptions(), nil, zaptest.NewLogger(t))
	_, err := te.Search(context.Background(), models.Query{Page: 1})
	if got := errors.TypeOf(err); got != errors.ErrTypeUnavailable {
		t.Errorf("error type = %s, want %s", got, errors.ErrTypeUnavailable)
	}
}

func TestSourceCachesResponses(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"jobs":[{"title":"A","company":"B","city":"C","url":"D"}]}`))
	}))
	defer srv.Close()

	c := memory.New(cache.Options{})
	defer c.Close()

	opts := testOptions()
	opts.CacheTTL = time.Minute
	te := NewTE(srv.URL, opts, c, zaptest.NewLogger(t))

	q := models.Query{Haku: "a", Page: 1}
	for i := 0; i < 3; i++ {
		listings, err := te.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("Search #%d: %v", i, err)
		}
		if len(listings) != 1 || listings[0].Title != "A" {
			t.Fatalf("Search #%d listings = %+v", i, listings)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("upstream hit %d times, want 1", n)
	}

	if _, err := te.Search(context.Background(), models.Query{Haku: "a", Page: 2}); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("different page should miss the cache, upstream hit %d times", n)
	}
}
