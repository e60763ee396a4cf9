package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"duunihaku/services/search/internal/config"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/loadmore"
	"duunihaku/services/search/internal/models"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap/zaptest"
)

// pagedSearcher serves pages of one listing each, up to last.
type pagedSearcher struct {
	mu      sync.Mutex
	last    int
	err     error
	queries []models.Query
}

func (p *pagedSearcher) Search(_ context.Context, q models.Query) (*models.ListingPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	if p.err != nil {
		return nil, p.err
	}
	if q.Page > p.last {
		return &models.ListingPage{Jobs: nil}, nil
	}
	return &models.ListingPage{
		Jobs: []models.Listing{{
			Title:   fmt.Sprintf("%s %d", q.Haku, q.Page),
			Company: "Acme <Oy>",
			City:    q.Alue,
			Source:  models.SourceTE,
			Link:    fmt.Sprintf("https://x/%d", q.Page),
		}},
		HasNext: q.Page < p.last,
	}, nil
}

func newTestServer(t *testing.T, searcher Searcher) *httptest.Server {
	t.Helper()
	s, err := NewServer(searcher, &config.Config{HTTPAddr: "127.0.0.1:0"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadMoreJSON(t *testing.T) {
	searcher := &pagedSearcher{last: 3}
	srv := newTestServer(t, searcher)

	resp, err := http.Get(srv.URL + "/load_more?haku=kuljettaja&alue=Helsinki&page=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Jobs    []map[string]string `json:"jobs"`
		HasNext *bool               `json:"has_next"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Jobs) != 1 || body.HasNext == nil || !*body.HasNext {
		t.Fatalf("body = %+v", body)
	}
	for _, field := range []string{"title", "company", "city", "source", "link"} {
		if _, ok := body.Jobs[0][field]; !ok {
			t.Errorf("job missing %q: %v", field, body.Jobs[0])
		}
	}
	want := models.Query{Haku: "kuljettaja", Alue: "Helsinki", Page: 2}
	if searcher.queries[0] != want {
		t.Errorf("query = %+v, want %+v", searcher.queries[0], want)
	}
}

func TestLoadMoreEmptyPageHasJobsArray(t *testing.T) {
	srv := newTestServer(t, &pagedSearcher{last: 0})

	resp, err := http.Get(srv.URL + "/load_more?page=9")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["jobs"]) != "[]" || string(raw["has_next"]) != "false" {
		t.Errorf("body = jobs:%s has_next:%s", raw["jobs"], raw["has_next"])
	}
}

func TestLoadMorePageParam(t *testing.T) {
	searcher := &pagedSearcher{last: 1}
	srv := newTestServer(t, searcher)

	tests := []struct {
		query  string
		status int
	}{
		{"", http.StatusOK},
		{"?page=abc", http.StatusBadRequest},
		{"?page=0", http.StatusBadRequest},
		{"?page=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + "/load_more" + tt.query)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%q: status = %d, want %d", tt.query, resp.StatusCode, tt.status)
		}
	}
	if len(searcher.queries) != 1 || searcher.queries[0].Page != 1 {
		t.Errorf("queries = %+v, want one query for page 1", searcher.queries)
	}
}

func TestLoadMoreSearchFailure(t *testing.T) {
	srv := newTestServer(t, &pagedSearcher{err: errors.Unavailable("all job sources failed", nil)})

	resp, err := http.Get(srv.URL + "/load_more?page=2")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &pagedSearcher{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func fetchIndex(t *testing.T, pageURL string) (*goquery.Document, int) {
	t.Helper()
	resp, err := http.Get(pageURL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return doc, resp.StatusCode
}

func TestIndexRendersControlContract(t *testing.T) {
	srv := newTestServer(t, &pagedSearcher{last: 3})

	doc, status := fetchIndex(t, srv.URL+"/?haku=%3Cb%3Ekuljettaja&alue=Helsinki")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if v, _ := doc.Find("#haku").Attr("value"); v != "<b>kuljettaja" {
		t.Errorf("haku value = %q", v)
	}
	if v, _ := doc.Find("#alue").Attr("value"); v != "Helsinki" {
		t.Errorf("alue value = %q", v)
	}
	if n := doc.Find("#cards article.card").Length(); n != 1 {
		t.Errorf("cards = %d", n)
	}
	if doc.Find("#cards b").Length() != 0 {
		t.Error("query text injected as markup")
	}
	control := doc.Find("#load-more-wrap #load-more")
	if page, _ := control.Attr("data-page"); page != "2" {
		t.Errorf("data-page = %q, want 2", page)
	}

	// Without a script the control is a plain link to the next page.
	href, ok := control.Attr("href")
	if !ok {
		t.Fatal("control has no href")
	}
	next, err := url.Parse(href)
	if err != nil {
		t.Fatal(err)
	}
	q := next.Query()
	if q.Get("haku") != "<b>kuljettaja" || q.Get("alue") != "Helsinki" || q.Get("page") != "2" {
		t.Errorf("href = %q", href)
	}

	base, _ := url.Parse(srv.URL)
	nextDoc, status := fetchIndex(t, base.ResolveReference(next).String())
	if status != http.StatusOK {
		t.Fatalf("next page status = %d", status)
	}
	if got := nextDoc.Find("#cards h3.card-title").Text(); got != "<b>kuljettaja 2" {
		t.Errorf("next page title = %q", got)
	}
	if page, _ := nextDoc.Find("#load-more").Attr("data-page"); page != "3" {
		t.Errorf("next page data-page = %q, want 3", page)
	}
}

func TestIndexWithoutNextPageHasNoControl(t *testing.T) {
	srv := newTestServer(t, &pagedSearcher{last: 1})

	doc, _ := fetchIndex(t, srv.URL+"/")
	if doc.Find("#load-more-wrap").Length() != 0 || doc.Find("#load-more").Length() != 0 {
		t.Error("control rendered for a single page of results")
	}
}

func TestIndexInvalidPage(t *testing.T) {
	srv := newTestServer(t, &pagedSearcher{last: 1})

	doc, status := fetchIndex(t, srv.URL+"/?page=x")
	if status != http.StatusBadRequest {
		t.Errorf("status = %d", status)
	}
	if !strings.Contains(doc.Find("p.error").Text(), "sivunumero") {
		t.Errorf("error message missing")
	}
}

func TestLoadMoreEndToEnd(t *testing.T) {
	searcher := &pagedSearcher{last: 4}
	srv := newTestServer(t, searcher)

	pageURL := srv.URL + "/?haku=kokki&alue=Oulu"
	doc, _ := fetchIndex(t, pageURL)

	fetcher, err := loadmore.NewHTTPFetcher(pageURL, srv.Client(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	c, err := loadmore.Bind(doc, fetcher, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := c.Run(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != 3 {
		t.Errorf("loaded = %d, want 3", loaded)
	}

	var titles []string
	doc.Find("#cards h3.card-title").Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})
	if got := strings.Join(titles, ","); got != "kokki 1,kokki 2,kokki 3,kokki 4" {
		t.Errorf("titles = %s", got)
	}
	if doc.Find("#load-more").Length() != 0 || doc.Find("."+loadmore.ExhaustedClass).Length() != 1 {
		t.Error("control not replaced by terminal marker")
	}

	for i, q := range searcher.queries {
		if q.Page != i+1 || q.Haku != "kokki" || q.Alue != "Oulu" {
			t.Errorf("query %d = %+v", i, q)
		}
	}
}
