package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/tenderhub/tender-backend/config"
)

const listingPageHTML = `<html><body>
<table>
<tr><th>Title</th><th>Reference</th><th>Closing</th><th>Organisation</th></tr>
<tr>
  <td><a href="/tender/101">Supply of Computer Equipment for District Offices</a></td>
  <td>GEM/2024/B/0000101</td>
  <td>15/10/2025</td>
  <td>Ministry of Electronics</td>
</tr>
<tr>
  <td>Construction of Approach Road and Culvert Works</td>
  <td>PWD/2024/RD/0456</td>
  <td>20-11-2025</td>
  <td>Public Works Department</td>
</tr>
</table>
</body></html>`

const emptyPageHTML = `<html><body><p>No notices are currently published.</p></body></html>`

const freeTextPageHTML = `<html><body>
<div>Tender for supply of street lighting, notice number 4021 published</div>
<div>Tender invitation for water pipeline maintenance works 8832</div>
</body></html>`

func newTestScraper(pageDelay time.Duration) *TenderScraperService {
	cfg := config.DefaultScraperConfig()
	cfg.PageDelay = pageDelay
	s := NewTenderScraperService(cfg)
	s.RateLimiter().SetSleepFunc(func(time.Duration) {})
	return s
}

func TestScrapePageExtractsTableRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPageHTML)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	tenders, err := scraper.ScrapePage(context.Background(), server.URL, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenders) != 2 {
		t.Fatalf("got %d tenders, want 2", len(tenders))
	}

	first := tenders[0]
	if first.Ref != "GEM/2024/B/0000101" {
		t.Errorf("unexpected ref: %q", first.Ref)
	}
	if first.ClosingDate != "2025-10-15" {
		t.Errorf("unexpected closing date: %q", first.ClosingDate)
	}
	if !strings.HasPrefix(first.Link, "https://eprocure.gov.in") && !strings.HasPrefix(first.Link, "http") {
		t.Errorf("link not absolutized: %q", first.Link)
	}
}

func TestScrapePageFreeTextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, freeTextPageHTML)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	fixed := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	scraper.SetClock(func() time.Time { return fixed })

	tenders, err := scraper.ScrapePage(context.Background(), server.URL, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenders) != 2 {
		t.Fatalf("got %d fallback tenders, want 2", len(tenders))
	}

	wantRef := fmt.Sprintf("REF-%d-0", fixed.UnixMilli())
	if tenders[0].Ref != wantRef {
		t.Errorf("synthetic ref = %q, want %q", tenders[0].Ref, wantRef)
	}
	if tenders[0].Organisation != "Government of India" {
		t.Errorf("unexpected organisation: %q", tenders[0].Organisation)
	}
	if tenders[0].ClosingDate != "Not specified" {
		t.Errorf("unexpected closing date: %q", tenders[0].ClosingDate)
	}
	if tenders[0].Link != server.URL {
		t.Errorf("fallback link should be the page URL, got %q", tenders[0].Link)
	}
	if tenders[0].Ref == tenders[1].Ref {
		t.Error("synthetic refs must be unique within a run")
	}
}

func TestScrapePageEmptyIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, emptyPageHTML)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	tenders, err := scraper.ScrapePage(context.Background(), server.URL, 1)
	if err != nil {
		t.Fatalf("empty page must not error, got: %v", err)
	}
	if len(tenders) != 0 {
		t.Fatalf("got %d tenders from empty page, want 0", len(tenders))
	}
}

func TestScrapePageTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	if _, err := scraper.ScrapePage(context.Background(), server.URL, 1); err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestScrapeAllPagesStopsOnEmptyPage(t *testing.T) {
	var mu sync.Mutex
	pagesRequested := map[string]bool{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pagesRequested[r.URL.RequestURI()] = true
		mu.Unlock()

		if r.URL.Query().Get("page") == "" && !strings.Contains(r.URL.Path, "/page/") {
			fmt.Fprint(w, listingPageHTML)
			return
		}
		fmt.Fprint(w, emptyPageHTML)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	tenders, err := scraper.ScrapeAllPages(context.Background(), server.URL, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenders) != 2 {
		t.Fatalf("got %d tenders, want the 2 from page 1", len(tenders))
	}

	mu.Lock()
	defer mu.Unlock()
	for uri := range pagesRequested {
		if strings.Contains(uri, "3") {
			t.Errorf("page 3 must not be requested after page 2 came back empty, saw %q", uri)
		}
	}
}

func TestScrapeAllPagesTriesNextURLPattern(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.RequestURI() == "/":
			fmt.Fprint(w, listingPageHTML)
		case r.URL.Query().Get("page") == "2":
			// First guess pattern fails outright, driver should fall through.
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/page/2"):
			fmt.Fprint(w, strings.Replace(listingPageHTML, "GEM/2024/B/0000101", "GEM/2024/B/0000202", 1))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	scraper := newTestScraper(0)
	tenders, err := scraper.ScrapeAllPages(context.Background(), server.URL, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refs := map[string]bool{}
	for _, tender := range tenders {
		refs[tender.Ref] = true
	}
	if !refs["GEM/2024/B/0000202"] {
		t.Errorf("expected page 2 via the /page/N pattern, refs: %v", refs)
	}
}

func TestScrapeAllPagesDeduplicatesByRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every page serves the same listing, so every ref repeats.
		fmt.Fprint(w, listingPageHTML)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	tenders, err := scraper.ScrapeAllPages(context.Background(), server.URL, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenders) != 2 {
		t.Fatalf("got %d tenders after dedup, want 2", len(tenders))
	}

	seen := map[string]bool{}
	for _, tender := range tenders {
		if seen[tender.Ref] {
			t.Errorf("duplicate ref in result: %q", tender.Ref)
		}
		seen[tender.Ref] = true
	}
}

func TestScrapeAllPagesDelaysBetweenPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPageHTML)
	}))
	defer server.Close()

	cfg := config.DefaultScraperConfig()
	cfg.PageDelay = 2 * time.Second
	scraper := NewTenderScraperService(cfg)

	var mu sync.Mutex
	var sleeps []time.Duration
	scraper.RateLimiter().SetSleepFunc(func(d time.Duration) {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
	})

	if _, err := scraper.ScrapeAllPages(context.Background(), server.URL, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sleeps) != 1 {
		t.Fatalf("recorded %d delays across 2 pages, want exactly 1 between them", len(sleeps))
	}
	if sleeps[0] != cfg.PageDelay {
		t.Errorf("delay = %v, want the full page delay %v", sleeps[0], cfg.PageDelay)
	}
}

func TestScrapeAllPagesRetriesFirstPage(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()

		// Transient failure on the very first fetch only.
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, listingPageHTML)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	tenders, err := scraper.ScrapeAllPages(context.Background(), server.URL, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenders) != 2 {
		t.Fatalf("got %d tenders after a transient first-page failure, want 2", len(tenders))
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("page 1 fetched %d time(s), want 2 (retry after the failed attempt)", attempts)
	}
}

func TestFreeTextTitlesKeepRuneBoundaries(t *testing.T) {
	longText := strings.Repeat("न", 120) // Devanagari letters, 3 bytes each
	page := "<html><body><div>Tender " + longText + " 4021</div></body></html>"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	scraper := newTestScraper(0)
	tenders, err := scraper.ScrapePage(context.Background(), server.URL, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenders) != 1 {
		t.Fatalf("got %d fallback tenders, want 1", len(tenders))
	}

	title := tenders[0].Title
	if !utf8.ValidString(title) {
		t.Errorf("truncated title is not valid UTF-8: %q", title)
	}
	if n := len([]rune(title)); n > 100 {
		t.Errorf("title is %d characters, want at most 100", n)
	}
}

func TestOriginOf(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://eprocure.gov.in/epublish/app", "https://eprocure.gov.in"},
		{"http://localhost:8080/some/path", "http://localhost:8080"},
		{"https://eprocure.gov.in", "https://eprocure.gov.in"},
		{"not a url", "not a url"},
	}

	for _, tc := range cases {
		if got := originOf(tc.in); got != tc.want {
			t.Errorf("originOf(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMockTenderDataFixture(t *testing.T) {
	mock := MockTenderData()
	if len(mock) != 3 {
		t.Fatalf("got %d mock tenders, want 3", len(mock))
	}

	wantRefs := []string{"TENDER/2025/COMP/001", "TENDER/2025/INFRA/002", "TENDER/2025/MED/003"}
	for i, want := range wantRefs {
		if mock[i].Ref != want {
			t.Errorf("mock[%d].Ref = %q, want %q", i, mock[i].Ref, want)
		}
	}
}
