package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"github.com/tenderhub/tender-backend/config"
	"github.com/tenderhub/tender-backend/models"
	"github.com/tenderhub/tender-backend/shared"
)

// Row selectors tried in order against a listing page. Generic table
// structures first, tender-specific class/id hooks last; the first selector
// whose rows yield a valid record wins.
var tenderRowSelectors = []string{
	"table tr:has(td)",
	".table tr:has(td)",
	"tbody tr:has(td)",
	`[class*="tender"] tr:has(td)`,
	`[id*="tender"] tr:has(td)`,
}

// Free-text fallback: "tender" followed non-greedily by a 4-digit number,
// for pages that render listings outside any table structure.
var freeTextTenderRegex = regexp.MustCompile(`(?is)tender[^.]*?\d{4}`)

const (
	maxFreeTextMatches     = 5
	maxFreeTextTitleLength = 100
)

// ScrapeMetrics tracks per-run extraction outcomes
type ScrapeMetrics struct {
	PagesFetched     int
	RowsSeen         int
	RecordsExtracted int
	FallbackRecords  int
	FetchErrors      int
}

// LogSummary logs a summary of the run's extraction metrics
func (m *ScrapeMetrics) LogSummary() {
	logrus.WithFields(logrus.Fields{
		"pages_fetched":     m.PagesFetched,
		"rows_seen":         m.RowsSeen,
		"records_extracted": m.RecordsExtracted,
		"fallback_records":  m.FallbackRecords,
		"fetch_errors":      m.FetchErrors,
	}).Info("Scrape run metrics summary")
}

// TenderScraperService fetches government portal listing pages and extracts
// candidate tender records from their semi-structured markup. Extraction is
// best-effort with documented fallback tiers, never guaranteed-complete.
type TenderScraperService struct {
	config    *config.ScraperConfig
	utility   *UtilityService
	extractor *RowExtractor
	limiter   *shared.RequestRateLimiter

	// now feeds the synthetic reference numbers of the free-text fallback;
	// injected so tests get reproducible refs.
	now func() time.Time
}

// NewTenderScraperService creates a scraper with the given configuration.
// A nil config selects production defaults.
func NewTenderScraperService(cfg *config.ScraperConfig) *TenderScraperService {
	if cfg == nil {
		cfg = config.DefaultScraperConfig()
	}
	utility := NewUtilityService()
	return &TenderScraperService{
		config:    cfg,
		utility:   utility,
		extractor: NewRowExtractor(utility, originOf(cfg.BaseURL)),
		limiter:   shared.NewRequestRateLimiter(cfg.PageDelay),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for synthetic reference numbers.
// Intended for tests.
func (s *TenderScraperService) SetClock(now func() time.Time) {
	s.now = now
}

// RateLimiter exposes the inter-page limiter so tests can stub its delay
func (s *TenderScraperService) RateLimiter() *shared.RequestRateLimiter {
	return s.limiter
}

// originOf reduces a base URL to its scheme+host for link absolutization.
// Input that does not parse as an absolute URL is returned unchanged.
func originOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return baseURL
	}
	return u.Scheme + "://" + u.Host
}

// ScrapeAllPages drives the page scraper across the portal's pagination,
// trying several URL patterns per page and stopping at the first page that
// yields nothing. Pages are fetched strictly sequentially with the
// configured courtesy delay in between. The result is deduplicated by
// reference number, first occurrence winning.
func (s *TenderScraperService) ScrapeAllPages(ctx context.Context, baseURL string, maxPages int) ([]models.ScrapedTender, error) {
	if baseURL == "" {
		baseURL = s.config.BaseURL
	}
	if maxPages <= 0 {
		maxPages = s.config.MaxPages
	}

	metrics := &ScrapeMetrics{}
	var allTenders []models.ScrapedTender

	for page := 1; page <= maxPages; page++ {
		s.limiter.EnforceRateLimit()

		pageTenders := s.scrapeFirstNonEmpty(ctx, pageURLCandidates(baseURL, page), page, metrics)
		if len(pageTenders) == 0 {
			logrus.WithField("page", page).Info("No tenders found, stopping pagination")
			break
		}

		allTenders = append(allTenders, pageTenders...)
	}

	metrics.LogSummary()
	return dedupeByRef(allTenders), nil
}

// pageURLCandidates returns the URL patterns to guess for one page. Page 1
// guesses the bare base URL three times, so a transient fetch failure on the
// first page does not end the whole run; portals disagree on everything
// after that.
func pageURLCandidates(baseURL string, page int) []string {
	if page == 1 {
		return []string{baseURL, baseURL, baseURL}
	}
	return []string{
		fmt.Sprintf("%s?page=%d", baseURL, page),
		fmt.Sprintf("%s&page=%d", baseURL, page),
		fmt.Sprintf("%s/page/%d", baseURL, page),
	}
}

// scrapeFirstNonEmpty tries each candidate URL in order and accepts the
// first that yields records. A candidate that fails outright is logged and
// skipped; exhausting all candidates is not an error, just an empty page.
func (s *TenderScraperService) scrapeFirstNonEmpty(ctx context.Context, candidates []string, page int, metrics *ScrapeMetrics) []models.ScrapedTender {
	for _, candidate := range candidates {
		tenders, err := s.scrapePage(ctx, candidate, page, metrics)
		if err != nil {
			metrics.FetchErrors++
			logrus.WithError(err).WithFields(logrus.Fields{
				"url":  candidate,
				"page": page,
			}).Warn("Failed URL pattern, trying next")
			continue
		}
		if len(tenders) > 0 {
			return tenders
		}
	}
	return nil
}

// ScrapePage fetches and extracts a single listing page. The page number is
// for logging only. Transport failures are returned as errors; a page that
// simply contains no recognizable tenders returns an empty slice.
func (s *TenderScraperService) ScrapePage(ctx context.Context, pageURL string, page int) ([]models.ScrapedTender, error) {
	return s.scrapePage(ctx, pageURL, page, &ScrapeMetrics{})
}

func (s *TenderScraperService) scrapePage(ctx context.Context, pageURL string, page int, metrics *ScrapeMetrics) ([]models.ScrapedTender, error) {
	logrus.WithFields(logrus.Fields{
		"url":  pageURL,
		"page": page,
	}).Info("Scraping tender page")

	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	metrics.PagesFetched++

	tenders := s.extractFromSelectors(doc, metrics)

	if len(tenders) == 0 {
		tenders = s.extractFromFreeText(doc, pageURL)
		metrics.FallbackRecords += len(tenders)
	}

	metrics.RecordsExtracted += len(tenders)
	logrus.WithFields(logrus.Fields{
		"page":  page,
		"count": len(tenders),
	}).Info("Extracted tenders from page")

	return tenders, nil
}

// extractFromSelectors runs the ranked selector list and keeps the first
// selector whose rows produce at least one valid record.
func (s *TenderScraperService) extractFromSelectors(doc *goquery.Document, metrics *ScrapeMetrics) []models.ScrapedTender {
	for _, selector := range tenderRowSelectors {
		rows := doc.Find(selector)
		if rows.Length() == 0 {
			continue
		}

		logrus.WithFields(logrus.Fields{
			"selector": selector,
			"rows":     rows.Length(),
		}).Debug("Trying row selector")

		var tenders []models.ScrapedTender
		rows.Each(func(_ int, row *goquery.Selection) {
			metrics.RowsSeen++
			if tender, ok := s.extractor.ExtractRow(rawRowFrom(row)); ok {
				tenders = append(tenders, tender)
			}
		})

		if len(tenders) > 0 {
			return tenders
		}
	}
	return nil
}

// rawRowFrom flattens one table row into cell texts plus the first
// hyperlink found in any cell.
func rawRowFrom(row *goquery.Selection) models.RawMarkupRow {
	raw := models.RawMarkupRow{}
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		raw.Cells = append(raw.Cells, cell.Text())
		if raw.Link == "" {
			if href, exists := cell.Find("a").Attr("href"); exists {
				raw.Link = href
			}
		}
	})
	return raw
}

// extractFromFreeText scans the page body for tender-shaped text when no
// structured rows matched, synthesizing records with generated reference
// numbers. The timestamp+index ref is unique within a run.
func (s *TenderScraperService) extractFromFreeText(doc *goquery.Document, pageURL string) []models.ScrapedTender {
	bodyText := doc.Find("body").Text()
	matches := freeTextTenderRegex.FindAllString(bodyText, maxFreeTextMatches)
	if len(matches) == 0 {
		return nil
	}

	stamp := s.now().UnixMilli()
	tenders := make([]models.ScrapedTender, 0, len(matches))
	for index, match := range matches {
		match = truncateRunes(match, maxFreeTextTitleLength)
		tenders = append(tenders, models.ScrapedTender{
			Title:        s.utility.CleanText(match),
			Ref:          fmt.Sprintf("REF-%d-%d", stamp, index),
			ClosingDate:  "Not specified",
			Organisation: "Government of India",
			Link:         pageURL,
		})
	}

	logrus.WithField("count", len(tenders)).Info("Used free-text fallback extraction")
	return tenders
}

// fetchDocument retrieves one page of markup, through a headless browser
// when the portal needs JS rendering, otherwise over plain HTTP.
func (s *TenderScraperService) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if s.config.UseBrowser {
		return s.fetchRenderedDocument(ctx, pageURL)
	}
	return s.fetchStaticDocument(ctx, pageURL)
}

func (s *TenderScraperService) fetchStaticDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	collector := colly.NewCollector(
		colly.UserAgent(shared.BrowserUserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	collector.WithTransport(shared.NewBrowserTransport())
	collector.SetRequestTimeout(s.config.HTTPRequestTimeout)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	var fetchErr error
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		fetchErr = err
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, shared.NewNetworkError(
			fmt.Sprintf("failed to fetch %s", pageURL),
			"tender-scraper", "fetchStaticDocument", fetchErr,
		)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup from %s: %w", pageURL, err)
	}
	return doc, nil
}

// fetchRenderedDocument loads the page in headless Chrome and hands the
// rendered HTML to the same extraction path as the static fetch.
func (s *TenderScraperService) fetchRenderedDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(shared.BrowserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, s.config.HTTPRequestTimeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, shared.NewNetworkError(
			fmt.Sprintf("failed to render %s", pageURL),
			"tender-scraper", "fetchRenderedDocument", err,
		)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered markup from %s: %w", pageURL, err)
	}
	return doc, nil
}

// dedupeByRef removes duplicate reference numbers, keeping the first
// occurrence in encounter order.
func dedupeByRef(tenders []models.ScrapedTender) []models.ScrapedTender {
	seen := make(map[string]bool, len(tenders))
	unique := make([]models.ScrapedTender, 0, len(tenders))
	for _, tender := range tenders {
		if seen[tender.Ref] {
			continue
		}
		seen[tender.Ref] = true
		unique = append(unique, tender)
	}
	return unique
}

// MockTenderData returns the fixed records served in test mode, bypassing
// all network and extraction logic.
func MockTenderData() []models.ScrapedTender {
	return []models.ScrapedTender{
		{
			Title:        "Supply of Computer Equipment for Government Offices",
			Ref:          "TENDER/2025/COMP/001",
			ClosingDate:  "2025-10-15",
			Organisation: "Ministry of Electronics and Information Technology",
			Link:         "https://eprocure.gov.in/epublish/app/tender/001",
		},
		{
			Title:        "Construction of Road Infrastructure Project",
			Ref:          "TENDER/2025/INFRA/002",
			ClosingDate:  "2025-11-20",
			Organisation: "Ministry of Road Transport and Highways",
			Link:         "https://eprocure.gov.in/epublish/app/tender/002",
		},
		{
			Title:        "Medical Equipment Procurement for Hospitals",
			Ref:          "TENDER/2025/MED/003",
			ClosingDate:  "2025-10-30",
			Organisation: "Ministry of Health and Family Welfare",
			Link:         "https://eprocure.gov.in/epublish/app/tender/003",
		},
	}
}
