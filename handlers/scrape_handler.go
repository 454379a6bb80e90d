package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/tenderhub/tender-backend/config"
	"github.com/tenderhub/tender-backend/models"
	"github.com/tenderhub/tender-backend/services"
	"github.com/tenderhub/tender-backend/shared"
)

type ScrapeHandler struct {
	Scraper       *services.TenderScraperService
	ImportService *services.TenderImportService
	Config        *config.ScraperConfig
}

func NewScrapeHandler(scraper *services.TenderScraperService, importService *services.TenderImportService, cfg *config.ScraperConfig) *ScrapeHandler {
	return &ScrapeHandler{
		Scraper:       scraper,
		ImportService: importService,
		Config:        cfg,
	}
}

func scrapeFailure(c *fiber.Ctx, errLabel string, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success":   false,
		"error":     errLabel,
		"message":   err.Error(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ScrapeTenders runs a scrape of the default source. With test=true the
// handler short-circuits to the fixed mock records without touching the
// network.
func (h *ScrapeHandler) ScrapeTenders(c *fiber.Ctx) error {
	maxPages := c.QueryInt("maxPages", h.Config.MaxPages)
	testMode := c.QueryBool("test", false)

	if testMode {
		mockTenders := services.MockTenderData()
		return c.JSON(fiber.Map{
			"success": true,
			"count":   len(mockTenders),
			"tenders": mockTenders,
			"message": "Test mode - returning mock data",
		})
	}

	logrus.Info("Starting tender scraping")
	tenders, err := h.Scraper.ScrapeAllPages(c.Context(), h.Config.BaseURL, maxPages)
	if err != nil {
		logrus.WithError(err).Error("Scraping failed")
		return scrapeFailure(c, "Failed to scrape tender data", err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"count":     len(tenders),
		"tenders":   tenders,
		"scrapedAt": time.Now().Format(time.RFC3339),
		"source":    h.Config.BaseURL,
	})
}

type customScrapeRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"maxPages"`
}

// ScrapeCustomURL runs a scrape of a caller-supplied source
func (h *ScrapeHandler) ScrapeCustomURL(c *fiber.Ctx) error {
	var req customScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "URL is required",
		})
	}
	if req.MaxPages <= 0 {
		req.MaxPages = h.Config.MaxPages
	}

	logrus.WithField("url", req.URL).Info("Custom URL scraping")
	tenders, err := h.Scraper.ScrapeAllPages(c.Context(), req.URL, req.MaxPages)
	if err != nil {
		logrus.WithError(err).Error("Custom scraping failed")
		return scrapeFailure(c, "Failed to scrape tender data from custom URL", err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"count":     len(tenders),
		"tenders":   tenders,
		"scrapedAt": time.Now().Format(time.RFC3339),
		"source":    req.URL,
	})
}

type importRequest struct {
	Action   string                 `json:"action"`
	Tenders  []models.ScrapedTender `json:"tenders"`
	MaxPages int                    `json:"maxPages"`
}

// ImportTenders runs the import pipeline on caller-supplied records
// (action "import") or scrapes the live source and imports end to end
// (action "refresh").
func (h *ScrapeHandler) ImportTenders(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	switch req.Action {
	case "import":
		result, err := h.ImportService.ImportScrapedTenders(c.Context(), req.Tenders)
		if err != nil {
			return scrapeFailure(c, "Failed to import tenders", err)
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"imported": result.Imported,
			"total":    result.Total,
			"tenders":  result.Tenders,
		})

	case "refresh":
		if req.MaxPages <= 0 {
			req.MaxPages = h.Config.MaxPages
		}
		result, err := h.ImportService.RefreshTenderData(c.Context(), h.Config.BaseURL, req.MaxPages)
		if err != nil {
			return scrapeFailure(c, "Failed to refresh tender data", err)
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"imported": result.Imported,
			"total":    result.Total,
			"tenders":  result.Tenders,
		})

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "action must be \"import\" or \"refresh\"",
		})
	}
}

// SourceHealth probes the configured portal for reachability without
// running any extraction.
func (h *ScrapeHandler) SourceHealth(c *fiber.Ctx) error {
	client := shared.NewBrowserHTTPClient(10 * time.Second)

	request, err := http.NewRequestWithContext(c.Context(), http.MethodGet, h.Config.BaseURL, nil)
	if err != nil {
		return scrapeFailure(c, "Failed to build source health request", err)
	}
	shared.SetBrowserLikeHeaders(request)

	start := time.Now()
	response, err := client.Do(request)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success":   false,
			"error":     "Tender source unreachable",
			"message":   err.Error(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
	defer response.Body.Close()

	return c.JSON(fiber.Map{
		"success":     true,
		"source":      h.Config.BaseURL,
		"status_code": response.StatusCode,
		"latency_ms":  time.Since(start).Milliseconds(),
	})
}
