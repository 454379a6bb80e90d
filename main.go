package main

import (
	"log"
	"math/rand"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tenderhub/tender-backend/config"
	"github.com/tenderhub/tender-backend/database"
	"github.com/tenderhub/tender-backend/handlers"
	"github.com/tenderhub/tender-backend/jobs"
	"github.com/tenderhub/tender-backend/services"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	// Initialize services
	scraperCfg := cfg.Scraper()
	scraperService := services.NewTenderScraperService(scraperCfg)
	classifier := services.NewTenderClassifier(rand.New(rand.NewSource(time.Now().UnixNano())))
	tenderService := services.NewTenderService(database.DB)
	importService := services.NewTenderImportService(tenderService, classifier, scraperService)

	logrus.Info("Tender backend services initialized:")
	logrus.Infof("  - Scraper (source: %s, max pages: %d, page delay: %v)",
		scraperCfg.BaseURL, scraperCfg.MaxPages, scraperCfg.PageDelay)
	logrus.Info("  - Import pipeline (skip-if-exists by reference number)")

	// Initialize handlers
	tenderHandler := handlers.NewTenderHandler(tenderService)
	scrapeHandler := handlers.NewScrapeHandler(scraperService, importService, scraperCfg)

	// Schedule the background refresh job
	refreshJob := jobs.NewTenderRefreshJob(importService, scraperCfg)
	scheduler := cron.New()
	if _, err := scheduler.AddJob(cfg.RefreshCron, refreshJob); err != nil {
		log.Fatalf("Invalid REFRESH_CRON expression %q: %v", cfg.RefreshCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Tender Routes
	api.Get("/tenders", tenderHandler.GetTenders)
	api.Get("/tenders/stats", tenderHandler.GetStats)
	api.Get("/tenders/:id", tenderHandler.GetTenderByID)
	api.Post("/tenders", tenderHandler.CreateTender)
	api.Post("/tenders/import", scrapeHandler.ImportTenders)

	// Scrape Routes
	api.Get("/scrape", scrapeHandler.ScrapeTenders)
	api.Post("/scrape", scrapeHandler.ScrapeCustomURL)
	api.Get("/scrape/source-health", scrapeHandler.SourceHealth)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
