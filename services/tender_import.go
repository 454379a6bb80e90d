package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tenderhub/tender-backend/models"
)

// TenderStore is the storage collaborator of the import pipeline. The
// Postgres implementation lives in TenderService; tests supply an in-memory
// fake.
type TenderStore interface {
	FindByReference(ctx context.Context, ref string) (*models.Tender, error)
	Create(ctx context.Context, tender *models.Tender) error
	GetStats(ctx context.Context) (models.TenderStats, error)
}

const defaultSourceURL = "https://eprocure.gov.in"

const boilerplateRequirements = "Please refer to the official tender document for detailed requirements and specifications."

// TenderImportService converts scraped records into persisted tenders.
// Import is idempotent per reference number: records whose reference
// already exists are skipped, never merged or overwritten, so re-running
// the same batch is always safe.
type TenderImportService struct {
	store      TenderStore
	classifier *TenderClassifier
	scraper    *TenderScraperService
	utility    *UtilityService
}

// NewTenderImportService creates the import pipeline
func NewTenderImportService(store TenderStore, classifier *TenderClassifier, scraper *TenderScraperService) *TenderImportService {
	return &TenderImportService{
		store:      store,
		classifier: classifier,
		scraper:    scraper,
		utility:    NewUtilityService(),
	}
}

// ImportScrapedTenders persists a batch of scraped records. Records are
// processed strictly sequentially; a per-record failure is logged and
// skipped without aborting the batch.
func (s *TenderImportService) ImportScrapedTenders(ctx context.Context, scraped []models.ScrapedTender) (models.ImportResult, error) {
	result := models.ImportResult{
		Total:   len(scraped),
		Tenders: []models.Tender{},
	}

	for _, record := range scraped {
		tender, imported, err := s.importOne(ctx, record)
		if err != nil {
			logrus.WithError(err).WithField("reference", record.Ref).Error("Failed to import tender, skipping record")
			continue
		}
		if imported {
			result.Imported++
			result.Tenders = append(result.Tenders, *tender)
		}
	}

	logrus.WithFields(logrus.Fields{
		"imported": result.Imported,
		"total":    result.Total,
	}).Info("Tender import batch completed")

	return result, nil
}

func (s *TenderImportService) importOne(ctx context.Context, record models.ScrapedTender) (*models.Tender, bool, error) {
	existing, err := s.store.FindByReference(ctx, record.Ref)
	if err != nil {
		return nil, false, fmt.Errorf("lookup for %s failed: %w", record.Ref, err)
	}
	if existing != nil {
		// Idempotency contract: never update a tender on re-import, a
		// since-changed record must not clobber the stored one.
		logrus.WithField("reference", record.Ref).Debug("Tender already exists, skipping")
		return nil, false, nil
	}

	category, budget := s.classifier.ClassifyAndEstimate(record.Title)

	tender := &models.Tender{
		ReferenceNumber: record.Ref,
		Title:           record.Title,
		Description:     s.synthesizeDescription(record),
		Requirements:    boilerplateRequirements,
		Category:        category,
		Budget:          &budget,
		Deadline:        s.parseDeadline(record.ClosingDate),
		Location:        locationFor(record.Organisation),
		Organisation:    record.Organisation,
		SourceURL:       sourceURLFor(record.Link),
		IsScraped:       true,
	}

	if err := s.store.Create(ctx, tender); err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			// Lost a race with a concurrent import of the same reference.
			logrus.WithField("reference", record.Ref).Debug("Concurrent duplicate insert rejected by storage, skipping")
			return nil, false, nil
		}
		return nil, false, err
	}

	return tender, true, nil
}

// parseDeadline converts a normalized closing date to a timestamp.
// Unparseable or unspecified dates degrade to nil, logged but never an error.
func (s *TenderImportService) parseDeadline(closingDate string) *time.Time {
	if closingDate == "" || closingDate == "Not specified" {
		return nil
	}

	normalized := s.utility.FormatDate(closingDate)
	deadline, err := time.Parse("2006-01-02", normalized)
	if err != nil {
		logrus.WithField("closing_date", closingDate).Info("Could not parse closing date, leaving deadline unset")
		return nil
	}
	return &deadline
}

func (s *TenderImportService) synthesizeDescription(record models.ScrapedTender) string {
	return fmt.Sprintf(
		"%s\n\nOrganisation: %s\n\nThis tender has been imported from eprocure.gov.in. For complete details and application, please visit the official tender portal.",
		record.Title, record.Organisation,
	)
}

func locationFor(organisation string) string {
	if strings.Contains(organisation, "Ministry") {
		return "New Delhi"
	}
	return "India"
}

func sourceURLFor(link string) string {
	if link == "" {
		return defaultSourceURL
	}
	return link
}

// RefreshTenderData runs the pagination driver against the live source and
// imports whatever it finds, end to end.
func (s *TenderImportService) RefreshTenderData(ctx context.Context, baseURL string, maxPages int) (models.ImportResult, error) {
	scraped, err := s.scraper.ScrapeAllPages(ctx, baseURL, maxPages)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("failed to scrape tender data: %w", err)
	}
	if len(scraped) == 0 {
		return models.ImportResult{Tenders: []models.Tender{}}, nil
	}
	return s.ImportScrapedTenders(ctx, scraped)
}
