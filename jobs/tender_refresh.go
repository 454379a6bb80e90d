package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tenderhub/tender-backend/config"
	"github.com/tenderhub/tender-backend/services"
)

// TenderRefreshJob periodically scrapes the live portal and imports new
// tenders. Existing references are skipped by the import pipeline, so the
// job can run as often as the schedule fires without creating duplicates.
type TenderRefreshJob struct {
	ImportService *services.TenderImportService
	Config        *config.ScraperConfig
}

func NewTenderRefreshJob(importService *services.TenderImportService, cfg *config.ScraperConfig) *TenderRefreshJob {
	return &TenderRefreshJob{
		ImportService: importService,
		Config:        cfg,
	}
}

func (j *TenderRefreshJob) Run() {
	logrus.Info("Starting tender refresh job")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	result, err := j.ImportService.RefreshTenderData(ctx, j.Config.BaseURL, j.Config.MaxPages)
	if err != nil {
		logrus.Errorf("Tender refresh job failed: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"imported": result.Imported,
		"total":    result.Total,
	}).Info("Tender refresh job completed")
}
