package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tenderhub/tender-backend/models"
)

// ErrDuplicateReference is returned when a create hits the unique
// reference_number constraint, e.g. from a concurrent import of the same
// scrape batch.
var ErrDuplicateReference = errors.New("tender reference number already exists")

// TenderService provides tender persistence on Postgres
type TenderService struct {
	DB *sql.DB
}

// NewTenderService creates a new tender service instance
func NewTenderService(db *sql.DB) *TenderService {
	return &TenderService{DB: db}
}

const tenderColumns = `
	id, reference_number, title, description, requirements,
	category, budget, deadline, location, organisation,
	source_url, is_scraped, created_at, updated_at
`

func scanTender(row interface{ Scan(...interface{}) error }) (*models.Tender, error) {
	var t models.Tender
	err := row.Scan(
		&t.ID, &t.ReferenceNumber, &t.Title, &t.Description, &t.Requirements,
		&t.Category, &t.Budget, &t.Deadline, &t.Location, &t.Organisation,
		&t.SourceURL, &t.IsScraped, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTenders lists tenders newest first, optionally filtered by category
// and/or scraped origin.
func (s *TenderService) GetTenders(ctx context.Context, category string, scraped *bool) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE 1=1`
	var args []interface{}

	if category != "" && category != "all" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if scraped != nil {
		args = append(args, *scraped)
		query += fmt.Sprintf(" AND is_scraped = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenders: %w", err)
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tender row: %w", err)
		}
		tenders = append(tenders, *tender)
	}
	return tenders, rows.Err()
}

// GetTenderByID fetches a single tender by primary key
func (s *TenderService) GetTenderByID(ctx context.Context, id uuid.UUID) (*models.Tender, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+tenderColumns+` FROM tenders WHERE id = $1`, id)
	tender, err := scanTender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tender %s: %w", id, err)
	}
	return tender, nil
}

// FindByReference looks up a tender by its reference number. Returns
// (nil, nil) when no tender carries the reference.
func (s *TenderService) FindByReference(ctx context.Context, ref string) (*models.Tender, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+tenderColumns+` FROM tenders WHERE reference_number = $1`, ref)
	tender, err := scanTender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tender by reference %s: %w", ref, err)
	}
	return tender, nil
}

// Create inserts a new tender. The unique reference constraint is the
// backstop against concurrent duplicate imports: a conflicting insert is
// dropped by the database and surfaces as ErrDuplicateReference.
func (s *TenderService) Create(ctx context.Context, tender *models.Tender) error {
	query := `
		INSERT INTO tenders (
			reference_number, title, description, requirements,
			category, budget, deadline, location, organisation,
			source_url, is_scraped
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (reference_number) DO NOTHING
		RETURNING id, created_at, updated_at;
	`

	err := s.DB.QueryRowContext(ctx, query,
		tender.ReferenceNumber, tender.Title, tender.Description, tender.Requirements,
		tender.Category, tender.Budget, tender.Deadline, tender.Location, tender.Organisation,
		tender.SourceURL, tender.IsScraped,
	).Scan(&tender.ID, &tender.CreatedAt, &tender.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("failed to create tender %s: %w", tender.ReferenceNumber, err)
	}

	logrus.WithFields(logrus.Fields{
		"reference":  tender.ReferenceNumber,
		"category":   tender.Category,
		"is_scraped": tender.IsScraped,
	}).Debug("Created tender")

	return nil
}

// GetStats returns scraped-versus-manual tender counts
func (s *TenderService) GetStats(ctx context.Context) (models.TenderStats, error) {
	var stats models.TenderStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_scraped),
		       COUNT(*) FILTER (WHERE NOT is_scraped)
		FROM tenders
	`).Scan(&stats.Total, &stats.Scraped, &stats.Manual)
	if err != nil {
		return stats, fmt.Errorf("failed to query tender stats: %w", err)
	}
	return stats, nil
}
