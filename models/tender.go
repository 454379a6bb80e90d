package models

import (
	"time"

	"github.com/google/uuid"
)

// Tender categories derived from title keywords during import.
const (
	CategoryConstruction = "Construction"
	CategoryProcurement  = "Procurement"
	CategoryServices     = "Services"
	CategoryTechnology   = "Technology"
	CategoryHealthcare   = "Healthcare"
	CategoryOther        = "Other"
)

type Tender struct {
	// Primary identification
	ID              uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReferenceNumber string    `json:"reference_number" gorm:"type:varchar(100);not null;uniqueIndex"`

	// Content
	Title        string `json:"title" gorm:"type:varchar(255);not null"`
	Description  string `json:"description" gorm:"type:text"`
	Requirements string `json:"requirements" gorm:"type:text"`

	// Derived fields
	Category string     `json:"category" gorm:"type:varchar(50);not null;default:'Other'"`
	Budget   *float64   `json:"budget" gorm:"type:decimal(15,2)"`
	Deadline *time.Time `json:"deadline"`
	Location string     `json:"location" gorm:"type:varchar(100)"`

	// Provenance
	Organisation string `json:"organisation" gorm:"type:varchar(255)"`
	SourceURL    string `json:"source_url" gorm:"type:varchar(500)"`
	IsScraped    bool   `json:"is_scraped" gorm:"not null;default:false"`

	// Audit fields
	CreatedAt time.Time `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"default:CURRENT_TIMESTAMP"`
}

// TenderStats summarizes scraped versus manually entered tenders.
type TenderStats struct {
	Total   int `json:"total"`
	Scraped int `json:"scraped"`
	Manual  int `json:"manual"`
}
