package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/tenderhub/tender-backend/models"
)

func newTestExtractor() *RowExtractor {
	return NewRowExtractor(NewUtilityService(), "https://eprocure.gov.in")
}

func TestExtractRowHeuristicMatching(t *testing.T) {
	extractor := newTestExtractor()

	row := models.RawMarkupRow{
		Cells: []string{
			"Supply of Laboratory Equipment for Government Colleges",
			"GEM/2024/B/4829101",
			"15/10/2025",
			"Ministry of Education",
		},
		Link: "/tender/4829101",
	}

	tender, ok := extractor.ExtractRow(row)
	if !ok {
		t.Fatal("expected a valid record")
	}

	if tender.Title != "Supply of Laboratory Equipment for Government Colleges" {
		t.Errorf("unexpected title: %q", tender.Title)
	}
	if tender.Ref != "GEM/2024/B/4829101" {
		t.Errorf("unexpected ref: %q", tender.Ref)
	}
	if tender.ClosingDate != "2025-10-15" {
		t.Errorf("unexpected closing date: %q", tender.ClosingDate)
	}
	if tender.Organisation != "Ministry of Education" {
		t.Errorf("unexpected organisation: %q", tender.Organisation)
	}
	if tender.Link != "https://eprocure.gov.in/tender/4829101" {
		t.Errorf("relative link not absolutized: %q", tender.Link)
	}
}

func TestExtractRowHeuristicsBeatPosition(t *testing.T) {
	extractor := newTestExtractor()

	// Columns shuffled relative to the usual layout; content shape should
	// still route each cell to the right field.
	row := models.RawMarkupRow{
		Cells: []string{
			"Tender notice for canal repair works in district",
			"State Irrigation Department",
			"REF/IRRIG/XI/00981",
			"20-11-2025",
		},
	}

	tender, ok := extractor.ExtractRow(row)
	if !ok {
		t.Fatal("expected a valid record")
	}
	if tender.Ref != "REF/IRRIG/XI/00981" {
		t.Errorf("ref not matched by shape: %q", tender.Ref)
	}
	if tender.Organisation != "State Irrigation Department" {
		t.Errorf("organisation not matched by marker: %q", tender.Organisation)
	}
	if tender.ClosingDate != "2025-11-20" {
		t.Errorf("date not matched by shape: %q", tender.ClosingDate)
	}
}

func TestExtractRowPositionalFallback(t *testing.T) {
	extractor := newTestExtractor()

	// No cell satisfies any content heuristic strongly enough except by
	// position: short title, lowercase ref, no date, no organisation marker.
	row := models.RawMarkupRow{
		Cells: []string{"repairs", "ab/123", "soon", "local office"},
	}

	tender, ok := extractor.ExtractRow(row)
	if !ok {
		t.Fatal("expected positional fallback to produce a record")
	}
	if tender.Title != "repairs" {
		t.Errorf("title fallback: %q", tender.Title)
	}
	if tender.Ref != "ab/123" {
		t.Errorf("ref fallback: %q", tender.Ref)
	}
	if tender.ClosingDate != "Not specified" {
		t.Errorf("non-date-shaped cell must not become a date: %q", tender.ClosingDate)
	}
	if tender.Organisation != "local office" {
		t.Errorf("organisation fallback: %q", tender.Organisation)
	}
}

func TestExtractRowRejectsShortRows(t *testing.T) {
	extractor := newTestExtractor()

	if _, ok := extractor.ExtractRow(models.RawMarkupRow{Cells: []string{"a", "b", "c"}}); ok {
		t.Error("rows with fewer than 4 cells must be rejected")
	}
}

func TestExtractRowValidityGate(t *testing.T) {
	extractor := newTestExtractor()

	// Title of 5 characters and ref of 3 characters both fail the gate.
	row := models.RawMarkupRow{
		Cells: []string{"short", "abc", "", ""},
	}
	if _, ok := extractor.ExtractRow(row); ok {
		t.Error("expected validity gate to reject the row")
	}
}

func TestExtractRowTruncatesLongTitles(t *testing.T) {
	extractor := newTestExtractor()

	row := models.RawMarkupRow{
		Cells: []string{strings.Repeat("x", 400), "TENDER/2024/001/LONG", "15/10/2025", "Water Board"},
	}

	tender, ok := extractor.ExtractRow(row)
	if !ok {
		t.Fatal("expected a valid record")
	}
	if len(tender.Title) != 200 {
		t.Errorf("title length = %d, want 200", len(tender.Title))
	}
}

func TestExtractRowTruncatesOnRuneBoundary(t *testing.T) {
	extractor := newTestExtractor()

	// Devanagari letters are 3 bytes each; byte-indexed truncation would
	// split one and emit invalid UTF-8.
	row := models.RawMarkupRow{
		Cells: []string{strings.Repeat("त", 260), "TENDER/2024/002/LONG", "01-12-2024", "Water Board"},
	}

	tender, ok := extractor.ExtractRow(row)
	if !ok {
		t.Fatal("expected a valid record")
	}
	if !utf8.ValidString(tender.Title) {
		t.Errorf("truncated title is not valid UTF-8: %q", tender.Title)
	}
	if n := utf8.RuneCountInString(tender.Title); n != 200 {
		t.Errorf("title is %d characters, want 200", n)
	}
}

func TestExtractRowTotality(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	extractor := newTestExtractor()
	cellGen := gen.SliceOfN(6, gen.AnyString()).SuchThat(func(cells []string) bool {
		return len(cells) >= minCellCount
	})

	properties.Property("any row with enough cells yields a valid record or no match", prop.ForAll(
		func(cells []string) bool {
			tender, ok := extractor.ExtractRow(models.RawMarkupRow{Cells: cells})
			if !ok {
				return tender == models.ScrapedTender{}
			}
			return len(tender.Title) > 5 &&
				utf8.RuneCountInString(tender.Title) <= 200 &&
				utf8.ValidString(tender.Title) &&
				len(tender.Ref) > 3
		},
		cellGen,
	))

	properties.TestingRun(t)
}
