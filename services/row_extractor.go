package services

import (
	"regexp"
	"strings"

	"github.com/tenderhub/tender-backend/models"
)

const (
	fieldTitle        = "title"
	fieldRef          = "ref"
	fieldClosingDate  = "closingDate"
	fieldOrganisation = "organisation"

	maxTitleLength = 200
	minCellCount   = 4
)

var (
	refPattern       = regexp.MustCompile(`^[A-Z0-9/\-_]{8,}$`)
	dateShapePattern = regexp.MustCompile(`\d{2}[/-]\d{2}[/-]\d{4}`)
)

var organisationMarkers = []string{"Ministry", "Department", "Corporation", "Ltd", "Authority", "Board"}

// fieldRule pairs a record field with the content heuristic that claims a
// cell for it. Rules are evaluated in declaration order for every cell, and
// each field is claimed at most once.
type fieldRule struct {
	field   string
	matches func(index int, text string) bool
}

// RowExtractor converts one table row of untrusted portal markup into a
// candidate tender record. Content shape is matched before column position:
// tender tables have no fixed schema across portals, so what a cell looks
// like is a more durable signal than where it sits.
type RowExtractor struct {
	utility    *UtilityService
	baseOrigin string
	rules      []fieldRule
}

// NewRowExtractor creates a row extractor that absolutizes relative links
// against the given portal origin.
func NewRowExtractor(utility *UtilityService, baseOrigin string) *RowExtractor {
	e := &RowExtractor{
		utility:    utility,
		baseOrigin: baseOrigin,
	}
	e.rules = []fieldRule{
		{
			field: fieldTitle,
			matches: func(index int, text string) bool {
				if len(text) <= 10 {
					return false
				}
				return index == 0 || strings.Contains(strings.ToLower(text), "tender") || len(text) > 50
			},
		},
		{
			field: fieldRef,
			matches: func(index int, text string) bool {
				return refPattern.MatchString(text)
			},
		},
		{
			field: fieldClosingDate,
			matches: func(index int, text string) bool {
				return dateShapePattern.MatchString(text) || strings.Contains(strings.ToLower(text), "2025")
			},
		},
		{
			field: fieldOrganisation,
			matches: func(index int, text string) bool {
				for _, marker := range organisationMarkers {
					if strings.Contains(text, marker) {
						return true
					}
				}
				return false
			},
		},
	}
	return e
}

// ExtractRow applies the field rules to a raw markup row. Returns the
// candidate record and true, or a zero record and false when the row has
// too few cells or fails the validity gate. Never returns a partial record.
func (e *RowExtractor) ExtractRow(row models.RawMarkupRow) (models.ScrapedTender, bool) {
	if len(row.Cells) < minCellCount {
		return models.ScrapedTender{}, false
	}

	claimed := make(map[string]string, len(e.rules))

	// Single pass: first matching unclaimed field wins each cell's content.
	for index, cell := range row.Cells {
		text := e.utility.CleanText(cell)
		if text == "" {
			continue
		}
		for _, rule := range e.rules {
			if _, taken := claimed[rule.field]; taken {
				continue
			}
			if rule.matches(index, text) {
				claimed[rule.field] = text
			}
		}
	}

	// Positional fallback for fields the heuristics left unset.
	if claimed[fieldTitle] == "" {
		claimed[fieldTitle] = e.utility.CleanText(row.Cells[0])
	}
	if claimed[fieldRef] == "" {
		claimed[fieldRef] = e.utility.CleanText(row.Cells[1])
	}
	if claimed[fieldClosingDate] == "" {
		dateText := e.utility.CleanText(row.Cells[2])
		if dateShapePattern.MatchString(dateText) {
			claimed[fieldClosingDate] = dateText
		}
	}
	if claimed[fieldOrganisation] == "" {
		claimed[fieldOrganisation] = e.utility.CleanText(row.Cells[3])
	}

	title := claimed[fieldTitle]
	ref := claimed[fieldRef]
	if len(title) <= 5 || len(ref) <= 3 {
		return models.ScrapedTender{}, false
	}

	title = truncateRunes(title, maxTitleLength)

	closingDate := "Not specified"
	if claimed[fieldClosingDate] != "" {
		closingDate = e.utility.FormatDate(claimed[fieldClosingDate])
	}

	organisation := claimed[fieldOrganisation]
	if organisation == "" {
		organisation = "Not specified"
	}

	return models.ScrapedTender{
		Title:        title,
		Ref:          ref,
		ClosingDate:  closingDate,
		Organisation: organisation,
		Link:         e.absolutizeLink(row.Link),
	}, true
}

func (e *RowExtractor) absolutizeLink(link string) string {
	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}
	return e.baseOrigin + link
}
