package models

// ScrapedTender is the raw extraction output of one portal listing row.
// It is held in memory for the duration of a scrape run and consumed by
// the import pipeline; closing dates stay strings because the portals do
// not agree on a format.
type ScrapedTender struct {
	Title        string `json:"title"`
	Ref          string `json:"ref"`
	ClosingDate  string `json:"closingDate"`
	Organisation string `json:"organisation"`
	Link         string `json:"link"`
}

// RawMarkupRow is one structural table row before field matching: the
// cleaned text of each cell in order, plus the first hyperlink found in
// any cell. Never persisted.
type RawMarkupRow struct {
	Cells []string
	Link  string
}

// ImportResult reports the outcome of one import batch.
type ImportResult struct {
	Imported int      `json:"imported"`
	Total    int      `json:"total"`
	Tenders  []Tender `json:"tenders"`
}
