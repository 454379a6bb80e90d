package services

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/tenderhub/tender-backend/models"
)

const (
	crorePerUnit = 10000000
	lakhPerUnit  = 100000
)

var (
	croreAmountRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*crore`)
	lakhAmountRegex  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*lakh`)
)

// categoryRule maps title keywords to a category. Rules are checked in
// order and the first hit wins, so broader categories must come later.
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{models.CategoryConstruction, []string{"construction", "building", "infrastructure"}},
	{models.CategoryProcurement, []string{"supply", "procurement", "equipment"}},
	{models.CategoryServices, []string{"service", "maintenance", "consulting"}},
	{models.CategoryTechnology, []string{"software", "technology", "computer"}},
	{models.CategoryHealthcare, []string{"medical", "health", "hospital"}},
}

type budgetRange struct {
	min float64
	max float64
}

// Placeholder ranges for titles that carry no explicit amount. The drawn
// value is a filler estimate, not a real figure.
var categoryBudgetRanges = map[string]budgetRange{
	models.CategoryConstruction: {5000000, 100000000},
	models.CategoryProcurement:  {500000, 50000000},
	models.CategoryServices:     {100000, 10000000},
	models.CategoryTechnology:   {1000000, 25000000},
	models.CategoryHealthcare:   {2000000, 75000000},
	models.CategoryOther:        {500000, 20000000},
}

// TenderClassifier derives a category and an estimated budget from a raw
// tender title. The random source backs the budget fallback and is injected
// so tests can seed it.
type TenderClassifier struct {
	rng *rand.Rand
}

// NewTenderClassifier creates a classifier with the given random source
func NewTenderClassifier(rng *rand.Rand) *TenderClassifier {
	return &TenderClassifier{rng: rng}
}

// "IT" needs a word boundary: plain substring matching would fire on
// almost any title ("hospital", "monitoring").
var itWordRegex = regexp.MustCompile(`(?i)\bIT\b`)

// Classify returns the category for a tender title using first-match-wins
// keyword rules.
func (c *TenderClassifier) Classify(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
		if rule.category == models.CategoryTechnology && itWordRegex.MatchString(title) {
			return models.CategoryTechnology
		}
	}
	return models.CategoryOther
}

// EstimateBudget extracts an explicit crore/lakh amount from the title, or
// draws a placeholder value from the category's range when the title has no
// figure. Callers must not treat the fallback as authoritative.
func (c *TenderClassifier) EstimateBudget(title, category string) float64 {
	if match := croreAmountRegex.FindStringSubmatch(title); match != nil {
		if amount, err := strconv.ParseFloat(match[1], 64); err == nil {
			return amount * crorePerUnit
		}
	}
	if match := lakhAmountRegex.FindStringSubmatch(title); match != nil {
		if amount, err := strconv.ParseFloat(match[1], 64); err == nil {
			return amount * lakhPerUnit
		}
	}

	r, ok := categoryBudgetRanges[category]
	if !ok {
		r = categoryBudgetRanges[models.CategoryOther]
	}
	return float64(c.rng.Int63n(int64(r.max-r.min))) + r.min
}

// ClassifyAndEstimate runs both derivations in one call
func (c *TenderClassifier) ClassifyAndEstimate(title string) (string, float64) {
	category := c.Classify(title)
	return category, c.EstimateBudget(title, category)
}
