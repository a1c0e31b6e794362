package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

var (
	// decimalRegexp captures the first decimal-or-integer token ("4.5", "4,5", "4")
	decimalRegexp = regexp.MustCompile(`\d+[.,]\d+|\d+`)
	// integerRegexp captures the first integer token after separator stripping
	integerRegexp = regexp.MustCompile(`\d+`)
)

// RawFields holds the untouched text/attribute content pulled from a
// detail page, one entry per extractable field.
type RawFields struct {
	Name     string
	Rating   string
	Reviews  string
	Category string
	Address  string
	Phone    string
	Website  string
	Hours    string
}

// Normalizer turns raw extracted field text into a validated Business record.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Record builds a Business from raw field content. Fields that fail to
// normalise come out absent; the record is still valid as long as
// sourceURL is set.
func (n *Normalizer) Record(raw RawFields, sourceURL string) *models.Business {
	return &models.Business{
		Name:         strings.TrimSpace(raw.Name),
		Rating:       n.ParseRating(raw.Rating),
		ReviewsCount: n.ParseReviews(raw.Reviews),
		Category:     strings.TrimSpace(raw.Category),
		Address:      flatten(raw.Address, ", "),
		Phone:        CleanPhone(raw.Phone),
		Website:      strings.TrimSpace(raw.Website),
		Hours:        CleanHours(raw.Hours),
		SourceURL:    sourceURL,
		ScrapedAt:    time.Now(),
	}
}

// ParseRating extracts a 0.0–5.0 rating from raw text. Comma decimal
// separators ("4,5") are normalised to a period. Returns nil when the
// text has no parseable in-range value.
func (n *Normalizer) ParseRating(raw string) *float64 {
	match := decimalRegexp.FindString(raw)
	if match == "" {
		return nil
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return nil
	}
	if val < 0 || val > 5 {
		n.logger.Debug("[normalize] Rating out of range, dropping: %q", raw)
		return nil
	}
	return &val
}

// ParseReviews extracts a non-negative review count from raw text.
// Thousands separators (commas or periods depending on locale) are
// stripped before matching, so "(1,234)" and "1.234" both yield 1234.
func (n *Normalizer) ParseReviews(raw string) *int {
	stripped := strings.NewReplacer(",", "", ".", "").Replace(raw)
	match := integerRegexp.FindString(stripped)
	if match == "" {
		return nil
	}
	val, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &val
}

// CleanPhone flattens line breaks and strips a leading tel: scheme marker
// left over from href-based extraction.
func CleanPhone(raw string) string {
	phone := flatten(raw, " ")
	phone = strings.TrimPrefix(phone, "tel:")
	return strings.TrimSpace(phone)
}

// CleanHours keeps aria-label-sourced hours verbatim and reflows
// innerText-sourced hours onto a single line. Labels read from the
// accessibility tree start with the open/closed status; multi-line text
// came from the visible table.
func CleanHours(raw string) string {
	hours := strings.TrimSpace(raw)
	if strings.HasPrefix(hours, "Open") || strings.HasPrefix(hours, "Closed") {
		return hours
	}
	return flatten(hours, ", ")
}

func flatten(s, sep string) string {
	parts := strings.Split(strings.TrimSpace(s), "\n")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
