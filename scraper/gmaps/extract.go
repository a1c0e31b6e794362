package gmaps

import (
	"strings"
	"time"

	"gmaps-scraper/models"
	"gmaps-scraper/services"
)

// scrapeListing navigates the given tab to a candidate's detail page and
// extracts a Business record. On any failure (navigation timeout, the
// heading never appearing) it returns a record with only SourceURL set,
// which the caller treats as a failed extraction, not an error.
func (s *Scraper) scrapeListing(page Page, candidate string) *models.Business {
	failed := &models.Business{SourceURL: candidate, ScrapedAt: time.Now()}

	if err := page.Navigate(candidate, detailNavTimeout); err != nil {
		s.logger.Debug("[gmaps] Detail navigation failed for %s: %v", candidate, err)
		return failed
	}
	if err := page.WaitVisible(detailReadySelector, headingTimeout); err != nil {
		s.logger.Debug("[gmaps] Detail page never rendered for %s: %v", candidate, err)
		return failed
	}

	raw := services.RawFields{
		Name:     firstMatch(page, nameStrategies),
		Rating:   firstMatch(page, ratingStrategies),
		Reviews:  firstMatch(page, reviewsStrategies),
		Category: firstMatch(page, categoryStrategies),
		Address:  firstMatch(page, addressStrategies),
		Phone:    firstMatch(page, phoneStrategies),
		Website:  firstMatch(page, websiteStrategies),
		Hours:    firstMatch(page, hoursStrategies),
	}

	// Record the resolved URL, not the requested one — maps redirects
	// short place URLs to their canonical form.
	sourceURL := candidate
	if loc, err := page.Location(); err == nil && loc != "" {
		sourceURL = loc
	}

	return s.normalizer.Record(raw, sourceURL)
}

// firstMatch walks a field's strategy cascade and returns the first
// non-empty value. Individual strategy errors just advance the cascade.
func firstMatch(page Page, strategies []strategy) string {
	for _, st := range strategies {
		var (
			val string
			err error
		)
		if st.Attr != "" {
			val, err = page.Attr(st.Selector, st.Attr)
		} else {
			val, err = page.Text(st.Selector)
		}
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(val); v != "" {
			return v
		}
	}
	return ""
}
