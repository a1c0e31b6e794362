package gmaps

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gmaps-scraper/config"
	"gmaps-scraper/models"
	"gmaps-scraper/services"
	"gmaps-scraper/utils"
)

// Page is the tab contract the engine drives. Two tabs exist per session:
// the primary one holds the scrolled results feed, the secondary one
// visits detail pages so the feed's scroll position survives.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	Eval(js string, out any) error
	Text(selector string) (string, error)
	Attr(selector, name string) (string, error)
	Location() (string, error)
	Close() error
}

const (
	searchNavTimeout = 30 * time.Second
	feedTimeout      = 15 * time.Second
	detailNavTimeout = 20 * time.Second
	headingTimeout   = 7 * time.Second

	// Consecutive no-growth scroll iterations before discovery gives up.
	noChangeLimit = 3

	// Discovery over-fetches to compensate for filtered and failed candidates.
	overFetchFactor = 3
)

var errNoFeed = errors.New("results container not found")

// Scraper drives one scrape session against the maps search UI.
type Scraper struct {
	cfg        *config.Config
	logger     *utils.Logger
	primary    Page
	newPage    func() (Page, error)
	normalizer *services.Normalizer
	processed  *utils.URLSet
	retry      *utils.RetryConfig

	// pace is the uniform-random delay between steps; swapped out in tests.
	pace func(minSec, maxSec float64)
}

// New creates a ready-to-use Scraper. primary must already belong to a
// running browser; newPage opens additional tabs in the same browsing
// context.
func New(cfg *config.Config, logger *utils.Logger, primary Page, newPage func() (Page, error)) *Scraper {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	return &Scraper{
		cfg:        cfg,
		logger:     logger,
		primary:    primary,
		newPage:    newPage,
		normalizer: services.NewNormalizer(logger),
		processed:  utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: attempts,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		pace: utils.Delay,
	}
}

// search navigates the primary tab to the maps search results for the
// session's term and waits for the results feed to render. A failure here
// is fatal to the session.
func (s *Scraper) search(session models.SearchSession) error {
	searchURL := searchBaseURL + url.QueryEscape(session.Term())
	s.logger.Info("[gmaps] Searching: %s", session.Term())

	err := s.retry.Do("search-navigation", func() error {
		if err := s.primary.Navigate(searchURL, searchNavTimeout); err != nil {
			return err
		}
		return s.primary.WaitVisible(feedSelector, feedTimeout)
	})
	if err != nil {
		return fmt.Errorf("search %q: %w", session.Term(), err)
	}

	// Kick the feed once so lazy loading starts before the first pass.
	_ = s.primary.Eval(kickScrollJS, nil)
	s.pace(0.8, 1.2)

	s.logger.Info("[gmaps] Results loaded")
	return nil
}

// discover scrolls the results feed until targetCount entries are
// rendered, the feed shows its end-of-results marker, or the rendered
// count stops growing for noChangeLimit consecutive iterations. Returns
// the final rendered count. A stall is a normal outcome, not an error.
func (s *Scraper) discover(targetCount int) (int, error) {
	var feedExists bool
	if err := s.primary.Eval(feedExistsJS, &feedExists); err != nil {
		return 0, err
	}
	if !feedExists {
		return 0, errNoFeed
	}

	previous := 0
	streak := 0

	for {
		var count int
		if err := s.primary.Eval(listingCountJS, &count); err != nil {
			return previous, err
		}

		if count >= targetCount {
			s.logger.Info("[gmaps] Reached target: %d businesses rendered", count)
			return count, nil
		}

		var ended bool
		if err := s.primary.Eval(endOfResultsJS, &ended); err == nil && ended {
			s.logger.Info("[gmaps] End of results: %d businesses rendered", count)
			return count, nil
		}

		if count == previous {
			streak++
			if streak >= noChangeLimit {
				s.logger.Warn("[gmaps] No more results loading: %d businesses rendered", count)
				return count, nil
			}
		} else {
			streak = 0
		}
		previous = count

		_ = s.primary.Eval(scrollFeedJS, nil)
		_ = s.primary.Eval(hoverNudgeJS, nil) // best-effort, errors ignored
		s.pace(0.6, 1.2)
	}
}

// newCandidates reads every listing href currently rendered in the feed,
// drops in-batch duplicates while preserving first-seen order, and filters
// out URLs already processed this session.
func (s *Scraper) newCandidates() ([]string, error) {
	var hrefs []string
	if err := s.primary.Eval(listingHrefsJS, &hrefs); err != nil {
		return nil, fmt.Errorf("read listing urls: %w", err)
	}

	seen := make(map[string]struct{}, len(hrefs))
	var fresh []string
	for _, h := range hrefs {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if s.processed.Contains(h) {
			continue
		}
		fresh = append(fresh, h)
	}
	return fresh, nil
}

// hasWebsiteBadge checks the candidate's rendered feed card for a website
// affordance without opening the detail page. Purely a cost-saving
// heuristic for no-website-only runs; the detail page's extracted website
// field is re-checked afterwards and wins on disagreement.
func (s *Scraper) hasWebsiteBadge(candidate string) bool {
	slug := placeSlug(candidate)
	if slug == "" {
		return false
	}

	js := fmt.Sprintf(`(() => {
		const link = document.querySelector('a[href*="' + %q + '"]');
		const card = link ? link.closest('div[role="article"]') : null;
		if (!card) return false;
		return !!(card.querySelector('a[aria-label*="Website"]') ||
		          card.querySelector('button[aria-label*="Website"]'));
	})()`, slug)

	var present bool
	if err := s.primary.Eval(js, &present); err != nil {
		return false
	}
	return present
}

// placeSlug extracts the place name segment from a /maps/place/ URL, used
// to locate the candidate's card in the feed.
func placeSlug(u string) string {
	i := strings.Index(u, "/place/")
	if i < 0 {
		return ""
	}
	rest := u[i+len("/place/"):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// ScrapeAll runs the full session: search, then interleave feed discovery
// with detail-page extraction on a second tab until the result limit is
// met or the feed is exhausted. The returned slice never exceeds
// session.ResultLimit. A non-nil error means the session itself failed
// (no results); per-candidate failures are absorbed.
func (s *Scraper) ScrapeAll(session models.SearchSession) ([]*models.Business, error) {
	results := make([]*models.Business, 0, session.ResultLimit)

	if err := s.search(session); err != nil {
		return results, err
	}

	detail, err := s.newPage()
	if err != nil {
		return results, fmt.Errorf("open detail tab: %w", err)
	}
	defer detail.Close()

	s.logger.Info("[gmaps] Starting scrape — target: %d leads", session.ResultLimit)

	attempts := 0
	for len(results) < session.ResultLimit {
		rendered, err := s.discover(session.ResultLimit * overFetchFactor)
		if err != nil {
			s.logger.Warn("[gmaps] Discovery pass failed: %v", err)
		}

		candidates, err := s.newCandidates()
		if err != nil {
			s.logger.Warn("[gmaps] Candidate collection failed: %v", err)
		}
		if len(candidates) == 0 {
			s.logger.Info("[gmaps] Exhausted all results (%d rendered)", rendered)
			break
		}

		for _, candidate := range candidates {
			if len(results) >= session.ResultLimit {
				break
			}

			// Mark attempted before extracting; failed candidates are never retried.
			s.processed.Add(candidate)
			attempts++

			if session.NoWebsiteOnly && s.hasWebsiteBadge(candidate) {
				s.logger.Debug("[gmaps] Skipping (website badge in feed): %s", candidate)
				continue
			}

			record := s.scrapeListing(detail, candidate)
			switch {
			case record.Failed():
				s.logger.Warn("[gmaps] Extraction failed: %s", candidate)
			case session.NoWebsiteOnly && record.Website != "":
				s.logger.Debug("[gmaps] Skipping %s (has website)", record.Name)
			default:
				results = append(results, record)
				s.logger.Info("[gmaps] [%d/%d] %s", len(results), session.ResultLimit, record.Name)
			}

			s.pace(s.cfg.MinDelaySec, s.cfg.MaxDelaySec)
		}
	}

	s.logger.Info("[gmaps] Scrape complete — %d leads from %d attempts", len(results), attempts)
	return results, nil
}
