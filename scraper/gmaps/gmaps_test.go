package gmaps

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gmaps-scraper/config"
	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

// fakeFeed scripts the primary (results feed) tab. Eval dispatches on the
// script constants the engine uses.
type fakeFeed struct {
	feedMissing bool
	counts      []int // listingCountJS returns counts[i], repeating the last
	countCalls  int
	ended       bool
	hrefs       []string
	badges      map[string]bool // place slug → website badge present in card
	navErr      error
	waitErr     error
	scrolls     int
	navigated   []string
}

func (f *fakeFeed) Navigate(url string, _ time.Duration) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeFeed) WaitVisible(string, time.Duration) error { return f.waitErr }

func (f *fakeFeed) Eval(js string, out any) error {
	switch js {
	case feedExistsJS:
		*(out.(*bool)) = !f.feedMissing
	case listingCountJS:
		idx := f.countCalls
		if idx >= len(f.counts) {
			idx = len(f.counts) - 1
		}
		f.countCalls++
		if idx < 0 {
			*(out.(*int)) = 0
			return nil
		}
		*(out.(*int)) = f.counts[idx]
	case endOfResultsJS:
		*(out.(*bool)) = f.ended
	case listingHrefsJS:
		*(out.(*[]string)) = append([]string(nil), f.hrefs...)
	case kickScrollJS, scrollFeedJS:
		f.scrolls++
	case hoverNudgeJS:
		// nudge is fire-and-forget
	default:
		// website badge probe embeds the place slug
		present := false
		for slug, badge := range f.badges {
			if strings.Contains(js, slug) {
				present = badge
			}
		}
		if b, ok := out.(*bool); ok {
			*b = present
		}
	}
	return nil
}

func (f *fakeFeed) Text(string) (string, error)         { return "", nil }
func (f *fakeFeed) Attr(string, string) (string, error) { return "", nil }
func (f *fakeFeed) Location() (string, error)           { return "", nil }
func (f *fakeFeed) Close() error                        { return nil }

// detailStub scripts one candidate's detail page.
type detailStub struct {
	name    string
	rating  string
	reviews string
	website string
	navErr  error
	waitErr error
}

// fakeDetail scripts the secondary tab used for detail extraction.
type fakeDetail struct {
	pages     map[string]detailStub
	current   string
	navigated []string
	closed    bool
}

func (f *fakeDetail) Navigate(url string, _ time.Duration) error {
	f.navigated = append(f.navigated, url)
	f.current = url
	return f.pages[url].navErr
}

func (f *fakeDetail) WaitVisible(string, time.Duration) error {
	return f.pages[f.current].waitErr
}

func (f *fakeDetail) Text(selector string) (string, error) {
	st := f.pages[f.current]
	switch selector {
	case `h1.DUwDvf`:
		return st.name, nil
	case `div.F7nice span:first-child`:
		return st.rating, nil
	case `div.F7nice span:last-child`:
		return st.reviews, nil
	}
	return "", nil
}

func (f *fakeDetail) Attr(selector, name string) (string, error) {
	if selector == `a[data-item-id="authority"]` && name == "href" {
		return f.pages[f.current].website, nil
	}
	return "", nil
}

func (f *fakeDetail) Eval(string, any) error { return nil }

func (f *fakeDetail) Location() (string, error) { return f.current, nil }

func (f *fakeDetail) Close() error {
	f.closed = true
	return nil
}

func newTestScraper(t *testing.T, feed *fakeFeed, detail *fakeDetail) *Scraper {
	t.Helper()
	cfg := &config.Config{MaxRetries: 1}
	s := New(cfg, utils.NewLogger(), feed, func() (Page, error) {
		if detail == nil {
			return nil, errors.New("no detail tab in this test")
		}
		return detail, nil
	})
	s.pace = func(minSec, maxSec float64) {}
	return s
}

func placeURL(name string) string {
	return "https://www.google.com/maps/place/" + name + "/data=!4m2"
}

func TestDiscoverStallsAfterThreeUnchangedIterations(t *testing.T) {
	feed := &fakeFeed{counts: []int{5}}
	s := newTestScraper(t, feed, nil)

	rendered, err := s.discover(100)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if rendered != 5 {
		t.Errorf("rendered: got %d, want 5", rendered)
	}
	// One initial measurement plus exactly three unchanged repeats.
	if feed.countCalls != 4 {
		t.Errorf("count queries: got %d, want 4 (stall exactly on the third repeat)", feed.countCalls)
	}
}

func TestDiscoverStreakResetsOnGrowth(t *testing.T) {
	feed := &fakeFeed{counts: []int{5, 5, 5, 6}}
	s := newTestScraper(t, feed, nil)

	rendered, err := s.discover(100)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if rendered != 6 {
		t.Errorf("rendered: got %d, want 6", rendered)
	}
	// 5 (change), 5, 5 (two repeats), 6 (reset), then three 6-repeats.
	if feed.countCalls != 7 {
		t.Errorf("count queries: got %d, want 7", feed.countCalls)
	}
}

func TestDiscoverStopsAtTarget(t *testing.T) {
	feed := &fakeFeed{counts: []int{5, 12}}
	s := newTestScraper(t, feed, nil)

	rendered, err := s.discover(10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if rendered != 12 {
		t.Errorf("rendered: got %d, want 12", rendered)
	}
	if feed.countCalls != 2 {
		t.Errorf("count queries: got %d, want 2", feed.countCalls)
	}
}

func TestDiscoverStopsAtEndMarker(t *testing.T) {
	feed := &fakeFeed{counts: []int{7}, ended: true}
	s := newTestScraper(t, feed, nil)

	rendered, err := s.discover(100)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if rendered != 7 {
		t.Errorf("rendered: got %d, want 7", rendered)
	}
	if feed.scrolls != 0 {
		t.Errorf("expected no scrolling past the end marker, got %d scrolls", feed.scrolls)
	}
}

func TestDiscoverFailsWithoutFeed(t *testing.T) {
	feed := &fakeFeed{feedMissing: true}
	s := newTestScraper(t, feed, nil)

	if _, err := s.discover(10); !errors.Is(err, errNoFeed) {
		t.Errorf("expected errNoFeed, got %v", err)
	}
}

func TestNewCandidatesDeduplicates(t *testing.T) {
	a, b, c := placeURL("Cafe+A"), placeURL("Cafe+B"), placeURL("Cafe+C")
	feed := &fakeFeed{hrefs: []string{a, b, a, c, b}}
	s := newTestScraper(t, feed, nil)
	s.processed.Add(b)

	got, err := s.newCandidates()
	if err != nil {
		t.Fatalf("newCandidates: %v", err)
	}
	want := []string{a, c}
	if len(got) != len(want) {
		t.Fatalf("candidates: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidates[%d]: got %q, want %q (first-seen order)", i, got[i], want[i])
		}
	}
}

func TestScrapeAllNeverExceedsLimit(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	hrefs := make([]string, 0, len(names))
	pages := make(map[string]detailStub, len(names))
	for _, n := range names {
		u := placeURL("Cafe+" + n)
		hrefs = append(hrefs, u)
		pages[u] = detailStub{name: "Cafe " + n, rating: "4.5", reviews: "(1,234)"}
	}
	// One rendered entry repeats — dedup must visit it once.
	hrefs = append(hrefs, hrefs[0])

	feed := &fakeFeed{counts: []int{12}, hrefs: hrefs}
	detail := &fakeDetail{pages: pages}
	s := newTestScraper(t, feed, detail)

	results, err := s.ScrapeAll(testSession(10, false))
	if err != nil {
		t.Fatalf("ScrapeAll: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("emitted: got %d, want 10", len(results))
	}
	for _, r := range results {
		if r.Failed() {
			t.Errorf("emitted record without name: %q", r.SourceURL)
		}
	}
	if len(detail.navigated) != 10 {
		t.Errorf("detail navigations: got %d, want 10", len(detail.navigated))
	}
	if !detail.closed {
		t.Error("secondary tab must be closed when the session ends")
	}
}

func TestScrapeAllExhaustsWhenFeedStopsGrowing(t *testing.T) {
	a, b := placeURL("Cafe+A"), placeURL("Cafe+B")
	feed := &fakeFeed{counts: []int{2}, hrefs: []string{a, b}}
	detail := &fakeDetail{pages: map[string]detailStub{
		a: {name: "Cafe A"},
		b: {name: "Cafe B"},
	}}
	s := newTestScraper(t, feed, detail)

	results, err := s.ScrapeAll(testSession(5, false))
	if err != nil {
		t.Fatalf("ScrapeAll: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("emitted: got %d, want 2 (exhausted gracefully)", len(results))
	}
	if !detail.closed {
		t.Error("secondary tab must be closed on exhaustion")
	}
}

func TestScrapeAllFailedCandidateIsProcessedNotRetried(t *testing.T) {
	a, b := placeURL("Cafe+A"), placeURL("Broken+B")
	feed := &fakeFeed{counts: []int{2}, hrefs: []string{a, b}}
	detail := &fakeDetail{pages: map[string]detailStub{
		a: {name: "Cafe A"},
		b: {waitErr: errors.New("heading never appeared")},
	}}
	s := newTestScraper(t, feed, detail)

	results, err := s.ScrapeAll(testSession(5, false))
	if err != nil {
		t.Fatalf("ScrapeAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("emitted: got %d, want 1", len(results))
	}
	if !s.processed.Contains(b) {
		t.Error("failed candidate must still enter the processed set")
	}
	visits := 0
	for _, u := range detail.navigated {
		if u == b {
			visits++
		}
	}
	if visits != 1 {
		t.Errorf("failed candidate visited %d times, want exactly 1", visits)
	}
}

func TestScrapeAllNoWebsiteFilter(t *testing.T) {
	badge := placeURL("Badged+A")  // website badge visible in the feed card
	hidden := placeURL("Hidden+B") // no badge, but the detail page reveals a site
	lead := placeURL("Lead+C")     // genuinely website-less

	feed := &fakeFeed{
		counts: []int{3},
		hrefs:  []string{badge, hidden, lead},
		badges: map[string]bool{"Badged+A": true},
	}
	detail := &fakeDetail{pages: map[string]detailStub{
		hidden: {name: "Hidden B", website: "https://hidden-b.example"},
		lead:   {name: "Lead C"},
	}}
	s := newTestScraper(t, feed, detail)

	results, err := s.ScrapeAll(testSession(5, true))
	if err != nil {
		t.Fatalf("ScrapeAll: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Lead C" {
		t.Fatalf("emitted: got %v, want only Lead C", names(results))
	}
	for _, u := range detail.navigated {
		if u == badge {
			t.Error("badged candidate must be skipped without opening the detail tab")
		}
	}
}

func TestScrapeAllSearchFailureReturnsEmpty(t *testing.T) {
	feed := &fakeFeed{navErr: errors.New("network down")}
	opened := false
	cfg := &config.Config{MaxRetries: 1}
	s := New(cfg, utils.NewLogger(), feed, func() (Page, error) {
		opened = true
		return &fakeDetail{}, nil
	})
	s.pace = func(minSec, maxSec float64) {}

	results, err := s.ScrapeAll(testSession(5, false))
	if err == nil {
		t.Fatal("expected a session failure")
	}
	if len(results) != 0 {
		t.Errorf("emitted: got %d, want 0", len(results))
	}
	if opened {
		t.Error("secondary tab must not be opened when the search fails")
	}
}

func testSession(limit int, noWebsiteOnly bool) models.SearchSession {
	return models.SearchSession{
		Query:         "coffee shops",
		Location:      "Manhattan, NY",
		ResultLimit:   limit,
		NoWebsiteOnly: noWebsiteOnly,
	}
}

func names(results []*models.Business) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}
