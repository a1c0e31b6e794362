package gmaps

// CSS selectors and inline scripts used against the maps UI.
// Centralising them makes future updates trivial. Google rotates the
// obfuscated class names regularly, so every field carries a cascade of
// fallbacks ordered most-specific first.

const (
	searchBaseURL = "https://www.google.com/maps/search/"

	// Results feed (the internally-scrollable sidebar list)
	feedSelector        = `div[role="feed"]`
	listingLinkSelector = `a[href*="/maps/place/"]`

	// Detail page
	detailReadySelector = `h1`
)

// strategy is one attempt at extracting a field: read innerText of the
// first element matching Selector, or the named attribute when Attr is set.
type strategy struct {
	Selector string
	Attr     string
}

// Per-field extraction cascades, most reliable selector first.
var (
	nameStrategies = []strategy{
		{Selector: `h1.DUwDvf`},
		{Selector: `h1.fontHeadlineLarge`},
		{Selector: `h1`},
	}
	ratingStrategies = []strategy{
		{Selector: `div.F7nice span:first-child`},
		{Selector: `span.ceNzKf`},
		{Selector: `span.MW4etd`},
	}
	reviewsStrategies = []strategy{
		{Selector: `div.F7nice span:last-child`},
		{Selector: `span.UY7F9`},
		{Selector: `button[jsaction*="reviews"]`},
	}
	categoryStrategies = []strategy{
		{Selector: `button[jsaction*="category"]`},
		{Selector: `span.DkEaL`},
	}
	addressStrategies = []strategy{
		{Selector: `button[data-item-id="address"]`},
		{Selector: `div.rogA2c div.fontBodyMedium`},
	}
	phoneStrategies = []strategy{
		{Selector: `button[data-item-id*="phone:tel"]`},
		{Selector: `a[href^="tel:"]`},
		{Selector: `a[href^="tel:"]`, Attr: "href"},
	}
	websiteStrategies = []strategy{
		{Selector: `a[data-item-id="authority"]`, Attr: "href"},
		{Selector: `a[aria-label*="Website"]`, Attr: "href"},
	}
	hoursStrategies = []strategy{
		{Selector: `div[aria-label*="hours"]`, Attr: "aria-label"},
		{Selector: `div.t39EBf`},
	}
)

// Scripts evaluated against the primary (results feed) tab.
const (
	feedExistsJS = `!!document.querySelector('div[role="feed"]')`

	listingCountJS = `document.querySelectorAll('a[href*="/maps/place/"]').length`

	listingHrefsJS = `Array.from(document.querySelectorAll('a[href*="/maps/place/"]'))` +
		`.map(a => a.href).filter(h => !!h)`

	endOfResultsJS = `(() => {
		const spans = document.querySelectorAll('span');
		for (const s of spans) {
			if (s.textContent && s.textContent.includes("You've reached the end")) {
				return true;
			}
		}
		return false;
	})()`

	// Initial kick after the feed first renders, to start lazy loading.
	kickScrollJS = `(() => {
		const feed = document.querySelector('div[role="feed"]');
		if (feed) feed.scrollTop += 3000;
		return true;
	})()`

	scrollFeedJS = `(() => {
		const feed = document.querySelector('div[role="feed"]');
		if (feed) feed.scrollTop += 5000;
		return true;
	})()`

	// Best-effort nudge: hovering the last rendered card keeps the feed's
	// lazy loader active. Failure here is ignored entirely.
	hoverNudgeJS = `(() => {
		const items = document.querySelectorAll('div[role="feed"] div[role="article"]');
		if (items.length === 0) return false;
		items[items.length - 1].dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
		return true;
	})()`
)
