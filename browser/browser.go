package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"gmaps-scraper/config"
	"gmaps-scraper/utils"
)

// Browser owns one Chrome process and its allocator. Tabs opened from it
// share the same browsing context (cookies, session state), which is what
// lets detail pages load in a second tab without disturbing the results
// feed in the first.
type Browser struct {
	logger      *utils.Logger
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// Launch starts a Chrome instance with the scraping flags applied.
func Launch(cfg *config.Config, logger *utils.Logger) (*Browser, error) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser process eagerly so launch failures surface here.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	return &Browser{
		logger:      logger,
		allocCancel: cancelAlloc,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Page returns the browser's initial tab.
func (b *Browser) Page() *Page {
	return &Page{ctx: b.ctx, cancel: func() {}}
}

// NewPage opens an additional tab sharing the browser's cookie/session state.
func (b *Browser) NewPage() (*Page, error) {
	ctx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("browser: new tab: %w", err)
	}
	return &Page{ctx: ctx, cancel: cancel}, nil
}

// Close shuts down the browser and all its tabs.
func (b *Browser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

// Page is one navigable, DOM-queryable browser tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Navigate loads the given URL, waiting up to timeout for the load to settle.
func (p *Page) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector matches a visible element or the
// timeout elapses.
func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: wait for %q: %w", selector, err)
	}
	return nil
}

const evalTimeout = 10 * time.Second

// Eval runs an inline script against the page, unmarshalling its result
// into out. Pass nil to discard the result.
func (p *Page) Eval(js string, out any) error {
	ctx, cancel := context.WithTimeout(p.ctx, evalTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Evaluate(js, out)); err != nil {
		return fmt.Errorf("browser: evaluate: %w", err)
	}
	return nil
}

// Text returns the trimmed inner text of the first element matching the
// selector, or "" if none matches.
func (p *Page) Text(selector string) (string, error) {
	var text string
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.innerText.trim() : "";
	})()`, selector)
	if err := p.Eval(js, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Attr returns the named attribute of the first element matching the
// selector, or "" if the element or attribute is missing.
func (p *Page) Attr(selector, name string) (string, error) {
	var val string
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? (el.getAttribute(%q) || "") : "";
	})()`, selector, name)
	if err := p.Eval(js, &val); err != nil {
		return "", err
	}
	return val, nil
}

// Location returns the page's current URL (post-redirect).
func (p *Page) Location() (string, error) {
	var u string
	ctx, cancel := context.WithTimeout(p.ctx, evalTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("browser: location: %w", err)
	}
	return u, nil
}

// Close closes the tab. Closing the initial tab is a no-op; the browser
// owns its lifecycle.
func (p *Page) Close() error {
	p.cancel()
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
