package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/uabbasi/good-measure-giving/internal/log"
)

// MinContentLength is the minimum visible text length for a static fetch to
// count as rendered. Shorter pages are likely JavaScript-only shells.
const MinContentLength = 500

// ShouldUseBrowser reports whether a page's static HTML came back
// effectively empty and needs a headless browser to render.
func ShouldUseBrowser(visibleText string) bool {
	return len(strings.TrimSpace(visibleText)) < MinContentLength
}

// Render loads a page in a headless browser and returns the rendered HTML.
// Requires Chrome or Chromium on the host.
func Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	logger := log.WithComponent("fetch")
	logger.Debug().Str("url", url).Msg("rendering page in headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give client-side rendering a moment to fill the page in.
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug().Str("url", url).Int("bytes", len(html)).Msg("rendered page")
	return html, nil
}
