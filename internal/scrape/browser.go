// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # Browser Rendering

// challengeMarkers appear in interstitial pages while a JS challenge is
// still unsolved.
var challengeMarkers = []string{
	"Just a moment",
	"Bir dakika",
	"Checking your browser",
	"cf-browser-verification",
}

const challengePollInterval = 500 * time.Millisecond

// browserFetcher renders a chapter page in a real browser so JS
// challenges can resolve before extraction. Every fetch launches its own
// browser; instances are not shared across chapters.
type browserFetcher struct {
	bin      string
	headless bool
	wait     time.Duration
	logger   *slog.Logger
}

func newBrowserFetcher(bin string, headless bool, wait time.Duration, logger *slog.Logger) *browserFetcher {
	if wait <= 0 {
		wait = DefaultChallengeWait
	}
	return &browserFetcher{
		bin:      bin,
		headless: headless,
		wait:     wait,
		logger:   logger,
	}
}

/*
FetchHTML renders pageURL and returns the DOM snapshot once any JS
challenge has cleared.

Parameters:
  - context: context.Context
  - pageURL: string (chapter URL)

Returns:
  - string: Serialized DOM after challenge completion
  - error: Blocked when challenge markers persist past the wait budget
*/
func (fetcher *browserFetcher) FetchHTML(context context.Context, pageURL string) (string, error) {
	launch := launcher.New().Headless(fetcher.headless)
	if fetcher.bin != "" {
		launch = launch.Bin(fetcher.bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return "", fmt.Errorf("scrape: failed to launch browser: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(context)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("scrape: failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", apperr.Upstream("scrape: failed to open chapter page", err)
	}
	defer page.Close()

	// Challenge interstitials may never fire the load event; the snapshot
	// loop below decides when the page is usable.
	_ = page.Timeout(fetcher.wait).WaitLoad()

	return fetcher.awaitSnapshot(context, page, pageURL)
}

// awaitSnapshot polls the DOM until the challenge markers disappear or
// the wait budget runs out.
func (fetcher *browserFetcher) awaitSnapshot(context context.Context, page *rod.Page, pageURL string) (string, error) {
	deadline := time.Now().Add(fetcher.wait)
	logged := false

	for {
		html, err := page.HTML()
		if err != nil {
			return "", apperr.Upstream("scrape: failed to snapshot chapter page", err)
		}
		if !looksChallenged(html) {
			return html, nil
		}
		if !logged {
			fetcher.logger.Debug("scrape_challenge_detected", slog.String("url", pageURL))
			logged = true
		}
		if time.Now().After(deadline) {
			return "", apperr.Blocked("scrape: challenge page did not clear in time")
		}

		select {
		case <-context.Done():
			return "", context.Err()
		case <-time.After(challengePollInterval):
		}
	}
}

func looksChallenged(html string) bool {
	for _, marker := range challengeMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}
