package playwright

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"
)

// LaunchOptions configure a standalone Chromium session.
type LaunchOptions struct {
	URL      string
	Headless bool
	Width    int
	Height   int
}

// Session owns the Playwright process, browser, and page behind a Driver.
type Session struct {
	*Driver
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Launch starts Playwright, opens Chromium, and navigates to opts.URL.
func Launch(opts LaunchOptions, logger *slog.Logger) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	ctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Width,
			Height: opts.Height,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.URL != "" {
		if _, err := page.Goto(opts.URL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
		}); err != nil {
			browser.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to navigate to %s: %w", opts.URL, err)
		}
	}

	return &Session{
		Driver:  New(page, logger),
		pw:      pw,
		browser: browser,
	}, nil
}

// Close shuts down the browser and the Playwright process.
func (s *Session) Close() error {
	return errors.Join(s.browser.Close(), s.pw.Stop())
}
