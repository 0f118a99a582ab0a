// Package browser owns the Chromium process and the single page the scraper
// drives.
package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Session is one browser with one page. It is not safe for concurrent use;
// every interaction is awaited in order.
type Session struct {
	cfg      config.BrowserConfig
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *slog.Logger
}

// Launch starts Chromium, connects to it and opens a blank page sized to the
// configured viewport.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *slog.Logger) (*Session, error) {
	s := &Session{
		cfg:    cfg,
		logger: logger.With("component", "browser"),
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight))
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	s.launcher = l

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	s.page = page

	s.logger.Info("browser ready",
		"headless", cfg.Headless,
		"viewport", fmt.Sprintf("%dx%d", cfg.ViewportWidth, cfg.ViewportHeight),
		"profile", cfg.UserDataDir,
	)
	return s, nil
}

// Page returns the driven page.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Open navigates to rawURL and waits for the load event, bounded by the
// navigation timeout.
func (s *Session) Open(ctx context.Context, rawURL string) error {
	p := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	if err := p.Navigate(rawURL); err != nil {
		return &types.NavigationError{Op: "open", Target: rawURL, Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		return &types.NavigationError{Op: "load", Target: rawURL, Err: err}
	}
	s.logger.Debug("page opened", "url", rawURL)
	return nil
}

// URL returns the address of the current document, or "" when unknown.
func (s *Session) URL() string {
	info, err := s.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// Screenshot captures the visible viewport as PNG.
func (s *Session) Screenshot() ([]byte, error) {
	return s.page.Screenshot(false, nil)
}

// Close shuts down the browser and releases resources.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		// Cleanup removes the profile directory, so a configured one is kept.
		if s.cfg.UserDataDir == "" {
			s.launcher.Cleanup()
		}
	}
	s.logger.Debug("browser closed")
	return err
}
