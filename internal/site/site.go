// Package site drives the broker contacts listing: login, the contacts tab,
// filters, the search box, scrolling and card reading. It is the only
// package that knows the page beyond the selectors in config.
package site

import (
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/IshaanNene/BrokerScrape/internal/automation"
	"github.com/IshaanNene/BrokerScrape/internal/config"
)

// Site bundles the page helpers with the configuration they act on.
type Site struct {
	auto   *automation.BrowserAutomation
	cfg    *config.Config
	logger *slog.Logger
}

// New wraps page for the listing described by cfg.
func New(page *rod.Page, cfg *config.Config, logger *slog.Logger) *Site {
	return &Site{
		auto:   automation.NewBrowserAutomation(page, logger),
		cfg:    cfg,
		logger: logger.With("component", "site"),
	}
}

