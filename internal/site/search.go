package site

import (
	"context"
	"time"

	"github.com/IshaanNene/BrokerScrape/internal/automation"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

const (
	searchTypingDelay = 60 * time.Millisecond
	searchBeforeEnter = 500 * time.Millisecond
)

// SearchBox replaces the listing with the results of one term at a time.
type SearchBox struct {
	site *Site
}

// NewSearchBox returns the searcher for the search mode.
func (s *Site) NewSearchBox() *SearchBox {
	return &SearchBox{site: s}
}

// Search clears the search input, types term, submits it and waits a fixed
// settle delay. A term without results is not an error.
func (b *SearchBox) Search(ctx context.Context, term string) error {
	cfg := b.site.cfg
	b.site.logger.Info("searching", "term", term)

	if err := b.site.auto.TypeSlowly(ctx, cfg.Selectors.SearchInput, term,
		searchTypingDelay, cfg.Browser.NavigationTimeout); err != nil {
		return err
	}
	if err := automation.Sleep(ctx, searchBeforeEnter); err != nil {
		return err
	}
	if err := b.site.auto.PressEnter(); err != nil {
		return &types.NavigationError{Op: "submit search", Target: term, Err: err}
	}
	return automation.Sleep(ctx, cfg.Search.Settle)
}
