package site

import (
	"context"
	"time"

	"github.com/IshaanNene/BrokerScrape/internal/automation"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Pointer position for wheel scrolling, over the listing column.
const (
	wheelX = 640
	wheelY = 400
)

// ScrollDriver advances the infinite-scroll listing by one wheel step and
// waits for lazy loading to settle.
type ScrollDriver struct {
	site   *Site
	delta  int
	settle time.Duration
}

// NewScrollDriver returns the advancer for the scroll mode.
func (s *Site) NewScrollDriver() *ScrollDriver {
	return &ScrollDriver{
		site:   s,
		delta:  s.cfg.Scrape.ScrollDelta,
		settle: s.cfg.Scrape.SettleDelay,
	}
}

// Advance scrolls by the configured delta, then sleeps the settle delay.
func (d *ScrollDriver) Advance(ctx context.Context) error {
	if err := d.site.auto.Wheel(wheelX, wheelY, d.delta); err != nil {
		return &types.NavigationError{Op: "scroll", Target: "listing", Err: err}
	}
	d.site.logger.Debug("scrolled", "delta", d.delta, "settle", d.settle)
	return automation.Sleep(ctx, d.settle)
}
