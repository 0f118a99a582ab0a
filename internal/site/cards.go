package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/BrokerScrape/internal/automation"
	"github.com/IshaanNene/BrokerScrape/internal/engine"
	"github.com/IshaanNene/BrokerScrape/internal/parser"
	"github.com/IshaanNene/BrokerScrape/internal/pipeline"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// CardReader extracts the cards currently rendered on the listing.
type CardReader struct {
	site   *Site
	parser parser.CardParser
	logger *slog.Logger
}

// NewCardReader returns a reader that parses cards with p.
func (s *Site) NewCardReader(p parser.CardParser) *CardReader {
	return &CardReader{
		site:   s,
		parser: p,
		logger: s.logger.With("parser", p.Name()),
	}
}

// Extract reads every card present in the DOM, in DOM order. When contact
// reveal is on, each card's reveal button is pressed before it is read.
func (r *CardReader) Extract(ctx context.Context) (engine.Batch, error) {
	page := r.site.auto.Page().Context(ctx)
	base := pageBase(page)

	if !r.site.cfg.Scrape.RevealContact {
		html, err := page.HTML()
		if err != nil {
			return engine.Batch{}, fmt.Errorf("read listing: %w", err)
		}
		return ReadListing(r.parser, html, base, r.logger), nil
	}

	cards, err := page.Elements(r.site.cfg.Selectors.Card)
	if err != nil {
		return engine.Batch{}, fmt.Errorf("list cards: %w", err)
	}

	var (
		records []types.Record
		errs    []error
	)
	for i, card := range cards {
		card = card.Context(ctx)
		if err := r.reveal(ctx, card); err != nil {
			if ctx.Err() != nil {
				return engine.Batch{}, ctx.Err()
			}
			r.logger.Debug("reveal failed", "card", i, "error", err)
		}
		html, err := card.HTML()
		if err != nil {
			errs = append(errs, &types.ExtractionError{Index: i, Err: err})
			continue
		}
		rec, err := r.parser.ParseCard(html)
		if err != nil {
			errs = append(errs, &types.ExtractionError{Index: i, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return assemble(records, errs, len(cards), base, r.logger), nil
}

// reveal presses the card's reveal button, if it has one, and waits for the
// email or phone to show up. A reveal that shows nothing is not an error.
func (r *CardReader) reveal(ctx context.Context, card *rod.Element) error {
	sel := r.site.cfg.Selectors
	buttons, err := card.Elements("button")
	if err != nil {
		return err
	}

	var button *rod.Element
	for _, b := range buttons {
		text, err := b.Text()
		if err == nil && strings.TrimSpace(text) == sel.RevealButton {
			button = b
			break
		}
	}
	if button == nil {
		return nil
	}

	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click reveal: %w", err)
	}
	marker := sel.Email + ", " + sel.Phone
	if _, err := card.Timeout(r.site.cfg.Scrape.RevealTimeout).Element(marker); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Debug("reveal showed no contact details")
	}
	return automation.Sleep(ctx, r.site.cfg.Scrape.RevealSettle)
}

// ReadListing parses a rendered listing document into a batch. Relative
// links are resolved against base.
func ReadListing(p parser.CardParser, html string, base *url.URL, logger *slog.Logger) engine.Batch {
	records, errs := p.ParseListing(html)
	return assemble(records, errs, len(records)+len(errs), base, logger)
}

// assemble normalises parsed records and drops the ones without a name or
// company.
func assemble(records []types.Record, errs []error, cards int, base *url.URL, logger *slog.Logger) engine.Batch {
	kept, dropped, stageErrs := pipeline.Standard(logger, base).Run(records)
	if dropped > 0 {
		logger.Debug("invalid cards dropped", "count", dropped)
	}
	return engine.Batch{
		Records: kept,
		Cards:   cards,
		Errors:  append(errs, stageErrs...),
	}
}

func pageBase(page *rod.Page) *url.URL {
	info, err := page.Info()
	if err != nil || info == nil {
		return nil
	}
	u, err := url.Parse(info.URL)
	if err != nil {
		return nil
	}
	return u
}
