package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// CSSParser extracts cards using CSS selectors via goquery.
type CSSParser struct {
	sel    config.SelectorsConfig
	logger *slog.Logger
}

// NewCSSParser creates a new CSS selector parser.
func NewCSSParser(sel config.SelectorsConfig, logger *slog.Logger) *CSSParser {
	return &CSSParser{
		sel:    sel,
		logger: logger.With("component", "css_parser"),
	}
}

func (p *CSSParser) Name() string { return "css" }

// ParseCard implements CardParser.
func (p *CSSParser) ParseCard(cardHTML string) (types.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cardHTML))
	if err != nil {
		return types.Record{}, fmt.Errorf("parse card html: %w", err)
	}
	card := doc.Find(p.sel.Card).First()
	if card.Length() == 0 {
		return types.Record{}, fmt.Errorf("no element matches %q", p.sel.Card)
	}
	return p.extractCard(card)
}

// ParseListing implements CardParser.
func (p *CSSParser) ParseListing(html string) ([]types.Record, []error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, []error{fmt.Errorf("parse listing html: %w", err)}
	}

	var records []types.Record
	var errs []error
	doc.Find(p.sel.Card).Each(func(i int, card *goquery.Selection) {
		rec, err := p.extractCard(card)
		if err != nil {
			errs = append(errs, &types.ExtractionError{Index: i, Err: err})
			return
		}
		records = append(records, rec)
	})

	p.logger.Debug("listing parsed", "cards", len(records)+len(errs), "errors", len(errs))
	return records, errs
}

// extractCard reads one card selection.
func (p *CSSParser) extractCard(card *goquery.Selection) (types.Record, error) {
	regions := card.Children()
	if regions.Length() < 2 {
		return types.Record{}, regionError(regions.Length())
	}
	person := regions.Eq(0)
	employer := regions.Eq(1)

	lines := person.Find(p.sel.TextLine)
	rec := types.Record{
		Name:               text(person.Find(p.sel.CardTitle).First()),
		Title:              text(lines.Eq(0)),
		Location:           text(lines.Eq(1)),
		LinkedInProfile:    attr(person.Find(p.sel.LinkedInProfile).First(), "href"),
		AvatarURL:          attr(person.Find(p.sel.Avatar).First(), "src"),
		Company:            text(employer.Find(p.sel.CardTitle).First()),
		LinkedInCompanyURL: attr(employer.Find(p.sel.LinkedInCompany).First(), "href"),
		Email:              text(card.Find(p.sel.Email).First()),
		Phone:              text(card.Find(p.sel.Phone).First()),
	}

	applyTenure(&rec, texts(card.Find(p.sel.DetailLabel)), texts(card.Find(p.sel.DetailValue)))
	return rec, nil
}

func text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

func attr(sel *goquery.Selection, name string) string {
	val, _ := sel.Attr(name)
	return strings.TrimSpace(val)
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}
