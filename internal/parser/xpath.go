package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// XPathParser extracts cards using XPath expressions via htmlquery.
type XPathParser struct {
	sel    config.XPathSelectors
	logger *slog.Logger
}

// NewXPathParser creates a new XPath parser.
func NewXPathParser(sel config.XPathSelectors, logger *slog.Logger) *XPathParser {
	return &XPathParser{
		sel:    sel,
		logger: logger.With("component", "xpath_parser"),
	}
}

func (p *XPathParser) Name() string { return "xpath" }

// ParseCard implements CardParser.
func (p *XPathParser) ParseCard(cardHTML string) (types.Record, error) {
	doc, err := htmlquery.Parse(strings.NewReader(cardHTML))
	if err != nil {
		return types.Record{}, fmt.Errorf("parse card html: %w", err)
	}
	card, err := htmlquery.Query(doc, p.sel.Card)
	if err != nil {
		return types.Record{}, fmt.Errorf("invalid xpath %q: %w", p.sel.Card, err)
	}
	if card == nil {
		return types.Record{}, fmt.Errorf("no element matches %q", p.sel.Card)
	}
	return p.extractCard(card)
}

// ParseListing implements CardParser.
func (p *XPathParser) ParseListing(doc string) ([]types.Record, []error) {
	root, err := htmlquery.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, []error{fmt.Errorf("parse listing html: %w", err)}
	}
	cards, err := htmlquery.QueryAll(root, p.sel.Card)
	if err != nil {
		return nil, []error{fmt.Errorf("invalid xpath %q: %w", p.sel.Card, err)}
	}

	var records []types.Record
	var errs []error
	for i, card := range cards {
		rec, err := p.extractCard(card)
		if err != nil {
			errs = append(errs, &types.ExtractionError{Index: i, Err: err})
			continue
		}
		records = append(records, rec)
	}

	p.logger.Debug("listing parsed", "cards", len(cards), "errors", len(errs))
	return records, errs
}

func (p *XPathParser) extractCard(card *html.Node) (types.Record, error) {
	regions := elementChildren(card)
	if len(regions) < 2 {
		return types.Record{}, regionError(len(regions))
	}
	person, employer := regions[0], regions[1]

	lines, err := htmlquery.QueryAll(person, p.sel.TextLine)
	if err != nil {
		return types.Record{}, fmt.Errorf("invalid xpath %q: %w", p.sel.TextLine, err)
	}

	var rec types.Record
	var firstErr error
	first := func(top *html.Node, expr string) *html.Node {
		n, err := htmlquery.Query(top, expr)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalid xpath %q: %w", expr, err)
		}
		return n
	}

	rec.Name = nodeText(first(person, p.sel.CardTitle))
	rec.Title = nodeText(nth(lines, 0))
	rec.Location = nodeText(nth(lines, 1))
	rec.LinkedInProfile = nodeAttr(first(person, p.sel.LinkedInProfile), "href")
	rec.AvatarURL = nodeAttr(first(person, p.sel.Avatar), "src")
	rec.Company = nodeText(first(employer, p.sel.CardTitle))
	rec.LinkedInCompanyURL = nodeAttr(first(employer, p.sel.LinkedInCompany), "href")
	rec.Email = nodeText(first(card, p.sel.Email))
	rec.Phone = nodeText(first(card, p.sel.Phone))
	if firstErr != nil {
		return types.Record{}, firstErr
	}

	labels, err := htmlquery.QueryAll(card, p.sel.DetailLabel)
	if err != nil {
		return types.Record{}, fmt.Errorf("invalid xpath %q: %w", p.sel.DetailLabel, err)
	}
	values, err := htmlquery.QueryAll(card, p.sel.DetailValue)
	if err != nil {
		return types.Record{}, fmt.Errorf("invalid xpath %q: %w", p.sel.DetailValue, err)
	}
	applyTenure(&rec, nodeTexts(labels), nodeTexts(values))

	return rec, nil
}

// elementChildren returns the direct element children of n.
func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func nth(nodes []*html.Node, i int) *html.Node {
	if i < len(nodes) {
		return nodes[i]
	}
	return nil
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

func nodeAttr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(n, name))
}

func nodeTexts(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeText(n))
	}
	return out
}
