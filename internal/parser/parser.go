// Package parser turns rendered listing cards into contact records.
//
// A card is split into two regions: the first child holds the person
// (name, title, location, profile link, avatar) and the second child holds
// the employer (company name, company link). Title and location share one
// text class and are told apart by position only, and the tenure figures are
// read by zipping parallel label/value lists. Both are positional, so a
// markup change can silently move values between fields; that knowledge is
// kept inside this package.
package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Tenure labels matched case-insensitively against the card's detail labels.
const (
	LabelYearsInRole    = "yrs. in role"
	LabelYearsAtCompany = "yrs. at company"
)

// CardParser extracts records from card markup.
type CardParser interface {
	// ParseCard extracts the record held by the outer HTML of one card.
	ParseCard(cardHTML string) (types.Record, error)

	// ParseListing extracts every card of a listing document in DOM order.
	// Cards that fail are reported in errs and left out of records.
	ParseListing(html string) (records []types.Record, errs []error)

	// Name returns the parser identifier.
	Name() string
}

// New returns the parser for the configured engine ("css" or "xpath"). The
// xpath engine reads sel.XPath.
func New(engine string, sel config.SelectorsConfig, logger *slog.Logger) (CardParser, error) {
	switch engine {
	case "", "css":
		return NewCSSParser(sel, logger), nil
	case "xpath":
		return NewXPathParser(sel.XPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown parser engine %q", engine)
	}
}

// applyTenure fills the tenure fields from parallel label/value lists.
// The first label matching each figure wins, even when its value is empty.
func applyTenure(rec *types.Record, labels, values []string) {
	var inRole, atCompany bool
	for i, label := range labels {
		if i >= len(values) {
			break
		}
		text := strings.ToLower(strings.TrimSpace(label))
		if !inRole && strings.Contains(text, LabelYearsInRole) {
			rec.YearsInRole = strings.TrimSpace(values[i])
			inRole = true
		}
		if !atCompany && strings.Contains(text, LabelYearsAtCompany) {
			rec.YearsAtCompany = strings.TrimSpace(values[i])
			atCompany = true
		}
	}
}

func regionError(n int) error {
	return fmt.Errorf("card has %d regions, want at least 2", n)
}
