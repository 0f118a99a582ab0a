package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// MaxYearsAtCompany is the "no max" value of the years-at-company select.
const MaxYearsAtCompany = 21

// Validate checks the configuration for invalid values. Every failure is a
// *types.ConfigError.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Browser.StartURL); err != nil {
		return &types.ConfigError{Field: "browser.start_url", Err: err}
	}
	if cfg.Browser.ViewportWidth < 1 || cfg.Browser.ViewportHeight < 1 {
		return types.NewConfigError("browser.viewport", "must be positive, got %dx%d",
			cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	}
	if cfg.Browser.NavigationTimeout <= 0 {
		return types.NewConfigError("browser.navigation_timeout", "must be > 0")
	}
	if cfg.Browser.TabTimeout <= 0 {
		return types.NewConfigError("browser.tab_timeout", "must be > 0")
	}

	switch cfg.Auth.Mode {
	case AuthManual:
	case AuthCredentials:
		if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
			return types.NewConfigError("auth", "credentials mode needs a username and password (BF_USERNAME / BF_PASSWORD)")
		}
	default:
		return types.NewConfigError("auth.mode", "must be %q or %q, got %q", AuthManual, AuthCredentials, cfg.Auth.Mode)
	}
	if cfg.Auth.LoginTimeout <= 0 {
		return types.NewConfigError("auth.login_timeout", "must be > 0")
	}

	if err := validateFilters(cfg.Filters); err != nil {
		return err
	}

	switch cfg.Scrape.Mode {
	case ModeScroll, ModeSearch:
	default:
		return types.NewConfigError("scrape.mode", "must be %q or %q, got %q", ModeScroll, ModeSearch, cfg.Scrape.Mode)
	}
	if cfg.Scrape.SettleDelay < 0 {
		return types.NewConfigError("scrape.settle_delay", "must be >= 0")
	}
	if cfg.Scrape.ScrollDelta < 1 {
		return types.NewConfigError("scrape.scroll_delta", "must be >= 1, got %d", cfg.Scrape.ScrollDelta)
	}
	if cfg.Scrape.MaxCycles < 0 {
		return types.NewConfigError("scrape.max_cycles", "must be >= 0, got %d", cfg.Scrape.MaxCycles)
	}
	if cfg.Scrape.MaxDuration < 0 {
		return types.NewConfigError("scrape.max_duration", "must be >= 0")
	}
	if cfg.Scrape.RevealContact && cfg.Scrape.RevealTimeout <= 0 {
		return types.NewConfigError("scrape.reveal_timeout", "must be > 0 when reveal_contact is on")
	}
	if cfg.Search.Settle < 0 {
		return types.NewConfigError("search.settle", "must be >= 0")
	}

	if cfg.Parser.Engine != "css" && cfg.Parser.Engine != "xpath" {
		return types.NewConfigError("parser.engine", "must be 'css' or 'xpath', got %q", cfg.Parser.Engine)
	}
	if cfg.Selectors.Card == "" || cfg.Selectors.CardTitle == "" {
		return types.NewConfigError("selectors", "card and card_title selectors are required")
	}
	if cfg.Parser.Engine == "xpath" && (cfg.Selectors.XPath.Card == "" || cfg.Selectors.XPath.CardTitle == "") {
		return types.NewConfigError("selectors.xpath", "card and card_title expressions are required with the xpath parser")
	}

	if cfg.Storage.OutputDir == "" {
		return types.NewConfigError("storage.output_dir", "must not be empty")
	}
	if cfg.Storage.SnapshotFile == "" || cfg.Storage.TableFile == "" {
		return types.NewConfigError("storage", "snapshot_file and table_file are required")
	}
	if cfg.Storage.Mongo.URI != "" && (cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "") {
		return types.NewConfigError("storage.mongo", "database and collection are required with a uri")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return types.NewConfigError("logging.level", "must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return types.NewConfigError("logging.format", "must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return types.NewConfigError("metrics.port", "must be 1-65535, got %d", cfg.Metrics.Port)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return types.NewConfigError("metrics.path", "must start with '/', got %q", cfg.Metrics.Path)
		}
	}

	return nil
}

func validateFilters(f FilterConfig) error {
	switch f.CreditUsage {
	case "", CreditAll, CreditUsed, CreditUnused:
	default:
		return types.NewConfigError("filters.credit_usage", "must be all/used/unused, got %q", f.CreditUsage)
	}
	if r := f.YearsAtCompany; r != nil {
		if r.Min < 0 || r.Max > MaxYearsAtCompany || r.Min > r.Max {
			return types.NewConfigError("filters.years_at_company", "want 0 <= min <= max <= %d, got %d..%d",
				MaxYearsAtCompany, r.Min, r.Max)
		}
	}
	if f.Wait <= 0 {
		return types.NewConfigError("filters.wait", "must be > 0")
	}
	return nil
}

// ValidateURL checks that a URL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
