package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (BROKERSCRAPE_SCRAPE_SETTLE_DELAY=...).
const EnvPrefix = "BROKERSCRAPE"

// Load reads configuration from file, environment, and a local .env file.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials also come from the variables the site tooling always used.
	_ = v.BindEnv("auth.username", EnvPrefix+"_AUTH_USERNAME", "BF_USERNAME")
	_ = v.BindEnv("auth.password", EnvPrefix+"_AUTH_PASSWORD", "BF_PASSWORD")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("brokerscrape")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".brokerscrape"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding the real environment.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// ReadTerms reads newline-delimited search terms. Blank lines and lines
// starting with '#' are skipped.
func ReadTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terms file: %w", err)
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read terms file: %w", err)
	}
	return terms, nil
}

// ResolveTerms merges inline terms with the terms file, keeping order and
// dropping repeats.
func ResolveTerms(cfg SearchConfig) ([]string, error) {
	terms := append([]string(nil), cfg.Terms...)
	if cfg.TermsFile != "" {
		fromFile, err := ReadTerms(cfg.TermsFile)
		if err != nil {
			return nil, err
		}
		terms = append(terms, fromFile...)
	}

	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out, nil
}

// setDefaults registers default values in viper so env overrides bind.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("browser.start_url", cfg.Browser.StartURL)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)
	v.SetDefault("browser.viewport_width", cfg.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", cfg.Browser.ViewportHeight)
	v.SetDefault("browser.navigation_timeout", cfg.Browser.NavigationTimeout)
	v.SetDefault("browser.tab_timeout", cfg.Browser.TabTimeout)
	v.SetDefault("browser.post_login_wait", cfg.Browser.PostLoginWait)

	v.SetDefault("auth.mode", cfg.Auth.Mode)
	v.SetDefault("auth.login_timeout", cfg.Auth.LoginTimeout)
	v.SetDefault("auth.typing_delay", cfg.Auth.TypingDelay)

	v.SetDefault("filters.company_names", cfg.Filters.CompanyNames)
	v.SetDefault("filters.job_title", cfg.Filters.JobTitle)
	v.SetDefault("filters.roles", cfg.Filters.Roles)
	v.SetDefault("filters.locations", cfg.Filters.Locations)
	v.SetDefault("filters.credit_usage", cfg.Filters.CreditUsage)
	v.SetDefault("filters.wait", cfg.Filters.Wait)

	v.SetDefault("search.terms", cfg.Search.Terms)
	v.SetDefault("search.terms_file", cfg.Search.TermsFile)
	v.SetDefault("search.settle", cfg.Search.Settle)

	v.SetDefault("scrape.mode", cfg.Scrape.Mode)
	v.SetDefault("scrape.settle_delay", cfg.Scrape.SettleDelay)
	v.SetDefault("scrape.scroll_delta", cfg.Scrape.ScrollDelta)
	v.SetDefault("scrape.extract_first", cfg.Scrape.ExtractFirst)
	v.SetDefault("scrape.max_cycles", cfg.Scrape.MaxCycles)
	v.SetDefault("scrape.max_duration", cfg.Scrape.MaxDuration)
	v.SetDefault("scrape.reveal_contact", cfg.Scrape.RevealContact)
	v.SetDefault("scrape.reveal_timeout", cfg.Scrape.RevealTimeout)
	v.SetDefault("scrape.reveal_settle", cfg.Scrape.RevealSettle)

	v.SetDefault("parser.engine", cfg.Parser.Engine)

	v.SetDefault("selectors.card", cfg.Selectors.Card)
	v.SetDefault("selectors.contacts_tab", cfg.Selectors.ContactsTab)
	v.SetDefault("selectors.card_title", cfg.Selectors.CardTitle)
	v.SetDefault("selectors.text_line", cfg.Selectors.TextLine)
	v.SetDefault("selectors.email", cfg.Selectors.Email)
	v.SetDefault("selectors.phone", cfg.Selectors.Phone)
	v.SetDefault("selectors.linkedin_profile", cfg.Selectors.LinkedInProfile)
	v.SetDefault("selectors.linkedin_company", cfg.Selectors.LinkedInCompany)
	v.SetDefault("selectors.avatar", cfg.Selectors.Avatar)
	v.SetDefault("selectors.detail_label", cfg.Selectors.DetailLabel)
	v.SetDefault("selectors.detail_value", cfg.Selectors.DetailValue)
	v.SetDefault("selectors.reveal_button", cfg.Selectors.RevealButton)
	v.SetDefault("selectors.search_input", cfg.Selectors.SearchInput)
	xp := cfg.Selectors.XPath
	v.SetDefault("selectors.xpath.card", xp.Card)
	v.SetDefault("selectors.xpath.card_title", xp.CardTitle)
	v.SetDefault("selectors.xpath.text_line", xp.TextLine)
	v.SetDefault("selectors.xpath.email", xp.Email)
	v.SetDefault("selectors.xpath.phone", xp.Phone)
	v.SetDefault("selectors.xpath.linkedin_profile", xp.LinkedInProfile)
	v.SetDefault("selectors.xpath.linkedin_company", xp.LinkedInCompany)
	v.SetDefault("selectors.xpath.avatar", xp.Avatar)
	v.SetDefault("selectors.xpath.detail_label", xp.DetailLabel)
	v.SetDefault("selectors.xpath.detail_value", xp.DetailValue)

	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.snapshot_file", cfg.Storage.SnapshotFile)
	v.SetDefault("storage.table_file", cfg.Storage.TableFile)
	v.SetDefault("storage.csv_phone", cfg.Storage.CSVPhone)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
