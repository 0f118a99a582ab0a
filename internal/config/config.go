package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Scrape modes.
const (
	ModeScroll = "scroll"
	ModeSearch = "search"
)

// Login modes.
const (
	AuthManual      = "manual"
	AuthCredentials = "credentials"
)

// Credit usage filter values.
const (
	CreditAll    = "all"
	CreditUsed   = "used"
	CreditUnused = "unused"
)

// Config is the root configuration for BrokerScrape.
type Config struct {
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Auth      AuthConfig      `mapstructure:"auth"      yaml:"auth"`
	Filters   FilterConfig    `mapstructure:"filters"   yaml:"filters"`
	Search    SearchConfig    `mapstructure:"search"    yaml:"search"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"    yaml:"scrape"`
	Parser    ParserConfig    `mapstructure:"parser"    yaml:"parser"`
	Selectors SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// BrowserConfig controls the Chromium instance driven by rod.
type BrowserConfig struct {
	StartURL          string        `mapstructure:"start_url"          yaml:"start_url"`
	Headless          bool          `mapstructure:"headless"           yaml:"headless"`
	Bin               string        `mapstructure:"bin"                yaml:"bin"`
	UserDataDir       string        `mapstructure:"user_data_dir"      yaml:"user_data_dir"`
	ViewportWidth     int           `mapstructure:"viewport_width"     yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height"    yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	TabTimeout        time.Duration `mapstructure:"tab_timeout"        yaml:"tab_timeout"`
	PostLoginWait     time.Duration `mapstructure:"post_login_wait"    yaml:"post_login_wait"`
}

// AuthConfig selects how the session gets authenticated.
type AuthConfig struct {
	Mode         string        `mapstructure:"mode"          yaml:"mode"`
	Username     string        `mapstructure:"username"      yaml:"username"`
	Password     string        `mapstructure:"password"      yaml:"-"`
	LoginTimeout time.Duration `mapstructure:"login_timeout" yaml:"login_timeout"`
	TypingDelay  time.Duration `mapstructure:"typing_delay"  yaml:"typing_delay"`
}

// FilterConfig narrows the listing before extraction starts.
type FilterConfig struct {
	CompanyNames   []string `mapstructure:"company_names"    yaml:"company_names"`
	JobTitle       string   `mapstructure:"job_title"        yaml:"job_title"`
	Roles          []string `mapstructure:"roles"            yaml:"roles"`
	Locations      []string `mapstructure:"locations"        yaml:"locations"`
	CreditUsage    string   `mapstructure:"credit_usage"     yaml:"credit_usage"`
	YearsAtCompany *Range   `mapstructure:"years_at_company" yaml:"years_at_company,omitempty"`
	// Wait bounds the wait for the card collection to re-render after a filter.
	Wait time.Duration `mapstructure:"wait" yaml:"wait"`
}

// Range is an inclusive integer interval.
type Range struct {
	Min int `mapstructure:"min" yaml:"min"`
	Max int `mapstructure:"max" yaml:"max"`
}

// Empty reports whether no filter value is set.
func (f FilterConfig) Empty() bool {
	return len(f.CompanyNames) == 0 && f.JobTitle == "" && len(f.Roles) == 0 &&
		len(f.Locations) == 0 && (f.CreditUsage == "" || f.CreditUsage == CreditAll) &&
		f.YearsAtCompany == nil
}

// SearchConfig drives the per-name search variant.
type SearchConfig struct {
	Terms     []string      `mapstructure:"terms"      yaml:"terms"`
	TermsFile string        `mapstructure:"terms_file" yaml:"terms_file"`
	Settle    time.Duration `mapstructure:"settle"     yaml:"settle"`
}

// ScrapeConfig controls the extraction loop.
type ScrapeConfig struct {
	Mode          string        `mapstructure:"mode"           yaml:"mode"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"   yaml:"settle_delay"`
	ScrollDelta   int           `mapstructure:"scroll_delta"   yaml:"scroll_delta"`
	ExtractFirst  bool          `mapstructure:"extract_first"  yaml:"extract_first"`
	MaxCycles     int           `mapstructure:"max_cycles"     yaml:"max_cycles"`
	MaxDuration   time.Duration `mapstructure:"max_duration"   yaml:"max_duration"`
	RevealContact bool          `mapstructure:"reveal_contact" yaml:"reveal_contact"`
	RevealTimeout time.Duration `mapstructure:"reveal_timeout" yaml:"reveal_timeout"`
	RevealSettle  time.Duration `mapstructure:"reveal_settle"  yaml:"reveal_settle"`
}

// ParserConfig selects the card parser implementation.
type ParserConfig struct {
	Engine string `mapstructure:"engine" yaml:"engine"` // css, xpath
}

// SelectorsConfig holds the CSS selectors of the target listing.
type SelectorsConfig struct {
	Card            string `mapstructure:"card"             yaml:"card"`
	ContactsTab     string `mapstructure:"contacts_tab"     yaml:"contacts_tab"`
	CardTitle       string `mapstructure:"card_title"       yaml:"card_title"`
	TextLine        string `mapstructure:"text_line"        yaml:"text_line"`
	Email           string `mapstructure:"email"            yaml:"email"`
	Phone           string `mapstructure:"phone"            yaml:"phone"`
	LinkedInProfile string `mapstructure:"linkedin_profile" yaml:"linkedin_profile"`
	LinkedInCompany string `mapstructure:"linkedin_company" yaml:"linkedin_company"`
	Avatar          string `mapstructure:"avatar"           yaml:"avatar"`
	DetailLabel     string `mapstructure:"detail_label"     yaml:"detail_label"`
	DetailValue     string `mapstructure:"detail_value"     yaml:"detail_value"`
	RevealButton    string `mapstructure:"reveal_button"    yaml:"reveal_button"`
	SearchInput     string `mapstructure:"search_input"     yaml:"search_input"`
	// XPath is used instead of the card fields above when parser.engine is xpath.
	XPath XPathSelectors `mapstructure:"xpath" yaml:"xpath"`
}

// XPathSelectors holds the XPath expressions of the listing. Card is
// evaluated against the document; the rest are relative to a card or region.
type XPathSelectors struct {
	Card            string `mapstructure:"card"             yaml:"card"`
	CardTitle       string `mapstructure:"card_title"       yaml:"card_title"`
	TextLine        string `mapstructure:"text_line"        yaml:"text_line"`
	Email           string `mapstructure:"email"            yaml:"email"`
	Phone           string `mapstructure:"phone"            yaml:"phone"`
	LinkedInProfile string `mapstructure:"linkedin_profile" yaml:"linkedin_profile"`
	LinkedInCompany string `mapstructure:"linkedin_company" yaml:"linkedin_company"`
	Avatar          string `mapstructure:"avatar"           yaml:"avatar"`
	DetailLabel     string `mapstructure:"detail_label"     yaml:"detail_label"`
	DetailValue     string `mapstructure:"detail_value"     yaml:"detail_value"`
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	OutputDir    string      `mapstructure:"output_dir"    yaml:"output_dir"`
	SnapshotFile string      `mapstructure:"snapshot_file" yaml:"snapshot_file"`
	TableFile    string      `mapstructure:"table_file"    yaml:"table_file"`
	CSVPhone     bool        `mapstructure:"csv_phone"     yaml:"csv_phone"`
	Mongo        MongoConfig `mapstructure:"mongo"         yaml:"mongo"`
}

// MongoConfig enables the optional MongoDB sink when URI is set.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultSelectors returns the selectors of the broker contacts listing.
func DefaultSelectors() SelectorsConfig {
	return SelectorsConfig{
		Card:            `div[data-testid="card-container"]`,
		ContactsTab:     "Broker Contacts",
		CardTitle:       `[data-testid="card-title"]`,
		TextLine:        "p.ds_typography-text.sm.regular",
		Email:           `[data-testid="visible-email"]`,
		Phone:           `[data-testid="visible-phone"]`,
		LinkedInProfile: `a[href*="linkedin.com/in"]`,
		LinkedInCompany: `a[href*="linkedin.com/company"]`,
		Avatar:          "img.ds_avatar",
		DetailLabel:     `[data-testid="description-label"]`,
		DetailValue:     `[data-testid="description-value"]`,
		RevealButton:    "Get Contact",
		SearchInput:     `input[placeholder="Search broker contacts"]`,
		XPath:           DefaultXPathSelectors(),
	}
}

// DefaultXPathSelectors returns the XPath form of the default card selectors.
func DefaultXPathSelectors() XPathSelectors {
	return XPathSelectors{
		Card:      `//div[@data-testid="card-container"]`,
		CardTitle: `.//*[@data-testid="card-title"]`,
		TextLine: `.//p[contains(concat(" ", normalize-space(@class), " "), " ds_typography-text ")` +
			` and contains(concat(" ", normalize-space(@class), " "), " sm ")` +
			` and contains(concat(" ", normalize-space(@class), " "), " regular ")]`,
		Email:           `.//*[@data-testid="visible-email"]`,
		Phone:           `.//*[@data-testid="visible-phone"]`,
		LinkedInProfile: `.//a[contains(@href, "linkedin.com/in")]`,
		LinkedInCompany: `.//a[contains(@href, "linkedin.com/company")]`,
		Avatar:          `.//img[contains(concat(" ", normalize-space(@class), " "), " ds_avatar ")]`,
		DetailLabel:     `.//*[@data-testid="description-label"]`,
		DetailValue:     `.//*[@data-testid="description-value"]`,
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			StartURL:          "https://benefit-flow.com/Search",
			Headless:          false,
			ViewportWidth:     1280,
			ViewportHeight:    1000,
			NavigationTimeout: 60 * time.Second,
			TabTimeout:        30 * time.Second,
			PostLoginWait:     5 * time.Second,
		},
		Auth: AuthConfig{
			Mode:         AuthManual,
			LoginTimeout: 5 * time.Minute,
			TypingDelay:  120 * time.Millisecond,
		},
		Filters: FilterConfig{
			CreditUsage: CreditAll,
			Wait:        15 * time.Second,
		},
		Search: SearchConfig{
			Settle: 5 * time.Second,
		},
		Scrape: ScrapeConfig{
			Mode:          ModeScroll,
			SettleDelay:   10 * time.Second,
			ScrollDelta:   800,
			RevealTimeout: 5 * time.Second,
			RevealSettle:  500 * time.Millisecond,
		},
		Parser: ParserConfig{
			Engine: "css",
		},
		Selectors: DefaultSelectors(),
		Storage: StorageConfig{
			OutputDir:    "./output",
			SnapshotFile: "data.json",
			TableFile:    "data.csv",
			CSVPhone:     true,
			Mongo: MongoConfig{
				Database:   "brokerscrape",
				Collection: "contacts",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
