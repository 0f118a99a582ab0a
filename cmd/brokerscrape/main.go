package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/logging"
	"github.com/IshaanNene/BrokerScrape/internal/types"
	"github.com/IshaanNene/BrokerScrape/pkg/brokerscrape"
)

var (
	cfgFile      string
	verbose      bool
	outputDir    string
	headless     bool
	parserEngine string
	settleDelay  time.Duration
	maxCycles    int
	maxDuration  time.Duration
	extractFirst bool
	reveal       bool
	termsFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "brokerscrape",
		Short: "BrokerScrape collects broker contacts from the contacts listing",
		Long: `BrokerScrape drives a Chromium session through the broker contacts listing and
collects every contact card into a JSON snapshot and a CSV table.

Modes:
  scroll   apply the configured filters, then scroll until no new contacts appear
  search   search each name and collect the matching cards`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrollCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// addRunFlags registers the flags shared by the scrape commands.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for data.json and data.csv")
	cmd.Flags().BoolVar(&headless, "headless", false, "run Chromium without a window (credential login only)")
	cmd.Flags().StringVar(&parserEngine, "parser", "", "card parser: css or xpath")
	cmd.Flags().DurationVar(&settleDelay, "settle", 0, "wait after each scroll step")
	cmd.Flags().IntVar(&maxCycles, "max-cycles", 0, "stop after this many cycles (0 = unbounded)")
	cmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "stop after this long (0 = unbounded)")
	cmd.Flags().BoolVar(&extractFirst, "extract-first", false, "extract before the first scroll")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "press each card's Get Contact button before reading it")
}

// scrollCmd creates the "scroll" subcommand.
func scrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scroll",
		Short: "Apply filters and scroll the listing to the end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, config.ModeScroll, nil)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search each term and collect the matching contacts",
		Long: `Search each term in the listing's search box and collect the matching cards.
Terms come from the arguments, search.terms in the config file and --terms-file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, config.ModeSearch, args)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringVar(&termsFile, "terms-file", "", "newline-delimited file of search terms")
	return cmd
}

// runScrape loads the configuration, runs the scrape and prints the summary.
func runScrape(cmd *cobra.Command, mode string, terms []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return &types.ConfigError{Field: "config", Err: err}
	}
	applyCLIOverrides(cmd, cfg)

	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return &types.ConfigError{Field: "logging", Err: err}
	}
	defer logger.Sync()

	runner, err := brokerscrape.New(cfg,
		brokerscrape.WithLogger(logger.Logger),
		brokerscrape.WithMode(mode),
		brokerscrape.WithTerms(terms...),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx)
	if ctx.Err() != nil {
		logger.Info("interrupted by signal")
	}
	if summary != nil {
		renderSummary(os.Stdout, runner, summary)
	}
	return err
}

// applyCLIOverrides applies the flags the user set on top of the config.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Storage.OutputDir = outputDir
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("parser") {
		cfg.Parser.Engine = parserEngine
	}
	if flags.Changed("settle") {
		cfg.Scrape.SettleDelay = settleDelay
	}
	if flags.Changed("max-cycles") {
		cfg.Scrape.MaxCycles = maxCycles
	}
	if flags.Changed("max-duration") {
		cfg.Scrape.MaxDuration = maxDuration
	}
	if flags.Changed("extract-first") {
		cfg.Scrape.ExtractFirst = extractFirst
	}
	if flags.Changed("reveal") {
		cfg.Scrape.RevealContact = reveal
	}
	if flags.Lookup("terms-file") != nil && flags.Changed("terms-file") {
		cfg.Search.TermsFile = termsFile
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("BrokerScrape %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return &types.ConfigError{Field: "config", Err: err}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nwarning: %v\n", err)
			}
			return nil
		},
	}
}

// exitCode maps a fault kind to the process exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 130
	case errors.Is(err, types.ErrConfiguration):
		return 2
	case errors.Is(err, types.ErrAuthentication):
		return 3
	case errors.Is(err, types.ErrNavigationTimeout):
		return 4
	default:
		return 1
	}
}
