package site

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/IshaanNene/BrokerScrape/internal/automation"
	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Filter panel markup.
const (
	suggestionList = `[data-testid^="auto-complete-component-options"]:not(.hidden)`
	creditRadios   = `input[type="radio"][name^="radio-filter-"]`
	yearsSelects   = `div.ds_collapsible-open-content select[data-testid="years-at-company-filter-start-input"]`
)

// Filter panel timings.
const (
	expandSettle      = 700 * time.Millisecond
	filterTypingDelay = 50 * time.Millisecond
	filterInputWait   = 10 * time.Second
	suggestionWait    = 8 * time.Second
	suggestionSettle  = time.Second
	betweenFilters    = time.Second
)

// autocompleteFilter is a collapsible section holding a free-text input
// backed by a suggestion list.
type autocompleteFilter struct {
	Section string
	Input   string
}

var (
	companyNameFilter = autocompleteFilter{"Company Name", `.ds_collapsible input.ds_input[placeholder="e.g. Mercer"]`}
	locationFilter    = autocompleteFilter{"Location", `input[data-testid="hq-location-filter-input"]`}
	roleFilter        = autocompleteFilter{"Role", `.ds_collapsible input.ds_input[placeholder="e.g. Producer"]`}
	jobTitleFilter    = autocompleteFilter{"Job Title", `.ds_collapsible input.ds_input[placeholder="e.g Consultant"]`}
)

// filterStep is one filter application, in the order the panel expects.
type filterStep struct {
	Name  string
	Value string
	apply func(ctx context.Context) error
}

// ApplyFilters narrows the listing. Values are applied in a fixed order:
// company names, locations, roles, job title, credit usage, years at company.
// A filter input or suggestion list that never shows up is fatal; a listing
// that stays empty after a filter is accepted as zero results.
func (s *Site) ApplyFilters(ctx context.Context, f config.FilterConfig) error {
	if f.Empty() {
		s.logger.Debug("no filters configured")
		return nil
	}

	steps := s.filterSteps(f)

	for _, step := range steps {
		s.logger.Info("applying filter", "filter", step.Name, "value", step.Value)
		if err := step.apply(ctx); err != nil {
			return fmt.Errorf("apply %s filter %q: %w", step.Name, step.Value, err)
		}
		if err := automation.Sleep(ctx, betweenFilters); err != nil {
			return err
		}
	}
	s.logger.Info("filters applied", "count", len(steps))
	return nil
}

func (s *Site) filterSteps(f config.FilterConfig) []filterStep {
	var steps []filterStep
	add := func(name string, filter autocompleteFilter, values ...string) {
		for _, v := range values {
			if v == "" {
				continue
			}
			steps = append(steps, filterStep{Name: name, Value: v, apply: func(ctx context.Context) error {
				return s.applyAutocomplete(ctx, filter, v)
			}})
		}
	}

	add("company", companyNameFilter, f.CompanyNames...)
	add("location", locationFilter, f.Locations...)
	add("role", roleFilter, f.Roles...)
	add("job_title", jobTitleFilter, f.JobTitle)

	if f.CreditUsage != "" && f.CreditUsage != config.CreditAll {
		steps = append(steps, filterStep{Name: "credit_usage", Value: f.CreditUsage, apply: func(ctx context.Context) error {
			return s.applyCreditUsage(ctx, f.CreditUsage)
		}})
	}
	if r := f.YearsAtCompany; r != nil {
		steps = append(steps, filterStep{
			Name:  "years_at_company",
			Value: fmt.Sprintf("%d-%d", r.Min, r.Max),
			apply: func(ctx context.Context) error {
				return s.applyYearsAtCompany(ctx, *r)
			},
		})
	}
	return steps
}

// expandSection opens the collapsible whose text contains label.
func (s *Site) expandSection(ctx context.Context, label string) error {
	_, err := s.auto.EvalJS(ctx, `(label) => {
		const section = Array.from(document.querySelectorAll('.ds_collapsible'))
			.find((sec) => sec.innerText.includes(label));
		if (section && section.classList.contains('closed')) {
			const button = section.querySelector('.ds_collapsible-button');
			if (button) button.click();
		}
	}`, label)
	if err != nil {
		return fmt.Errorf("expand %q: %w", label, err)
	}
	return automation.Sleep(ctx, expandSettle)
}

func (s *Site) applyAutocomplete(ctx context.Context, f autocompleteFilter, value string) error {
	if err := s.expandSection(ctx, f.Section); err != nil {
		return err
	}
	if err := s.auto.TypeSlowly(ctx, f.Input, value, filterTypingDelay, filterInputWait); err != nil {
		return err
	}
	if err := s.auto.WaitForAny(ctx, suggestionList, suggestionWait); err != nil {
		return err
	}
	if err := automation.Sleep(ctx, suggestionSettle); err != nil {
		return err
	}
	if err := s.auto.PressEnter(); err != nil {
		return fmt.Errorf("select suggestion: %w", err)
	}
	return s.waitForResults(ctx)
}

// CreditRadioValue maps a credit usage option to the radio input value.
func CreditRadioValue(usage string) (string, error) {
	switch usage {
	case "", config.CreditAll:
		return "", nil
	case config.CreditUsed:
		return "purchased", nil
	case config.CreditUnused:
		return "not_purchased", nil
	default:
		return "", types.NewConfigError("filters.credit_usage", "invalid option %q", usage)
	}
}

func (s *Site) applyCreditUsage(ctx context.Context, usage string) error {
	value, err := CreditRadioValue(usage)
	if err != nil {
		return err
	}
	if err := s.expandSection(ctx, "Credit Usage"); err != nil {
		return err
	}

	res, err := s.auto.EvalJS(ctx, `(selector, value) => {
		const radio = Array.from(document.querySelectorAll(selector)).find((r) => r.value === value);
		if (!radio) return false;
		radio.click();
		return true;
	}`, creditRadios, value)
	if err != nil {
		return fmt.Errorf("click credit radio: %w", err)
	}
	if !res.Value.Bool() {
		return &types.NavigationError{Op: "find credit radio", Target: value, Err: errors.New("no radio with that value")}
	}

	if err := automation.Sleep(ctx, time.Second); err != nil {
		return err
	}
	return s.waitForResults(ctx)
}

func (s *Site) applyYearsAtCompany(ctx context.Context, r config.Range) error {
	if err := s.expandSection(ctx, "Years At Company"); err != nil {
		return err
	}
	if err := s.auto.WaitForAny(ctx, yearsSelects, filterInputWait); err != nil {
		return err
	}
	selects, err := s.auto.Page().Context(ctx).Elements(yearsSelects)
	if err != nil {
		return fmt.Errorf("list year selects: %w", err)
	}
	if len(selects) < 2 {
		return &types.NavigationError{Op: "find year selects", Target: yearsSelects,
			Err: fmt.Errorf("found %d, want 2", len(selects))}
	}

	if err := s.auto.SelectByValue(selects[0], strconv.Itoa(r.Min)); err != nil {
		return fmt.Errorf("select min years: %w", err)
	}
	if err := s.auto.SelectByValue(selects[1], strconv.Itoa(r.Max)); err != nil {
		return fmt.Errorf("select max years: %w", err)
	}
	return s.waitForResults(ctx)
}

// waitForResults waits for the listing to re-render after a filter. Zero
// matching cards is a valid outcome.
func (s *Site) waitForResults(ctx context.Context) error {
	err := s.auto.WaitForAny(ctx, s.cfg.Selectors.Card, s.cfg.Filters.Wait)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.Warn("no cards after filter, continuing with an empty listing", "wait", s.cfg.Filters.Wait)
	return nil
}
