package pipeline

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"testing"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&SanitizeMiddleware{})

	rec := &types.Record{Name: "  Jane \n   Doe  ", Company: "Smith &amp; Co"}

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Name != "Jane Doe" {
		t.Errorf("expected collapsed name, got %q", result.Name)
	}
	if result.Company != "Smith & Co" {
		t.Errorf("expected decoded company, got %q", result.Company)
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 middleware, got %d", p.Len())
	}
}

func TestRequiredAnyMiddleware(t *testing.T) {
	m := &RequiredAnyMiddleware{Fields: []string{"name", "company"}}

	// Name only: kept even without company, email or profile.
	result, err := m.Process(&types.Record{Name: "Jane Doe"})
	if err != nil || result == nil {
		t.Error("record with a name should pass")
	}

	result, err = m.Process(&types.Record{Company: "Acme"})
	if err != nil || result == nil {
		t.Error("record with a company should pass")
	}

	// Neither name nor company: dropped even with other data.
	result, err = m.Process(&types.Record{Email: "a@x.com", Title: "Broker"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Error("record without name and company should be dropped (nil)")
	}
}

func TestRequiredAnyUnknownField(t *testing.T) {
	m := &RequiredAnyMiddleware{Fields: []string{"nickname"}}
	if _, err := m.Process(&types.Record{Name: "Jane"}); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestURLResolveMiddleware(t *testing.T) {
	m := &URLResolveMiddleware{Base: mustParse(t, "https://benefit-flow.com/Search?tab=contacts")}
	rec := &types.Record{
		AvatarURL:       "/avatars/jane.png",
		LinkedInProfile: "https://www.linkedin.com/in/jane",
	}

	result, err := m.Process(rec)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.AvatarURL != "https://benefit-flow.com/avatars/jane.png" {
		t.Errorf("expected resolved avatar, got %q", result.AvatarURL)
	}
	if result.LinkedInProfile != "https://www.linkedin.com/in/jane" {
		t.Errorf("absolute link should be unchanged, got %q", result.LinkedInProfile)
	}
	if result.LinkedInCompanyURL != "" {
		t.Errorf("empty link should stay empty, got %q", result.LinkedInCompanyURL)
	}
}

func TestURLResolveNilBase(t *testing.T) {
	m := &URLResolveMiddleware{}
	result, _ := m.Process(&types.Record{AvatarURL: "/a.png"})
	if result.AvatarURL != "/a.png" {
		t.Errorf("expected link untouched, got %q", result.AvatarURL)
	}
}

func TestMailtoMiddleware(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"mailto:jane@acme.com", "jane@acme.com"},
		{"MAILTO:jane@acme.com?subject=hi", "jane@acme.com"},
		{"jane@acme.com", "jane@acme.com"},
		{"", ""},
	}
	m := &MailtoMiddleware{}
	for _, tt := range tests {
		result, _ := m.Process(&types.Record{Email: tt.input})
		if result.Email != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, result.Email)
		}
	}
}

func TestStandardRun(t *testing.T) {
	p := Standard(testLogger, mustParse(t, "https://benefit-flow.com/Search"))
	batch := []types.Record{
		{Name: " Jane Doe ", AvatarURL: "/j.png"},
		{Title: "Orphan", Location: "Nowhere"},
		{Company: "Acme", Email: "mailto:ops@acme.com"},
	}

	kept, dropped, errs := p.Run(batch)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", dropped)
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if kept[0].Name != "Jane Doe" || kept[0].AvatarURL != "https://benefit-flow.com/j.png" {
		t.Errorf("unexpected first record: %+v", kept[0])
	}
	if kept[1].Email != "ops@acme.com" {
		t.Errorf("unexpected second record: %+v", kept[1])
	}
	if batch[0].Name != " Jane Doe " {
		t.Error("Run must not modify the input batch")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }
func (failingMiddleware) Process(*types.Record) (*types.Record, error) {
	return nil, errors.New("boom")
}

func TestRunReportsStageErrors(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	kept, _, errs := p.Run([]types.Record{{Name: "a"}, {Name: "b"}})
	if len(kept) != 0 {
		t.Errorf("expected nothing kept, got %d", len(kept))
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if !errors.Is(errs[1], types.ErrExtraction) {
		t.Error("stage errors should be extraction faults")
	}
}
