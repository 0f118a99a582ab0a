package pipeline

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// --- Built-in Middleware ---

// SanitizeMiddleware decodes HTML entities and collapses whitespace runs in
// every field. Card text often spans several lines in the markup.
type SanitizeMiddleware struct{}

func (m *SanitizeMiddleware) Name() string { return "sanitize" }

func (m *SanitizeMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, f := range stringFields(rec) {
		if *f == "" {
			continue
		}
		*f = strings.Join(strings.Fields(html.UnescapeString(*f)), " ")
	}
	return rec, nil
}

// URLResolveMiddleware turns relative links into absolute ones against Base.
// Links that do not parse are left as extracted.
type URLResolveMiddleware struct {
	Base *url.URL
}

func (m *URLResolveMiddleware) Name() string { return "url_resolve" }

func (m *URLResolveMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if m.Base == nil {
		return rec, nil
	}
	for _, f := range []*string{&rec.LinkedInProfile, &rec.LinkedInCompanyURL, &rec.AvatarURL} {
		if *f == "" {
			continue
		}
		ref, err := url.Parse(*f)
		if err != nil || ref.IsAbs() {
			continue
		}
		*f = m.Base.ResolveReference(ref).String()
	}
	return rec, nil
}

// RequiredAnyMiddleware drops records where every listed field is empty.
type RequiredAnyMiddleware struct {
	Fields []string
}

func (m *RequiredAnyMiddleware) Name() string { return "required_any" }

func (m *RequiredAnyMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, key := range m.Fields {
		f, ok := fieldByKey(rec, key)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		if *f != "" {
			return rec, nil
		}
	}
	return nil, nil
}

// MailtoMiddleware strips a "mailto:" scheme and any query from the email
// field, which appears when the address is read from a link.
type MailtoMiddleware struct{}

func (m *MailtoMiddleware) Name() string { return "mailto" }

func (m *MailtoMiddleware) Process(rec *types.Record) (*types.Record, error) {
	email := rec.Email
	if len(email) >= 7 && strings.EqualFold(email[:7], "mailto:") {
		email = email[7:]
	}
	if i := strings.IndexByte(email, '?'); i >= 0 {
		email = email[:i]
	}
	rec.Email = strings.TrimSpace(email)
	return rec, nil
}
