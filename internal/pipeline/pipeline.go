package pipeline

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop the record.
	Process(rec *types.Record) (*types.Record, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Standard returns the cleanup chain applied to every extracted card:
// text normalization, mailto stripping, link resolution against base, then the validity
// filter. base may be nil when links are already absolute.
func Standard(logger *slog.Logger, base *url.URL) *Pipeline {
	p := New(logger)
	p.Use(&SanitizeMiddleware{})
	p.Use(&MailtoMiddleware{})
	p.Use(&URLResolveMiddleware{Base: base})
	p.Use(&RequiredAnyMiddleware{Fields: []string{"name", "company"}})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.Record) (*types.Record, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %s: %w", mw.Name(), err)
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "record", rec.String())
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Run processes a batch, keeping input order. Dropped records are counted,
// and a record whose processing fails is reported and skipped.
func (p *Pipeline) Run(batch []types.Record) (kept []types.Record, dropped int, errs []error) {
	kept = make([]types.Record, 0, len(batch))
	for i := range batch {
		rec := batch[i]
		out, err := p.Process(&rec)
		if err != nil {
			errs = append(errs, &types.ExtractionError{Index: i, Err: err})
			continue
		}
		if out == nil {
			dropped++
			continue
		}
		kept = append(kept, *out)
	}
	return kept, dropped, errs
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// stringFields returns pointers to every text field of rec.
func stringFields(rec *types.Record) []*string {
	return []*string{
		&rec.Name, &rec.Title, &rec.Location, &rec.Email, &rec.Phone,
		&rec.Company, &rec.LinkedInProfile, &rec.LinkedInCompanyURL,
		&rec.AvatarURL, &rec.YearsInRole, &rec.YearsAtCompany,
	}
}

// fieldByKey resolves a snapshot key to the matching record field.
func fieldByKey(rec *types.Record, key string) (*string, bool) {
	switch key {
	case "name":
		return &rec.Name, true
	case "title":
		return &rec.Title, true
	case "location":
		return &rec.Location, true
	case "email":
		return &rec.Email, true
	case "phone":
		return &rec.Phone, true
	case "company":
		return &rec.Company, true
	case "linkedin_profile":
		return &rec.LinkedInProfile, true
	case "linkedin_company":
		return &rec.LinkedInCompanyURL, true
	case "avatar":
		return &rec.AvatarURL, true
	case "yearsInRole":
		return &rec.YearsInRole, true
	case "yearsAtCompany":
		return &rec.YearsAtCompany, true
	}
	return nil, false
}
