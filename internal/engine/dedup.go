package engine

import (
	"slices"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Deduplicator tracks the identities of accepted records. A record is a
// duplicate when its email or its LinkedIn profile was seen before; records
// carrying neither are always new.
//
// The orchestrator is the only writer, so no locking is done.
type Deduplicator struct {
	emails   map[string]struct{}
	profiles map[string]struct{}
}

// NewDeduplicator creates a new Deduplicator with the given estimated capacity.
func NewDeduplicator(estimatedCapacity int) *Deduplicator {
	return &Deduplicator{
		emails:   make(map[string]struct{}, estimatedCapacity),
		profiles: make(map[string]struct{}, estimatedCapacity),
	}
}

// IsSeen reports whether rec matches an identity already marked.
func (d *Deduplicator) IsSeen(rec types.Record) bool {
	if rec.Email != "" {
		if _, ok := d.emails[rec.Email]; ok {
			return true
		}
	}
	if rec.LinkedInProfile != "" {
		if _, ok := d.profiles[rec.LinkedInProfile]; ok {
			return true
		}
	}
	return false
}

// MarkSeen records the identities of rec.
func (d *Deduplicator) MarkSeen(rec types.Record) {
	if rec.Email != "" {
		d.emails[rec.Email] = struct{}{}
	}
	if rec.LinkedInProfile != "" {
		d.profiles[rec.LinkedInProfile] = struct{}{}
	}
}

// Filter returns the candidates not seen before, in input order, and marks
// them. A candidate matching an earlier candidate of the same batch is
// dropped as well.
func (d *Deduplicator) Filter(candidates []types.Record) []types.Record {
	fresh := make([]types.Record, 0, len(candidates))
	for _, rec := range candidates {
		if d.IsSeen(rec) {
			continue
		}
		d.MarkSeen(rec)
		fresh = append(fresh, rec)
	}
	return fresh
}

// Count returns the number of distinct identities marked.
func (d *Deduplicator) Count() int {
	return len(d.emails) + len(d.profiles)
}

// Anonymous counts the records that carry no identity and so can never be
// recognised as duplicates.
func Anonymous(records []types.Record) int {
	n := 0
	for _, rec := range records {
		if !rec.HasIdentity() {
			n++
		}
	}
	return n
}

// Dedupe returns the candidates that match no record of existing.
func Dedupe(existing, candidates []types.Record) []types.Record {
	d := NewDeduplicator(len(existing))
	for _, rec := range existing {
		d.MarkSeen(rec)
	}
	return d.Filter(candidates)
}

// ResultSet is the ordered, append-only collection of accepted records of
// one run.
type ResultSet struct {
	records []types.Record
}

// Append adds records to the end of the set.
func (s *ResultSet) Append(records ...types.Record) {
	s.records = append(s.records, records...)
}

// Len returns the number of records held.
func (s *ResultSet) Len() int {
	return len(s.records)
}

// Records returns the records in acceptance order. The returned slice has
// no spare capacity, so appending to it never touches the set.
func (s *ResultSet) Records() []types.Record {
	return slices.Clip(s.records)
}
