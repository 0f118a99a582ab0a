package types

import (
	"encoding/json"
	"strings"
)

// Record is a single broker/company contact extracted from one listing card.
// An empty string means the field was absent on the card.
type Record struct {
	Name               string
	Title              string
	Location           string
	Email              string
	Phone              string
	Company            string
	LinkedInProfile    string
	LinkedInCompanyURL string
	AvatarURL          string

	// YearsInRole and YearsAtCompany are kept as displayed ("3", "5+").
	YearsInRole    string
	YearsAtCompany string
}

// Valid reports whether the record carries enough data to be kept:
// a person name or a company name.
func (r Record) Valid() bool {
	return r.Name != "" || r.Company != ""
}

// SameEntity reports whether r and other describe the same contact.
// Two records match when they share a non-empty email or a non-empty
// LinkedIn profile. Records with neither never match anything.
func (r Record) SameEntity(other Record) bool {
	if r.Email != "" && r.Email == other.Email {
		return true
	}
	return r.LinkedInProfile != "" && r.LinkedInProfile == other.LinkedInProfile
}

// HasIdentity reports whether the record can ever be recognised as a duplicate.
func (r Record) HasIdentity() bool {
	return r.Email != "" || r.LinkedInProfile != ""
}

// recordJSON mirrors Record with the artifact keys used by the snapshot file.
type recordJSON struct {
	Name               *string `json:"name"`
	Title              *string `json:"title"`
	Location           *string `json:"location"`
	Phone              *string `json:"phone"`
	Email              *string `json:"email"`
	Company            *string `json:"company"`
	LinkedInProfile    *string `json:"linkedin_profile"`
	LinkedInCompanyURL *string `json:"linkedin_company"`
	AvatarURL          *string `json:"avatar"`
	YearsInRole        *string `json:"yearsInRole"`
	YearsAtCompany     *string `json:"yearsAtCompany"`
}

// MarshalJSON encodes absent fields as null.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Name:               nullable(r.Name),
		Title:              nullable(r.Title),
		Location:           nullable(r.Location),
		Phone:              nullable(r.Phone),
		Email:              nullable(r.Email),
		Company:            nullable(r.Company),
		LinkedInProfile:    nullable(r.LinkedInProfile),
		LinkedInCompanyURL: nullable(r.LinkedInCompanyURL),
		AvatarURL:          nullable(r.AvatarURL),
		YearsInRole:        nullable(r.YearsInRole),
		YearsAtCompany:     nullable(r.YearsAtCompany),
	})
}

// Column describes one column of the tabular export.
type Column struct {
	Header string
	Value  func(Record) string
}

// Columns returns the tabular layout. The phone column is optional because
// listings without revealed contacts never carry one.
func Columns(withPhone bool) []Column {
	cols := []Column{
		{"Name", func(r Record) string { return r.Name }},
		{"Title", func(r Record) string { return r.Title }},
		{"Location", func(r Record) string { return r.Location }},
	}
	if withPhone {
		cols = append(cols, Column{"Phone", func(r Record) string { return r.Phone }})
	}
	return append(cols,
		Column{"Email", func(r Record) string { return r.Email }},
		Column{"Company", func(r Record) string { return r.Company }},
		Column{"LinkedIn Profile", func(r Record) string { return r.LinkedInProfile }},
		Column{"Company LinkedIn", func(r Record) string { return r.LinkedInCompanyURL }},
		Column{"Avatar URL", func(r Record) string { return r.AvatarURL }},
		Column{"Years in Role", func(r Record) string { return r.YearsInRole }},
		Column{"Years at Company", func(r Record) string { return r.YearsAtCompany }},
	)
}

// Fields returns the record as a flat map keyed by the snapshot keys.
// Absent fields are omitted.
func (r Record) Fields() map[string]string {
	all := map[string]string{
		"name":             r.Name,
		"title":            r.Title,
		"location":         r.Location,
		"phone":            r.Phone,
		"email":            r.Email,
		"company":          r.Company,
		"linkedin_profile": r.LinkedInProfile,
		"linkedin_company": r.LinkedInCompanyURL,
		"avatar":           r.AvatarURL,
		"yearsInRole":      r.YearsInRole,
		"yearsAtCompany":   r.YearsAtCompany,
	}
	for k, v := range all {
		if v == "" {
			delete(all, k)
		}
	}
	return all
}

// String returns a short human label for log lines.
func (r Record) String() string {
	parts := make([]string, 0, 2)
	if r.Name != "" {
		parts = append(parts, r.Name)
	}
	if r.Company != "" {
		parts = append(parts, "@ "+r.Company)
	}
	if len(parts) == 0 {
		return "<empty>"
	}
	return strings.Join(parts, " ")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
