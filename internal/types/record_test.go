package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRecordValid(t *testing.T) {
	tests := []struct {
		rec  Record
		want bool
	}{
		{Record{Name: "Jane Doe"}, true},
		{Record{Company: "Acme"}, true},
		{Record{Email: "a@x.com", Title: "Broker"}, false},
		{Record{}, false},
	}
	for _, tt := range tests {
		if got := tt.rec.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.rec, got, tt.want)
		}
	}
}

func TestRecordSameEntity(t *testing.T) {
	a := Record{Email: "a@x.com"}
	if !a.SameEntity(Record{Email: "a@x.com", Name: "Other"}) {
		t.Error("same email should match")
	}
	p := Record{LinkedInProfile: "https://linkedin.com/in/jane"}
	if !p.SameEntity(Record{Email: "z@x.com", LinkedInProfile: "https://linkedin.com/in/jane"}) {
		t.Error("same profile should match")
	}
	if (Record{Name: "Jane"}).SameEntity(Record{Name: "Jane"}) {
		t.Error("records without email or profile must never match")
	}
	if a.SameEntity(Record{Email: "b@x.com"}) {
		t.Error("different emails should not match")
	}
}

func TestRecordJSONNulls(t *testing.T) {
	data, err := json.Marshal(Record{Name: "Jane Doe", YearsInRole: "3"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"name":"Jane Doe"`, `"company":null`, `"email":null`, `"yearsInRole":"3"`, `"linkedin_profile":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

func TestColumns(t *testing.T) {
	withPhone := Columns(true)
	if len(withPhone) != 11 {
		t.Fatalf("expected 11 columns, got %d", len(withPhone))
	}
	if withPhone[3].Header != "Phone" || withPhone[4].Header != "Email" {
		t.Errorf("phone column should precede email, got %q, %q", withPhone[3].Header, withPhone[4].Header)
	}
	without := Columns(false)
	if len(without) != 10 {
		t.Fatalf("expected 10 columns, got %d", len(without))
	}
	for _, c := range without {
		if c.Header == "Phone" {
			t.Error("phone column present when disabled")
		}
	}
	rec := Record{YearsAtCompany: "7"}
	if got := without[len(without)-1].Value(rec); got != "7" {
		t.Errorf("last column value = %q, want 7", got)
	}
}

func TestRecordFieldsOmitsEmpty(t *testing.T) {
	f := Record{Name: "Jane", Email: "j@x.com"}.Fields()
	if len(f) != 2 || f["name"] != "Jane" || f["email"] != "j@x.com" {
		t.Errorf("unexpected fields: %v", f)
	}
}

func TestErrorKinds(t *testing.T) {
	inner := errors.New("boom")
	tests := []struct {
		err  error
		kind error
	}{
		{NewConfigError("auth", "missing"), ErrConfiguration},
		{&AuthError{Step: "password", Err: inner}, ErrAuthentication},
		{&NavigationError{Op: "open tab", Err: inner}, ErrNavigationTimeout},
		{&ExtractionError{Index: 1, Err: inner}, ErrExtraction},
		{&StorageError{Backend: "csv", Err: inner}, ErrPersistence},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.kind) {
			t.Errorf("%v should match %v", tt.err, tt.kind)
		}
		if errors.Is(tt.err, ErrPersistence) && tt.kind != ErrPersistence {
			t.Errorf("%v should not match ErrPersistence", tt.err)
		}
	}
	if !errors.Is(&AuthError{Step: "x", Err: inner}, inner) {
		t.Error("wrapped cause should be reachable")
	}
}
