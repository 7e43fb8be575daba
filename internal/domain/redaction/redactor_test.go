package redaction

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/internal/testutil"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

func TestToNonNominal(t *testing.T) {
	r := NewDefaultRedactor(fhir.NewSequenceGenerator("subject"))
	src := testutil.NotifiedPerson(fhirmodels.TierNominal)

	got, err := r.ToNonNominal(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "subject-1" {
		t.Errorf("expected generated id, got %q", got.ID)
	}
	if !fhir.HasProfile(got, fhirmodels.ProfileNotifiedPersonNotByName) || len(got.Meta.Profile) != 1 {
		t.Errorf("unexpected profile %v", got.Meta.Profile)
	}
	if got.Name != nil || got.Telecom != nil || got.Identifier != nil {
		t.Error("expected name, telecom and identifier to be dropped")
	}
	if got.BirthDate != "1980-04" || got.Gender != "female" {
		t.Errorf("unexpected birthDate/gender %q %q", got.BirthDate, got.Gender)
	}
	if len(got.Address) != 2 {
		t.Fatalf("expected reduced home address and facility address, got %d", len(got.Address))
	}
	if want := (fhir.Address{PostalCode: "130", Country: "DE"}); !reflect.DeepEqual(got.Address[0], want) {
		t.Errorf("unexpected reduced address %+v", got.Address[0])
	}
	if !IsFacilityAddress(got.Address[1]) || got.Address[1].Extension[0].ValueReference.Reference != "Organization/fac-1" {
		t.Errorf("expected facility reference to be kept, got %+v", got.Address[1])
	}
	if !reflect.DeepEqual(src, testutil.NotifiedPerson(fhirmodels.TierNominal)) {
		t.Error("source subject changed")
	}
}

func TestToAnonymous(t *testing.T) {
	r := NewDefaultRedactor(fhir.NewSequenceGenerator("subject"))
	src := testutil.NotifiedPerson(fhirmodels.TierNonNominal)
	extra := []fhir.Address{{PostalCode: "101", Country: "DE"}}

	got, err := r.ToAnonymous(src, extra)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fhir.HasProfile(got, fhirmodels.ProfileNotifiedPersonAnonymous) {
		t.Errorf("unexpected profile %v", got.Meta.Profile)
	}
	want := []fhir.Address{{PostalCode: "130", Country: "DE"}, {PostalCode: "101", Country: "DE"}}
	if !reflect.DeepEqual(got.Address, want) {
		t.Errorf("unexpected addresses %+v", got.Address)
	}
	if len(fhir.ReferenceFields(got)) != 0 {
		t.Error("expected no references on an anonymous subject")
	}
	if got.DeceasedBoolean != nil {
		t.Error("expected deceased to be dropped")
	}
}

func TestRedactor_Deterministic(t *testing.T) {
	a, _ := NewDefaultRedactor(fhir.NewSequenceGenerator("s")).ToNonNominal(testutil.NotifiedPerson(fhirmodels.TierNominal))
	b, _ := NewDefaultRedactor(fhir.NewSequenceGenerator("s")).ToNonNominal(testutil.NotifiedPerson(fhirmodels.TierNominal))
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical output for identical input")
	}
}

func TestRedactor_NoSubject(t *testing.T) {
	r := NewDefaultRedactor(nil)
	if _, err := r.ToNonNominal(nil); !errors.Is(err, ErrNoSubject) {
		t.Errorf("expected ErrNoSubject, got %v", err)
	}
	if _, err := r.ToAnonymous(nil, nil); !errors.Is(err, ErrNoSubject) {
		t.Errorf("expected ErrNoSubject, got %v", err)
	}
}

func TestReduceAddress(t *testing.T) {
	tests := []struct {
		in   fhir.Address
		want fhir.Address
		ok   bool
	}{
		{fhir.Address{Line: []string{"Teststr. 1"}, City: "Berlin", PostalCode: "13055", Country: "DE"}, fhir.Address{PostalCode: "130", Country: "DE"}, true},
		{fhir.Address{PostalCode: "13"}, fhir.Address{PostalCode: "13"}, true},
		{fhir.Address{City: "Berlin"}, fhir.Address{}, false},
	}
	for _, tt := range tests {
		got, ok := ReduceAddress(tt.in)
		if ok != tt.ok || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ReduceAddress(%+v) = %+v, %v", tt.in, got, ok)
		}
	}
}

func TestTruncateBirthDate(t *testing.T) {
	for in, want := range map[string]string{
		"1980-04-12": "1980-04",
		"1980-04":    "1980-04",
		"1980":       "1980",
		"":           "",
	} {
		if got := TruncateBirthDate(in); got != want {
			t.Errorf("TruncateBirthDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRetainedPaths(t *testing.T) {
	nominal := RetainedPaths(fhirmodels.TierNominal)
	anonymous := RetainedPaths(fhirmodels.TierAnonymous)
	if !nominal["name"] || anonymous["name"] {
		t.Error("expected name retained only at the nominal tier")
	}
	for path := range anonymous {
		if !RetainedPaths(fhirmodels.TierNonNominal)[path] {
			t.Errorf("anonymous tier retains %q which the non-nominal tier drops", path)
		}
	}
}
