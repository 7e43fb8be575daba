package bundlectx

import (
	"testing"

	"github.com/ehr/notification-builder/internal/platform/fhir"
)

func TestIndex_Lookup(t *testing.T) {
	p := &fhir.Patient{ID: "p-1"}
	o := &fhir.Organization{ID: "3f2a"}
	b := &fhir.Bundle{Entry: []fhir.BundleEntry{
		{FullURL: "https://demis.rki.de/fhir/Patient/p-1", Resource: p},
		{FullURL: "urn:uuid:3f2a", Resource: o},
		{},
	}}
	idx := NewIndex(b)

	tests := []struct {
		ref  fhir.Reference
		want fhir.Resource
	}{
		{fhir.Reference{Reference: "Patient/p-1"}, p},
		{fhir.Reference{Reference: "https://demis.rki.de/fhir/Patient/p-1"}, p},
		{fhir.Reference{Reference: "http://other/fhir/Patient/p-1/_history/2"}, p},
		{fhir.Reference{Reference: "urn:uuid:3f2a"}, o},
		{fhir.Reference{Reference: "Organization/3f2a"}, o},
		{fhir.Reference{Reference: "Patient/p-2"}, nil},
		{fhir.Reference{Reference: "urn:uuid:unknown"}, nil},
		{fhir.Reference{Display: "display only"}, nil},
	}
	for _, tt := range tests {
		got, ok := idx.Lookup(&tt.ref)
		if ok != (tt.want != nil) || got != tt.want {
			t.Errorf("Lookup(%q) = %v, %v", tt.ref.Reference, got, ok)
		}
	}

	if idx.Len() != 2 {
		t.Errorf("expected 2 records, got %d", idx.Len())
	}
	if !idx.Contains(p) || idx.Contains(&fhir.Patient{ID: "p-1"}) {
		t.Error("expected Contains to compare by identity")
	}
	if _, ok := idx.Lookup(nil); ok {
		t.Error("expected nil reference to miss")
	}
}

func TestIndex_FirstEntryWins(t *testing.T) {
	first := &fhir.Patient{ID: "p-1", Gender: "female"}
	second := &fhir.Patient{ID: "p-1", Gender: "male"}
	idx := NewIndex(&fhir.Bundle{Entry: []fhir.BundleEntry{{Resource: first}, {Resource: second}}})

	got, ok := idx.Lookup(&fhir.Reference{Reference: "Patient/p-1"})
	if !ok || got != first {
		t.Error("expected the first entry to win")
	}
}
