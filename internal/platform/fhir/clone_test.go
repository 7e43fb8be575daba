package fhir

import (
	"testing"
	"time"
)

func TestFirstRep(t *testing.T) {
	cc := &CodeableConcept{
		Coding: []Coding{{Code: "a"}, {Code: "b"}},
		Text:   "text",
	}
	got := FirstRep(cc)
	if len(got.Coding) != 1 || got.Coding[0].Code != "a" {
		t.Errorf("expected only the first coding, got %+v", got.Coding)
	}
	if got.Text != "text" {
		t.Errorf("expected text to be kept, got %q", got.Text)
	}
	if FirstRep(nil) != nil {
		t.Error("expected nil for nil input")
	}
	if got := FirstRep(&CodeableConcept{Text: "only"}); got.Coding != nil {
		t.Errorf("expected no codings, got %+v", got.Coding)
	}
}

func TestCloneAddresses_Independent(t *testing.T) {
	orig := []Address{{
		Line:      []string{"Main St 1"},
		Extension: []Extension{{URL: "x", ValueReference: &Reference{Reference: "Organization/o"}}},
	}}
	cp := CloneAddresses(orig)
	cp[0].Line[0] = "changed"
	cp[0].Extension[0].ValueReference.Reference = "Organization/other"

	if orig[0].Line[0] != "Main St 1" {
		t.Error("clone shares line storage with original")
	}
	if orig[0].Extension[0].ValueReference.Reference != "Organization/o" {
		t.Error("clone shares extension reference with original")
	}
}

func TestClone_NilStaysNil(t *testing.T) {
	if CloneAddresses(nil) != nil {
		t.Error("expected nil addresses")
	}
	if CloneMeta(nil) != nil {
		t.Error("expected nil meta")
	}
	if CloneQuantity(nil) != nil {
		t.Error("expected nil quantity")
	}
	if got := CloneCodings([]Coding{}); got == nil || len(got) != 0 {
		t.Error("expected empty slice to stay empty, not nil")
	}
}

func TestCloneMeta(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := &Meta{LastUpdated: &now, Profile: []string{"p"}, Tag: []Coding{{Code: "t"}}}
	cp := CloneMeta(m)
	cp.Profile[0] = "q"
	*cp.LastUpdated = now.Add(time.Hour)
	if m.Profile[0] != "p" || !m.LastUpdated.Equal(now) {
		t.Error("clone shares storage with original meta")
	}
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("id")
	if got := g.NewID(); got != "id-1" {
		t.Errorf("expected id-1, got %s", got)
	}
	if got := g.NewID(); got != "id-2" {
		t.Errorf("expected id-2, got %s", got)
	}
}

func TestUUIDGenerator_Unique(t *testing.T) {
	var g UUIDGenerator
	if g.NewID() == g.NewID() {
		t.Error("expected distinct ids")
	}
}
