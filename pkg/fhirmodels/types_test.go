package fhirmodels

import "testing"

func TestBundleProfile(t *testing.T) {
	p, ok := BundleProfile(FlavorLaboratory, TierAnonymous)
	if !ok || p != ProfileBundleLaboratoryAnonymous {
		t.Errorf("unexpected profile %q %v", p, ok)
	}
	if _, ok := BundleProfile("unknown", TierNominal); ok {
		t.Error("expected no profile for an unknown flavor")
	}
}

func TestParseBundleProfile(t *testing.T) {
	tests := []struct {
		url    string
		flavor Flavor
		tier   Tier
		ok     bool
	}{
		{ProfileBundleDisease, FlavorDisease, TierNominal, true},
		{ProfileBundleDiseaseNonNominal + "|1.3.0", FlavorDisease, TierNonNominal, true},
		{ProfileBundleLaboratoryAnonymous, FlavorLaboratory, TierAnonymous, true},
		{StructureDefinitionBase + "Other", "", "", false},
	}
	for _, tt := range tests {
		f, tier, ok := ParseBundleProfile(tt.url)
		if f != tt.flavor || tier != tt.tier || ok != tt.ok {
			t.Errorf("ParseBundleProfile(%q) = %q, %q, %v", tt.url, f, tier, ok)
		}
	}
}

func TestSubjectProfile(t *testing.T) {
	if p, _ := SubjectProfile(TierNonNominal); p != ProfileNotifiedPersonNotByName {
		t.Errorf("unexpected subject profile %q", p)
	}
}

func TestTier_Next(t *testing.T) {
	if next, ok := TierNominal.Next(); !ok || next != TierNonNominal {
		t.Errorf("nominal -> %q %v", next, ok)
	}
	if next, ok := TierNonNominal.Next(); !ok || next != TierAnonymous {
		t.Errorf("non-nominal -> %q %v", next, ok)
	}
	if _, ok := TierAnonymous.Next(); ok {
		t.Error("expected anonymous to be terminal")
	}
}
