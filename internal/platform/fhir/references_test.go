package fhir

import "testing"

func TestReferenceFields_QuestionnaireResponseNested(t *testing.T) {
	qr := &QuestionnaireResponse{
		ID:      "qr-1",
		Subject: &Reference{Reference: "Patient/p-1"},
		Item: []QuestionnaireResponseItem{
			{
				LinkID: "hospitalized",
				Answer: []QuestionnaireResponseAnswer{{
					ValueCoding: &Coding{Code: "yes"},
					Item: []QuestionnaireResponseItem{{
						LinkID: "hospitalizedGroup",
						Item: []QuestionnaireResponseItem{{
							LinkID: "hospitalizedEncounter",
							Answer: []QuestionnaireResponseAnswer{{ValueReference: &Reference{Reference: "Encounter/e-1"}}},
						}},
					}},
				}},
			},
		},
	}

	refs := ReferenceFields(qr)
	if len(refs) != 2 {
		t.Fatalf("expected 2 references, got %d", len(refs))
	}
	if refs[0].Reference != "Patient/p-1" || refs[1].Reference != "Encounter/e-1" {
		t.Errorf("unexpected references %q, %q", refs[0].Reference, refs[1].Reference)
	}

	refs[1].Reference = "Encounter/e-2"
	got := qr.Item[0].Answer[0].Item[0].Item[0].Answer[0].ValueReference.Reference
	if got != "Encounter/e-2" {
		t.Errorf("expected in-place rewrite, got %q", got)
	}
}

func TestReferenceFields_Composition(t *testing.T) {
	comp := &Composition{
		Subject: &Reference{Reference: "Patient/p"},
		Author:  []Reference{{Reference: "PractitionerRole/r"}},
		Section: []CompositionSection{
			{Entry: []Reference{{Reference: "Condition/c"}}},
			{Section: []CompositionSection{{Entry: []Reference{{Reference: "QuestionnaireResponse/q"}}}}},
		},
	}
	refs := ReferenceFields(comp)
	want := []string{"Patient/p", "PractitionerRole/r", "Condition/c", "QuestionnaireResponse/q"}
	if len(refs) != len(want) {
		t.Fatalf("expected %d references, got %d", len(want), len(refs))
	}
	for i, w := range want {
		if refs[i].Reference != w {
			t.Errorf("reference %d: got %q, want %q", i, refs[i].Reference, w)
		}
	}
}

func TestReferenceFields_PatientAddressExtension(t *testing.T) {
	p := &Patient{
		Address: []Address{{
			Extension: []Extension{{
				URL:            "https://demis.rki.de/fhir/StructureDefinition/FacilityAddressNotifiedPerson",
				ValueReference: &Reference{Reference: "Organization/o-1"},
			}},
		}},
	}
	refs := ReferenceFields(p)
	if len(refs) != 1 || refs[0].Reference != "Organization/o-1" {
		t.Fatalf("expected facility reference, got %+v", refs)
	}
}

func TestReferenceFields_Unknown(t *testing.T) {
	if refs := ReferenceFields(&Unknown{Type: "Binary"}); len(refs) != 0 {
		t.Errorf("expected no references for unknown kinds, got %d", len(refs))
	}
}
