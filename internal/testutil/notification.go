// Package testutil builds notification bundles used as fixtures across the
// engine's package tests. Every builder returns a fresh, independent graph.
package testutil

import (
	"time"

	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// SourceIdentifier is the bundle identifier value of every fixture.
const SourceIdentifier = "b7f1a2c4-source"

// Fixed instants so fixtures are reproducible.
var (
	Timestamp   = time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	LastUpdated = time.Date(2024, 3, 1, 10, 16, 30, 0, time.UTC)
)

// SourceTag is carried on every fixture bundle.
var SourceTag = fhir.Coding{
	System:  "https://demis.rki.de/fhir/CodeSystem/ResponsibleDepartment",
	Code:    "1.01.0.53.",
	Display: "Gesundheitsamt Bezirk Mitte",
}

func meta(profile string) *fhir.Meta {
	return &fhir.Meta{Profile: []string{profile}}
}

func ref(resourceType, id string) *fhir.Reference {
	return &fhir.Reference{Reference: fhir.FormatReference(resourceType, id)}
}

func bundle(flavor fhirmodels.Flavor, tier fhirmodels.Tier, resources ...fhir.Resource) *fhir.Bundle {
	profile, _ := fhirmodels.BundleProfile(flavor, tier)
	ts, lu := Timestamp, LastUpdated
	b := &fhir.Bundle{
		ResourceType: "Bundle",
		ID:           "source-bundle",
		Meta: &fhir.Meta{
			LastUpdated: &lu,
			Profile:     []string{profile},
			Tag:         []fhir.Coding{SourceTag},
		},
		Identifier: &fhir.Identifier{System: fhirmodels.NamingSystemBundleID, Value: SourceIdentifier},
		Type:       fhirmodels.BundleTypeDocument,
		Timestamp:  &ts,
	}
	for _, r := range resources {
		b.Entry = append(b.Entry, fhir.BundleEntry{
			FullURL:  fhir.FullURL(fhirmodels.DefaultFHIRBase, r),
			Resource: r,
		})
	}
	return b
}

// NotifiedPerson builds the subject at the given tier. Nominal and
// non-nominal subjects reference the facility organization fac-1 through an
// address extension.
func NotifiedPerson(tier fhirmodels.Tier) *fhir.Patient {
	facility := fhir.Address{
		Extension: []fhir.Extension{{
			URL:            fhirmodels.ExtensionFacilityAddressUse,
			ValueReference: ref("Organization", "fac-1"),
		}},
	}
	switch tier {
	case fhirmodels.TierNonNominal:
		return &fhir.Patient{
			ID:        "p-1",
			Meta:      meta(fhirmodels.ProfileNotifiedPersonNotByName),
			Gender:    "female",
			BirthDate: "1980-04",
			Address: []fhir.Address{
				{PostalCode: "130", Country: "DE"},
				facility,
			},
		}
	case fhirmodels.TierAnonymous:
		return &fhir.Patient{
			ID:        "p-1",
			Meta:      meta(fhirmodels.ProfileNotifiedPersonAnonymous),
			Gender:    "female",
			BirthDate: "1980-04",
			Address:   []fhir.Address{{PostalCode: "130", Country: "DE"}},
		}
	}
	return &fhir.Patient{
		ID:         "p-1",
		Meta:       meta(fhirmodels.ProfileNotifiedPerson),
		Identifier: []fhir.Identifier{{System: "urn:oid:1.2.276.0.76.4.8", Value: "X110411319"}},
		Name:       []fhir.HumanName{{Use: "official", Family: "Betroffen", Given: []string{"Bertha"}}},
		Telecom:    []fhir.ContactPoint{{System: "phone", Value: "030 1234567", Use: "home"}},
		Gender:     "female",
		BirthDate:  "1980-04-12",
		Address: []fhir.Address{
			{Use: "home", Line: []string{"Teststr. 123"}, City: "Berlin", PostalCode: "13055", Country: "DE"},
			facility,
		},
	}
}

// PersonFacility is the organization referenced from the subject's address.
func PersonFacility() *fhir.Organization {
	return &fhir.Organization{
		ID:   "fac-1",
		Meta: meta(fhirmodels.ProfileNotifiedPersonFacility),
		Name: "Pflegeheim Sonnenschein",
		Address: []fhir.Address{{
			Line: []string{"Heimweg 4"}, City: "Berlin", PostalCode: "10115", Country: "DE",
		}},
	}
}

func notifier() (*fhir.PractitionerRole, *fhir.Organization) {
	org := &fhir.Organization{
		ID:         "nf-1",
		Meta:       meta(fhirmodels.ProfileNotifierFacility),
		Identifier: []fhir.Identifier{{System: "https://fhir.kbv.de/NamingSystem/KBV_NS_Base_BSNR", Value: "248123512"}},
		Name:       "Praxis Dr. Notifier",
		Telecom:    []fhir.ContactPoint{{System: "phone", Value: "030 555"}},
	}
	role := &fhir.PractitionerRole{
		ID:           "nr-1",
		Meta:         meta(fhirmodels.ProfileNotifierRole),
		Organization: ref("Organization", "nf-1"),
	}
	return role, org
}

func submitter() (*fhir.PractitionerRole, *fhir.Organization) {
	org := &fhir.Organization{
		ID:   "sf-1",
		Meta: meta(fhirmodels.ProfileSubmittingFacility),
		Name: "Einsenderpraxis",
		Contact: []fhir.OrganizationContact{{
			Name: &fhir.HumanName{Family: "Einsender"},
		}},
	}
	role := &fhir.PractitionerRole{
		ID:           "sr-1",
		Meta:         meta(fhirmodels.ProfileSubmittingRole),
		Organization: ref("Organization", "sf-1"),
	}
	return role, org
}

func pathogenCode() *fhir.CodeableConcept {
	return &fhir.CodeableConcept{Coding: []fhir.Coding{
		{System: "http://loinc.org", Code: "94660-8", Display: "SARS-CoV-2 RNA"},
		{System: "http://snomed.info/sct", Code: "840533007", Display: "SARS-CoV-2"},
	}}
}

// Specimen builds a specimen collected by the submitter.
func Specimen(id string) *fhir.Specimen {
	return &fhir.Specimen{
		ID:           id,
		Meta:         meta(fhirmodels.ProfilePrefixSpecimen + "CVDP"),
		Status:       "available",
		Type:         &fhir.CodeableConcept{Coding: []fhir.Coding{{System: "http://snomed.info/sct", Code: "309164002"}}},
		Subject:      ref("Patient", "p-1"),
		ReceivedTime: "2024-02-28T09:00:00+01:00",
		Collection: &fhir.SpecimenCollection{
			Collector:         ref("PractitionerRole", "sr-1"),
			CollectedDateTime: "2024-02-27T16:00:00+01:00",
		},
		Note: []fhir.Annotation{{Text: "Abstrich"}},
	}
}

// Observation builds a pathogen detection observation on the given specimen.
func Observation(id, specimenID string) *fhir.Observation {
	return &fhir.Observation{
		ID:                   id,
		Meta:                 meta(fhirmodels.ProfilePrefixPathogenDetection + "CVDP"),
		Status:               "final",
		Category:             []fhir.CodeableConcept{{Coding: []fhir.Coding{{Code: "laboratory"}}}, {Text: "second"}},
		Code:                 pathogenCode(),
		Subject:              ref("Patient", "p-1"),
		ValueCodeableConcept: &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "10828004", Display: "Positive"}}},
		Interpretation:       []fhir.CodeableConcept{{Coding: []fhir.Coding{{Code: "POS"}}}},
		Note:                 []fhir.Annotation{{Text: "Ct 21"}, {Text: "Befund bestätigt"}},
		Method:               &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "398545005"}}},
		Specimen:             ref("Specimen", specimenID),
	}
}

func laboratoryReport(observationIDs ...string) *fhir.DiagnosticReport {
	dr := &fhir.DiagnosticReport{
		ID:             "dr-1",
		Meta:           meta(fhirmodels.ProfileLaboratoryReport),
		Status:         "final",
		Code:           &fhir.CodeableConcept{Coding: []fhir.Coding{{System: "http://loinc.org", Code: "11502-2"}}},
		Subject:        ref("Patient", "p-1"),
		Issued:         "2024-02-29T12:00:00+01:00",
		Conclusion:     "Nachweis",
		ConclusionCode: []fhir.CodeableConcept{{Coding: []fhir.Coding{{Code: "pathogenDetected"}}}},
	}
	for _, id := range observationIDs {
		dr.Result = append(dr.Result, *ref("Observation", id))
	}
	return dr
}

func laboratoryComposition() *fhir.Composition {
	return &fhir.Composition{
		ID:         "c-1",
		Meta:       meta(fhirmodels.ProfileCompositionLaboratory),
		Identifier: &fhir.Identifier{System: fhirmodels.NamingSystemNotificationID, Value: "notification-1"},
		Status:     "final",
		Type:       &fhir.CodeableConcept{Coding: []fhir.Coding{{System: "http://loinc.org", Code: "34782-3"}}},
		Subject:    ref("Patient", "p-1"),
		Date:       "2024-03-01T10:00:00+01:00",
		Author:     []fhir.Reference{*ref("PractitionerRole", "nr-1")},
		Title:      "Erregernachweismeldung",
		Section: []fhir.CompositionSection{{
			Code:  &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "11502-2"}}},
			Entry: []fhir.Reference{*ref("DiagnosticReport", "dr-1")},
		}},
	}
}

// LaboratoryBundle builds a laboratory notification whose two observations
// share one specimen.
func LaboratoryBundle(tier fhirmodels.Tier) *fhir.Bundle {
	role, roleOrg := notifier()
	sub, subOrg := submitter()
	resources := []fhir.Resource{
		laboratoryComposition(),
		NotifiedPerson(tier),
	}
	if tier != fhirmodels.TierAnonymous {
		resources = append(resources, PersonFacility())
	}
	resources = append(resources,
		role, roleOrg,
		sub, subOrg,
		Specimen("sp-1"),
		Observation("ob-1", "sp-1"),
		Observation("ob-2", "sp-1"),
		laboratoryReport("ob-1", "ob-2"),
	)
	return bundle(fhirmodels.FlavorLaboratory, tier, resources...)
}

// LaboratoryBundleTwoSpecimens builds a laboratory notification with three
// observations over two specimens, ordered ob-1(sp-1), ob-2(sp-2), ob-3(sp-1).
func LaboratoryBundleTwoSpecimens(tier fhirmodels.Tier) *fhir.Bundle {
	role, roleOrg := notifier()
	sub, subOrg := submitter()
	resources := []fhir.Resource{laboratoryComposition(), NotifiedPerson(tier)}
	if tier != fhirmodels.TierAnonymous {
		resources = append(resources, PersonFacility())
	}
	resources = append(resources,
		role, roleOrg, sub, subOrg,
		Specimen("sp-1"), Specimen("sp-2"),
		Observation("ob-1", "sp-1"),
		Observation("ob-2", "sp-2"),
		Observation("ob-3", "sp-1"),
		laboratoryReport("ob-1", "ob-2", "ob-3"),
	)
	return bundle(fhirmodels.FlavorLaboratory, tier, resources...)
}

func condition() *fhir.Condition {
	return &fhir.Condition{
		ID:   "cd-1",
		Meta: meta(fhirmodels.ProfilePrefixDisease + "CVDD"),
		VerificationStatus: &fhir.CodeableConcept{Coding: []fhir.Coding{
			{System: "http://terminology.hl7.org/CodeSystem/condition-ver-status", Code: "confirmed"},
			{System: "http://example.org/local", Code: "bestätigt"},
		}},
		Code: &fhir.CodeableConcept{Coding: []fhir.Coding{
			{System: "https://demis.rki.de/fhir/CodeSystem/notificationDiseaseCategory", Code: "cvdd"},
			{System: "http://fhir.de/CodeSystem/bfarm/icd-10-gm", Code: "U07.1"},
		}},
		Subject:       ref("Patient", "p-1"),
		OnsetDateTime: "2024-02-25",
		RecordedDate:  "2024-02-28",
		Evidence: []fhir.ConditionEvidence{
			{Code: []fhir.CodeableConcept{{Coding: []fhir.Coding{{Code: "267036007"}}}}},
			{Code: []fhir.CodeableConcept{{Coding: []fhir.Coding{{Code: "386661006"}}}}},
		},
		Note: []fhir.Annotation{{Text: "Verlauf mild"}},
	}
}

func diseaseComposition(sections ...fhir.CompositionSection) *fhir.Composition {
	return &fhir.Composition{
		ID:         "c-1",
		Meta:       meta(fhirmodels.ProfileCompositionDisease),
		Identifier: &fhir.Identifier{System: fhirmodels.NamingSystemNotificationID, Value: "notification-1"},
		Status:     "final",
		Type:       &fhir.CodeableConcept{Coding: []fhir.Coding{{System: "http://loinc.org", Code: "34782-3"}}},
		Subject:    ref("Patient", "p-1"),
		Date:       "2024-03-01T10:00:00+01:00",
		Author:     []fhir.Reference{*ref("PractitionerRole", "nr-1")},
		Title:      "Meldung gemäß §6 Abs. 1 IfSG",
		Section:    sections,
	}
}

func section(code, resourceType, id string) fhir.CompositionSection {
	return fhir.CompositionSection{
		Code:  &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: code}}},
		Entry: []fhir.Reference{*ref(resourceType, id)},
	}
}

// MinimalDiseaseBundle builds a disease notification with only composition,
// subject, notifier role and condition.
func MinimalDiseaseBundle(tier fhirmodels.Tier) *fhir.Bundle {
	subject := NotifiedPerson(tier)
	subject.Address = subject.Address[:1]
	role := &fhir.PractitionerRole{ID: "nr-1", Meta: meta(fhirmodels.ProfileNotifierRole)}
	return bundle(fhirmodels.FlavorDisease, tier,
		diseaseComposition(section("diagnosis", "Condition", "cd-1")),
		subject,
		role,
		condition(),
	)
}

// HospitalOrganization is the service provider of the hospitalization.
func HospitalOrganization() *fhir.Organization {
	return &fhir.Organization{
		ID:   "eo-1",
		Meta: meta(fhirmodels.ProfileOrganization),
		Name: "Charité",
		Address: []fhir.Address{{
			Line: []string{"Charitéplatz 1"}, City: "Berlin", PostalCode: "10117", Country: "DE",
		}},
	}
}

// Hospitalization builds the encounter referenced by the common information.
func Hospitalization() *fhir.Encounter {
	start := time.Date(2024, 2, 26, 8, 0, 0, 0, time.UTC)
	return &fhir.Encounter{
		ID:              "en-1",
		Meta:            meta(fhirmodels.ProfileHospitalization),
		Status:          "in-progress",
		Class:           &fhir.Coding{System: "http://terminology.hl7.org/CodeSystem/v3-ActCode", Code: "IMP"},
		ServiceType:     &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "3600"}, {Code: "0100"}}},
		Subject:         ref("Patient", "p-1"),
		Period:          &fhir.Period{Start: &start},
		ServiceProvider: ref("Organization", "eo-1"),
	}
}

// CommonInformation builds the common questionnaire response.
func CommonInformation() *fhir.QuestionnaireResponse {
	yes := fhir.Coding{System: "https://demis.rki.de/fhir/CodeSystem/yesOrNoAnswer", Code: "yes"}
	return &fhir.QuestionnaireResponse{
		ID:            "qc-1",
		Meta:          meta(fhirmodels.ProfileDiseaseInformationCommon),
		Questionnaire: "https://demis.rki.de/fhir/Questionnaire/DiseaseQuestionsCommon",
		Status:        "completed",
		Subject:       ref("Patient", "p-1"),
		Item: []fhir.QuestionnaireResponseItem{
			{LinkID: "isDead", Answer: []fhir.QuestionnaireResponseAnswer{{ValueCoding: &fhir.Coding{Code: "no"}}}},
			{
				LinkID: "hospitalized",
				Answer: []fhir.QuestionnaireResponseAnswer{{
					ValueCoding: &yes,
					Item: []fhir.QuestionnaireResponseItem{{
						LinkID: "hospitalizedGroup",
						Item: []fhir.QuestionnaireResponseItem{{
							LinkID: "hospitalizedEncounter",
							Answer: []fhir.QuestionnaireResponseAnswer{{ValueReference: ref("Encounter", "en-1")}},
						}},
					}},
				}},
			},
		},
	}
}

// Immunization builds an immunization of the subject.
func Immunization(id string) *fhir.Immunization {
	return &fhir.Immunization{
		ID:                 id,
		Meta:               meta(fhirmodels.ProfilePrefixImmunizationInformation + "CVDD"),
		Status:             "completed",
		VaccineCode:        &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "EU/1/20/1528"}, {Code: "other"}}},
		Patient:            ref("Patient", "p-1"),
		OccurrenceDateTime: "2021-06",
		Note:               []fhir.Annotation{{Text: "Erstimpfung"}},
	}
}

// SpecificInformation builds the disease specific questionnaire response.
func SpecificInformation(immunizationIDs ...string) *fhir.QuestionnaireResponse {
	var answers []fhir.QuestionnaireResponseAnswer
	for _, id := range immunizationIDs {
		answers = append(answers, fhir.QuestionnaireResponseAnswer{ValueReference: ref("Immunization", id)})
	}
	return &fhir.QuestionnaireResponse{
		ID:            "qs-1",
		Meta:          meta(fhirmodels.ProfilePrefixDiseaseInformation + "CVDD"),
		Questionnaire: "https://demis.rki.de/fhir/Questionnaire/DiseaseQuestionsCVDD",
		Status:        "completed",
		Subject:       ref("Patient", "p-1"),
		Item: []fhir.QuestionnaireResponseItem{
			{LinkID: "infectionSource", Answer: []fhir.QuestionnaireResponseAnswer{{ValueString: "Familie"}}},
			{LinkID: "immunization", Answer: answers},
		},
	}
}

// DiseaseBundle builds a full disease notification: facility, notifier
// organization, hospitalization with its organization, common information,
// two immunizations and specific information.
func DiseaseBundle(tier fhirmodels.Tier) *fhir.Bundle {
	role, roleOrg := notifier()
	comp := diseaseComposition(
		section("diagnosis", "Condition", "cd-1"),
		section("generalClinicalInformation", "QuestionnaireResponse", "qc-1"),
		section("specificClinicalInformation", "QuestionnaireResponse", "qs-1"),
	)
	resources := []fhir.Resource{comp, NotifiedPerson(tier)}
	if tier != fhirmodels.TierAnonymous {
		resources = append(resources, PersonFacility())
	}
	resources = append(resources,
		role, roleOrg,
		condition(),
		HospitalOrganization(),
		Hospitalization(),
		CommonInformation(),
		Immunization("im-1"),
		Immunization("im-2"),
		SpecificInformation("im-1", "im-2"),
	)
	return bundle(fhirmodels.FlavorDisease, tier, resources...)
}

// WithProvenance appends a provenance record targeting the composition.
func WithProvenance(b *fhir.Bundle) *fhir.Bundle {
	recorded := Timestamp
	prov := &fhir.Provenance{
		ID:       "pv-1",
		Meta:     meta("https://demis.rki.de/fhir/StructureDefinition/DemisProvenance"),
		Target:   []fhir.Reference{*ref("Composition", "c-1")},
		Recorded: &recorded,
		Agent: []fhir.ProvenanceAgent{{
			Type: &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "assembler"}}},
			Who:  ref("PractitionerRole", "nr-1"),
		}},
	}
	b.Entry = append(b.Entry, fhir.BundleEntry{
		FullURL:  fhir.FullURL(fhirmodels.DefaultFHIRBase, prov),
		Resource: prov,
	})
	return b
}

// Find returns the first entry record of the given type and id.
func Find(b *fhir.Bundle, resourceType, id string) fhir.Resource {
	for _, r := range b.Resources() {
		if r.ResourceType() == resourceType && r.ResourceID() == id {
			return r
		}
	}
	return nil
}

// Remove drops the entry with the given type and id.
func Remove(b *fhir.Bundle, resourceType, id string) *fhir.Bundle {
	kept := b.Entry[:0]
	for _, e := range b.Entry {
		if e.Resource != nil && e.Resource.ResourceType() == resourceType && e.Resource.ResourceID() == id {
			continue
		}
		kept = append(kept, e)
	}
	b.Entry = kept
	return b
}

// Types returns the resourceType of every entry, in order.
func Types(b *fhir.Bundle) []string {
	out := make([]string, 0, len(b.Entry))
	for _, e := range b.Entry {
		out = append(out, e.Resource.ResourceType())
	}
	return out
}
