package assembler

import "github.com/ehr/notification-builder/internal/platform/fhir"

// Parts holds the copied records of one notification in typed slots. Empty
// slots are skipped on assembly, so a pipeline only fills what its flavor
// has.
type Parts struct {
	Composition       *fhir.Composition
	Subject           *fhir.Patient
	SubjectFacilities []*fhir.Organization

	NotifierRole    *fhir.PractitionerRole
	NotifierRecords []fhir.Resource

	SubmitterRole    *fhir.PractitionerRole
	SubmitterRecords []fhir.Resource

	Specimens    []*fhir.Specimen
	Observations []*fhir.Observation
	Report       *fhir.DiagnosticReport

	Condition              *fhir.Condition
	EncounterOrganizations []*fhir.Organization
	Encounters             []*fhir.Encounter
	CommonInformation      *fhir.QuestionnaireResponse
	Immunizations          []*fhir.Immunization
	SpecificInformation    *fhir.QuestionnaireResponse

	additional []fhir.Resource
}

// AddAdditional registers records placed after every canonical part, in
// registration order.
func (p *Parts) AddAdditional(records ...fhir.Resource) {
	for _, r := range records {
		if r != nil {
			p.additional = append(p.additional, r)
		}
	}
}

// Resources lists the records in canonical entry order:
//
//  1. composition
//  2. subject and its facility organizations
//  3. notifier role and its organization or practitioner
//  4. submitter role and its organization or practitioner
//  5. specimens
//  6. observations
//  7. laboratory report, or condition, encounter organizations, encounters,
//     common information, immunizations and specific information
//  8. additional records
func (p *Parts) Resources() []fhir.Resource {
	var out []fhir.Resource
	if p.Composition != nil {
		out = append(out, p.Composition)
	}
	if p.Subject != nil {
		out = append(out, p.Subject)
	}
	out = appendAll(out, p.SubjectFacilities)
	if p.NotifierRole != nil {
		out = append(out, p.NotifierRole)
	}
	out = append(out, p.NotifierRecords...)
	if p.SubmitterRole != nil {
		out = append(out, p.SubmitterRole)
	}
	out = append(out, p.SubmitterRecords...)
	out = appendAll(out, p.Specimens)
	out = appendAll(out, p.Observations)
	if p.Report != nil {
		out = append(out, p.Report)
	}
	if p.Condition != nil {
		out = append(out, p.Condition)
	}
	out = appendAll(out, p.EncounterOrganizations)
	out = appendAll(out, p.Encounters)
	if p.CommonInformation != nil {
		out = append(out, p.CommonInformation)
	}
	out = appendAll(out, p.Immunizations)
	if p.SpecificInformation != nil {
		out = append(out, p.SpecificInformation)
	}
	return append(out, p.additional...)
}

func appendAll[T fhir.Resource](out []fhir.Resource, items []T) []fhir.Resource {
	for _, r := range items {
		out = append(out, r)
	}
	return out
}
