package copier

import "github.com/ehr/notification-builder/internal/platform/fhir"

// strategy builds the copy of one record kind under a new id. Business
// fields are deep copied; singular coded fields keep their first
// representative coding; references still name originals and are rebound
// by the CopyMap afterwards.
type strategy func(original fhir.Resource, id string) fhir.Resource

var strategies = map[string]strategy{
	"Composition":           copyComposition,
	"Patient":               copyPatient,
	"PractitionerRole":      copyPractitionerRole,
	"Practitioner":          copyPractitioner,
	"Organization":          copyOrganization,
	"Condition":             copyCondition,
	"DiagnosticReport":      copyDiagnosticReport,
	"Observation":           copyObservation,
	"Specimen":              copySpecimen,
	"Encounter":             copyEncounter,
	"Immunization":          copyImmunization,
	"QuestionnaireResponse": copyQuestionnaireResponse,
	"Provenance":            copyProvenance,
}

// Supported reports whether records of resourceType can be copied.
func Supported(resourceType string) bool {
	_, ok := strategies[resourceType]
	return ok
}

func copyComposition(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Composition)
	c := &fhir.Composition{
		ID:         id,
		Meta:       fhir.CloneMeta(o.Meta),
		Extension:  fhir.CloneExtensions(o.Extension),
		Identifier: fhir.CloneIdentifier(o.Identifier),
		Status:     o.Status,
		Type:       fhir.FirstRep(o.Type),
		Category:   fhir.CloneCodeableConcepts(o.Category),
		Subject:    fhir.CloneReference(o.Subject),
		Date:       o.Date,
		Author:     fhir.CloneReferences(o.Author),
		Title:      o.Title,
		Section:    copySections(o.Section),
	}
	if o.RelatesTo != nil {
		c.RelatesTo = make([]fhir.CompositionRelatesTo, len(o.RelatesTo))
		for i, rt := range o.RelatesTo {
			c.RelatesTo[i] = fhir.CompositionRelatesTo{
				Code:             rt.Code,
				TargetIdentifier: fhir.CloneIdentifier(rt.TargetIdentifier),
				TargetReference:  fhir.CloneReference(rt.TargetReference),
			}
		}
	}
	return c
}

func copySections(in []fhir.CompositionSection) []fhir.CompositionSection {
	if in == nil {
		return nil
	}
	out := make([]fhir.CompositionSection, len(in))
	for i, s := range in {
		out[i] = fhir.CompositionSection{
			Title:   s.Title,
			Code:    fhir.FirstRep(s.Code),
			Entry:   fhir.CloneReferences(s.Entry),
			Section: copySections(s.Section),
		}
	}
	return out
}

func copyPatient(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Patient)
	return &fhir.Patient{
		ID:               id,
		Meta:             fhir.CloneMeta(o.Meta),
		Extension:        fhir.CloneExtensions(o.Extension),
		Identifier:       fhir.CloneIdentifiers(o.Identifier),
		Name:             fhir.CloneHumanNames(o.Name),
		Telecom:          fhir.CloneContactPoints(o.Telecom),
		Gender:           o.Gender,
		BirthDate:        o.BirthDate,
		DeceasedBoolean:  fhir.CloneBool(o.DeceasedBoolean),
		DeceasedDateTime: o.DeceasedDateTime,
		Address:          fhir.CloneAddresses(o.Address),
	}
}

func copyPractitionerRole(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.PractitionerRole)
	return &fhir.PractitionerRole{
		ID:           id,
		Meta:         fhir.CloneMeta(o.Meta),
		Identifier:   fhir.CloneIdentifiers(o.Identifier),
		Practitioner: fhir.CloneReference(o.Practitioner),
		Organization: fhir.CloneReference(o.Organization),
	}
}

func copyPractitioner(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Practitioner)
	return &fhir.Practitioner{
		ID:         id,
		Meta:       fhir.CloneMeta(o.Meta),
		Extension:  fhir.CloneExtensions(o.Extension),
		Identifier: fhir.CloneIdentifiers(o.Identifier),
		Name:       fhir.CloneHumanNames(o.Name),
		Telecom:    fhir.CloneContactPoints(o.Telecom),
		Address:    fhir.CloneAddresses(o.Address),
	}
}

func copyOrganization(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Organization)
	c := &fhir.Organization{
		ID:         id,
		Meta:       fhir.CloneMeta(o.Meta),
		Extension:  fhir.CloneExtensions(o.Extension),
		Identifier: fhir.CloneIdentifiers(o.Identifier),
		Type:       fhir.CloneCodeableConcepts(o.Type),
		Name:       o.Name,
		Telecom:    fhir.CloneContactPoints(o.Telecom),
		Address:    fhir.CloneAddresses(o.Address),
	}
	if o.Contact != nil {
		c.Contact = make([]fhir.OrganizationContact, len(o.Contact))
		for i, ct := range o.Contact {
			c.Contact[i] = fhir.OrganizationContact{
				Name:    fhir.CloneHumanName(ct.Name),
				Telecom: fhir.CloneContactPoints(ct.Telecom),
			}
		}
	}
	return c
}

func copyCondition(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Condition)
	c := &fhir.Condition{
		ID:                 id,
		Meta:               fhir.CloneMeta(o.Meta),
		Identifier:         fhir.CloneIdentifiers(o.Identifier),
		ClinicalStatus:     fhir.FirstRep(o.ClinicalStatus),
		VerificationStatus: fhir.FirstRep(o.VerificationStatus),
		Category:           fhir.CloneCodeableConcepts(o.Category),
		Code:               fhir.FirstRep(o.Code),
		BodySite:           fhir.CloneCodeableConcepts(o.BodySite),
		Subject:            fhir.CloneReference(o.Subject),
		OnsetDateTime:      o.OnsetDateTime,
		RecordedDate:       o.RecordedDate,
		Note:               fhir.CloneAnnotations(o.Note),
	}
	if o.Evidence != nil {
		c.Evidence = make([]fhir.ConditionEvidence, len(o.Evidence))
		for i, ev := range o.Evidence {
			c.Evidence[i] = fhir.ConditionEvidence{
				Code:   fhir.CloneCodeableConcepts(ev.Code),
				Detail: fhir.CloneReferences(ev.Detail),
			}
		}
	}
	return c
}

func copyDiagnosticReport(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.DiagnosticReport)
	return &fhir.DiagnosticReport{
		ID:             id,
		Meta:           fhir.CloneMeta(o.Meta),
		BasedOn:        fhir.CloneReferences(o.BasedOn),
		Status:         o.Status,
		Category:       fhir.CloneCodeableConcepts(o.Category),
		Code:           fhir.FirstRep(o.Code),
		Subject:        fhir.CloneReference(o.Subject),
		Issued:         o.Issued,
		Result:         fhir.CloneReferences(o.Result),
		Conclusion:     o.Conclusion,
		ConclusionCode: fhir.CloneCodeableConcepts(o.ConclusionCode),
	}
}

func copyObservation(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Observation)
	return &fhir.Observation{
		ID:                   id,
		Meta:                 fhir.CloneMeta(o.Meta),
		Status:               o.Status,
		Category:             fhir.CloneCodeableConcepts(o.Category),
		Code:                 fhir.FirstRep(o.Code),
		Subject:              fhir.CloneReference(o.Subject),
		EffectiveDateTime:    o.EffectiveDateTime,
		ValueString:          o.ValueString,
		ValueQuantity:        fhir.CloneQuantity(o.ValueQuantity),
		ValueCodeableConcept: fhir.FirstRep(o.ValueCodeableConcept),
		Interpretation:       fhir.CloneCodeableConcepts(o.Interpretation),
		Note:                 fhir.CloneAnnotations(o.Note),
		Method:               fhir.FirstRep(o.Method),
		Specimen:             fhir.CloneReference(o.Specimen),
	}
}

func copySpecimen(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Specimen)
	c := &fhir.Specimen{
		ID:           id,
		Meta:         fhir.CloneMeta(o.Meta),
		Status:       o.Status,
		Type:         fhir.FirstRep(o.Type),
		Subject:      fhir.CloneReference(o.Subject),
		ReceivedTime: o.ReceivedTime,
		Note:         fhir.CloneAnnotations(o.Note),
	}
	if o.Collection != nil {
		c.Collection = &fhir.SpecimenCollection{
			Collector:         fhir.CloneReference(o.Collection.Collector),
			CollectedDateTime: o.Collection.CollectedDateTime,
			BodySite:          fhir.FirstRep(o.Collection.BodySite),
		}
	}
	return c
}

func copyEncounter(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Encounter)
	return &fhir.Encounter{
		ID:              id,
		Meta:            fhir.CloneMeta(o.Meta),
		Extension:       fhir.CloneExtensions(o.Extension),
		Identifier:      fhir.CloneIdentifiers(o.Identifier),
		Status:          o.Status,
		Class:           fhir.CloneCoding(o.Class),
		ServiceType:     fhir.FirstRep(o.ServiceType),
		Subject:         fhir.CloneReference(o.Subject),
		Period:          fhir.ClonePeriod(o.Period),
		ServiceProvider: fhir.CloneReference(o.ServiceProvider),
	}
}

func copyImmunization(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Immunization)
	return &fhir.Immunization{
		ID:                 id,
		Meta:               fhir.CloneMeta(o.Meta),
		Extension:          fhir.CloneExtensions(o.Extension),
		Status:             o.Status,
		VaccineCode:        fhir.FirstRep(o.VaccineCode),
		Patient:            fhir.CloneReference(o.Patient),
		OccurrenceDateTime: o.OccurrenceDateTime,
		OccurrenceString:   o.OccurrenceString,
		Note:               fhir.CloneAnnotations(o.Note),
	}
}

func copyQuestionnaireResponse(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.QuestionnaireResponse)
	return &fhir.QuestionnaireResponse{
		ID:            id,
		Meta:          fhir.CloneMeta(o.Meta),
		Questionnaire: o.Questionnaire,
		Status:        o.Status,
		Subject:       fhir.CloneReference(o.Subject),
		Authored:      o.Authored,
		Item:          copyItems(o.Item),
	}
}

// copyItems copies questionnaire items and answers whole, at every depth.
func copyItems(in []fhir.QuestionnaireResponseItem) []fhir.QuestionnaireResponseItem {
	if in == nil {
		return nil
	}
	out := make([]fhir.QuestionnaireResponseItem, len(in))
	for i, it := range in {
		out[i] = fhir.QuestionnaireResponseItem{
			LinkID: it.LinkID,
			Text:   it.Text,
			Item:   copyItems(it.Item),
		}
		if it.Answer != nil {
			out[i].Answer = make([]fhir.QuestionnaireResponseAnswer, len(it.Answer))
			for j, a := range it.Answer {
				out[i].Answer[j] = fhir.QuestionnaireResponseAnswer{
					ValueBoolean:   fhir.CloneBool(a.ValueBoolean),
					ValueDate:      a.ValueDate,
					ValueDateTime:  a.ValueDateTime,
					ValueString:    a.ValueString,
					ValueCoding:    fhir.CloneCoding(a.ValueCoding),
					ValueQuantity:  fhir.CloneQuantity(a.ValueQuantity),
					ValueReference: fhir.CloneReference(a.ValueReference),
					Item:           copyItems(a.Item),
				}
			}
		}
	}
	return out
}

func copyProvenance(r fhir.Resource, id string) fhir.Resource {
	o := r.(*fhir.Provenance)
	c := &fhir.Provenance{
		ID:       id,
		Meta:     fhir.CloneMeta(o.Meta),
		Target:   fhir.CloneReferences(o.Target),
		Recorded: fhir.CloneTime(o.Recorded),
		Activity: fhir.FirstRep(o.Activity),
	}
	if o.Agent != nil {
		c.Agent = make([]fhir.ProvenanceAgent, len(o.Agent))
		for i, a := range o.Agent {
			c.Agent[i] = fhir.ProvenanceAgent{Type: fhir.FirstRep(a.Type), Who: fhir.CloneReference(a.Who)}
		}
	}
	if o.Entity != nil {
		c.Entity = make([]fhir.ProvenanceEntity, len(o.Entity))
		for i, e := range o.Entity {
			c.Entity[i] = fhir.ProvenanceEntity{Role: e.Role, What: fhir.CloneReference(e.What)}
		}
	}
	return c
}

// setMeta installs meta on a copy that had none.
func setMeta(r fhir.Resource, meta *fhir.Meta) {
	switch v := r.(type) {
	case *fhir.Composition:
		v.Meta = meta
	case *fhir.Patient:
		v.Meta = meta
	case *fhir.PractitionerRole:
		v.Meta = meta
	case *fhir.Practitioner:
		v.Meta = meta
	case *fhir.Organization:
		v.Meta = meta
	case *fhir.Condition:
		v.Meta = meta
	case *fhir.DiagnosticReport:
		v.Meta = meta
	case *fhir.Observation:
		v.Meta = meta
	case *fhir.Specimen:
		v.Meta = meta
	case *fhir.Encounter:
		v.Meta = meta
	case *fhir.Immunization:
		v.Meta = meta
	case *fhir.QuestionnaireResponse:
		v.Meta = meta
	case *fhir.Provenance:
		v.Meta = meta
	}
}
