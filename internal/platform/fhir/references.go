package fhir

// ReferenceFields returns pointers to every reference element of r, in
// document order. Callers may rewrite the returned references in place, so
// it must only be used on records the caller owns.
func ReferenceFields(r Resource) []*Reference {
	var refs []*Reference
	add := func(ref *Reference) {
		if ref != nil {
			refs = append(refs, ref)
		}
	}
	addAll := func(list []Reference) {
		for i := range list {
			refs = append(refs, &list[i])
		}
	}

	switch v := r.(type) {
	case *Composition:
		refs = append(refs, extensionReferences(v.Extension)...)
		add(v.Subject)
		addAll(v.Author)
		for i := range v.RelatesTo {
			add(v.RelatesTo[i].TargetReference)
		}
		refs = append(refs, sectionReferences(v.Section)...)
	case *Patient:
		refs = append(refs, extensionReferences(v.Extension)...)
		for i := range v.Address {
			refs = append(refs, extensionReferences(v.Address[i].Extension)...)
		}
	case *PractitionerRole:
		add(v.Practitioner)
		add(v.Organization)
	case *Practitioner:
		refs = append(refs, extensionReferences(v.Extension)...)
	case *Organization:
		refs = append(refs, extensionReferences(v.Extension)...)
	case *Condition:
		add(v.Subject)
		for i := range v.Evidence {
			addAll(v.Evidence[i].Detail)
		}
	case *DiagnosticReport:
		addAll(v.BasedOn)
		add(v.Subject)
		addAll(v.Result)
	case *Observation:
		add(v.Subject)
		add(v.Specimen)
	case *Specimen:
		add(v.Subject)
		if v.Collection != nil {
			add(v.Collection.Collector)
		}
	case *Encounter:
		refs = append(refs, extensionReferences(v.Extension)...)
		add(v.Subject)
		add(v.ServiceProvider)
	case *Immunization:
		refs = append(refs, extensionReferences(v.Extension)...)
		add(v.Patient)
	case *QuestionnaireResponse:
		add(v.Subject)
		refs = append(refs, itemReferences(v.Item)...)
	case *Provenance:
		addAll(v.Target)
		for i := range v.Agent {
			add(v.Agent[i].Who)
		}
		for i := range v.Entity {
			add(v.Entity[i].What)
		}
	}
	return refs
}

func extensionReferences(exts []Extension) []*Reference {
	var refs []*Reference
	for i := range exts {
		if exts[i].ValueReference != nil {
			refs = append(refs, exts[i].ValueReference)
		}
		refs = append(refs, extensionReferences(exts[i].Extension)...)
	}
	return refs
}

func sectionReferences(sections []CompositionSection) []*Reference {
	var refs []*Reference
	for i := range sections {
		for j := range sections[i].Entry {
			refs = append(refs, &sections[i].Entry[j])
		}
		refs = append(refs, sectionReferences(sections[i].Section)...)
	}
	return refs
}

func itemReferences(items []QuestionnaireResponseItem) []*Reference {
	var refs []*Reference
	for i := range items {
		for j := range items[i].Answer {
			if items[i].Answer[j].ValueReference != nil {
				refs = append(refs, items[i].Answer[j].ValueReference)
			}
			refs = append(refs, itemReferences(items[i].Answer[j].Item)...)
		}
		refs = append(refs, itemReferences(items[i].Item)...)
	}
	return refs
}
