package fhir

import "time"

// Deep-copy helpers for datatypes. Every helper returns nil for nil input
// so that an absent element stays absent in the copy.

func cloneSlice[T any](in []T, f func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

func identity[T any](v T) T { return v }

func CloneStrings(in []string) []string { return cloneSlice(in, identity[string]) }

func CloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func CloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func CloneMeta(m *Meta) *Meta {
	if m == nil {
		return nil
	}
	return &Meta{
		VersionID:   m.VersionID,
		LastUpdated: CloneTime(m.LastUpdated),
		Profile:     CloneStrings(m.Profile),
		Security:    CloneCodings(m.Security),
		Tag:         CloneCodings(m.Tag),
	}
}

func CloneCoding(c *Coding) *Coding {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func CloneCodings(in []Coding) []Coding { return cloneSlice(in, identity[Coding]) }

func CloneCodeableConcept(cc *CodeableConcept) *CodeableConcept {
	if cc == nil {
		return nil
	}
	return &CodeableConcept{Coding: CloneCodings(cc.Coding), Text: cc.Text}
}

func CloneCodeableConcepts(in []CodeableConcept) []CodeableConcept {
	return cloneSlice(in, func(cc CodeableConcept) CodeableConcept {
		return *CloneCodeableConcept(&cc)
	})
}

// FirstRep copies a singular coded element keeping only its first
// representative coding and its text.
func FirstRep(cc *CodeableConcept) *CodeableConcept {
	if cc == nil {
		return nil
	}
	out := &CodeableConcept{Text: cc.Text}
	if len(cc.Coding) > 0 {
		out.Coding = []Coding{cc.Coding[0]}
	}
	return out
}

func CloneReference(r *Reference) *Reference {
	if r == nil {
		return nil
	}
	return &Reference{
		Reference:  r.Reference,
		Type:       r.Type,
		Identifier: CloneIdentifier(r.Identifier),
		Display:    r.Display,
	}
}

func CloneReferences(in []Reference) []Reference {
	return cloneSlice(in, func(r Reference) Reference { return *CloneReference(&r) })
}

func ClonePeriod(p *Period) *Period {
	if p == nil {
		return nil
	}
	return &Period{Start: CloneTime(p.Start), End: CloneTime(p.End)}
}

func CloneIdentifier(id *Identifier) *Identifier {
	if id == nil {
		return nil
	}
	return &Identifier{
		Use:    id.Use,
		Type:   CloneCodeableConcept(id.Type),
		System: id.System,
		Value:  id.Value,
		Period: ClonePeriod(id.Period),
	}
}

func CloneIdentifiers(in []Identifier) []Identifier {
	return cloneSlice(in, func(id Identifier) Identifier { return *CloneIdentifier(&id) })
}

func CloneHumanName(n *HumanName) *HumanName {
	if n == nil {
		return nil
	}
	return &HumanName{
		Use:    n.Use,
		Text:   n.Text,
		Family: n.Family,
		Given:  CloneStrings(n.Given),
		Prefix: CloneStrings(n.Prefix),
		Suffix: CloneStrings(n.Suffix),
	}
}

func CloneHumanNames(in []HumanName) []HumanName {
	return cloneSlice(in, func(n HumanName) HumanName { return *CloneHumanName(&n) })
}

func CloneContactPoints(in []ContactPoint) []ContactPoint {
	return cloneSlice(in, identity[ContactPoint])
}

func CloneAddress(a Address) Address {
	a.Extension = CloneExtensions(a.Extension)
	a.Line = CloneStrings(a.Line)
	return a
}

func CloneAddresses(in []Address) []Address { return cloneSlice(in, CloneAddress) }

func CloneQuantity(q *Quantity) *Quantity {
	if q == nil {
		return nil
	}
	v := *q
	if q.Value != nil {
		val := *q.Value
		v.Value = &val
	}
	return &v
}

func CloneAnnotations(in []Annotation) []Annotation {
	return cloneSlice(in, func(a Annotation) Annotation {
		a.Time = CloneTime(a.Time)
		return a
	})
}

func CloneExtension(e Extension) Extension {
	e.Extension = CloneExtensions(e.Extension)
	e.ValueBoolean = CloneBool(e.ValueBoolean)
	e.ValueCoding = CloneCoding(e.ValueCoding)
	e.ValueReference = CloneReference(e.ValueReference)
	return e
}

func CloneExtensions(in []Extension) []Extension { return cloneSlice(in, CloneExtension) }
