// Package bundlectx extracts a typed, read-only view of a notification bundle.
//
// Extract resolves the singular roles of a notification (composition,
// subject, notifier, submitter, condition or laboratory report) by following
// references from the composition, and the collections (observations,
// specimens, encounters, organizations, immunizations, facilities,
// provenance) by a single filtering pass over the entries plus a few targeted
// lookups. The returned Context keeps pointers into the source bundle and
// never writes to them.
package bundlectx

import (
	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// Context is the typed view of one source bundle. It is built once per
// transformation and discarded afterwards.
type Context struct {
	Bundle *fhir.Bundle
	Flavor fhirmodels.Flavor
	// Tier is empty when neither the bundle nor the subject profile names one.
	Tier fhirmodels.Tier

	Composition *fhir.Composition
	Subject     *fhir.Patient
	Notifier    *fhir.PractitionerRole
	// NotifierRecords are the organization and practitioner the notifier
	// role points at, when they are part of the bundle.
	NotifierRecords []fhir.Resource

	// Laboratory flavor.
	Submitter        *fhir.PractitionerRole
	SubmitterRecords []fhir.Resource
	Report           *fhir.DiagnosticReport
	Observations     []*fhir.Observation
	Specimens        []*fhir.Specimen

	// Disease flavor.
	Condition              *fhir.Condition
	CommonInformation      *fhir.QuestionnaireResponse
	SpecificInformation    *fhir.QuestionnaireResponse
	Encounters             []*fhir.Encounter
	EncounterOrganizations []*fhir.Organization
	Immunizations          []*fhir.Immunization

	// PersonFacilities are the organizations of the subject's facility
	// addresses.
	PersonFacilities []*fhir.Organization
	Provenance       []*fhir.Provenance

	index *Index
}

// Index returns the reference index of the source bundle.
func (c *Context) Index() *Index { return c.index }

// Lookup resolves ref against the source bundle.
func (c *Context) Lookup(ref *fhir.Reference) (fhir.Resource, bool) {
	return c.index.Lookup(ref)
}

// Extract builds the Context of b. A required role that cannot be resolved
// yields a *ContextResolutionError and no Context.
func Extract(b *fhir.Bundle) (*Context, error) {
	if b == nil {
		return nil, unresolved(RoleComposition, "no bundle")
	}
	c := &Context{Bundle: b, index: NewIndex(b)}

	if err := c.resolveCore(); err != nil {
		return nil, err
	}
	c.resolveProfile()
	if c.Flavor == "" {
		return nil, unresolved(RoleFlavor, "bundle profile %v names no notification flavor", b.Profiles())
	}

	scan := c.scan()
	c.Provenance = scan.provenance
	c.PersonFacilities = c.facilities(scan.facilities)

	var err error
	switch c.Flavor {
	case fhirmodels.FlavorLaboratory:
		err = c.resolveLaboratory(scan)
	case fhirmodels.FlavorDisease:
		err = c.resolveDisease(scan)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// resolveCore resolves the roles every flavor requires.
func (c *Context) resolveCore() error {
	for _, r := range c.Bundle.Resources() {
		if comp, ok := r.(*fhir.Composition); ok {
			c.Composition = comp
			break
		}
	}
	if c.Composition == nil {
		return unresolved(RoleComposition, "bundle has no composition entry")
	}

	comp := c.Composition
	if comp.Subject == nil || comp.Subject.Reference == "" {
		return unresolved(RoleSubject, "composition has no subject reference")
	}
	subject, ok := lookupAs[*fhir.Patient](c.index, comp.Subject)
	if !ok {
		return unresolved(RoleSubject, "%s is not a patient entry of the bundle", comp.Subject.Reference)
	}
	c.Subject = subject

	if len(comp.Author) == 0 || comp.Author[0].Reference == "" {
		return unresolved(RoleNotifier, "composition has no author reference")
	}
	notifier, ok := lookupAs[*fhir.PractitionerRole](c.index, &comp.Author[0])
	if !ok {
		return unresolved(RoleNotifier, "%s is not a practitioner role entry of the bundle", comp.Author[0].Reference)
	}
	c.Notifier = notifier
	c.NotifierRecords = c.roleRecords(notifier)
	return nil
}

// resolveProfile derives flavor and tier from the bundle profile, falling
// back to the composition and subject profiles.
func (c *Context) resolveProfile() {
	for _, p := range c.Bundle.Profiles() {
		if f, t, ok := fhirmodels.ParseBundleProfile(p); ok {
			c.Flavor, c.Tier = f, t
			return
		}
	}

	switch {
	case fhir.HasProfile(c.Composition, fhirmodels.ProfileCompositionLaboratory):
		c.Flavor = fhirmodels.FlavorLaboratory
	case fhir.HasProfile(c.Composition, fhirmodels.ProfileCompositionDisease):
		c.Flavor = fhirmodels.FlavorDisease
	default:
		for _, r := range c.sectionEntries() {
			if _, ok := r.(*fhir.DiagnosticReport); ok {
				c.Flavor = fhirmodels.FlavorLaboratory
				break
			}
			if _, ok := r.(*fhir.Condition); ok {
				c.Flavor = fhirmodels.FlavorDisease
				break
			}
		}
	}

	for _, t := range []fhirmodels.Tier{fhirmodels.TierNominal, fhirmodels.TierNonNominal, fhirmodels.TierAnonymous} {
		if p, _ := fhirmodels.SubjectProfile(t); fhir.HasProfile(c.Subject, p) {
			c.Tier = t
			return
		}
	}
}

func (c *Context) resolveLaboratory(s *scanResult) error {
	for _, r := range c.sectionEntries() {
		if dr, ok := r.(*fhir.DiagnosticReport); ok {
			c.Report = dr
			break
		}
	}
	if c.Report == nil {
		return unresolved(RoleDiagnosticReport, "no composition section entry is a diagnostic report")
	}

	if s.submitter == nil {
		return unresolved(RoleSubmitter, "no practitioner role declares %s", fhirmodels.ProfileSubmittingRole)
	}
	c.Submitter = s.submitter
	c.SubmitterRecords = c.roleRecords(s.submitter)

	observations := newOrderedSet[*fhir.Observation]()
	for i := range c.Report.Result {
		ref := &c.Report.Result[i]
		obs, ok := lookupAs[*fhir.Observation](c.index, ref)
		if !ok {
			return unresolved(RoleObservation, "report result %s is not an observation entry of the bundle", ref.Reference)
		}
		observations.add(obs)
	}
	c.Observations = observations.items

	specimens := newOrderedSet[*fhir.Specimen]()
	for _, obs := range c.Observations {
		if obs.Specimen == nil || obs.Specimen.Reference == "" {
			continue
		}
		sp, ok := lookupAs[*fhir.Specimen](c.index, obs.Specimen)
		if !ok {
			return unresolved(RoleSpecimen, "observation %s references %s which is not a specimen entry of the bundle", obs.ID, obs.Specimen.Reference)
		}
		specimens.add(sp)
	}
	c.Specimens = specimens.items
	return nil
}

func (c *Context) resolveDisease(s *scanResult) error {
	for _, r := range c.sectionEntries() {
		switch v := r.(type) {
		case *fhir.Condition:
			if c.Condition == nil {
				c.Condition = v
			}
		case *fhir.QuestionnaireResponse:
			switch {
			case fhir.HasProfile(v, fhirmodels.ProfileDiseaseInformationCommon):
				if c.CommonInformation == nil {
					c.CommonInformation = v
				}
			case fhir.HasProfilePrefix(v, fhirmodels.ProfilePrefixDiseaseInformation):
				if c.SpecificInformation == nil {
					c.SpecificInformation = v
				}
			}
		}
	}
	if c.Condition == nil {
		return unresolved(RoleCondition, "no composition section entry is a condition")
	}

	encounters := newOrderedSet[*fhir.Encounter]()
	for _, e := range s.encounters {
		encounters.add(e)
	}
	if c.CommonInformation != nil {
		for _, r := range c.answerTargets(c.CommonInformation) {
			if e, ok := r.(*fhir.Encounter); ok {
				encounters.add(e)
			}
		}
	}
	c.Encounters = encounters.items

	organizations := newOrderedSet[*fhir.Organization]()
	for _, o := range s.organizations {
		organizations.add(o)
	}
	for _, e := range c.Encounters {
		if o, ok := lookupAs[*fhir.Organization](c.index, e.ServiceProvider); ok {
			organizations.add(o)
		}
	}
	c.EncounterOrganizations = organizations.items

	immunizations := newOrderedSet[*fhir.Immunization]()
	for _, im := range s.immunizations {
		immunizations.add(im)
	}
	if c.SpecificInformation != nil {
		for _, r := range c.answerTargets(c.SpecificInformation) {
			if im, ok := r.(*fhir.Immunization); ok {
				immunizations.add(im)
			}
		}
	}
	c.Immunizations = immunizations.items
	return nil
}

// facilities completes the profile-matched facilities with the organizations
// the subject's address extensions point at.
func (c *Context) facilities(matched []*fhir.Organization) []*fhir.Organization {
	set := newOrderedSet[*fhir.Organization]()
	for _, o := range matched {
		set.add(o)
	}
	for _, ref := range fhir.ReferenceFields(c.Subject) {
		if o, ok := lookupAs[*fhir.Organization](c.index, ref); ok {
			set.add(o)
		}
	}
	return set.items
}

// roleRecords resolves the organization and practitioner of a role. Targets
// outside the bundle are left to the copier, which keeps such references
// verbatim.
func (c *Context) roleRecords(role *fhir.PractitionerRole) []fhir.Resource {
	var out []fhir.Resource
	for _, ref := range []*fhir.Reference{role.Organization, role.Practitioner} {
		if r, ok := c.index.Lookup(ref); ok {
			out = append(out, r)
		}
	}
	return out
}

// sectionEntries resolves the composition's section entries, depth first.
func (c *Context) sectionEntries() []fhir.Resource {
	var out []fhir.Resource
	var walk func([]fhir.CompositionSection)
	walk = func(sections []fhir.CompositionSection) {
		for i := range sections {
			for j := range sections[i].Entry {
				if r, ok := c.index.Lookup(&sections[i].Entry[j]); ok {
					out = append(out, r)
				}
			}
			walk(sections[i].Section)
		}
	}
	walk(c.Composition.Section)
	return out
}

// answerTargets resolves the answer references of a questionnaire response.
func (c *Context) answerTargets(qr *fhir.QuestionnaireResponse) []fhir.Resource {
	var out []fhir.Resource
	for _, ref := range fhir.ReferenceFields(qr) {
		if ref == qr.Subject {
			continue
		}
		if r, ok := c.index.Lookup(ref); ok {
			out = append(out, r)
		}
	}
	return out
}

type scanResult struct {
	submitter     *fhir.PractitionerRole
	encounters    []*fhir.Encounter
	organizations []*fhir.Organization
	immunizations []*fhir.Immunization
	facilities    []*fhir.Organization
	provenance    []*fhir.Provenance
}

// scan is the single filtering pass over all entries.
func (c *Context) scan() *scanResult {
	s := &scanResult{}
	for _, r := range c.Bundle.Resources() {
		switch v := r.(type) {
		case *fhir.PractitionerRole:
			if s.submitter == nil && fhir.HasProfile(v, fhirmodels.ProfileSubmittingRole) {
				s.submitter = v
			}
		case *fhir.Encounter:
			if fhir.HasProfile(v, fhirmodels.ProfileHospitalization) {
				s.encounters = append(s.encounters, v)
			}
		case *fhir.Organization:
			switch {
			case fhir.HasProfile(v, fhirmodels.ProfileNotifiedPersonFacility):
				s.facilities = append(s.facilities, v)
			case fhir.HasProfile(v, fhirmodels.ProfileOrganization):
				s.organizations = append(s.organizations, v)
			}
		case *fhir.Immunization:
			if fhir.HasProfilePrefix(v, fhirmodels.ProfilePrefixImmunizationInformation) {
				s.immunizations = append(s.immunizations, v)
			}
		case *fhir.Provenance:
			s.provenance = append(s.provenance, v)
		}
	}
	return s
}

// orderedSet collapses duplicates by identity and keeps first-appearance order.
type orderedSet[T fhir.Resource] struct {
	seen  map[fhir.Resource]struct{}
	items []T
}

func newOrderedSet[T fhir.Resource]() *orderedSet[T] {
	return &orderedSet[T]{seen: make(map[fhir.Resource]struct{})}
}

func (s *orderedSet[T]) add(v T) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
