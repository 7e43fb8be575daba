package excerpt

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/notification-builder/internal/domain/assembler"
	"github.com/ehr/notification-builder/internal/domain/bundlectx"
	"github.com/ehr/notification-builder/internal/domain/copier"
	"github.com/ehr/notification-builder/internal/domain/redaction"
	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// pass is the state of one transformation. It is never shared.
type pass struct {
	engine *Engine
	ctx    *bundlectx.Context
	m      *copier.CopyMap
	parts  *assembler.Parts
	source fhirmodels.Tier
	target fhirmodels.Tier
	logger zerolog.Logger
}

// bestEffort reports whether optional supplementary content may be dropped
// on failure. Only tier-changing transformations do so; a same-tier copy
// must reproduce everything.
func (p *pass) bestEffort() bool { return p.source != p.target }

// copyNew copies original unless this pass already did. fresh is false when
// the record was copied before, so callers place each copy in the bundle
// once.
func (p *pass) copyNew(original fhir.Resource) (c fhir.Resource, fresh bool, err error) {
	if c, ok := p.m.Lookup(original); ok {
		return c, false, nil
	}
	c, err = p.m.Copy(original)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// subject places the tier substitute of the notified person and, when the
// target tier keeps them, the facility organizations it references.
func (p *pass) subject() error {
	ctx := p.ctx
	switch {
	case p.source == p.target:
		if err := p.facilities(); err != nil {
			return err
		}
		c, err := p.m.Copy(ctx.Subject)
		if err != nil {
			return err
		}
		p.parts.Subject = c.(*fhir.Patient)

	case p.target == fhirmodels.TierNonNominal:
		if err := p.facilities(); err != nil {
			return err
		}
		sub, err := p.engine.redactor.ToNonNominal(ctx.Subject)
		if err != nil {
			return fmt.Errorf("redact subject to %s: %w", p.target, err)
		}
		if p.parts.Subject, err = p.m.AdoptSubject(ctx.Subject, sub); err != nil {
			return err
		}

	case p.target == fhirmodels.TierAnonymous:
		// The facility is reduced to an address of the subject; the
		// organizations themselves do not survive.
		var extra []fhir.Address
		for _, org := range ctx.PersonFacilities {
			for _, a := range org.Address {
				if reduced, ok := redaction.ReduceAddress(a); ok {
					extra = append(extra, reduced)
				}
			}
		}
		p.m.Omit(facilityRecords(ctx.PersonFacilities)...)
		sub, err := p.engine.redactor.ToAnonymous(ctx.Subject, extra)
		if err != nil {
			return fmt.Errorf("redact subject to %s: %w", p.target, err)
		}
		if p.parts.Subject, err = p.m.AdoptSubject(ctx.Subject, sub); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: %q to %q", ErrUnsupportedTransition, p.source, p.target)
	}
	return nil
}

func facilityRecords(orgs []*fhir.Organization) []fhir.Resource {
	out := make([]fhir.Resource, len(orgs))
	for i, org := range orgs {
		out[i] = org
	}
	return out
}

func (p *pass) facilities() error {
	for _, org := range p.ctx.PersonFacilities {
		c, fresh, err := p.copyNew(org)
		if err != nil {
			return err
		}
		if fresh {
			p.parts.SubjectFacilities = append(p.parts.SubjectFacilities, c.(*fhir.Organization))
		}
	}
	return nil
}

// role copies a practitioner role after its organization and practitioner.
// It returns nil when the role was already placed by another slot.
func (p *pass) role(role *fhir.PractitionerRole, records []fhir.Resource) (*fhir.PractitionerRole, []fhir.Resource, error) {
	var placed []fhir.Resource
	for _, r := range records {
		c, fresh, err := p.copyNew(r)
		if err != nil {
			return nil, nil, err
		}
		if fresh {
			placed = append(placed, c)
		}
	}
	c, fresh, err := p.copyNew(role)
	if err != nil {
		return nil, nil, err
	}
	if !fresh {
		return nil, placed, nil
	}
	return c.(*fhir.PractitionerRole), placed, nil
}

func (p *pass) notifier() error {
	role, records, err := p.role(p.ctx.Notifier, p.ctx.NotifierRecords)
	if err != nil {
		return err
	}
	p.parts.NotifierRole, p.parts.NotifierRecords = role, records
	return nil
}

// composition copies the composition last, without entries for omitted
// records.
func (p *pass) composition() error {
	c, err := p.m.Copy(p.ctx.Composition)
	if err != nil {
		return err
	}
	p.parts.Composition = c.(*fhir.Composition)
	return nil
}

// provenance copies provenance records as additional entries. A record
// whose every target was left out of the pass is dropped with it.
func (p *pass) provenance() error {
	for _, pr := range p.ctx.Provenance {
		if p.targetsOmitted(pr) {
			p.logger.Info().
				Str("record", fhir.ResourceKey(pr)).
				Msg("dropping provenance of omitted records")
			continue
		}
		c, err := p.m.Copy(pr)
		if err != nil {
			return err
		}
		p.parts.AddAdditional(c)
	}
	return nil
}

func (p *pass) targetsOmitted(pr *fhir.Provenance) bool {
	if len(pr.Target) == 0 {
		return false
	}
	for i := range pr.Target {
		if !p.m.IsOmitted(&pr.Target[i]) {
			return false
		}
	}
	return true
}

// laboratory copies a laboratory notification: subject, notifier,
// submitter, specimens with their observations, report, composition and
// provenance.
func (p *pass) laboratory() error {
	if err := p.subject(); err != nil {
		return err
	}
	if err := p.notifier(); err != nil {
		return err
	}

	role, records, err := p.role(p.ctx.Submitter, p.ctx.SubmitterRecords)
	if err != nil {
		return err
	}
	p.parts.SubmitterRole, p.parts.SubmitterRecords = role, records

	observations, specimens, err := copier.GroupAndCopy(p.m, p.ctx.Observations)
	if err != nil {
		return err
	}
	p.parts.Observations, p.parts.Specimens = observations, specimens

	report, err := p.m.Copy(p.ctx.Report)
	if err != nil {
		return err
	}
	p.parts.Report = report.(*fhir.DiagnosticReport)

	if err := p.composition(); err != nil {
		return err
	}
	return p.provenance()
}

// disease copies a disease notification: subject, notifier, condition,
// hospitalization with its organizations, common information, immunizations,
// specific information, composition and provenance.
func (p *pass) disease() error {
	ctx := p.ctx
	if err := p.subject(); err != nil {
		return err
	}
	if err := p.notifier(); err != nil {
		return err
	}

	cond, err := p.m.Copy(ctx.Condition)
	if err != nil {
		return err
	}
	p.parts.Condition = cond.(*fhir.Condition)

	for _, org := range ctx.EncounterOrganizations {
		c, fresh, err := p.copyNew(org)
		if err != nil {
			return err
		}
		if fresh {
			p.parts.EncounterOrganizations = append(p.parts.EncounterOrganizations, c.(*fhir.Organization))
		}
	}
	for _, enc := range ctx.Encounters {
		c, err := p.m.Copy(enc)
		if err != nil {
			return err
		}
		p.parts.Encounters = append(p.parts.Encounters, c.(*fhir.Encounter))
	}

	if err := p.commonInformation(); err != nil {
		return err
	}

	for _, im := range ctx.Immunizations {
		c, err := p.m.Copy(im)
		if err != nil {
			return err
		}
		p.parts.Immunizations = append(p.parts.Immunizations, c.(*fhir.Immunization))
	}
	if ctx.SpecificInformation != nil {
		c, err := p.m.Copy(ctx.SpecificInformation)
		if err != nil {
			return err
		}
		p.parts.SpecificInformation = c.(*fhir.QuestionnaireResponse)
	}

	if err := p.composition(); err != nil {
		return err
	}
	return p.provenance()
}

// commonInformation copies the common questionnaire response. When the
// tier changes a failure is logged and the section omitted.
func (p *pass) commonInformation() error {
	qr := p.ctx.CommonInformation
	if qr == nil {
		return nil
	}
	c, err := p.m.Copy(qr)
	if err != nil {
		if !p.bestEffort() {
			return err
		}
		p.logger.Warn().Err(err).
			Str("record", fhir.ResourceKey(qr)).
			Msg("omitting common information from excerpt")
		p.m.Omit(qr)
		if p.engine.observer != nil {
			p.engine.observer.Omitted(string(p.ctx.Flavor), qr.ResourceType())
		}
		return nil
	}
	p.parts.CommonInformation = c.(*fhir.QuestionnaireResponse)
	return nil
}
