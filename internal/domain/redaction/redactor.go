// Package redaction derives the notified person of a lower privacy tier.
package redaction

import (
	"errors"

	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// ErrNoSubject is returned when there is no subject to redact.
var ErrNoSubject = errors.New("redaction: no subject")

// postalCodePrefix is the number of postal code characters kept below the
// nominal tier.
const postalCodePrefix = 3

// Redactor produces tier-appropriate substitutes for a notified person. An
// implementation must be deterministic and never add identifying data.
type Redactor interface {
	ToNonNominal(p *fhir.Patient) (*fhir.Patient, error)
	// ToAnonymous redacts p and appends extra, already reduced, addresses.
	ToAnonymous(p *fhir.Patient, extra []fhir.Address) (*fhir.Patient, error)
}

// DefaultRedactor applies the PHIFields retention table.
type DefaultRedactor struct {
	ids fhir.IDGenerator
}

// NewDefaultRedactor creates a redactor issuing substitute ids from ids.
func NewDefaultRedactor(ids fhir.IDGenerator) *DefaultRedactor {
	if ids == nil {
		ids = fhir.UUIDGenerator{}
	}
	return &DefaultRedactor{ids: ids}
}

func (r *DefaultRedactor) ToNonNominal(p *fhir.Patient) (*fhir.Patient, error) {
	if p == nil {
		return nil, ErrNoSubject
	}
	out := &fhir.Patient{
		ID:              r.ids.NewID(),
		Meta:            substituteMeta(p.Meta, fhirmodels.ProfileNotifiedPersonNotByName),
		Gender:          p.Gender,
		BirthDate:       TruncateBirthDate(p.BirthDate),
		DeceasedBoolean: fhir.CloneBool(p.DeceasedBoolean),
	}
	if p.DeceasedDateTime != "" {
		out.DeceasedDateTime = TruncateBirthDate(p.DeceasedDateTime)
	}
	for _, a := range p.Address {
		if IsFacilityAddress(a) {
			out.Address = append(out.Address, facilityAddress(a))
			continue
		}
		if reduced, ok := ReduceAddress(a); ok {
			out.Address = append(out.Address, reduced)
		}
	}
	return out, nil
}

func (r *DefaultRedactor) ToAnonymous(p *fhir.Patient, extra []fhir.Address) (*fhir.Patient, error) {
	if p == nil {
		return nil, ErrNoSubject
	}
	out := &fhir.Patient{
		ID:        r.ids.NewID(),
		Meta:      substituteMeta(p.Meta, fhirmodels.ProfileNotifiedPersonAnonymous),
		Gender:    p.Gender,
		BirthDate: TruncateBirthDate(p.BirthDate),
	}
	for _, a := range p.Address {
		if IsFacilityAddress(a) {
			continue
		}
		if reduced, ok := ReduceAddress(a); ok {
			out.Address = append(out.Address, reduced)
		}
	}
	out.Address = append(out.Address, fhir.CloneAddresses(extra)...)
	return out, nil
}

// ReduceAddress keeps the postal code prefix and country of a. It reports
// false when nothing survives.
func ReduceAddress(a fhir.Address) (fhir.Address, bool) {
	out := fhir.Address{Country: a.Country}
	if len(a.PostalCode) > postalCodePrefix {
		out.PostalCode = a.PostalCode[:postalCodePrefix]
	} else {
		out.PostalCode = a.PostalCode
	}
	return out, out.PostalCode != "" || out.Country != ""
}

// IsFacilityAddress reports whether a points at the facility the person is
// staying in.
func IsFacilityAddress(a fhir.Address) bool {
	for _, e := range a.Extension {
		if e.URL == fhirmodels.ExtensionFacilityAddressUse {
			return true
		}
	}
	return false
}

// TruncateBirthDate reduces a date to month precision ("1980-04-12" becomes
// "1980-04"). Coarser values are returned unchanged.
func TruncateBirthDate(date string) string {
	if len(date) > len("2006-01") {
		return date[:len("2006-01")]
	}
	return date
}

// facilityAddress keeps only the facility reference of a.
func facilityAddress(a fhir.Address) fhir.Address {
	var exts []fhir.Extension
	for _, e := range a.Extension {
		if e.URL == fhirmodels.ExtensionFacilityAddressUse || e.URL == fhirmodels.ExtensionAddressUse {
			exts = append(exts, fhir.CloneExtension(e))
		}
	}
	return fhir.Address{Extension: exts}
}

func substituteMeta(m *fhir.Meta, profile string) *fhir.Meta {
	out := &fhir.Meta{Profile: []string{profile}}
	if m != nil {
		out.Security = fhir.CloneCodings(m.Security)
		out.Tag = fhir.CloneCodings(m.Tag)
	}
	return out
}
