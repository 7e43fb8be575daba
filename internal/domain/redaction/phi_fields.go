package redaction

import "github.com/ehr/notification-builder/pkg/fhirmodels"

// TierFieldConfig lists the notified person elements that survive at a
// privacy tier. Paths use dot notation matching the FHIR JSON element names.
type TierFieldConfig struct {
	Tier    fhirmodels.Tier
	Profile string
	// Retained lists the element paths kept at this tier. Everything else
	// is dropped from the subject.
	Retained []string
}

// PHIFields returns the retention table for every tier, least redacted first.
func PHIFields() []TierFieldConfig {
	return []TierFieldConfig{
		{
			Tier:    fhirmodels.TierNominal,
			Profile: fhirmodels.ProfileNotifiedPerson,
			Retained: []string{
				"identifier",
				"name",
				"telecom",
				"gender",
				"birthDate",
				"deceased",
				"address",
				"extension",
			},
		},
		{
			Tier:    fhirmodels.TierNonNominal,
			Profile: fhirmodels.ProfileNotifiedPersonNotByName,
			Retained: []string{
				"gender",
				"birthDate.month", // truncated to YYYY-MM
				"deceased",
				"address.postalCode.prefix", // first three digits
				"address.country",
				"address.extension.facility", // facility address of the person
			},
		},
		{
			Tier:    fhirmodels.TierAnonymous,
			Profile: fhirmodels.ProfileNotifiedPersonAnonymous,
			Retained: []string{
				"gender",
				"birthDate.month",
				"address.postalCode.prefix",
				"address.country",
			},
		},
	}
}

// RetainedPaths returns the retained paths of tier as a set. Example key:
// "address.country".
func RetainedPaths(tier fhirmodels.Tier) map[string]bool {
	paths := make(map[string]bool, 8)
	for _, c := range PHIFields() {
		if c.Tier != tier {
			continue
		}
		for _, f := range c.Retained {
			paths[f] = true
		}
	}
	return paths
}
