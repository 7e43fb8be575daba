package copier

import "github.com/ehr/notification-builder/internal/platform/fhir"

type specimenGroup struct {
	specimen     fhir.Resource
	observations []int
}

// GroupAndCopy copies observations together with the specimens they
// reference. Observations are partitioned by specimen in order of first
// appearance; each specimen is copied exactly once and every observation of
// its partition is rebound to that single copy. The subject and the
// submitter must already be registered in m, since specimens and
// observations reference them.
//
// Observations come back in input order, specimens in first-appearance order.
func GroupAndCopy(m *CopyMap, observations []*fhir.Observation) ([]*fhir.Observation, []*fhir.Specimen, error) {
	var groups []*specimenGroup
	byKey := make(map[string]*specimenGroup)
	distinct := 0
	for i, obs := range observations {
		key := ""
		var sp fhir.Resource
		if obs.Specimen != nil {
			if r, ok := m.source.Lookup(obs.Specimen); ok {
				sp, key = r, fhir.ResourceKey(r)
			}
		}
		g, ok := byKey[key]
		if !ok {
			g = &specimenGroup{specimen: sp}
			byKey[key] = g
			groups = append(groups, g)
			if sp != nil {
				distinct++
			}
		}
		g.observations = append(g.observations, i)
	}

	copiedObs := make([]*fhir.Observation, len(observations))
	var specimens []*fhir.Specimen
	for _, g := range groups {
		var spCopy *fhir.Specimen
		if g.specimen != nil {
			c, err := m.CopyOnce(g.specimen)
			if err != nil {
				return nil, nil, err
			}
			var ok bool
			if spCopy, ok = c.(*fhir.Specimen); !ok {
				return nil, nil, violation(g.specimen.ResourceType(), g.specimen.ResourceID(), ReasonSpecimenGroup)
			}
			specimens = append(specimens, spCopy)
		}
		for _, i := range g.observations {
			c, err := m.Copy(observations[i])
			if err != nil {
				return nil, nil, err
			}
			obs := c.(*fhir.Observation)
			if spCopy != nil && (obs.Specimen == nil || obs.Specimen.Reference != fhir.FormatReference("Specimen", spCopy.ID)) {
				return nil, nil, violation("Observation", observations[i].ID, ReasonSpecimenGroup)
			}
			copiedObs[i] = obs
		}
	}

	if len(specimens) != distinct {
		return nil, nil, violation("Specimen", "", ReasonSpecimenGroup)
	}
	return copiedObs, specimens, nil
}
