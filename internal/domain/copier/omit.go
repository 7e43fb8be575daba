package copier

import (
	"bytes"
	"encoding/json"

	"github.com/ehr/notification-builder/internal/platform/fhir"
)

// dropOmitted removes list entries of a fresh copy that point at omitted
// records. Singular references are left alone; Rebind reports them.
func (m *CopyMap) dropOmitted(c fhir.Resource) {
	if len(m.omitted) == 0 {
		return
	}
	switch v := c.(type) {
	case *fhir.Composition:
		v.Author = m.keep(v.Author)
	case *fhir.DiagnosticReport:
		v.BasedOn = m.keep(v.BasedOn)
		v.Result = m.keep(v.Result)
	case *fhir.Condition:
		var evidence []fhir.ConditionEvidence
		for _, ev := range v.Evidence {
			detail := m.keep(ev.Detail)
			if len(detail) == 0 && len(ev.Code) == 0 && len(ev.Detail) > 0 {
				continue
			}
			ev.Detail = detail
			evidence = append(evidence, ev)
		}
		v.Evidence = evidence
	case *fhir.Provenance:
		v.Target = m.keep(v.Target)
		var agents []fhir.ProvenanceAgent
		for _, a := range v.Agent {
			if !m.IsOmitted(a.Who) {
				agents = append(agents, a)
			}
		}
		v.Agent = agents
		var entities []fhir.ProvenanceEntity
		for _, e := range v.Entity {
			if !m.IsOmitted(e.What) {
				entities = append(entities, e)
			}
		}
		v.Entity = entities
	}
}

func (m *CopyMap) keep(refs []fhir.Reference) []fhir.Reference {
	var out []fhir.Reference
	for _, r := range refs {
		if !m.IsOmitted(&r) {
			out = append(out, r)
		}
	}
	return out
}

// rebindExtras copies unmodeled members, rewriting every "reference" they
// hold to the copy of its target. Members that point at a source record
// without a copy are dropped.
func (m *CopyMap) rebindExtras(x fhir.Extras) (fhir.Extras, error) {
	if len(x) == 0 {
		return nil, nil
	}
	out := make(fhir.Extras, len(x))
	for _, k := range x.Keys() {
		dec := json.NewDecoder(bytes.NewReader(x[k]))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		changed, dangling := m.rebindJSON(v)
		switch {
		case dangling:
			continue
		case changed:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			out[k] = raw
		default:
			out[k] = append(json.RawMessage(nil), x[k]...)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (m *CopyMap) rebindJSON(v any) (changed, dangling bool) {
	switch t := v.(type) {
	case map[string]any:
		if s, ok := t["reference"].(string); ok {
			if original, found := m.source.Lookup(&fhir.Reference{Reference: s}); found {
				c, copied := m.Lookup(original)
				if !copied {
					return false, true
				}
				t["reference"] = fhir.FormatReference(c.ResourceType(), c.ResourceID())
				changed = true
			}
		}
		for k, child := range t {
			if k == "reference" {
				continue
			}
			ch, d := m.rebindJSON(child)
			if d {
				return changed, true
			}
			changed = changed || ch
		}
	case []any:
		for _, child := range t {
			ch, d := m.rebindJSON(child)
			if d {
				return changed, true
			}
			changed = changed || ch
		}
	}
	return changed, dangling
}
