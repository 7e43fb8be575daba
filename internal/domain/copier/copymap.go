// Package copier copies records of a source bundle into a new graph.
//
// A CopyMap lives for one transformation pass. It maps every original record
// to its single copy and rewrites the references of each new copy to point
// at copies, never at originals. Callers copy dependencies before
// dependents; a reference to a source record that has not been copied yet
// is reported as a *CopyContractViolation.
package copier

import (
	"fmt"

	"github.com/ehr/notification-builder/internal/platform/fhir"
)

// Source resolves references against the source bundle.
type Source interface {
	Lookup(ref *fhir.Reference) (fhir.Resource, bool)
}

// CopyMap is the pass-scoped identity map from original records to copies.
// It is not safe for concurrent use; each transformation owns its own map.
type CopyMap struct {
	source  Source
	ids     fhir.IDGenerator
	copies  map[string]fhir.Resource
	omitted map[string]struct{}
}

// New creates an empty CopyMap over source. Copies get fresh ids from ids.
func New(source Source, ids fhir.IDGenerator) *CopyMap {
	return &CopyMap{
		source:  source,
		ids:     ids,
		copies:  make(map[string]fhir.Resource),
		omitted: make(map[string]struct{}),
	}
}

// Len returns the number of registered copies.
func (m *CopyMap) Len() int { return len(m.copies) }

// Register records c as the copy of original. Registering a second copy
// of the same original is a contract violation.
func (m *CopyMap) Register(original, c fhir.Resource) error {
	key := fhir.ResourceKey(original)
	if _, ok := m.copies[key]; ok {
		return violation(original.ResourceType(), original.ResourceID(), ReasonCopiedTwice)
	}
	m.copies[key] = c
	return nil
}

// Lookup returns the copy of original, if one was registered.
func (m *CopyMap) Lookup(original fhir.Resource) (fhir.Resource, bool) {
	if original == nil {
		return nil, false
	}
	c, ok := m.copies[fhir.ResourceKey(original)]
	return c, ok
}

// Copied resolves ref against the source and returns the copy of its target.
func (m *CopyMap) Copied(ref *fhir.Reference) (fhir.Resource, bool) {
	original, ok := m.source.Lookup(ref)
	if !ok {
		return nil, false
	}
	return m.Lookup(original)
}

// Omit marks source records that this pass leaves out. Later copies drop
// list entries that point at them: composition section entries, authors,
// report results and basis, condition evidence details, provenance targets,
// agents and entities. A record that is copied after all is no longer
// treated as omitted.
func (m *CopyMap) Omit(records ...fhir.Resource) {
	for _, r := range records {
		if r != nil {
			m.omitted[fhir.ResourceKey(r)] = struct{}{}
		}
	}
}

// IsOmitted reports whether ref points at an omitted record without a copy.
func (m *CopyMap) IsOmitted(ref *fhir.Reference) bool {
	if ref == nil || ref.Reference == "" {
		return false
	}
	original, ok := m.source.Lookup(ref)
	if !ok {
		return false
	}
	return m.omittedRecord(original)
}

func (m *CopyMap) omittedRecord(original fhir.Resource) bool {
	if _, copied := m.Lookup(original); copied {
		return false
	}
	_, ok := m.omitted[fhir.ResourceKey(original)]
	return ok
}

// Rebind rewrites ref in place to point at the copy of its target. A target
// that is not part of the source bundle (a logical or external reference)
// is kept verbatim.
func (m *CopyMap) Rebind(ref *fhir.Reference) error {
	if ref == nil || ref.Reference == "" {
		return nil
	}
	original, ok := m.source.Lookup(ref)
	if !ok {
		return nil
	}
	c, ok := m.Lookup(original)
	if !ok {
		if m.omittedRecord(original) {
			return violation(original.ResourceType(), original.ResourceID(), ReasonOmitted)
		}
		return violation(original.ResourceType(), original.ResourceID(), ReasonNotCopied)
	}
	ref.Reference = fhir.FormatReference(c.ResourceType(), c.ResourceID())
	return nil
}

// Copy creates the copy of original with a fresh id and rebound references,
// and registers it. Unmodeled members are carried over with their references
// rebound; a member that still points at an uncopied source record is
// dropped.
func (m *CopyMap) Copy(original fhir.Resource, opts ...Option) (fhir.Resource, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	s, ok := strategies[original.ResourceType()]
	if !ok {
		return nil, violation(original.ResourceType(), original.ResourceID(), ReasonNoStrategy)
	}
	if _, done := m.Lookup(original); done {
		return nil, violation(original.ResourceType(), original.ResourceID(), ReasonCopiedTwice)
	}

	c := s(original, m.ids.NewID())
	if o.profiles != nil {
		overrideProfile(c, o.profiles)
	}
	if comp, ok := c.(*fhir.Composition); ok {
		comp.Section = m.pruneSections(comp.Section)
	}
	m.dropOmitted(c)
	if err := m.rebindAll(original, c); err != nil {
		return nil, err
	}
	if err := m.Register(original, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *CopyMap) rebindAll(original, c fhir.Resource) error {
	for _, ref := range fhir.ReferenceFields(c) {
		if err := m.Rebind(ref); err != nil {
			return err
		}
	}
	x, err := m.rebindExtras(fhir.ExtrasOf(original))
	if err != nil {
		return fmt.Errorf("copy %s: %w", fhir.ResourceKey(original), err)
	}
	fhir.SetExtras(c, x)
	return nil
}

// CopyOnce returns the registered copy of original, copying it first if
// this pass has not done so yet.
func (m *CopyMap) CopyOnce(original fhir.Resource, opts ...Option) (fhir.Resource, error) {
	if c, ok := m.Lookup(original); ok {
		return c, nil
	}
	return m.Copy(original, opts...)
}

// CopyWithProfile copies original and replaces its declared profiles.
func (m *CopyMap) CopyWithProfile(original fhir.Resource, profiles ...string) (fhir.Resource, error) {
	return m.Copy(original, WithProfile(profiles...))
}

// AdoptSubject registers a tier-substituted subject as the copy of the
// original one and returns the registered record. The substitute is cloned
// before its references are rebound, so it may share structure with the
// source. The clone keeps the substitute's id, or gets a fresh one.
func (m *CopyMap) AdoptSubject(original, substitute *fhir.Patient) (*fhir.Patient, error) {
	id := substitute.ID
	if id == "" {
		id = m.ids.NewID()
	}
	c := copyPatient(substitute, id).(*fhir.Patient)
	if err := m.rebindAll(substitute, c); err != nil {
		return nil, err
	}
	if err := m.Register(original, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Option adjusts a single Copy call.
type Option func(*options)

type options struct {
	profiles []string
}

// WithProfile replaces the declared profiles of the copy.
func WithProfile(profiles ...string) Option {
	return func(o *options) { o.profiles = append([]string{}, profiles...) }
}

// pruneSections drops section entries that point at omitted records, and
// sections left with neither entries nor subsections.
func (m *CopyMap) pruneSections(sections []fhir.CompositionSection) []fhir.CompositionSection {
	if sections == nil {
		return nil
	}
	out := make([]fhir.CompositionSection, 0, len(sections))
	for _, s := range sections {
		var entries []fhir.Reference
		for _, e := range s.Entry {
			if r, ok := m.source.Lookup(&e); ok {
				if m.omittedRecord(r) {
					continue
				}
			}
			entries = append(entries, e)
		}
		sub := m.pruneSections(s.Section)
		if len(entries) == 0 && len(sub) == 0 && (len(s.Entry) > 0 || len(s.Section) > 0) {
			continue
		}
		s.Entry = entries
		s.Section = sub
		if len(s.Section) == 0 {
			s.Section = nil
		}
		out = append(out, s)
	}
	return out
}

func overrideProfile(r fhir.Resource, profiles []string) {
	meta := r.ResourceMeta()
	if meta == nil {
		setMeta(r, &fhir.Meta{Profile: profiles})
		return
	}
	meta.Profile = profiles
}
