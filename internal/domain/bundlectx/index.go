package bundlectx

import "github.com/ehr/notification-builder/internal/platform/fhir"

// Index resolves references against the entries of one bundle. Records are
// addressable by "Type/id", by any URL ending in "Type/id" and by their exact
// entry full URL (which covers urn:uuid entries).
type Index struct {
	byKey     map[string]fhir.Resource
	byFullURL map[string]fhir.Resource
	keys      map[fhir.Resource]string
}

// NewIndex indexes the entries of b. When two entries share a key the first
// one wins, which matches the reading order of the bundle.
func NewIndex(b *fhir.Bundle) *Index {
	idx := &Index{
		byKey:     make(map[string]fhir.Resource, len(b.Entry)),
		byFullURL: make(map[string]fhir.Resource, len(b.Entry)),
		keys:      make(map[fhir.Resource]string, len(b.Entry)),
	}
	for _, e := range b.Entry {
		if e.Resource == nil {
			continue
		}
		key := fhir.ResourceKey(e.Resource)
		if _, dup := idx.byKey[key]; !dup {
			idx.byKey[key] = e.Resource
			idx.keys[e.Resource] = key
		}
		if e.FullURL != "" {
			if _, dup := idx.byFullURL[e.FullURL]; !dup {
				idx.byFullURL[e.FullURL] = e.Resource
			}
		}
	}
	return idx
}

// Lookup resolves ref to a record of the bundle.
func (idx *Index) Lookup(ref *fhir.Reference) (fhir.Resource, bool) {
	if ref == nil || ref.Reference == "" {
		return nil, false
	}
	if r, ok := idx.byFullURL[ref.Reference]; ok {
		return r, true
	}
	resourceType, id, ok := fhir.ParseReference(ref.Reference)
	if !ok {
		return nil, false
	}
	if resourceType == "" {
		resourceType = ref.Type
	}
	if resourceType == "" {
		return nil, false
	}
	r, ok := idx.byKey[fhir.FormatReference(resourceType, id)]
	return r, ok
}

// Contains reports whether r is one of the indexed records (by identity).
func (idx *Index) Contains(r fhir.Resource) bool {
	_, ok := idx.keys[r]
	return ok
}

// Len returns the number of distinct records.
func (idx *Index) Len() int { return len(idx.byKey) }

// lookupAs resolves ref and asserts the record kind.
func lookupAs[T fhir.Resource](idx *Index, ref *fhir.Reference) (T, bool) {
	var zero T
	r, ok := idx.Lookup(ref)
	if !ok {
		return zero, false
	}
	t, ok := r.(T)
	return t, ok
}
