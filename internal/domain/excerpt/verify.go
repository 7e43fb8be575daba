package excerpt

import (
	"github.com/ehr/notification-builder/internal/domain/bundlectx"
	"github.com/ehr/notification-builder/internal/domain/copier"
	"github.com/ehr/notification-builder/internal/platform/fhir"
)

// VerifyReferences checks that every reference of out resolves to an entry
// of out. When source is given, references that do not resolve within
// source either are external and allowed; a reference that resolves only
// within source points back at an original and fails the check. The failure
// is a *copier.CopyContractViolation naming the referencing record.
func VerifyReferences(out, source *fhir.Bundle) error {
	idx := bundlectx.NewIndex(out)
	var srcIdx *bundlectx.Index
	if source != nil {
		srcIdx = bundlectx.NewIndex(source)
	}

	for _, r := range out.Resources() {
		for _, ref := range fhir.ReferenceFields(r) {
			if ref.Reference == "" {
				continue
			}
			if _, ok := idx.Lookup(ref); ok {
				continue
			}
			if srcIdx != nil {
				if _, ok := srcIdx.Lookup(ref); !ok {
					continue
				}
			}
			return &copier.CopyContractViolation{
				Kind:   r.ResourceType(),
				ID:     r.ResourceID(),
				Reason: copier.ReasonDangling + ": " + ref.Reference,
			}
		}
	}
	return nil
}
