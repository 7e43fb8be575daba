// Package assembler places copied records into a new document bundle in
// canonical order and finalizes the bundle metadata.
package assembler

import (
	"fmt"
	"time"

	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// SourceMeta is the bundle-level metadata carried over from the source.
type SourceMeta struct {
	Identifier  *fhir.Identifier
	Timestamp   *time.Time
	LastUpdated *time.Time
	Tags        []fhir.Coding
}

// SourceMetaOf captures the metadata of b.
func SourceMetaOf(b *fhir.Bundle) SourceMeta {
	s := SourceMeta{
		Identifier: b.Identifier,
		Timestamp:  b.Timestamp,
	}
	if b.Meta != nil {
		s.LastUpdated = b.Meta.LastUpdated
		s.Tags = b.Meta.Tag
	}
	return s
}

// Options configures Assemble.
type Options struct {
	// BaseURL prefixes entry full URLs. Defaults to fhirmodels.DefaultFHIRBase.
	BaseURL string
	// IDs issues the bundle id and identifier. Defaults to random UUIDs.
	IDs fhir.IDGenerator
}

// RelatesToTag is the tag pointing back at the notification a bundle was
// derived from.
func RelatesToTag(identifierValue string) fhir.Coding {
	return fhir.Coding{
		System:  fhirmodels.CodeSystemRelatedBundle,
		Code:    identifierValue,
		Display: fhirmodels.RelatedBundleDisplayTemplate + identifierValue,
	}
}

// Assemble builds the output bundle from parts. The bundle gets a fresh id
// and identifier; timestamp and lastUpdated are copied from the source; its
// tags are the source tags followed by one relates-to tag naming the source
// identifier. Two records with the same type and id fail the assembly.
func Assemble(parts *Parts, profile string, source SourceMeta, opts Options) (*fhir.Bundle, error) {
	if parts == nil || parts.Composition == nil {
		return nil, fmt.Errorf("assemble: no composition")
	}
	if profile == "" {
		return nil, fmt.Errorf("assemble: no bundle profile")
	}
	base := opts.BaseURL
	if base == "" {
		base = fhirmodels.DefaultFHIRBase
	}
	ids := opts.IDs
	if ids == nil {
		ids = fhir.UUIDGenerator{}
	}

	resources := parts.Resources()
	entries := make([]fhir.BundleEntry, 0, len(resources))
	seen := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		key := fhir.ResourceKey(r)
		if r.ResourceID() == "" {
			return nil, fmt.Errorf("assemble: %s entry has no id", r.ResourceType())
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("assemble: duplicate entry %s", key)
		}
		seen[key] = struct{}{}
		entries = append(entries, fhir.BundleEntry{FullURL: fhir.FullURL(base, r), Resource: r})
	}

	tags := fhir.CloneCodings(source.Tags)
	if source.Identifier != nil && source.Identifier.Value != "" {
		tags = append(tags, RelatesToTag(source.Identifier.Value))
	}

	return &fhir.Bundle{
		ResourceType: "Bundle",
		ID:           ids.NewID(),
		Meta: &fhir.Meta{
			LastUpdated: fhir.CloneTime(source.LastUpdated),
			Profile:     []string{profile},
			Tag:         tags,
		},
		Identifier: &fhir.Identifier{
			System: fhirmodels.NamingSystemBundleID,
			Value:  ids.NewID(),
		},
		Type:      fhirmodels.BundleTypeDocument,
		Timestamp: fhir.CloneTime(source.Timestamp),
		Entry:     entries,
	}, nil
}
