package fhirmodels

import "strings"

// Common notification profile and naming constants used across the application.

// StructureDefinitionBase is the canonical prefix of every notification profile.
const StructureDefinitionBase = "https://demis.rki.de/fhir/StructureDefinition/"

// DefaultFHIRBase is used to build entry full URLs when no base is configured.
const DefaultFHIRBase = "https://demis.rki.de/fhir"

// Flavor is the clinical document family of a notification.
type Flavor string

const (
	FlavorDisease    Flavor = "disease"
	FlavorLaboratory Flavor = "laboratory"
)

// Tier is the privacy classification of a notification's subject.
type Tier string

const (
	TierNominal    Tier = "nominal"
	TierNonNominal Tier = "non-nominal"
	TierAnonymous  Tier = "anonymous"
)

// Bundle profiles.
const (
	ProfileBundleDisease              = StructureDefinitionBase + "NotificationBundleDisease"
	ProfileBundleDiseaseNonNominal    = StructureDefinitionBase + "NotificationBundleDiseaseNonNominal"
	ProfileBundleDiseaseAnonymous     = StructureDefinitionBase + "NotificationBundleDiseaseAnonymous"
	ProfileBundleLaboratory           = StructureDefinitionBase + "NotificationBundleLaboratory"
	ProfileBundleLaboratoryNonNominal = StructureDefinitionBase + "NotificationBundleLaboratoryNonNominal"
	ProfileBundleLaboratoryAnonymous  = StructureDefinitionBase + "NotificationBundleLaboratoryAnonymous"
)

// Composition profiles.
const (
	ProfileCompositionDisease    = StructureDefinitionBase + "NotificationDiseaseXXXX"
	ProfileCompositionLaboratory = StructureDefinitionBase + "NotificationLaboratory"
)

// Notified person profiles, one per tier.
const (
	ProfileNotifiedPerson          = StructureDefinitionBase + "NotifiedPerson"
	ProfileNotifiedPersonNotByName = StructureDefinitionBase + "NotifiedPersonNotByName"
	ProfileNotifiedPersonAnonymous = StructureDefinitionBase + "NotifiedPersonAnonymous"
	ProfileNotifiedPersonFacility  = StructureDefinitionBase + "NotifiedPersonFacility"
)

// Notifier and submitter profiles.
const (
	ProfileNotifierRole       = StructureDefinitionBase + "NotifierRole"
	ProfileNotifier           = StructureDefinitionBase + "Notifier"
	ProfileNotifierFacility   = StructureDefinitionBase + "NotifierFacility"
	ProfileSubmittingRole     = StructureDefinitionBase + "SubmittingRole"
	ProfileSubmittingPerson   = StructureDefinitionBase + "SubmittingPerson"
	ProfileSubmittingFacility = StructureDefinitionBase + "SubmittingFacility"
)

// Laboratory flavor record profiles. Pathogen detection and specimen profiles
// are pathogen specific (e.g. PathogenDetectionCVDP) and matched by prefix.
const (
	ProfileLaboratoryReport       = StructureDefinitionBase + "LaboratoryReport"
	ProfilePrefixPathogenDetection = StructureDefinitionBase + "PathogenDetection"
	ProfilePrefixSpecimen          = StructureDefinitionBase + "Specimen"
)

// Disease flavor record profiles. Disease, specific information and
// immunization profiles are disease specific and matched by prefix.
const (
	ProfilePrefixDisease                 = StructureDefinitionBase + "Disease"
	ProfileDiseaseInformationCommon      = StructureDefinitionBase + "DiseaseInformationCommon"
	ProfilePrefixDiseaseInformation      = StructureDefinitionBase + "DiseaseInformation"
	ProfilePrefixImmunizationInformation = StructureDefinitionBase + "ImmunizationInformation"
	ProfileHospitalization               = StructureDefinitionBase + "Hospitalization"
	ProfileOrganization                  = StructureDefinitionBase + "Organization"
)

// Naming and code systems.
const (
	NamingSystemBundleID         = "https://demis.rki.de/fhir/NamingSystem/NotificationBundleId"
	NamingSystemNotificationID   = "https://demis.rki.de/fhir/NamingSystem/NotificationId"
	CodeSystemRelatedBundle      = "https://demis.rki.de/fhir/CodeSystem/RelatedNotificationBundle"
	ExtensionFacilityAddressUse  = "https://demis.rki.de/fhir/StructureDefinition/FacilityAddressNotifiedPerson"
	ExtensionAddressUse          = "https://demis.rki.de/fhir/StructureDefinition/AddressUse"
	RelatedBundleDisplayTemplate = "Relates to message with identifier: "
)

// BundleTypeDocument is the only bundle type produced by the pipelines.
const BundleTypeDocument = "document"

var bundleProfiles = map[Flavor]map[Tier]string{
	FlavorDisease: {
		TierNominal:    ProfileBundleDisease,
		TierNonNominal: ProfileBundleDiseaseNonNominal,
		TierAnonymous:  ProfileBundleDiseaseAnonymous,
	},
	FlavorLaboratory: {
		TierNominal:    ProfileBundleLaboratory,
		TierNonNominal: ProfileBundleLaboratoryNonNominal,
		TierAnonymous:  ProfileBundleLaboratoryAnonymous,
	},
}

var subjectProfiles = map[Tier]string{
	TierNominal:    ProfileNotifiedPerson,
	TierNonNominal: ProfileNotifiedPersonNotByName,
	TierAnonymous:  ProfileNotifiedPersonAnonymous,
}

// BundleProfile returns the canonical bundle profile for a flavor and tier.
func BundleProfile(f Flavor, t Tier) (string, bool) {
	byTier, ok := bundleProfiles[f]
	if !ok {
		return "", false
	}
	p, ok := byTier[t]
	return p, ok
}

// SubjectProfile returns the notified person profile for a tier.
func SubjectProfile(t Tier) (string, bool) {
	p, ok := subjectProfiles[t]
	return p, ok
}

// ParseBundleProfile maps a bundle profile URL back to its flavor and tier.
// Versioned canonicals ("...|1.2.0") are accepted.
func ParseBundleProfile(url string) (Flavor, Tier, bool) {
	if i := strings.IndexByte(url, '|'); i >= 0 {
		url = url[:i]
	}
	for f, byTier := range bundleProfiles {
		for t, p := range byTier {
			if p == url {
				return f, t, true
			}
		}
	}
	return "", "", false
}

// Next returns the tier an excerpt of t is produced at.
func (t Tier) Next() (Tier, bool) {
	switch t {
	case TierNominal:
		return TierNonNominal, true
	case TierNonNominal:
		return TierAnonymous, true
	}
	return "", false
}
