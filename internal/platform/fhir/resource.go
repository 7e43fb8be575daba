package fhir

import (
	"fmt"
	"strings"
	"time"
)

// Resource is implemented by every record kind that can appear in a
// notification bundle. Implementations are plain structs; a record is never
// mutated once it has been placed into a bundle.
type Resource interface {
	ResourceType() string
	ResourceID() string
	ResourceMeta() *Meta
}

type Meta struct {
	VersionID   string     `json:"versionId,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Profile     []string   `json:"profile,omitempty"`
	Security    []Coding   `json:"security,omitempty"`
	Tag         []Coding   `json:"tag,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
	Period *Period          `json:"period,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

type Address struct {
	Extension  []Extension `json:"extension,omitempty"`
	Use        string      `json:"use,omitempty"`
	Type       string      `json:"type,omitempty"`
	Line       []string    `json:"line,omitempty"`
	City       string      `json:"city,omitempty"`
	District   string      `json:"district,omitempty"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postalCode,omitempty"`
	Country    string      `json:"country,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
	Rank   int    `json:"rank,omitempty"`
}

type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type Quantity struct {
	Value      *float64 `json:"value,omitempty"`
	Comparator string   `json:"comparator,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	System     string   `json:"system,omitempty"`
	Code       string   `json:"code,omitempty"`
}

type Annotation struct {
	AuthorString string     `json:"authorString,omitempty"`
	Time         *time.Time `json:"time,omitempty"`
	Text         string     `json:"text"`
}

// Extension covers the value[x] variants used by notification profiles.
// Nested extensions are used by complex extensions such as the facility
// address of a notified person.
type Extension struct {
	URL            string      `json:"url"`
	Extension      []Extension `json:"extension,omitempty"`
	ValueString    string      `json:"valueString,omitempty"`
	ValueCode      string      `json:"valueCode,omitempty"`
	ValueBoolean   *bool       `json:"valueBoolean,omitempty"`
	ValueDateTime  string      `json:"valueDateTime,omitempty"`
	ValueCoding    *Coding     `json:"valueCoding,omitempty"`
	ValueReference *Reference  `json:"valueReference,omitempty"`
}

// FormatReference creates a FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// ReferenceTo builds a literal reference to r.
func ReferenceTo(r Resource) *Reference {
	return &Reference{Reference: FormatReference(r.ResourceType(), r.ResourceID())}
}

// ParseReference splits a literal reference into resource type and id. It
// accepts relative references ("Patient/123"), absolute full URLs
// ("https://host/fhir/Patient/123", optionally with a "_history" suffix) and
// "urn:uuid:" references, for which the type is returned empty.
func ParseReference(ref string) (resourceType, id string, ok bool) {
	if ref == "" {
		return "", "", false
	}
	if strings.HasPrefix(ref, "urn:uuid:") {
		id = strings.TrimPrefix(ref, "urn:uuid:")
		return "", id, id != ""
	}
	if i := strings.Index(ref, "/_history/"); i >= 0 {
		ref = ref[:i]
	}
	parts := strings.Split(strings.TrimSuffix(ref, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	resourceType, id = parts[len(parts)-2], parts[len(parts)-1]
	if resourceType == "" || id == "" {
		return "", "", false
	}
	return resourceType, id, true
}

// ResourceKey is the identity of a record within one bundle.
func ResourceKey(r Resource) string {
	return FormatReference(r.ResourceType(), r.ResourceID())
}

// Profiles returns the declared profiles of r, or nil.
func Profiles(r Resource) []string {
	if m := r.ResourceMeta(); m != nil {
		return m.Profile
	}
	return nil
}

// HasProfile reports whether r declares the given profile. Versioned
// canonicals ("url|1.0.0") match their unversioned form.
func HasProfile(r Resource, profile string) bool {
	for _, p := range Profiles(r) {
		if stripVersion(p) == profile {
			return true
		}
	}
	return false
}

// HasProfilePrefix reports whether any declared profile of r starts with prefix.
func HasProfilePrefix(r Resource, prefix string) bool {
	for _, p := range Profiles(r) {
		if strings.HasPrefix(stripVersion(p), prefix) {
			return true
		}
	}
	return false
}

func stripVersion(canonical string) string {
	if i := strings.IndexByte(canonical, '|'); i >= 0 {
		return canonical[:i]
	}
	return canonical
}
