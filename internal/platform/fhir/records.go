package fhir

import (
	"encoding/json"
	"time"
)

// Record kinds. Each kind carries its own fields plus the shared id/meta
// pair; reference fields name other records of the same bundle. Members a
// kind does not model are kept in its embedded Unmodeled extras.

type Composition struct {
	Unmodeled

	ID         string                 `json:"id,omitempty"`
	Meta       *Meta                  `json:"meta,omitempty"`
	Extension  []Extension            `json:"extension,omitempty"`
	Identifier *Identifier            `json:"identifier,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Type       *CodeableConcept       `json:"type,omitempty"`
	Category   []CodeableConcept      `json:"category,omitempty"`
	Subject    *Reference             `json:"subject,omitempty"`
	Date       string                 `json:"date,omitempty"`
	Author     []Reference            `json:"author,omitempty"`
	Title      string                 `json:"title,omitempty"`
	RelatesTo  []CompositionRelatesTo `json:"relatesTo,omitempty"`
	Section    []CompositionSection   `json:"section,omitempty"`
}

type CompositionRelatesTo struct {
	Code             string      `json:"code"`
	TargetIdentifier *Identifier `json:"targetIdentifier,omitempty"`
	TargetReference  *Reference  `json:"targetReference,omitempty"`
}

type CompositionSection struct {
	Title   string               `json:"title,omitempty"`
	Code    *CodeableConcept     `json:"code,omitempty"`
	Entry   []Reference          `json:"entry,omitempty"`
	Section []CompositionSection `json:"section,omitempty"`
}

type Patient struct {
	Unmodeled

	ID               string         `json:"id,omitempty"`
	Meta             *Meta          `json:"meta,omitempty"`
	Extension        []Extension    `json:"extension,omitempty"`
	Identifier       []Identifier   `json:"identifier,omitempty"`
	Name             []HumanName    `json:"name,omitempty"`
	Telecom          []ContactPoint `json:"telecom,omitempty"`
	Gender           string         `json:"gender,omitempty"`
	BirthDate        string         `json:"birthDate,omitempty"`
	DeceasedBoolean  *bool          `json:"deceasedBoolean,omitempty"`
	DeceasedDateTime string         `json:"deceasedDateTime,omitempty"`
	Address          []Address      `json:"address,omitempty"`
}

type PractitionerRole struct {
	Unmodeled

	ID           string       `json:"id,omitempty"`
	Meta         *Meta        `json:"meta,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Practitioner *Reference   `json:"practitioner,omitempty"`
	Organization *Reference   `json:"organization,omitempty"`
}

type Practitioner struct {
	Unmodeled

	ID         string         `json:"id,omitempty"`
	Meta       *Meta          `json:"meta,omitempty"`
	Extension  []Extension    `json:"extension,omitempty"`
	Identifier []Identifier   `json:"identifier,omitempty"`
	Name       []HumanName    `json:"name,omitempty"`
	Telecom    []ContactPoint `json:"telecom,omitempty"`
	Address    []Address      `json:"address,omitempty"`
}

type Organization struct {
	Unmodeled

	ID         string                `json:"id,omitempty"`
	Meta       *Meta                 `json:"meta,omitempty"`
	Extension  []Extension           `json:"extension,omitempty"`
	Identifier []Identifier          `json:"identifier,omitempty"`
	Type       []CodeableConcept     `json:"type,omitempty"`
	Name       string                `json:"name,omitempty"`
	Telecom    []ContactPoint        `json:"telecom,omitempty"`
	Address    []Address             `json:"address,omitempty"`
	Contact    []OrganizationContact `json:"contact,omitempty"`
}

type OrganizationContact struct {
	Name    *HumanName     `json:"name,omitempty"`
	Telecom []ContactPoint `json:"telecom,omitempty"`
}

type Condition struct {
	Unmodeled

	ID                 string              `json:"id,omitempty"`
	Meta               *Meta               `json:"meta,omitempty"`
	Identifier         []Identifier        `json:"identifier,omitempty"`
	ClinicalStatus     *CodeableConcept    `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept    `json:"verificationStatus,omitempty"`
	Category           []CodeableConcept   `json:"category,omitempty"`
	Code               *CodeableConcept    `json:"code,omitempty"`
	BodySite           []CodeableConcept   `json:"bodySite,omitempty"`
	Subject            *Reference          `json:"subject,omitempty"`
	OnsetDateTime      string              `json:"onsetDateTime,omitempty"`
	RecordedDate       string              `json:"recordedDate,omitempty"`
	Evidence           []ConditionEvidence `json:"evidence,omitempty"`
	Note               []Annotation        `json:"note,omitempty"`
}

type ConditionEvidence struct {
	Code   []CodeableConcept `json:"code,omitempty"`
	Detail []Reference       `json:"detail,omitempty"`
}

type DiagnosticReport struct {
	Unmodeled

	ID             string            `json:"id,omitempty"`
	Meta           *Meta             `json:"meta,omitempty"`
	BasedOn        []Reference       `json:"basedOn,omitempty"`
	Status         string            `json:"status,omitempty"`
	Category       []CodeableConcept `json:"category,omitempty"`
	Code           *CodeableConcept  `json:"code,omitempty"`
	Subject        *Reference        `json:"subject,omitempty"`
	Issued         string            `json:"issued,omitempty"`
	Result         []Reference       `json:"result,omitempty"`
	Conclusion     string            `json:"conclusion,omitempty"`
	ConclusionCode []CodeableConcept `json:"conclusionCode,omitempty"`
}

type Observation struct {
	Unmodeled

	ID                   string            `json:"id,omitempty"`
	Meta                 *Meta             `json:"meta,omitempty"`
	Status               string            `json:"status,omitempty"`
	Category             []CodeableConcept `json:"category,omitempty"`
	Code                 *CodeableConcept  `json:"code,omitempty"`
	Subject              *Reference        `json:"subject,omitempty"`
	EffectiveDateTime    string            `json:"effectiveDateTime,omitempty"`
	ValueString          string            `json:"valueString,omitempty"`
	ValueQuantity        *Quantity         `json:"valueQuantity,omitempty"`
	ValueCodeableConcept *CodeableConcept  `json:"valueCodeableConcept,omitempty"`
	Interpretation       []CodeableConcept `json:"interpretation,omitempty"`
	Note                 []Annotation      `json:"note,omitempty"`
	Method               *CodeableConcept  `json:"method,omitempty"`
	Specimen             *Reference        `json:"specimen,omitempty"`
}

type Specimen struct {
	Unmodeled

	ID           string              `json:"id,omitempty"`
	Meta         *Meta               `json:"meta,omitempty"`
	Status       string              `json:"status,omitempty"`
	Type         *CodeableConcept    `json:"type,omitempty"`
	Subject      *Reference          `json:"subject,omitempty"`
	ReceivedTime string              `json:"receivedTime,omitempty"`
	Collection   *SpecimenCollection `json:"collection,omitempty"`
	Note         []Annotation        `json:"note,omitempty"`
}

type SpecimenCollection struct {
	Collector         *Reference       `json:"collector,omitempty"`
	CollectedDateTime string           `json:"collectedDateTime,omitempty"`
	BodySite          *CodeableConcept `json:"bodySite,omitempty"`
}

type Encounter struct {
	Unmodeled

	ID              string           `json:"id,omitempty"`
	Meta            *Meta            `json:"meta,omitempty"`
	Extension       []Extension      `json:"extension,omitempty"`
	Identifier      []Identifier     `json:"identifier,omitempty"`
	Status          string           `json:"status,omitempty"`
	Class           *Coding          `json:"class,omitempty"`
	ServiceType     *CodeableConcept `json:"serviceType,omitempty"`
	Subject         *Reference       `json:"subject,omitempty"`
	Period          *Period          `json:"period,omitempty"`
	ServiceProvider *Reference       `json:"serviceProvider,omitempty"`
}

type Immunization struct {
	Unmodeled

	ID                 string           `json:"id,omitempty"`
	Meta               *Meta            `json:"meta,omitempty"`
	Extension          []Extension      `json:"extension,omitempty"`
	Status             string           `json:"status,omitempty"`
	VaccineCode        *CodeableConcept `json:"vaccineCode,omitempty"`
	Patient            *Reference       `json:"patient,omitempty"`
	OccurrenceDateTime string           `json:"occurrenceDateTime,omitempty"`
	OccurrenceString   string           `json:"occurrenceString,omitempty"`
	Note               []Annotation     `json:"note,omitempty"`
}

type QuestionnaireResponse struct {
	Unmodeled

	ID            string                      `json:"id,omitempty"`
	Meta          *Meta                       `json:"meta,omitempty"`
	Questionnaire string                      `json:"questionnaire,omitempty"`
	Status        string                      `json:"status,omitempty"`
	Subject       *Reference                  `json:"subject,omitempty"`
	Authored      string                      `json:"authored,omitempty"`
	Item          []QuestionnaireResponseItem `json:"item,omitempty"`
}

type QuestionnaireResponseItem struct {
	LinkID string                        `json:"linkId"`
	Text   string                        `json:"text,omitempty"`
	Answer []QuestionnaireResponseAnswer `json:"answer,omitempty"`
	Item   []QuestionnaireResponseItem   `json:"item,omitempty"`
}

type QuestionnaireResponseAnswer struct {
	ValueBoolean   *bool                       `json:"valueBoolean,omitempty"`
	ValueDate      string                      `json:"valueDate,omitempty"`
	ValueDateTime  string                      `json:"valueDateTime,omitempty"`
	ValueString    string                      `json:"valueString,omitempty"`
	ValueCoding    *Coding                     `json:"valueCoding,omitempty"`
	ValueQuantity  *Quantity                   `json:"valueQuantity,omitempty"`
	ValueReference *Reference                  `json:"valueReference,omitempty"`
	Item           []QuestionnaireResponseItem `json:"item,omitempty"`
}

type Provenance struct {
	Unmodeled

	ID       string             `json:"id,omitempty"`
	Meta     *Meta              `json:"meta,omitempty"`
	Target   []Reference        `json:"target,omitempty"`
	Recorded *time.Time         `json:"recorded,omitempty"`
	Activity *CodeableConcept   `json:"activity,omitempty"`
	Agent    []ProvenanceAgent  `json:"agent,omitempty"`
	Entity   []ProvenanceEntity `json:"entity,omitempty"`
}

type ProvenanceAgent struct {
	Type *CodeableConcept `json:"type,omitempty"`
	Who  *Reference       `json:"who,omitempty"`
}

type ProvenanceEntity struct {
	Role string     `json:"role"`
	What *Reference `json:"what,omitempty"`
}

// Unknown holds any resource kind the notification pipelines do not model.
// It round-trips through JSON unchanged.
type Unknown struct {
	Type string
	ID   string
	Meta *Meta
	Raw  json.RawMessage
}

func (r *Composition) ResourceType() string           { return "Composition" }
func (r *Patient) ResourceType() string               { return "Patient" }
func (r *PractitionerRole) ResourceType() string      { return "PractitionerRole" }
func (r *Practitioner) ResourceType() string          { return "Practitioner" }
func (r *Organization) ResourceType() string          { return "Organization" }
func (r *Condition) ResourceType() string             { return "Condition" }
func (r *DiagnosticReport) ResourceType() string      { return "DiagnosticReport" }
func (r *Observation) ResourceType() string           { return "Observation" }
func (r *Specimen) ResourceType() string              { return "Specimen" }
func (r *Encounter) ResourceType() string             { return "Encounter" }
func (r *Immunization) ResourceType() string          { return "Immunization" }
func (r *QuestionnaireResponse) ResourceType() string { return "QuestionnaireResponse" }
func (r *Provenance) ResourceType() string            { return "Provenance" }
func (r *Unknown) ResourceType() string               { return r.Type }

func (r *Composition) ResourceID() string           { return r.ID }
func (r *Patient) ResourceID() string               { return r.ID }
func (r *PractitionerRole) ResourceID() string      { return r.ID }
func (r *Practitioner) ResourceID() string          { return r.ID }
func (r *Organization) ResourceID() string          { return r.ID }
func (r *Condition) ResourceID() string             { return r.ID }
func (r *DiagnosticReport) ResourceID() string      { return r.ID }
func (r *Observation) ResourceID() string           { return r.ID }
func (r *Specimen) ResourceID() string              { return r.ID }
func (r *Encounter) ResourceID() string             { return r.ID }
func (r *Immunization) ResourceID() string          { return r.ID }
func (r *QuestionnaireResponse) ResourceID() string { return r.ID }
func (r *Provenance) ResourceID() string            { return r.ID }
func (r *Unknown) ResourceID() string               { return r.ID }

func (r *Composition) ResourceMeta() *Meta           { return r.Meta }
func (r *Patient) ResourceMeta() *Meta               { return r.Meta }
func (r *PractitionerRole) ResourceMeta() *Meta      { return r.Meta }
func (r *Practitioner) ResourceMeta() *Meta          { return r.Meta }
func (r *Organization) ResourceMeta() *Meta          { return r.Meta }
func (r *Condition) ResourceMeta() *Meta             { return r.Meta }
func (r *DiagnosticReport) ResourceMeta() *Meta      { return r.Meta }
func (r *Observation) ResourceMeta() *Meta           { return r.Meta }
func (r *Specimen) ResourceMeta() *Meta              { return r.Meta }
func (r *Encounter) ResourceMeta() *Meta             { return r.Meta }
func (r *Immunization) ResourceMeta() *Meta          { return r.Meta }
func (r *QuestionnaireResponse) ResourceMeta() *Meta { return r.Meta }
func (r *Provenance) ResourceMeta() *Meta            { return r.Meta }
func (r *Unknown) ResourceMeta() *Meta               { return r.Meta }

// newResource maps a resourceType to an empty record of that kind.
var newResource = map[string]func() Resource{
	"Composition":           func() Resource { return &Composition{} },
	"Patient":               func() Resource { return &Patient{} },
	"PractitionerRole":      func() Resource { return &PractitionerRole{} },
	"Practitioner":          func() Resource { return &Practitioner{} },
	"Organization":          func() Resource { return &Organization{} },
	"Condition":             func() Resource { return &Condition{} },
	"DiagnosticReport":      func() Resource { return &DiagnosticReport{} },
	"Observation":           func() Resource { return &Observation{} },
	"Specimen":              func() Resource { return &Specimen{} },
	"Encounter":             func() Resource { return &Encounter{} },
	"Immunization":          func() Resource { return &Immunization{} },
	"QuestionnaireResponse": func() Resource { return &QuestionnaireResponse{} },
	"Provenance":            func() Resource { return &Provenance{} },
}

// IsModeled reports whether resourceType is one of the record kinds above.
func IsModeled(resourceType string) bool {
	_, ok := newResource[resourceType]
	return ok
}
