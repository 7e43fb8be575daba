package fhir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Identifier   *Identifier   `json:"identifier,omitempty"`
	Type         string        `json:"type"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleEntry pairs a record with its stable full URL.
type BundleEntry struct {
	FullURL  string
	Resource Resource
}

type bundleEntryJSON struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

func (e BundleEntry) MarshalJSON() ([]byte, error) {
	out := bundleEntryJSON{FullURL: e.FullURL}
	if e.Resource != nil {
		raw, err := MarshalResource(e.Resource)
		if err != nil {
			return nil, err
		}
		out.Resource = raw
	}
	return json.Marshal(out)
}

func (e *BundleEntry) UnmarshalJSON(data []byte) error {
	var in bundleEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.FullURL = in.FullURL
	e.Resource = nil
	if len(in.Resource) == 0 || string(in.Resource) == "null" {
		return nil
	}
	r, err := UnmarshalResource(in.Resource)
	if err != nil {
		return fmt.Errorf("entry %s: %w", in.FullURL, err)
	}
	e.Resource = r
	return nil
}

// MarshalResource encodes r with its resourceType as the first member.
func MarshalResource(r Resource) ([]byte, error) {
	if u, ok := r.(*Unknown); ok {
		return u.Raw, nil
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s/%s: %w", r.ResourceType(), r.ResourceID(), err)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"resourceType":`)
	rt, _ := json.Marshal(r.ResourceType())
	buf.Write(rt)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	if err := appendExtras(&buf, ExtrasOf(r)); err != nil {
		return nil, fmt.Errorf("marshal %s/%s: %w", r.ResourceType(), r.ResourceID(), err)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalResource decodes a single resource, choosing the record kind from
// its resourceType. Kinds that are not modeled are kept as *Unknown; members
// a modeled kind does not know end up in its Extras.
func UnmarshalResource(data []byte) (Resource, error) {
	var head struct {
		ResourceType string `json:"resourceType"`
		ID           string `json:"id"`
		Meta         *Meta  `json:"meta"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	if head.ResourceType == "" {
		return nil, fmt.Errorf("resource has no resourceType")
	}
	ctor, ok := newResource[head.ResourceType]
	if !ok {
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &Unknown{Type: head.ResourceType, ID: head.ID, Meta: head.Meta, Raw: raw}, nil
	}
	r := ctor()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", head.ResourceType, head.ID, err)
	}
	x, err := splitExtras(r, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", head.ResourceType, head.ID, err)
	}
	SetExtras(r, x)
	return r, nil
}

// Decode reads a Bundle from r. The envelope is checked against the R4
// Bundle model before the entries are decoded into record kinds.
func Decode(r io.Reader) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if head.ResourceType != "Bundle" {
		return nil, fmt.Errorf("resource is not a Bundle (resourceType=%q)", head.ResourceType)
	}
	if err := ValidateEnvelope(data); err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// Encode writes b as JSON to w. Indentation is applied when pretty is set.
func Encode(w io.Writer, b *Bundle, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// FullURL builds the entry full URL of r under base.
func FullURL(base string, r Resource) string {
	return strings.TrimSuffix(base, "/") + "/" + FormatReference(r.ResourceType(), r.ResourceID())
}

// Profiles returns the bundle's declared profiles.
func (b *Bundle) Profiles() []string {
	if b == nil || b.Meta == nil {
		return nil
	}
	return b.Meta.Profile
}

// Resources returns the entry records in order, skipping empty entries.
func (b *Bundle) Resources() []Resource {
	out := make([]Resource, 0, len(b.Entry))
	for _, e := range b.Entry {
		if e.Resource != nil {
			out = append(out, e.Resource)
		}
	}
	return out
}
