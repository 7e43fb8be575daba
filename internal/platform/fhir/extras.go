package fhir

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Extras holds the members of a record that its kind does not model, keyed
// by JSON member name. They are kept verbatim, so decoding and re-encoding a
// record loses nothing.
type Extras map[string]json.RawMessage

// Clone returns an independent copy of x.
func (x Extras) Clone() Extras {
	if len(x) == 0 {
		return nil
	}
	out := make(Extras, len(x))
	for k, v := range x {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Keys returns the member names in sorted order.
func (x Extras) Keys() []string {
	keys := make([]string, 0, len(x))
	for k := range x {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unmodeled is embedded by every record kind to carry its Extras.
type Unmodeled struct {
	Extra Extras `json:"-"`
}

func (u *Unmodeled) unmodeled() *Extras { return &u.Extra }

type extrasHolder interface {
	unmodeled() *Extras
}

// ExtrasOf returns the unmodeled members of r, or nil.
func ExtrasOf(r Resource) Extras {
	if h, ok := r.(extrasHolder); ok {
		return *h.unmodeled()
	}
	return nil
}

// SetExtras replaces the unmodeled members of r. It is a no-op for kinds
// that carry none, such as *Unknown.
func SetExtras(r Resource, x Extras) {
	if h, ok := r.(extrasHolder); ok {
		*h.unmodeled() = x
	}
}

var knownMembers sync.Map // reflect.Type -> map[string]struct{}

// modeledMembers returns the JSON member names a record kind decodes.
func modeledMembers(t reflect.Type) map[string]struct{} {
	if v, ok := knownMembers.Load(t); ok {
		return v.(map[string]struct{})
	}
	names := map[string]struct{}{"resourceType": {}}
	collectMembers(t, names)
	knownMembers.Store(t, names)
	return names
}

func collectMembers(t reflect.Type, names map[string]struct{}) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if f.Anonymous && tag == "" && f.Type.Kind() == reflect.Struct {
			collectMembers(f.Type, names)
			continue
		}
		if !f.IsExported() || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		names[name] = struct{}{}
	}
}

// splitExtras decodes the members of data that r does not model.
func splitExtras(r Resource, data []byte) (Extras, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	known := modeledMembers(reflect.TypeOf(r).Elem())
	var x Extras
	for k, v := range all {
		if _, ok := known[k]; ok {
			continue
		}
		if x == nil {
			x = make(Extras)
		}
		x[k] = v
	}
	return x, nil
}

// appendExtras writes the members of x after the modeled members of an
// encoded object.
func appendExtras(buf *bytes.Buffer, x Extras) error {
	for _, k := range x.Keys() {
		name, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(x[k])
	}
	return nil
}
