package capabilities

import (
	"encoding/json"
	"sort"
)

// OptionsKey is the nested platform options map sent alongside legacy fields.
const OptionsKey = "bstack:options"

// Descriptor is the immutable capability mapping sent to the remote provider.
// Accessors return copies; the zero value is an empty descriptor.
type Descriptor struct {
	fields map[string]interface{}
}

func newDescriptor(fields map[string]interface{}) Descriptor {
	return Descriptor{fields: deepCopy(fields)}
}

// Get returns a top-level field.
func (d Descriptor) Get(key string) (interface{}, bool) {
	v, ok := d.fields[key]
	if m, isMap := v.(map[string]interface{}); isMap {
		return deepCopy(m), ok
	}
	return v, ok
}

// String returns a top-level field as a string, or "" when absent or not a string.
func (d Descriptor) String(key string) string {
	v, _ := d.fields[key].(string)
	return v
}

// Has reports whether a top-level field is present.
func (d Descriptor) Has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

// Options returns a copy of the nested platform options, nil when absent.
func (d Descriptor) Options() map[string]interface{} {
	m, ok := d.fields[OptionsKey].(map[string]interface{})
	if !ok {
		return nil
	}
	return deepCopy(m)
}

// Keys returns the top-level field names, sorted.
func (d Descriptor) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a deep copy of all fields.
func (d Descriptor) Map() map[string]interface{} {
	return deepCopy(d.fields)
}

// Len returns the number of top-level fields.
func (d Descriptor) Len() int {
	return len(d.fields)
}

// MarshalJSON encodes the descriptor as a flat JSON object.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	if d.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.fields)
}

func deepCopy(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		if m, ok := v.(map[string]interface{}); ok {
			dst[k] = deepCopy(m)
			continue
		}
		dst[k] = v
	}
	return dst
}
