// Package record flattens nested API items into fixed-field records.
package record

// RawItem is one decoded JSON object as returned by the videos endpoint.
type RawItem map[string]any

// Group names a nested object and the fields to read from it.
type Group struct {
	Name   string
	Fields []string
}

// FieldSpec is the ordered list of groups to extract.
type FieldSpec []Group

// VideoFieldSpec is the extraction spec for video detail items.
var VideoFieldSpec = FieldSpec{
	{Name: "snippet", Fields: []string{"channelTitle", "title", "description", "tags", "publishedAt"}},
	{Name: "statistics", Fields: []string{"viewCount", "likeCount", "favouriteCount", "commentCount"}},
	{Name: "contentDetails", Fields: []string{"duration", "definition", "caption"}},
}

// Names returns every field name in spec order.
func (s FieldSpec) Names() []string {
	var names []string
	for _, g := range s {
		names = append(names, g.Fields...)
	}
	return names
}

// Value is one extracted field. The zero Value is the missing marker.
type Value struct {
	raw   any
	valid bool
}

// Present wraps v as a present value.
func Present(v any) Value {
	return Value{raw: v, valid: true}
}

// Missing reports whether the field was absent.
func (v Value) Missing() bool {
	return !v.valid
}

// Raw returns the underlying decoded JSON value.
func (v Value) Raw() any {
	return v.raw
}

// String returns the value as a string. Numbers are not converted;
// ok is false for missing values and non-string JSON types.
func (v Value) String() (string, bool) {
	if !v.valid {
		return "", false
	}
	s, ok := v.raw.(string)
	return s, ok
}

// Strings returns the value as a list of strings. Non-string elements are skipped.
func (v Value) Strings() ([]string, bool) {
	if !v.valid {
		return nil, false
	}
	switch list := v.raw.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Flat is a shaped record: the item id plus one Value per field in the spec.
type Flat struct {
	ID     string
	Fields map[string]Value
}

// Get returns the named field; unknown names are missing.
func (f Flat) Get(name string) Value {
	return f.Fields[name]
}

// Shape extracts the fields named by spec from raw. It never fails: an absent
// field, an absent group, or a group that is not a JSON object all yield the
// missing marker. Every field in spec is present as a key in the result.
func Shape(raw RawItem, spec FieldSpec) Flat {
	flat := Flat{Fields: make(map[string]Value, len(spec.Names()))}
	if id, ok := raw["id"].(string); ok {
		flat.ID = id
	}

	for _, g := range spec {
		var group map[string]any
		switch v := raw[g.Name].(type) {
		case map[string]any:
			group = v
		case RawItem:
			group = v
		}
		for _, name := range g.Fields {
			v, ok := group[name]
			if !ok || v == nil {
				flat.Fields[name] = Value{}
				continue
			}
			flat.Fields[name] = Present(v)
		}
	}
	return flat
}
