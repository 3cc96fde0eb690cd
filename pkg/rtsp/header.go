package rtsp

import "strings"

// headerField is one name/value pair as it appeared on the wire.
type headerField struct {
	name  string
	value string
}

// Header is an ordered, case-insensitive, duplicate-preserving
// collection of RTSP header fields. A plain map[string]string cannot
// represent repeated header names or preserve arrival order, both of
// which RTSP requires (RFC 2326 §4.2).
type Header struct {
	fields []headerField
}

// NewHeader returns an empty header set.
func NewHeader() *Header {
	return &Header{}
}

// Add appends a header field, keeping any existing fields of the same
// name (case-insensitively).
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, headerField{name: name, value: value})
}

// Set replaces all existing values for name with a single value.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Get returns the first value for name, or "" if absent.
func (h *Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return f.value
		}
	}
	return ""
}

// Values returns all values for name in arrival order.
func (h *Header) Values(name string) []string {
	var out []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether name is present (case-insensitively).
func (h *Header) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return true
		}
	}
	return false
}

// Del removes all fields matching name.
func (h *Header) Del(name string) {
	out := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, name) {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Each iterates fields in insertion order.
func (h *Header) Each(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.name, f.value)
	}
}

// Len returns the number of fields (including duplicates).
func (h *Header) Len() int {
	return len(h.fields)
}

// Clone returns a deep copy of h.
func (h *Header) Clone() *Header {
	out := &Header{fields: make([]headerField, len(h.fields))}
	copy(out.fields, h.fields)
	return out
}
