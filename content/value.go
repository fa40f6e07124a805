// Package content models free-form website section content: a tree of
// scalars, sequences and insertion-ordered mappings addressable by path.
package content

import (
	"sort"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	Null Kind = iota
	String
	Number
	Bool
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	}
	return "unknown"
}

// Value is a tagged node of section content. The zero Value is Null.
//
// Sequences and mappings have reference semantics like Go slices and maps:
// copying a Value shares its children. Use Clone for an independent copy.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	seq  []Value
	m    *orderedMap
}

type orderedMap struct {
	keys []string
	vals map[string]Value
}

func newOrderedMap() *orderedMap {
	return &orderedMap{vals: make(map[string]Value)}
}

func (om *orderedMap) put(key string, v Value) {
	if _, ok := om.vals[key]; !ok {
		om.keys = append(om.keys, key)
	}
	om.vals[key] = v
}

func Str(s string) Value   { return Value{kind: String, str: s} }
func Num(n float64) Value  { return Value{kind: Number, num: n} }
func Boolean(b bool) Value { return Value{kind: Bool, b: b} }
func Seq(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Sequence, seq: items}
}

// Map returns an empty mapping.
func Map() Value { return Value{kind: Mapping, m: newOrderedMap()} }

// StrList builds a sequence of string scalars.
func StrList(ss ...string) Value {
	items := make([]Value, len(ss))
	for i, s := range ss {
		items[i] = Str(s)
	}
	return Seq(items...)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) AsString() (string, bool)  { return v.str, v.kind == String }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == Number }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == Bool }

// Len is the element count of a sequence or the key count of a mapping.
func (v Value) Len() int {
	switch v.kind {
	case Sequence:
		return len(v.seq)
	case Mapping:
		return len(v.m.keys)
	}
	return 0
}

// Items returns the elements of a sequence.
func (v Value) Items() []Value {
	if v.kind != Sequence {
		return nil
	}
	return v.seq
}

// Keys returns mapping keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != Mapping {
		return nil
	}
	out := make([]string, len(v.m.keys))
	copy(out, v.m.keys)
	return out
}

// Lookup returns the value stored under key in a mapping.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != Mapping {
		return Value{}, false
	}
	child, ok := v.m.vals[key]
	return child, ok
}

// Put stores key in a mapping, keeping the key's original position when it
// already exists. It is a no-op on non-mappings.
func (v Value) Put(key string, child Value) {
	if v.kind != Mapping {
		return
	}
	v.m.put(key, child)
}

// Strings returns the elements of a sequence of strings.
func (v Value) Strings() ([]string, bool) {
	if v.kind != Sequence {
		return nil, false
	}
	out := make([]string, 0, len(v.seq))
	for _, item := range v.seq {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Clone deep-copies v.
func (v Value) Clone() Value {
	switch v.kind {
	case Sequence:
		items := make([]Value, len(v.seq))
		for i, item := range v.seq {
			items[i] = item.Clone()
		}
		return Value{kind: Sequence, seq: items}
	case Mapping:
		out := Map()
		for _, k := range v.m.keys {
			out.m.put(k, v.m.vals[k].Clone())
		}
		return out
	}
	return v
}

// Equal compares two values structurally. Mapping key order is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case String:
		return a.str == b.str
	case Number:
		return a.num == b.num
	case Bool:
		return a.b == b.b
	case Sequence:
		if len(a.seq) != len(b.seq) {
			return false
		}
		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}
		return true
	case Mapping:
		if len(a.m.keys) != len(b.m.keys) {
			return false
		}
		ak := a.Keys()
		bk := b.Keys()
		sort.Strings(ak)
		sort.Strings(bk)
		for i := range ak {
			if ak[i] != bk[i] || !Equal(a.m.vals[ak[i]], b.m.vals[bk[i]]) {
				return false
			}
		}
		return true
	}
	return false
}
