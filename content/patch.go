package content

import (
	"eventweb/apperr"
)

// Patch accumulates flattened incoming fields ("hero.title",
// "features[0].icon") into a nested mapping so that incoming fields can be
// checked against each other.
//
// Unlike Set, a Patch refuses to let two incoming fields disagree about the
// shape of the same location: "a" = "x" together with "a.b" = "y" is a
// PathConflict whichever arrives first. Two scalars for the same field
// resolve to the last one.
type Patch struct {
	root Value
}

func NewPatch() *Patch {
	return &Patch{root: Map()}
}

func (p *Patch) Set(path string, v Value) error {
	parsed, err := ParsePath(path)
	if err != nil {
		return err
	}
	return p.SetPath(parsed, v)
}

func (p *Patch) SetPath(path Path, v Value) error {
	if existing, ok := GetPath(p.root, path); ok && existing.kind != Null {
		if !isScalar(existing) || !(isScalar(v) || v.kind == Null) {
			return apperr.Newf(apperr.KindPathConflict,
				"field %q is given both as %s and as %s", path.String(), existing.kind, v.kind)
		}
	}
	for i := 1; i < len(path); i++ {
		if prefix, ok := GetPath(p.root, path[:i]); ok && isScalar(prefix) {
			return apperr.Newf(apperr.KindPathConflict,
				"field %q is nested under scalar field %q", path.String(), path[:i].String())
		}
	}
	return SetPath(&p.root, path, v)
}

// Value returns the accumulated nested mapping.
func (p *Patch) Value() Value { return p.root }

func (p *Patch) Empty() bool { return p.root.Len() == 0 }

func isScalar(v Value) bool {
	return v.kind == String || v.kind == Number || v.kind == Bool
}
