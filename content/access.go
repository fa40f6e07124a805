package content

import (
	"eventweb/apperr"
)

// Get returns the value at path, or def when the path is malformed or any
// segment along it is absent.
func Get(root Value, path string, def Value) Value {
	p, err := ParsePath(path)
	if err != nil {
		return def
	}
	if v, ok := GetPath(root, p); ok {
		return v
	}
	return def
}

// GetPath walks p from root.
func GetPath(root Value, p Path) (Value, bool) {
	cur := root
	for _, seg := range p {
		if seg.IsIndex {
			if cur.kind != Sequence || seg.Index >= len(cur.seq) {
				return Value{}, false
			}
			cur = cur.seq[seg.Index]
			continue
		}
		child, ok := cur.Lookup(seg.Key)
		if !ok {
			return Value{}, false
		}
		cur = child
	}
	return cur, true
}

// Set assigns v at path inside root, creating intermediate mappings and
// sequences as needed and padding sequences with nulls up to the addressed
// index. Sibling keys are never dropped. A non-null value standing where a
// container of the other shape is required fails with PathConflict and
// leaves root untouched.
func Set(root *Value, path string, v Value) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	return SetPath(root, p, v)
}

// SetPath is Set with a parsed path.
func SetPath(root *Value, p Path, v Value) error {
	if len(p) == 0 {
		return apperr.Validation("empty content path")
	}
	if err := checkPath(*root, p); err != nil {
		return err
	}
	*root = setAt(*root, p, v)
	return nil
}

func wants(seg Segment) Kind {
	if seg.IsIndex {
		return Sequence
	}
	return Mapping
}

// checkPath verifies every existing container along p has the shape the
// next segment needs, so setAt can run without partial mutation.
func checkPath(root Value, p Path) error {
	cur := root
	for i, seg := range p {
		if cur.kind != Null && cur.kind != wants(seg) {
			return apperr.Newf(apperr.KindPathConflict,
				"path %q: %s found where %s is required", p[:i+1].String(), cur.kind, wants(seg))
		}
		next, ok := GetPath(cur, Path{seg})
		if !ok {
			return nil
		}
		cur = next
	}
	return nil
}

func setAt(cur Value, p Path, v Value) Value {
	if len(p) == 0 {
		return v
	}
	seg := p[0]
	if seg.IsIndex {
		if cur.kind != Sequence {
			cur = Seq()
		}
		for len(cur.seq) <= seg.Index {
			cur.seq = append(cur.seq, Value{})
		}
		cur.seq[seg.Index] = setAt(cur.seq[seg.Index], p[1:], v)
		return cur
	}
	if cur.kind != Mapping {
		cur = Map()
	}
	child, _ := cur.Lookup(seg.Key)
	cur.m.put(seg.Key, setAt(child, p[1:], v))
	return cur
}

// DeepMerge folds src into dst. Two mappings merge key by key; in every
// other case, sequences included, src replaces dst wholesale.
func DeepMerge(dst *Value, src Value) {
	if dst.kind != Mapping || src.kind != Mapping {
		*dst = src.Clone()
		return
	}
	for _, k := range src.m.keys {
		incoming := src.m.vals[k]
		existing, ok := dst.m.vals[k]
		if ok && existing.kind == Mapping && incoming.kind == Mapping {
			DeepMerge(&existing, incoming)
			dst.m.put(k, existing)
			continue
		}
		dst.m.put(k, incoming.Clone())
	}
}
