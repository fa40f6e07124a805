package content

import (
	"fmt"
	"strconv"
	"strings"

	"eventweb/apperr"
)

// MaxIndex bounds sequence indexes accepted in a path, since Set pads
// sequences up to the addressed index.
const MaxIndex = 4096

// Segment is one step of a Path: a mapping key or a sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a nested location, e.g. features[0].icon[0].
type Path []Segment

// ParsePath parses dotted keys and bracketed indexes. A bracket holding a
// quoted string is a key, so keys containing dots stay addressable:
// links["a.b"].href.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, apperr.Validation("empty content path")
	}
	var p Path
	i := 0
	expectKey := true
	for i < len(s) {
		switch c := s[i]; {
		case c == '.':
			if expectKey {
				return nil, apperr.Newf(apperr.KindValidation, "invalid content path %q: empty key", s)
			}
			expectKey = true
			i++
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, apperr.Newf(apperr.KindValidation, "invalid content path %q: unclosed bracket", s)
			}
			inner := s[i+1 : i+end]
			seg, err := parseBracket(inner)
			if err != nil {
				return nil, apperr.Newf(apperr.KindValidation, "invalid content path %q: %v", s, err)
			}
			p = append(p, seg)
			expectKey = false
			i += end + 1
		default:
			if !expectKey {
				return nil, apperr.Newf(apperr.KindValidation, "invalid content path %q: missing separator at %d", s, i)
			}
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			p = append(p, Segment{Key: s[i:j]})
			expectKey = false
			i = j
		}
	}
	if expectKey {
		return nil, apperr.Newf(apperr.KindValidation, "invalid content path %q: trailing separator", s)
	}
	return p, nil
}

func parseBracket(inner string) (Segment, error) {
	if len(inner) >= 2 {
		q := inner[0]
		if (q == '"' || q == '\'') && inner[len(inner)-1] == q {
			return Segment{Key: inner[1 : len(inner)-1]}, nil
		}
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 || strings.HasPrefix(inner, "+") {
		return Segment{}, fmt.Errorf("bad index %q", inner)
	}
	if n > MaxIndex {
		return Segment{}, fmt.Errorf("index %d exceeds %d", n, MaxIndex)
	}
	return Segment{Index: n, IsIndex: true}, nil
}

func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if strings.ContainsAny(seg.Key, ".[]") || seg.Key == "" {
			b.WriteString(`["`)
			b.WriteString(seg.Key)
			b.WriteString(`"]`)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
	}
	return b.String()
}
