package content

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// maxExactInt is the largest integer a float64 holds without rounding.
const maxExactInt = 1 << 53

// MarshalBSONValue stores mappings as ordered documents. Whole numbers are
// written as int64 so the stored content stays readable from the shell.
func (v Value) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if v.kind == Null {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(v.toBSON())
}

func (v Value) toBSON() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) <= maxExactInt {
			return int64(v.num)
		}
		return v.num
	case Bool:
		return v.b
	case Sequence:
		arr := make(bson.A, len(v.seq))
		for i, item := range v.seq {
			arr[i] = item.toBSON()
		}
		return arr
	case Mapping:
		doc := make(bson.D, 0, len(v.m.keys))
		for _, k := range v.m.keys {
			doc = append(doc, bson.E{Key: k, Value: v.m.vals[k].toBSON()})
		}
		return doc
	}
	return nil
}

// UnmarshalBSONValue reads any BSON value. Types with no content
// counterpart are folded into strings: object ids to hex, datetimes to
// RFC 3339.
func (v *Value) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	out, err := fromRaw(bson.RawValue{Type: t, Value: data})
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromRaw(rv bson.RawValue) (Value, error) {
	switch rv.Type {
	case bsontype.Null, bsontype.Undefined:
		return Value{}, nil
	case bsontype.String:
		return Str(rv.StringValue()), nil
	case bsontype.Boolean:
		return Boolean(rv.Boolean()), nil
	case bsontype.Double:
		return Num(rv.Double()), nil
	case bsontype.Int32:
		return Num(float64(rv.Int32())), nil
	case bsontype.Int64:
		return Num(float64(rv.Int64())), nil
	case bsontype.Decimal128:
		d := rv.Decimal128()
		f, err := strconv.ParseFloat(d.String(), 64)
		if err != nil {
			return Value{}, fmt.Errorf("content: decimal %s: %w", d, err)
		}
		return Num(f), nil
	case bsontype.ObjectID:
		return Str(rv.ObjectID().Hex()), nil
	case bsontype.DateTime:
		return Str(time.UnixMilli(rv.DateTime()).UTC().Format(time.RFC3339)), nil
	case bsontype.Array:
		vals, err := rv.Array().Values()
		if err != nil {
			return Value{}, fmt.Errorf("content: read array: %w", err)
		}
		items := make([]Value, 0, len(vals))
		for _, item := range vals {
			conv, err := fromRaw(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, conv)
		}
		return Seq(items...), nil
	case bsontype.EmbeddedDocument:
		elems, err := rv.Document().Elements()
		if err != nil {
			return Value{}, fmt.Errorf("content: read document: %w", err)
		}
		m := Map()
		for _, el := range elems {
			conv, err := fromRaw(el.Value())
			if err != nil {
				return Value{}, err
			}
			m.Put(el.Key(), conv)
		}
		return m, nil
	}
	return Value{}, fmt.Errorf("content: unsupported bson type %s", rv.Type)
}

var (
	_ bson.ValueMarshaler   = Value{}
	_ bson.ValueUnmarshaler = (*Value)(nil)
)
