// Package codec encodes the typed rows stored as record values.
//
// A row is a u8 column count followed by one entry per column: u8 type,
// u8 length and length bytes of little-endian data. A zero length is a null
// column.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

var (
	ErrSchemaMismatch = errors.New("codec: row does not match schema")
	ErrValueTooLong   = errors.New("codec: value too long")
	ErrMalformedRow   = errors.New("codec: malformed row")
	ErrUnknownType    = errors.New("codec: unknown data type")
)

const maxColumns = math.MaxUint8

type DataType uint8

const (
	Bool DataType = iota + 1
	Int16
	Int32
	Int64
	Float
	Double
	Timestamp
	String
)

var typeNames = map[DataType]string{
	Bool:      "bool",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	Float:     "float",
	Double:    "double",
	Timestamp: "timestamp",
	String:    "string",
}

func (t DataType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, pkgerrors.Wrap(ErrUnknownType, s)
}

type ColumnDesc struct {
	Name       string
	Type       DataType
	AddTsIndex bool
}

// ParseSchema reads a schema written as "name:type,name:type".
func ParseSchema(s string) ([]ColumnDesc, error) {
	var schema []ColumnDesc
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		parts := strings.SplitN(field, ":", 2)
		if len(parts) != 2 {
			return nil, pkgerrors.Wrapf(ErrSchemaMismatch, "column %q has no type", field)
		}
		t, err := ParseDataType(parts[1])
		if err != nil {
			return nil, err
		}
		schema = append(schema, ColumnDesc{Name: parts[0], Type: t})
	}
	return schema, nil
}

// Encode serializes row, which must hold one value per schema column.
// Nil values are encoded as null columns.
func Encode(schema []ColumnDesc, row []interface{}) ([]byte, error) {
	if len(row) != len(schema) || len(schema) > maxColumns {
		return nil, pkgerrors.Wrapf(ErrSchemaMismatch, "%d values for %d columns", len(row), len(schema))
	}
	buf := []byte{byte(len(schema))}
	for i, col := range schema {
		data, err := encodeValue(col, row[i])
		if err != nil {
			return nil, err
		}
		if len(data) > math.MaxUint8 {
			return nil, pkgerrors.Wrapf(ErrValueTooLong, "column %s has %d bytes", col.Name, len(data))
		}
		buf = append(buf, byte(col.Type), byte(len(data)))
		buf = append(buf, data...)
	}
	return buf, nil
}

func encodeValue(col ColumnDesc, v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var ok bool
	var b []byte
	switch col.Type {
	case Bool:
		var x bool
		if x, ok = v.(bool); ok {
			b = []byte{0}
			if x {
				b[0] = 1
			}
		}
	case Int16:
		var x int16
		if x, ok = v.(int16); ok {
			b = binary.LittleEndian.AppendUint16(nil, uint16(x))
		}
	case Int32:
		var x int32
		if x, ok = v.(int32); ok {
			b = binary.LittleEndian.AppendUint32(nil, uint32(x))
		}
	case Int64:
		var x int64
		if x, ok = v.(int64); ok {
			b = binary.LittleEndian.AppendUint64(nil, uint64(x))
		}
	case Float:
		var x float32
		if x, ok = v.(float32); ok {
			b = binary.LittleEndian.AppendUint32(nil, math.Float32bits(x))
		}
	case Double:
		var x float64
		if x, ok = v.(float64); ok {
			b = binary.LittleEndian.AppendUint64(nil, math.Float64bits(x))
		}
	case Timestamp:
		var x time.Time
		if x, ok = v.(time.Time); ok {
			b = binary.LittleEndian.AppendUint64(nil, uint64(x.UnixMilli()))
		}
	case String:
		var x string
		if x, ok = v.(string); ok {
			b = []byte(x)
			if len(b) == 0 {
				return nil, pkgerrors.Wrapf(ErrSchemaMismatch, "column %s: empty strings are stored as null", col.Name)
			}
		}
	default:
		return nil, pkgerrors.Wrapf(ErrUnknownType, "column %s", col.Name)
	}
	if !ok {
		return nil, pkgerrors.Wrapf(ErrSchemaMismatch, "column %s: %T is not %s", col.Name, v, col.Type)
	}
	return b, nil
}

// Decode reads up to length columns of buf into row[start:start+length].
// Columns missing from buf are left untouched.
func Decode(buf []byte, schema []ColumnDesc, row []interface{}, start, length int) error {
	if start < 0 || length < 0 || start+length > len(row) {
		return pkgerrors.Wrapf(ErrSchemaMismatch, "window [%d,%d) outside row of %d", start, start+length, len(row))
	}
	if len(buf) == 0 {
		return pkgerrors.Wrap(ErrMalformedRow, "empty row")
	}
	n := int(buf[0])
	if n > len(schema) {
		n = len(schema)
	}
	if n > length {
		n = length
	}
	off := 1
	for i := 0; i < n; i++ {
		if off+2 > len(buf) {
			return pkgerrors.Wrapf(ErrMalformedRow, "column %d header truncated", i)
		}
		t, size := DataType(buf[off]), int(buf[off+1])
		off += 2
		if off+size > len(buf) {
			return pkgerrors.Wrapf(ErrMalformedRow, "column %d data truncated", i)
		}
		if t != schema[i].Type {
			return pkgerrors.Wrapf(ErrSchemaMismatch, "column %s is %s, row has %s", schema[i].Name, schema[i].Type, t)
		}
		v, err := decodeValue(t, buf[off:off+size])
		if err != nil {
			return pkgerrors.WithMessage(err, schema[i].Name)
		}
		row[start+i] = v
		off += size
	}
	return nil
}

var fixedSize = map[DataType]int{
	Bool:      1,
	Int16:     2,
	Int32:     4,
	Int64:     8,
	Float:     4,
	Double:    8,
	Timestamp: 8,
}

func decodeValue(t DataType, b []byte) (interface{}, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if size, ok := fixedSize[t]; ok && size != len(b) {
		return nil, pkgerrors.Wrapf(ErrMalformedRow, "%s with %d bytes", t, len(b))
	}
	switch t {
	case Bool:
		return b[0] == 1, nil
	case Int16:
		return int16(binary.LittleEndian.Uint16(b)), nil
	case Int32:
		return int32(binary.LittleEndian.Uint32(b)), nil
	case Int64:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case Float:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
	case Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case Timestamp:
		return time.UnixMilli(int64(binary.LittleEndian.Uint64(b))).UTC(), nil
	case String:
		return string(b), nil
	}
	return nil, ErrUnknownType
}
