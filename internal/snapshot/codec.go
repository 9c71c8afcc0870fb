// Package snapshot serializes whole database images: a versioned,
// deterministic binary encoding plus atomic file save/load. The format
// writes tables in name order, columns in insertion order, and row
// bodies column-major behind a per-column null bitmap, so identical
// databases always produce identical bytes.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mesh-intelligence/shelf/internal/sql"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Image format framing.
const (
	magic         = "SHLF"
	formatVersion = uint16(1)
)

// ErrBadImage wraps every malformed-image failure.
var ErrBadImage = fmt.Errorf("malformed database image")

// Encode serializes a database image.
//
// Layout: magic, version, database name, table count, then per table
// (name order): table name, column count, per column: name, type tag,
// default marker + value, constraint count, per constraint: name, kind,
// CHECK source, FK parent; then row count and the column bodies in
// column order, each as a null bitmap followed by non-null payloads.
// Strings are u16-length-prefixed throughout.
func Encode(db *types.Database) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(magic)
	putU16(&buf, formatVersion)
	if err := putString(&buf, db.Name); err != nil {
		return nil, err
	}

	tableNames := db.TableNames()
	putU32(&buf, uint32(len(tableNames)))
	for _, name := range tableNames {
		tbl, _ := db.Table(name)
		if err := encodeTable(&buf, name, tbl); err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeTable(buf *bytes.Buffer, name string, tbl *types.Table) error {
	if err := putString(buf, name); err != nil {
		return err
	}
	cols := tbl.ColumnNames()
	putU32(buf, uint32(len(cols)))
	for _, colName := range cols {
		col, _ := tbl.Column(colName)
		if err := encodeColumnMeta(buf, colName, col); err != nil {
			return err
		}
	}
	putU32(buf, uint32(tbl.RowCount()))
	for _, colName := range cols {
		col, _ := tbl.Column(colName)
		if err := encodeBody(buf, col); err != nil {
			return fmt.Errorf("column %q: %w", colName, err)
		}
	}
	return nil
}

func encodeColumnMeta(buf *bytes.Buffer, name string, col *types.Column) error {
	if err := putString(buf, name); err != nil {
		return err
	}
	buf.WriteByte(byte(col.Type))
	if col.Default != nil {
		buf.WriteByte(1)
		if err := encodeValue(buf, *col.Default); err != nil {
			return err
		}
	} else {
		buf.WriteByte(0)
	}
	putU32(buf, uint32(len(col.Constraints)))
	for _, con := range col.Constraints {
		if err := putString(buf, con.Name); err != nil {
			return err
		}
		buf.WriteByte(byte(con.Kind))
		if err := putString(buf, con.Expr); err != nil {
			return err
		}
		if err := putString(buf, con.Parent); err != nil {
			return err
		}
	}
	return nil
}

// encodeBody writes one column body: null bitmap first (bit set means
// NULL), then the payload of each non-null cell in row order.
func encodeBody(buf *bytes.Buffer, col *types.Column) error {
	n := len(col.Body)
	bitmap := make([]byte, (n+7)/8)
	for i, v := range col.Body {
		if v.IsNull() {
			bitmap[i/8] |= 1 << (uint(i) & 7)
		}
	}
	buf.Write(bitmap)
	for _, v := range col.Body {
		if v.IsNull() {
			continue
		}
		if err := encodeValue(buf, v); err != nil {
			return err
		}
	}
	return nil
}

func encodeValue(buf *bytes.Buffer, v types.Value) error {
	buf.WriteByte(byte(v.Type))
	switch v.Type {
	case types.Integer:
		putU64(buf, uint64(v.I64))
	case types.Real:
		putU64(buf, math.Float64bits(v.F64))
	case types.String:
		return putString(buf, v.S)
	case types.Boolean:
		if v.B {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	default:
		return fmt.Errorf("value type %v: %w", v.Type, ErrBadImage)
	}
	return nil
}

// Decode reconstructs a database from an encoded image. CHECK filters
// are recompiled from their stored source through the given compiler.
// The loaded database carries the given file path and starts IN_WORK.
func Decode(data []byte, filePath string, compiler *sql.Compiler) (*types.Database, error) {
	r := &reader{data: data}
	head, err := r.bytes(len(magic))
	if err != nil || string(head) != magic {
		return nil, fmt.Errorf("missing magic header: %w", ErrBadImage)
	}
	version, err := r.u16()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported image version %d: %w", version, ErrBadImage)
	}
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	db, err := types.NewDatabase(name, filePath)
	if err != nil {
		return nil, err
	}
	db.SetState(types.StateInWork)

	tableCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < tableCount; i++ {
		tblName, tbl, err := decodeTable(r, compiler)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		db.PutTable(tblName, tbl)
	}
	if !r.done() {
		return nil, fmt.Errorf("%d trailing bytes: %w", r.remaining(), ErrBadImage)
	}
	return db, nil
}

func decodeTable(r *reader, compiler *sql.Compiler) (string, *types.Table, error) {
	name, err := r.str()
	if err != nil {
		return "", nil, err
	}
	colCount, err := r.u32()
	if err != nil {
		return "", nil, err
	}
	tbl := types.NewTable()
	colNames := make([]string, 0, colCount)
	for i := uint32(0); i < colCount; i++ {
		colName, spec, err := decodeColumnMeta(r, compiler)
		if err != nil {
			return "", nil, err
		}
		spec.Name = colName
		if err := tbl.CreateColumn(spec, nil); err != nil {
			return "", nil, err
		}
		colNames = append(colNames, colName)
	}
	rowCount, err := r.u32()
	if err != nil {
		return "", nil, err
	}
	for _, colName := range colNames {
		col, _ := tbl.Column(colName)
		body, err := decodeBody(r, int(rowCount))
		if err != nil {
			return "", nil, fmt.Errorf("column %q: %w", colName, err)
		}
		col.Body = body
	}
	return name, tbl, nil
}

func decodeColumnMeta(r *reader, compiler *sql.Compiler) (string, types.ColumnSpec, error) {
	name, err := r.str()
	if err != nil {
		return "", types.ColumnSpec{}, err
	}
	typeTag, err := r.u8()
	if err != nil {
		return "", types.ColumnSpec{}, err
	}
	spec := types.ColumnSpec{Type: types.DataType(typeTag)}
	hasDefault, err := r.u8()
	if err != nil {
		return "", types.ColumnSpec{}, err
	}
	if hasDefault == 1 {
		v, err := decodeValue(r)
		if err != nil {
			return "", types.ColumnSpec{}, err
		}
		spec.Default = &v
	}
	conCount, err := r.u32()
	if err != nil {
		return "", types.ColumnSpec{}, err
	}
	for i := uint32(0); i < conCount; i++ {
		con := types.Constraint{}
		if con.Name, err = r.str(); err != nil {
			return "", types.ColumnSpec{}, err
		}
		kind, err := r.u8()
		if err != nil {
			return "", types.ColumnSpec{}, err
		}
		con.Kind = types.ConstraintKind(kind)
		if con.Expr, err = r.str(); err != nil {
			return "", types.ColumnSpec{}, err
		}
		if con.Parent, err = r.str(); err != nil {
			return "", types.ColumnSpec{}, err
		}
		if con.Kind == types.ConstraintCheck {
			filter, err := compiler.Compile(con.Expr)
			if err != nil {
				return "", types.ColumnSpec{}, fmt.Errorf("check %q: %w", con.Name, err)
			}
			con.Filter = filter
		}
		spec.Constraints = append(spec.Constraints, con)
	}
	return name, spec, nil
}

func decodeBody(r *reader, rows int) ([]types.Value, error) {
	bitmap, err := r.bytes((rows + 7) / 8)
	if err != nil {
		return nil, err
	}
	body := make([]types.Value, rows)
	for i := 0; i < rows; i++ {
		if bitmap[i/8]&(1<<(uint(i)&7)) != 0 {
			body[i] = types.NewNull()
			continue
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		body[i] = v
	}
	return body, nil
}

func decodeValue(r *reader) (types.Value, error) {
	tag, err := r.u8()
	if err != nil {
		return types.Value{}, err
	}
	switch types.DataType(tag) {
	case types.Integer:
		u, err := r.u64()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewInteger(int64(u)), nil
	case types.Real:
		u, err := r.u64()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewReal(math.Float64frombits(u)), nil
	case types.String:
		s, err := r.str()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewString(s), nil
	case types.Boolean:
		b, err := r.u8()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewBoolean(b == 1), nil
	default:
		return types.Value{}, fmt.Errorf("value tag %d: %w", tag, ErrBadImage)
	}
}

// ---- little-endian primitives ----

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string of %d bytes exceeds u16 length: %w", len(s), ErrBadImage)
	}
	putU16(buf, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

// reader is a bounds-checked cursor over an encoded image.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) done() bool     { return r.pos >= len(r.data) }
func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("truncated image at offset %d: %w", r.pos, ErrBadImage)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
