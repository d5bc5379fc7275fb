package dynconfig

import (
	"maps"
	"strconv"
)

// Kind is the value type a key is registered with. It never changes for
// the lifetime of the process.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindHash
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindHash:
		return "hash"
	default:
		return "unknown"
	}
}

// Cell is one typed config value. The set of implementations is closed:
// StringCell, IntCell, FloatCell and HashCell.
type Cell interface {
	Kind() Kind
	cell()
}

type (
	StringCell string
	IntCell    int64
	FloatCell  float64
	HashCell   map[string]string
)

func (StringCell) Kind() Kind { return KindString }
func (IntCell) Kind() Kind    { return KindInt }
func (FloatCell) Kind() Kind  { return KindFloat }
func (HashCell) Kind() Kind   { return KindHash }

func (StringCell) cell() {}
func (IntCell) cell()    {}
func (FloatCell) cell()  {}
func (HashCell) cell()   {}

func zeroCell(k Kind) Cell {
	switch k {
	case KindString:
		return StringCell("")
	case KindInt:
		return IntCell(0)
	case KindFloat:
		return FloatCell(0)
	case KindHash:
		return HashCell{}
	default:
		return nil
	}
}

func sameCell(a, b Cell) bool {
	switch av := a.(type) {
	case StringCell:
		bv, ok := b.(StringCell)
		return ok && av == bv
	case IntCell:
		bv, ok := b.(IntCell)
		return ok && av == bv
	case FloatCell:
		bv, ok := b.(FloatCell)
		return ok && av == bv
	case HashCell:
		bv, ok := b.(HashCell)
		return ok && maps.Equal(av, bv)
	default:
		return a == nil && b == nil
	}
}

// Mapping renders any cell as a string map, the shape served by diagnostics.
// Scalars are exposed under the "value" field.
func Mapping(c Cell) map[string]string {
	switch v := c.(type) {
	case StringCell:
		return map[string]string{"value": string(v)}
	case IntCell:
		return map[string]string{"value": strconv.FormatInt(int64(v), 10)}
	case FloatCell:
		return map[string]string{"value": strconv.FormatFloat(float64(v), 'f', -1, 64)}
	case HashCell:
		return maps.Clone(map[string]string(v))
	default:
		return map[string]string{}
	}
}
