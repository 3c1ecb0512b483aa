package vectorstore

import (
	"fmt"
	"strings"

	"github.com/x448/float16"
)

// CellType is the precision vectors are stored with.
type CellType int

const (
	CellFloat32 CellType = iota
	CellFloat64
	CellFloat16
)

func (c CellType) String() string {
	switch c {
	case CellFloat32:
		return "float32"
	case CellFloat64:
		return "float64"
	case CellFloat16:
		return "float16"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Size returns the number of bytes one cell occupies.
func (c CellType) Size() int {
	switch c {
	case CellFloat64:
		return 8
	case CellFloat16:
		return 2
	default:
		return 4
	}
}

// Valid reports whether c is a supported cell type.
func (c CellType) Valid() bool {
	return c >= CellFloat32 && c <= CellFloat16
}

// ParseCellType parses a cell type name ("float32", "float64"/"double", "float16"/"half").
func ParseCellType(s string) (CellType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "float", "":
		return CellFloat32, nil
	case "float64", "double":
		return CellFloat64, nil
	case "float16", "half":
		return CellFloat16, nil
	default:
		return 0, fmt.Errorf("unsupported cell type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CellType) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unsupported cell type %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CellType) UnmarshalText(text []byte) error {
	parsed, err := ParseCellType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func encodeFloat16(dst []uint16, src []float64) {
	for i, v := range src {
		dst[i] = float16.Fromfloat32(float32(v)).Bits()
	}
}

func decodeFloat16(dst []float64, src []uint16) {
	for i, b := range src {
		dst[i] = float64(float16.Frombits(b).Float32())
	}
}
