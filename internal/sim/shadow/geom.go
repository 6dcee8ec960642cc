package shadow

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"strings"
)

// Voxel is one unit cube of the puzzle grid.
type Voxel struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Square is one cell of a shadow. For the XY shadow it is (x, y); for the XZ
// shadow it is (x, z).
type Square struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (v Voxel) String() string  { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }
func (s Square) String() string { return fmt.Sprintf("(%d,%d)", s.A, s.B) }

// Axis names the pair of coordinates a shadow keeps.
type Axis uint8

const (
	XY Axis = iota + 1 // drops z
	XZ                 // drops y
)

// Axes lists every valid axis in index order.
var Axes = [2]Axis{XY, XZ}

func (a Axis) Valid() bool { return a == XY || a == XZ }

// Index maps XY to 0 and XZ to 1. It must only be called on a valid axis.
func (a Axis) Index() int { return int(a) - 1 }

func (a Axis) String() string {
	switch a {
	case XY:
		return "XY"
	case XZ:
		return "XZ"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "XY":
		return XY, nil
	case "XZ":
		return XZ, nil
	}
	return 0, &InvalidInputError{Field: "axis", Text: s, Reason: "want XY or XZ"}
}

// Project returns the square v casts onto the shadow of axis a.
func (a Axis) Project(v Voxel) Square {
	if a == XZ {
		return Square{A: v.X, B: v.Z}
	}
	return Square{A: v.X, B: v.Y}
}

// Grid bounds every coordinate to [0, N).
type Grid struct {
	N int
}

func (g Grid) contains(c int) bool { return c >= 0 && c < g.N }

func (g Grid) CheckVoxel(v Voxel) error {
	for _, c := range [...]struct {
		name string
		v    int
	}{{"x", v.X}, {"y", v.Y}, {"z", v.Z}} {
		if !g.contains(c.v) {
			return &InvalidInputError{Field: c.name, Value: c.v, Reason: g.rangeText()}
		}
	}
	return nil
}

func (g Grid) CheckSquare(s Square) error {
	if !g.contains(s.A) {
		return &InvalidInputError{Field: "a", Value: s.A, Reason: g.rangeText()}
	}
	if !g.contains(s.B) {
		return &InvalidInputError{Field: "b", Value: s.B, Reason: g.rangeText()}
	}
	return nil
}

func (g Grid) rangeText() string { return fmt.Sprintf("outside [0,%d)", g.N) }

// CheckSign accepts the two delta signs, +1 (insert) and -1 (retract).
func CheckSign(sign int) error {
	if sign != 1 && sign != -1 {
		return &InvalidInputError{Field: "sign", Value: sign, Reason: "want +1 or -1"}
	}
	return nil
}

func CompareVoxel(a, b Voxel) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.Z, b.Z)
}

func CompareSquare(a, b Square) int {
	if c := cmp.Compare(a.A, b.A); c != 0 {
		return c
	}
	return cmp.Compare(a.B, b.B)
}

func AppendVoxel(dst []byte, v Voxel) []byte {
	dst = binary.AppendVarint(dst, int64(v.X))
	dst = binary.AppendVarint(dst, int64(v.Y))
	return binary.AppendVarint(dst, int64(v.Z))
}

func AppendSquare(dst []byte, s Square) []byte {
	dst = binary.AppendVarint(dst, int64(s.A))
	return binary.AppendVarint(dst, int64(s.B))
}

func squareColumn(s Square) int { return s.A }

func (a Axis) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, &InvalidInputError{Field: "axis", Value: int(a), Reason: "want XY or XZ"}
	}
	return []byte(a.String()), nil
}

func (a *Axis) UnmarshalText(b []byte) error {
	v, err := ParseAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
