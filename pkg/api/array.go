package api

import "fmt"

// DType records the element kind a channel was recorded with.
type DType string

const (
	Float64 DType = "float64"
	Int64   DType = "int64"
)

// Array is an n-dimensional row-major numeric array. The first dimension is
// the event (time) axis.
type Array struct {
	DType  DType     `json:"dtype" cbor:"dtype"`
	Shape  []int     `json:"shape" cbor:"shape"`
	Values []float64 `json:"values" cbor:"values"`
	// Grid is set for spectra delivered together with their axis grids.
	Grid *Grid `json:"grid,omitempty" cbor:"grid,omitempty"`
}

// Grid is a spectral channel with its 2-D axis grids. Counts is
// (emission × time); MonoGrid and EmissionGrid share that shape.
type Grid struct {
	Counts       *Array `json:"counts" cbor:"counts"`
	MonoGrid     *Array `json:"mono_grid" cbor:"mono_grid"`
	EmissionGrid *Array `json:"emission_grid" cbor:"emission_grid"`
}

// NewFloats returns a 1-D float array.
func NewFloats(values []float64) *Array {
	return &Array{DType: Float64, Shape: []int{len(values)}, Values: values}
}

// NewInts returns a 1-D integer array.
func NewInts(values []int64) *Array {
	v := make([]float64, len(values))
	for i, x := range values {
		v[i] = float64(x)
	}
	return &Array{DType: Int64, Shape: []int{len(values)}, Values: v}
}

// NewMatrix returns a 2-D float array of rows × cols.
func NewMatrix(rows, cols int, values []float64) (*Array, error) {
	if rows*cols != len(values) {
		return nil, fmt.Errorf("matrix %dx%d needs %d values, got %d", rows, cols, rows*cols, len(values))
	}
	return &Array{DType: Float64, Shape: []int{rows, cols}, Values: values}, nil
}

// NewGridArray wraps a spectrum and its axis grids. The event axis length is
// the number of columns of counts.
func NewGridArray(counts, monoGrid, emissionGrid *Array) *Array {
	n := 0
	if counts != nil && len(counts.Shape) == 2 {
		n = counts.Shape[1]
	}
	return &Array{
		DType: Float64,
		Shape: []int{n},
		Grid:  &Grid{Counts: counts, MonoGrid: monoGrid, EmissionGrid: emissionGrid},
	}
}

// Ndim is the number of dimensions. Grid arrays report 3, one per part.
func (a *Array) Ndim() int {
	if a == nil {
		return 0
	}
	if a.Grid != nil {
		return 3
	}
	return len(a.Shape)
}

// Len is the length along the event axis.
func (a *Array) Len() int {
	if a == nil || len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// IsInteger reports whether the array was recorded with an integer type.
func (a *Array) IsInteger() bool {
	return a != nil && a.DType == Int64
}

// Validate checks that the values fill the shape.
func (a *Array) Validate() error {
	if a == nil {
		return fmt.Errorf("array is nil")
	}
	if a.Grid != nil {
		return nil
	}
	n := 1
	for _, d := range a.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", a.Shape)
		}
		n *= d
	}
	if n != len(a.Values) {
		return fmt.Errorf("shape %v needs %d values, got %d", a.Shape, n, len(a.Values))
	}
	return nil
}

// ZerosLike returns a zero-filled array of the same shape.
func ZerosLike(a *Array) *Array {
	if a == nil {
		return NewFloats(nil)
	}
	shape := append([]int(nil), a.Shape...)
	return &Array{DType: a.DType, Shape: shape, Values: make([]float64, len(a.Values))}
}

// Full returns a 1-D float array of length n filled with v.
func Full(n int, v float64) *Array {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return NewFloats(values)
}
