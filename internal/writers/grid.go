package writers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Dense views a 2-D array as a matrix. The values are shared.
func Dense(a *api.Array) (*mat.Dense, error) {
	if a == nil {
		return nil, fmt.Errorf("array is nil")
	}
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("want a 2-D array, got shape %v", a.Shape)
	}
	if a.Shape[0] == 0 || a.Shape[1] == 0 {
		return nil, fmt.Errorf("empty array of shape %v", a.Shape)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return mat.NewDense(a.Shape[0], a.Shape[1], a.Values), nil
}

// FromDense copies m into a new 2-D array.
func FromDense(m mat.Matrix) *api.Array {
	r, c := m.Dims()
	values := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			values = append(values, m.At(i, j))
		}
	}
	a, _ := api.NewMatrix(r, c, values)
	return a
}

// Transpose returns a copy of the 2-D array with rows and columns swapped.
func Transpose(a *api.Array) (*api.Array, error) {
	m, err := Dense(a)
	if err != nil {
		return nil, err
	}
	return FromDense(m.T()), nil
}

func row(a *api.Array, i int) (*api.Array, error) {
	m, err := Dense(a)
	if err != nil {
		return nil, err
	}
	if r, _ := m.Dims(); i >= r {
		return nil, fmt.Errorf("row %d out of range", i)
	}
	return api.NewFloats(mat.Row(nil, i, m)), nil
}

func column(a *api.Array, j int) (*api.Array, error) {
	m, err := Dense(a)
	if err != nil {
		return nil, err
	}
	if _, c := m.Dims(); j >= c {
		return nil, fmt.Errorf("column %d out of range", j)
	}
	return api.NewFloats(mat.Col(nil, j, m)), nil
}

// EmissionAxis is the first column of the emission grid.
func EmissionAxis(g *api.Grid) (*api.Array, error) {
	return column(g.EmissionGrid, 0)
}
