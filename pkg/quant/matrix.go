package quant

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// Matrix is the final crosstab: species rows, measurement columns, log2
// ratio cells with NaN marking a missing observation.
type Matrix struct {
	species      []string
	measurements []string
	data         *mat.Dense
}

// AssembleMatrix pivots the normalized long-form ratios into the crosstab.
// Duplicate (species, measurement) pairs keep the first ratio. Cells whose
// ratio is non-finite, zero, or negative become missing, species rows with
// no present cell are dropped, and the surviving cells are log2-transformed.
func AssembleMatrix(long *table.Table) (*Matrix, error) {
	wide, err := long.Pivot([]string{core.ColSpecies}, core.ColMeasurement, core.ColRatio)
	if err != nil {
		return nil, err
	}
	measurements := wide.Columns()[1:]
	if wide.Len() == 0 || len(measurements) == 0 {
		return &Matrix{}, nil
	}

	var species []string
	var cells []float64
	for i := 0; i < wide.Len(); i++ {
		row := wide.RowAt(i)
		vals := make([]float64, len(measurements))
		present := false
		for j, m := range measurements {
			v := math.NaN()
			if f, ok := row.Number(m); ok && f != 0 && !math.IsInf(f, 0) {
				v = math.Log2(f) // NaN for negative ratios
			}
			if !math.IsNaN(v) {
				present = true
			}
			vals[j] = v
		}
		if !present {
			continue
		}
		name, _ := row.String(core.ColSpecies)
		species = append(species, name)
		cells = append(cells, vals...)
	}
	if len(species) == 0 {
		return &Matrix{}, nil
	}
	return &Matrix{
		species:      species,
		measurements: append([]string(nil), measurements...),
		data:         mat.NewDense(len(species), len(measurements), cells),
	}, nil
}

// Dims returns the number of species rows and measurement columns.
func (m *Matrix) Dims() (rows, cols int) {
	return len(m.species), len(m.measurements)
}

// Species returns the row labels in matrix order.
func (m *Matrix) Species() []string {
	return append([]string(nil), m.species...)
}

// Measurements returns the column labels in matrix order.
func (m *Matrix) Measurements() []string {
	return append([]string(nil), m.measurements...)
}

// At returns the log2 ratio at (i, j); NaN marks a missing cell.
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Lookup returns the log2 ratio for a species and measurement by name. The
// second result is false when either label is unknown or the cell is
// missing.
func (m *Matrix) Lookup(species, measurement string) (float64, bool) {
	i := index(m.species, species)
	j := index(m.measurements, measurement)
	if i < 0 || j < 0 {
		return 0, false
	}
	v := m.data.At(i, j)
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Dense exposes the underlying matrix for numeric post-processing. It is
// nil for an empty crosstab.
func (m *Matrix) Dense() *mat.Dense { return m.data }

func index(xs []string, want string) int {
	for i, x := range xs {
		if x == want {
			return i
		}
	}
	return -1
}
