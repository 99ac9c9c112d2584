// Package tsv writes the crosstab matrix as a tab-separated table.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/quant"
)

// missingToken marks a missing cell in the output, matching what the
// readers accept on the way back in.
const missingToken = "NA"

// WriteMatrix writes the crosstab with a species column followed by one
// column per measurement. Missing cells are written as NA.
func WriteMatrix(w io.Writer, m *quant.Matrix) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(core.ColSpecies); err != nil {
		return err
	}
	for _, meas := range m.Measurements() {
		if _, err := fmt.Fprintf(bw, "\t%s", meas); err != nil {
			return err
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	rows, cols := m.Dims()
	species := m.Species()
	for i := 0; i < rows; i++ {
		if _, err := bw.WriteString(species[i]); err != nil {
			return err
		}
		for j := 0; j < cols; j++ {
			cell := missingToken
			if v := m.At(i, j); !math.IsNaN(v) {
				cell = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if _, err := fmt.Fprintf(bw, "\t%s", cell); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
