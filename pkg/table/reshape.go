package table

import "fmt"

// Pivot spreads a long table wide: one output row per distinct combination
// of the index columns, one output column per distinct cell of the column
// column, cells taken from the value column. Both rows and spread columns
// keep first-appearance order. When the same (index, column) pair occurs
// more than once the first value wins. Combinations never observed are
// missing in the output.
func (t *Table) Pivot(index []string, column, value string) (*Table, error) {
	idxPos, err := t.columnIndices(index)
	if err != nil {
		return nil, err
	}
	colPos, err := t.columnIndices([]string{column, value})
	if err != nil {
		return nil, err
	}
	cPos, vPos := colPos[0], colPos[1]

	outCols := append([]string(nil), index...)
	spread := make(map[string]int) // spread column name -> position in outCols
	rowPos := make(map[string]int) // index key -> output row
	var keys [][]Value             // index cells per output row

	// First pass fixes the output schema.
	for _, row := range t.rows {
		cell := row[cPos]
		if cell.IsMissing() {
			return nil, fmt.Errorf("pivot: missing value in column %q", column)
		}
		name := cell.String()
		if _, ok := spread[name]; !ok {
			if name == "" {
				return nil, fmt.Errorf("pivot: empty value in column %q", column)
			}
			for _, c := range index {
				if c == name {
					return nil, fmt.Errorf("pivot: column %q collides with index column", name)
				}
			}
			spread[name] = len(outCols)
			outCols = append(outCols, name)
		}
	}

	out, err := New(outCols...)
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		k := compositeKey(row, idxPos)
		ri, ok := rowPos[k]
		if !ok {
			ri = len(keys)
			rowPos[k] = ri
			cells := make([]Value, len(idxPos))
			for n, j := range idxPos {
				cells[n] = row[j]
			}
			keys = append(keys, cells)
			out.rows = append(out.rows, make([]Value, len(outCols)))
			copy(out.rows[ri], cells)
		}
		ci := spread[row[cPos].String()]
		if out.rows[ri][ci].IsMissing() {
			out.rows[ri][ci] = row[vPos]
		}
	}
	return out, nil
}

// Melt is the inverse of Pivot: it stacks the given value columns into two
// new columns, varName holding the source column's name and valueName its
// cell. Each input row yields len(valueCols) output rows, id columns
// repeated, in input order.
func (t *Table) Melt(ids, valueCols []string, varName, valueName string) (*Table, error) {
	idPos, err := t.columnIndices(ids)
	if err != nil {
		return nil, err
	}
	valPos, err := t.columnIndices(valueCols)
	if err != nil {
		return nil, err
	}
	outCols := append(append([]string(nil), ids...), varName, valueName)
	out, err := New(outCols...)
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		for n, j := range valPos {
			vals := make([]Value, 0, len(outCols))
			for _, p := range idPos {
				vals = append(vals, row[p])
			}
			vals = append(vals, NewString(valueCols[n]), row[j])
			out.rows = append(out.rows, vals)
		}
	}
	return out, nil
}

// GroupSum collapses rows that agree on the by columns, summing each value
// column. Missing cells contribute zero, so a group whose cells are all
// missing sums to zero rather than propagating the gap. A string cell in a
// value column is an error. Groups keep first-appearance order.
func (t *Table) GroupSum(by, valueCols []string) (*Table, error) {
	byPos, err := t.columnIndices(by)
	if err != nil {
		return nil, err
	}
	valPos, err := t.columnIndices(valueCols)
	if err != nil {
		return nil, err
	}
	outCols := append(append([]string(nil), by...), valueCols...)
	out, err := New(outCols...)
	if err != nil {
		return nil, err
	}
	rowPos := make(map[string]int)
	sums := make([][]float64, 0, len(t.rows))
	for _, row := range t.rows {
		k := compositeKey(row, byPos)
		ri, ok := rowPos[k]
		if !ok {
			ri = len(sums)
			rowPos[k] = ri
			sums = append(sums, make([]float64, len(valPos)))
			cells := make([]Value, len(byPos))
			for n, j := range byPos {
				cells[n] = row[j]
			}
			out.rows = append(out.rows, cells)
		}
		for n, j := range valPos {
			cell := row[j]
			if cell.IsMissing() {
				continue
			}
			f, ok := cell.AsNumber()
			if !ok {
				return nil, fmt.Errorf("group sum: column %q holds non-numeric cell %q", valueCols[n], cell.String())
			}
			sums[ri][n] += f
		}
	}
	for ri := range out.rows {
		for n := range valPos {
			out.rows[ri] = append(out.rows[ri], NewNumber(sums[ri][n]))
		}
	}
	return out, nil
}
