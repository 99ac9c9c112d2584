package quant

import (
	"fmt"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// ReconcileRuns intersects the run ids referenced by the identification
// table, the intensity table, and the fraction design, and subsets all
// three to the common set. An empty intersection is fatal. A fraction
// design whose run set differs from the intersection yields a run-mismatch
// notice; rows dropped from the other two inputs are not reported.
func ReconcileRuns(ids, intens *table.Table, fractions []core.FractionRow) (*table.Table, *table.Table, []core.FractionRow, []core.Notice, error) {
	ids, err := runStrings(ids)
	if err != nil {
		return nil, nil, nil, nil, &core.SchemaError{Table: "identification", Column: core.ColRun, Detail: "required column missing"}
	}
	intens, err = runStrings(intens)
	if err != nil {
		return nil, nil, nil, nil, &core.SchemaError{Table: "intensity", Column: core.ColRun, Detail: "required column missing"}
	}

	idRuns := runSet(ids)
	intRuns := runSet(intens)
	fracRuns := make(map[string]bool, len(fractions))
	for _, f := range fractions {
		fracRuns[f.Run] = true
	}

	common := make(map[string]bool)
	for r := range fracRuns {
		if idRuns[r] && intRuns[r] {
			common[r] = true
		}
	}
	if len(common) == 0 {
		return nil, nil, nil, nil, &core.ConfigError{Op: "reconcile runs", Detail: "no common runs"}
	}

	var notices []core.Notice
	if len(common) != len(fracRuns) {
		dropped := len(fracRuns) - len(common)
		notices = append(notices, core.Notice{
			Kind:    core.NoticeRunMismatch,
			Detail:  fmt.Sprintf("%d of %d fraction-design runs are absent from identifications or intensities", dropped, len(fracRuns)),
			Dropped: dropped,
		})
	}

	inCommon := func(r table.Row) bool {
		s, _ := r.String(core.ColRun)
		return common[s]
	}
	outFrac := make([]core.FractionRow, 0, len(fractions))
	for _, f := range fractions {
		if common[f.Run] {
			outFrac = append(outFrac, f)
		}
	}
	return ids.Filter(inCommon), intens.Filter(inCommon), outFrac, notices, nil
}

func runSet(t *table.Table) map[string]bool {
	out := make(map[string]bool)
	for i := 0; i < t.Len(); i++ {
		if s, ok := t.RowAt(i).String(core.ColRun); ok {
			out[s] = true
		}
	}
	return out
}
