package quant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// LinkIdentifications joins identification rows to intensity rows on the
// composite (run, scan) key.
//
// The intensity table's scan column may arrive under any name starting with
// the scan prefix and is renamed to the canonical name; beyond run and scan
// it may contain only reporter channel columns. The identification table
// must carry run, scan, and every level-key column; decoy rows are dropped
// (with a notice) when a decoy column is present. Identification rows are
// deduplicated to the distinct (run, scan, keys) combination first, so
// several identification rows for one scan cannot fan out the join.
func LinkIdentifications(ids, intens *table.Table, keys []string) (*table.Table, []core.Notice, error) {
	intens, err := normalizeScanColumn(intens)
	if err != nil {
		return nil, nil, err
	}
	if err := checkIntensitySchema(intens); err != nil {
		return nil, nil, err
	}
	for _, c := range append([]string{core.ColRun, core.ColScan}, keys...) {
		if !ids.HasColumn(c) {
			return nil, nil, &core.SchemaError{Table: "identification", Column: c, Detail: "required column missing"}
		}
	}

	var notices []core.Notice
	if ids.HasColumn(core.ColDecoy) {
		kept := ids.Filter(func(r table.Row) bool {
			return !isTrue(r.Value(core.ColDecoy))
		})
		if dropped := ids.Len() - kept.Len(); dropped > 0 {
			notices = append(notices, core.Notice{
				Kind:    core.NoticeDecoyDropped,
				Detail:  fmt.Sprintf("%d decoy identification rows removed", dropped),
				Dropped: dropped,
			})
		}
		ids = kept
	}

	dedup, err := ids.Select(append([]string{core.ColRun, core.ColScan}, keys...)...)
	if err != nil {
		return nil, nil, err
	}
	dedup, err = dedup.Distinct()
	if err != nil {
		return nil, nil, err
	}

	linked, err := dedup.InnerJoin(intens, core.ColRun, core.ColScan)
	if err != nil {
		return nil, nil, err
	}
	return linked, notices, nil
}

// normalizeScanColumn renames the intensity table's scan-identifier column
// to the canonical name. The prefix match ignores case, so ScanNum and
// scan_number both qualify. Exactly one scan column must exist.
func normalizeScanColumn(intens *table.Table) (*table.Table, error) {
	var found []string
	for _, c := range intens.Columns() {
		if strings.HasPrefix(strings.ToLower(c), core.ScanPrefix) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return nil, &core.SchemaError{Table: "intensity", Column: core.ColScan, Detail: "no scan-identifier column"}
	case 1:
	default:
		return nil, &core.SchemaError{
			Table:  "intensity",
			Column: found[1],
			Detail: fmt.Sprintf("multiple scan-identifier columns (%s)", strings.Join(found, ", ")),
		}
	}
	if found[0] == core.ColScan {
		return intens, nil
	}
	return intens.Rename(found[0], core.ColScan)
}

// checkIntensitySchema rejects any intensity column that is not run, scan,
// or a recognized reporter channel, and requires at least one channel.
func checkIntensitySchema(intens *table.Table) error {
	channels := 0
	for _, c := range intens.Columns() {
		switch {
		case c == core.ColRun || c == core.ColScan:
		case core.IsChannel(c):
			channels++
		default:
			return &core.SchemaError{Table: "intensity", Column: c, Detail: "unrecognized column"}
		}
	}
	if channels == 0 {
		return &core.SchemaError{Table: "intensity", Detail: "no reporter channel columns"}
	}
	return nil
}

// isTrue interprets a decoy cell: nonzero numbers and parseable true
// strings mark a decoy.
func isTrue(v table.Value) bool {
	if f, ok := v.AsNumber(); ok {
		return f != 0
	}
	if s, ok := v.AsString(); ok {
		b, err := strconv.ParseBool(strings.ToLower(s))
		return err == nil && b
	}
	return false
}
