package core

import "fmt"

// ConfigError reports a study-design or configuration problem that makes the
// whole invocation unusable: no common runs, duplicate measurement names, an
// unrecognized channel set, or a bad reference expression.
type ConfigError struct {
	Op     string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// SchemaError reports an input table whose columns do not meet the contract.
type SchemaError struct {
	Table  string
	Column string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %s: %s", e.Table, e.Detail)
	}
	return fmt.Sprintf("table %s, column %s: %s", e.Table, e.Column, e.Detail)
}

// NoticeKind classifies advisory notices.
type NoticeKind string

const (
	// NoticeRunMismatch marks run-id sets that only partially overlap across
	// identification, intensity, and fraction inputs.
	NoticeRunMismatch NoticeKind = "run_mismatch"
	// NoticePlexMismatch marks plex or quant-block ids present in one design
	// table but absent from the data or another design table.
	NoticePlexMismatch NoticeKind = "plex_mismatch"
	// NoticeDecoyDropped marks decoy identification rows removed before
	// linking.
	NoticeDecoyDropped NoticeKind = "decoy_dropped"
	// NoticeUnmappedChannel marks observed channels with no sample-design row
	// in their plex.
	NoticeUnmappedChannel NoticeKind = "unmapped_channel"
)

// Notice is a non-fatal advisory attached to a successful result. Dropped
// counts the entities removed by the local recovery, zero when the notice is
// purely informational.
type Notice struct {
	Kind    NoticeKind
	Detail  string
	Dropped int
}

func (n Notice) String() string {
	if n.Dropped == 0 {
		return fmt.Sprintf("%s: %s", n.Kind, n.Detail)
	}
	return fmt.Sprintf("%s: %s (%d dropped)", n.Kind, n.Detail, n.Dropped)
}
