package core

import (
	"regexp"
	"strings"
)

// ChannelPattern recognizes reporter channel column names: the letter i, a
// three-digit nominal mass in the isobaric tag range, and an optional N/C
// isotope position.
var ChannelPattern = regexp.MustCompile(`^i1[0-9]{2}[NC]?$`)

// IsChannel reports whether a column name is a reporter channel column.
func IsChannel(name string) bool {
	return ChannelPattern.MatchString(name)
}

// ChannelLabel pairs a physical reporter channel with its alias.
type ChannelLabel struct {
	Channel string
	Label   string
}

// Converter maps the reporter channels of one multiplex reagent kit to
// reporter aliases. A converter applies only when its channel set equals
// the observed channel set exactly.
type Converter struct {
	Name  string
	Pairs []ChannelLabel
}

// Channels returns the converter's channel names in declared order.
func (c Converter) Channels() []string {
	out := make([]string, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = p.Channel
	}
	return out
}

// Labels returns the converter's aliases in declared order.
func (c Converter) Labels() []string {
	out := make([]string, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = p.Label
	}
	return out
}

// Label returns the alias for a channel and whether the channel belongs to
// this converter.
func (c Converter) Label(channel string) (string, bool) {
	for _, p := range c.Pairs {
		if p.Channel == channel {
			return p.Label, true
		}
	}
	return "", false
}

// newConverter derives aliases from channel names: i126 becomes TMT_126,
// i114 becomes iTRAQ_114.
func newConverter(name, reagent string, channels ...string) Converter {
	pairs := make([]ChannelLabel, len(channels))
	for i, ch := range channels {
		pairs[i] = ChannelLabel{Channel: ch, Label: reagent + "_" + strings.TrimPrefix(ch, "i")}
	}
	return Converter{Name: name, Pairs: pairs}
}

// DefaultConverters is the registry of supported reagent kits, one converter
// per multiplex cardinality, searched in order.
var DefaultConverters = []Converter{
	newConverter("itraq4", "iTRAQ",
		"i114", "i115", "i116", "i117"),
	newConverter("itraq8", "iTRAQ",
		"i113", "i114", "i115", "i116", "i117", "i118", "i119", "i121"),
	newConverter("tmt6", "TMT",
		"i126", "i127N", "i128C", "i129N", "i130C", "i131N"),
	newConverter("tmt10", "TMT",
		"i126", "i127N", "i127C", "i128N", "i128C",
		"i129N", "i129C", "i130N", "i130C", "i131N"),
	newConverter("tmt11", "TMT",
		"i126", "i127N", "i127C", "i128N", "i128C",
		"i129N", "i129C", "i130N", "i130C", "i131N", "i131C"),
	newConverter("tmt16", "TMT",
		"i126", "i127N", "i127C", "i128N", "i128C",
		"i129N", "i129C", "i130N", "i130C", "i131N", "i131C",
		"i132N", "i132C", "i133N", "i133C", "i134N"),
	newConverter("tmt18", "TMT",
		"i126", "i127N", "i127C", "i128N", "i128C",
		"i129N", "i129C", "i130N", "i130C", "i131N", "i131C",
		"i132N", "i132C", "i133N", "i133C", "i134N", "i134C", "i135N"),
}

// MatchConverter returns the first converter whose channel set equals the
// observed channels by exact set equality, ignoring order and duplicates.
func MatchConverter(observed []string, registry []Converter) (Converter, bool) {
	set := make(map[string]bool, len(observed))
	for _, ch := range observed {
		set[ch] = true
	}
	for _, c := range registry {
		if len(c.Pairs) != len(set) {
			continue
		}
		all := true
		for _, p := range c.Pairs {
			if !set[p.Channel] {
				all = false
				break
			}
		}
		if all {
			return c, true
		}
	}
	return Converter{}, false
}
