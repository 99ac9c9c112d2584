package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsChannel(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"i126", true},
		{"i127N", true},
		{"i131C", true},
		{"i135N", true},
		{"i114", true},
		{"126", false},
		{"i12", false},
		{"i1261", false},
		{"i127X", false},
		{"run", false},
		{"scan_num", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChannel(tt.name); got != tt.want {
				t.Errorf("IsChannel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestConverterLabel(t *testing.T) {
	tmt6, ok := MatchConverter([]string{"i126", "i127N", "i128C", "i129N", "i130C", "i131N"}, DefaultConverters)
	if !ok {
		t.Fatal("tmt6 channel set did not match")
	}
	if tmt6.Name != "tmt6" {
		t.Fatalf("matched %q, want tmt6", tmt6.Name)
	}
	if label, ok := tmt6.Label("i127N"); !ok || label != "TMT_127N" {
		t.Errorf("Label(i127N) = %q, %v", label, ok)
	}
	if _, ok := tmt6.Label("i131C"); ok {
		t.Error("Label(i131C) matched outside the converter")
	}

	itraq4, ok := MatchConverter([]string{"i117", "i114", "i116", "i115"}, DefaultConverters)
	if !ok {
		t.Fatal("itraq4 channel set did not match")
	}
	if label, _ := itraq4.Label("i114"); label != "iTRAQ_114" {
		t.Errorf("Label(i114) = %q, want iTRAQ_114", label)
	}
}

func TestMatchConverter(t *testing.T) {
	tmt10 := []string{
		"i126", "i127N", "i127C", "i128N", "i128C",
		"i129N", "i129C", "i130N", "i130C", "i131N",
	}
	tests := []struct {
		name     string
		observed []string
		want     string
		ok       bool
	}{
		{"tmt10 in order", tmt10, "tmt10", true},
		{"tmt10 shuffled", []string{"i131N", "i126", "i129C", "i127N", "i128C", "i130N", "i127C", "i129N", "i130C", "i128N"}, "tmt10", true},
		{"duplicates collapse", []string{"i114", "i115", "i116", "i117", "i114"}, "itraq4", true},
		{"tmt11 distinguishes by extra channel", append(append([]string(nil), tmt10...), "i131C"), "tmt11", true},
		{"subset does not match", tmt10[:9], "", false},
		{"five channels match nothing", []string{"i114", "i115", "i116", "i117", "i118"}, "", false},
		{"empty set", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchConverter(tt.observed, DefaultConverters)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.Name != tt.want {
				t.Errorf("matched %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestConverterChannelsAndLabels(t *testing.T) {
	c := newConverter("tmt6", "TMT", "i126", "i127N")
	if diff := cmp.Diff([]string{"i126", "i127N"}, c.Channels()); diff != "" {
		t.Errorf("Channels() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"TMT_126", "TMT_127N"}, c.Labels()); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultConverterCardinalities(t *testing.T) {
	want := map[string]int{
		"itraq4": 4,
		"itraq8": 8,
		"tmt6":   6,
		"tmt10":  10,
		"tmt11":  11,
		"tmt16":  16,
		"tmt18":  18,
	}
	if len(DefaultConverters) != len(want) {
		t.Fatalf("registry has %d converters, want %d", len(DefaultConverters), len(want))
	}
	for _, c := range DefaultConverters {
		if n, ok := want[c.Name]; !ok || len(c.Pairs) != n {
			t.Errorf("converter %q has %d channels, want %d", c.Name, len(c.Pairs), n)
		}
		for _, p := range c.Pairs {
			if !IsChannel(p.Channel) {
				t.Errorf("converter %q channel %q fails the channel pattern", c.Name, p.Channel)
			}
		}
	}
}
