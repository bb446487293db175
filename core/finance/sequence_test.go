package finance

import "testing"

func TestFormatORNumber(t *testing.T) {
	tests := []struct {
		name     string
		template string
		year     int
		seq      int64
		want     string
	}{
		{name: "default", template: DefaultORFormat, year: 2025, seq: 1, want: "OR-2025-000001"},
		{name: "empty template", template: "", year: 2025, seq: 42, want: "OR-2025-000042"},
		{name: "custom", template: "SFA/{YYYY}/{SEQ}", year: 2026, seq: 123, want: "SFA/2026/000123"},
		{name: "no year", template: "R{SEQ}", year: 2025, seq: 7, want: "R000007"},
		{name: "wider than padding", template: DefaultORFormat, year: 2025, seq: 1234567, want: "OR-2025-1234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatORNumber(tt.template, tt.year, tt.seq); got != tt.want {
				t.Errorf("FormatORNumber() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsValidORFormat(t *testing.T) {
	tests := []struct {
		template string
		want     bool
	}{
		{template: DefaultORFormat, want: true},
		{template: "{SEQ}", want: true},
		{template: "OR-{YYYY}", want: false},
		{template: "{SEQ}-{SEQ}", want: false},
		{template: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			if got := IsValidORFormat(tt.template); got != tt.want {
				t.Errorf("IsValidORFormat(%q) = %v, want %v", tt.template, got, tt.want)
			}
		})
	}
}
