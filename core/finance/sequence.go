package finance

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	yearPlaceholder = "{YYYY}"
	seqPlaceholder  = "{SEQ}"
	seqPadding      = 6

	DefaultORFormat = "OR-" + yearPlaceholder + "-" + seqPlaceholder
)

// FormatORNumber renders an OR number from a school's template, e.g. "OR-{YYYY}-{SEQ}" -> "OR-2025-000001".
// Sequences longer than the padding are printed in full.
func FormatORNumber(template string, year int, seq int64) string {
	if template == "" {
		template = DefaultORFormat
	}
	r := strings.NewReplacer(
		yearPlaceholder, strconv.Itoa(year),
		seqPlaceholder, fmt.Sprintf("%0*d", seqPadding, seq),
	)
	return r.Replace(template)
}

// IsValidORFormat reports whether a template can produce unique numbers (it must carry the sequence).
func IsValidORFormat(template string) bool {
	return strings.Count(template, seqPlaceholder) == 1
}
