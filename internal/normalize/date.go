package normalize

import (
	"regexp"
	"strings"
	"time"
)

// ISODate is the wire format for sanitized dates
const ISODate = "2006-01-02"

// placeholderPattern matches template strings the extraction service sometimes
// echoes back verbatim, e.g. "dd/mm/yyyy", "YYYY-MM-DD", "mm.dd.yy".
var placeholderPattern = regexp.MustCompile(`^(?i)[dmy]{1,4}([-/.][dmy]{1,4}){2}$`)

// dateLayouts are tried in order; the ISO form wins over the ambiguous
// slash forms, and day-first is preferred over month-first for the rest.
var dateLayouts = []string{
	ISODate,
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	time.RFC3339,
}

// Date validates a raw extracted date and reformats it as an ISO calendar
// date. Placeholder templates and unparseable values yield the empty string;
// the caller decides the fallback (the form assembler substitutes today).
func Date(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	if placeholderPattern.MatchString(value) {
		return ""
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(ISODate)
		}
	}

	return ""
}
