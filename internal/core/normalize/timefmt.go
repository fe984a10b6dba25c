package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WireDateLayout is the MM/DD/YY form every incident date is stored in.
const WireDateLayout = "01/02/06"

// MilitaryTo12Hour converts "HHMM" to "H:MM AM". Anything that is not exactly
// four digits naming a valid clock time is returned unchanged with ok=false.
func MilitaryTo12Hour(raw string) (string, bool) {
	if len(raw) != 4 {
		return raw, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return raw, false
		}
	}
	hh, _ := strconv.Atoi(raw[:2])
	mm, _ := strconv.Atoi(raw[2:])
	if hh > 23 || mm > 59 {
		return raw, false
	}
	suffix := "AM"
	if hh >= 12 {
		suffix = "PM"
	}
	h12 := hh % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, mm, suffix), true
}

var dateLayouts = []string{
	"1/2/2006",
	"1/2/06",
	"2006-01-02",
	"January 2 2006",
	"January 2, 2006",
}

// ParseDate reads the date shapes found in blotters.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CanonicalDate rewrites a parseable date as MM/DD/YY. Unparseable input is
// returned as-is with ok=false.
func CanonicalDate(raw string) (string, bool) {
	t, ok := ParseDate(raw)
	if !ok {
		return raw, false
	}
	return t.Format(WireDateLayout), true
}
