// Package format holds the pure helpers that render live rows into the
// deterministic text handed to the downstream model.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Kolkata must resolve on minimal images
	"unicode"
	"unicode/utf8"
)

const NA = "N/A"

var kolkata = mustLoad("Asia/Kolkata")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// Currency renders rupees with Indian digit grouping, e.g. ₹1,23,456.5.
func Currency(v *float64) string {
	if v == nil {
		return NA
	}
	if *v < 0 {
		return "-₹" + IndianNumber(-*v)
	}
	return "₹" + IndianNumber(*v)
}

// CurrencyValue is Currency for a non-null amount.
func CurrencyValue(v float64) string {
	return Currency(&v)
}

// IndianNumber groups the integer part as 12,34,567 and keeps at most three fraction digits.
func IndianNumber(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}

	s := strconv.FormatFloat(v, 'f', 3, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	out := groupIndian(intPart)
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// Rating renders x.x/5.
func Rating(v *float64) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("%.1f/5", *v)
}

func Availability(available bool) string {
	if available {
		return "✅ Yes"
	}
	return "❌ No"
}

// Verified is the compact glyph used inside tables.
func Verified(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

// Truncate cuts s to max runes, ending with "...". Empty input renders N/A.
func Truncate(s string, max int) string {
	if s == "" {
		return NA
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// OrNA substitutes N/A for an empty string.
func OrNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// Humanize turns a status token such as in_progress into "In progress".
func Humanize(status string) string {
	return Capitalize(strings.ReplaceAll(status, "_", " "))
}

// MaskEmail keeps the first one or two characters of the local part.
func MaskEmail(email string) string {
	if email == "" {
		return NA
	}
	at := strings.Index(email, "@")
	if at < 0 {
		r, _ := utf8.DecodeRuneInString(email)
		return string(r) + "***"
	}
	keep := 2
	if at <= 2 {
		keep = 1
	}
	return email[:keep] + "***" + email[at:]
}

// Stars renders a 0..5 rating as repeated glyphs plus the numeric value.
func Stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("⭐", n) + fmt.Sprintf(" (%d/5)", n)
}

// Timestamp renders t in IST using the en-IN medium date and short time style.
func Timestamp(t time.Time) string {
	return t.In(kolkata).Format("2 Jan 2006, 3:04 pm")
}

// Date renders the IST calendar date of t.
func Date(t time.Time) string {
	if t.IsZero() {
		return NA
	}
	return t.In(kolkata).Format("2006-01-02")
}

// Today is the current IST calendar date for date-column comparisons.
func Today(now time.Time) string {
	return now.In(kolkata).Format("2006-01-02")
}

// Percent renders a 0..1 similarity as xx.x%.
func Percent(similarity float64) string {
	return fmt.Sprintf("%.1f%%", similarity*100)
}

// JoinOrNA joins values with ", " or returns N/A when there are none.
func JoinOrNA(values []string) string {
	if len(values) == 0 {
		return NA
	}
	return strings.Join(values, ", ")
}

// FirstN returns at most n leading values.
func FirstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
