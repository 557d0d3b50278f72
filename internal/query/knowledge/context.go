package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"agriserve-query/internal/query/format"
)

// MaxContextChars bounds the rendered knowledge block.
const MaxContextChars = 8000

const truncatedNotice = "\n\n[Context truncated due to length limits]"

type section struct {
	sourceType string
	title      string
	render     func(b *strings.Builder, h Hit)
}

// Sections render in this order; unknown source types fall into OTHER KNOWLEDGE.
var sections = []section{
	{"equipment", "EQUIPMENT LISTINGS", renderEquipment},
	{"labour", "LABOUR PROFILES", renderLabour},
	{"user", "USER PROFILES", renderUser},
	{"review", "REVIEWS", renderReview},
	{"booking", "BOOKINGS", renderBooking},
}

// BuildContext groups hits by source type and renders one section per group.
func BuildContext(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}

	grouped := make(map[string][]Hit)
	known := make(map[string]bool, len(sections))
	for _, s := range sections {
		known[s.sourceType] = true
	}
	var other []Hit
	for _, h := range hits {
		if known[h.SourceType] {
			grouped[h.SourceType] = append(grouped[h.SourceType], h)
		} else {
			other = append(other, h)
		}
	}

	var parts []string
	for _, s := range sections {
		if len(grouped[s.sourceType]) == 0 {
			continue
		}
		parts = append(parts, renderSection(s.title, grouped[s.sourceType], s.render))
	}
	if len(other) > 0 {
		parts = append(parts, renderSection("OTHER KNOWLEDGE", other, renderOther))
	}

	return Truncate(strings.Join(parts, "\n\n"), MaxContextChars)
}

func renderSection(title string, hits []Hit, render func(*strings.Builder, Hit)) string {
	var b strings.Builder
	b.WriteString("--- " + title + " ---\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n")
		}
		render(&b, h)
	}
	return strings.TrimRight(b.String(), "\n")
}

func match(h Hit) string {
	return "(" + format.Percent(h.Similarity) + " match)"
}

func renderEquipment(b *strings.Builder, h Hit) {
	price := "Price on request"
	if p, ok := metaFloat(h.Metadata, "price_per_day"); ok {
		price = format.CurrencyValue(p) + "/day"
	}
	rating := "No rating"
	if r, ok := metaFloat(h.Metadata, "rating"); ok {
		rating = fmt.Sprintf("%.1f/5", r)
	}
	available := "No"
	if v, ok := h.Metadata["is_available"].(bool); ok && v {
		available = "Yes"
	}

	fmt.Fprintf(b, "[%s] (%s, %s, Rating: %s) %s\n",
		metaString(h.Metadata, "name", "Unknown Equipment"),
		metaString(h.Metadata, "category", "Unknown"),
		price, rating, match(h))
	if h.Content != "" {
		b.WriteString(h.Content + "\n")
	}
	fmt.Fprintf(b, "Location: %s | Available: %s\n", metaString(h.Metadata, "location_name", "Location not specified"), available)
}

func renderLabour(b *strings.Builder, h Hit) {
	rate := "Rate on request"
	if r, ok := metaFloat(h.Metadata, "daily_rate"); ok {
		rate = format.CurrencyValue(r) + "/day"
	}
	rating := "No rating"
	if r, ok := metaFloat(h.Metadata, "rating"); ok {
		rating = fmt.Sprintf("%.1f/5", r)
	}

	fmt.Fprintf(b, "[Skills: %s] %s\n", metaList(h.Metadata, "skills", "No skills listed"), match(h))
	fmt.Fprintf(b, "Rate: %s | Location: %s\n", rate, metaString(h.Metadata, "location_name", "Location not specified"))
	fmt.Fprintf(b, "Availability: %s | Rating: %s\n", metaString(h.Metadata, "availability", "Unknown"), rating)
	if h.Content != "" {
		b.WriteString(prefix(h.Content, 250) + "\n")
	}
}

func renderUser(b *strings.Builder, h Hit) {
	name := metaString(h.Metadata, "name", "")
	if name == "" {
		name = metaString(h.Metadata, "full_name", "Unknown User")
	}
	fmt.Fprintf(b, "[%s] (%s) %s\n", name, metaList(h.Metadata, "roles", "No roles"), match(h))
	fmt.Fprintf(b, "Location: %s\n", metaString(h.Metadata, "address", "Location not specified"))
	if h.Content != "" {
		b.WriteString(prefix(h.Content, 200) + "\n")
	}
}

func renderReview(b *strings.Builder, h Hit) {
	rating := "No rating"
	if r, ok := metaFloat(h.Metadata, "rating"); ok {
		rating = fmt.Sprintf("%g/5", r)
	}
	fmt.Fprintf(b, "Review for %s by %s: %s %s\n",
		metaString(h.Metadata, "equipment_name", "Unknown Equipment"),
		metaString(h.Metadata, "reviewer_name", "Anonymous"),
		rating, match(h))
	if h.Content != "" {
		b.WriteString(h.Content + "\n")
	}
}

func renderBooking(b *strings.Builder, h Hit) {
	days := ""
	if d, ok := metaFloat(h.Metadata, "total_days"); ok {
		days = fmt.Sprintf(" (%g day(s))", d)
	}
	amount := format.NA
	if a, ok := metaFloat(h.Metadata, "total_amount"); ok {
		amount = format.CurrencyValue(a)
	}

	fmt.Fprintf(b, "[Booking: %s rented by %s] %s\n",
		metaString(h.Metadata, "equipment_name", "Unknown Equipment"),
		metaString(h.Metadata, "renter_name", "Unknown Renter"),
		match(h))
	fmt.Fprintf(b, "Status: %s | Dates: %s → %s%s\n",
		metaString(h.Metadata, "status", "Unknown"),
		metaString(h.Metadata, "start_date", format.NA),
		metaString(h.Metadata, "end_date", format.NA),
		days)
	fmt.Fprintf(b, "Amount: %s | Payment: %s\n", amount, metaString(h.Metadata, "payment_status", format.NA))
}

func renderOther(b *strings.Builder, h Hit) {
	fmt.Fprintf(b, "[%s:%s] %s\n", h.SourceType, h.SourceID, match(h))
	if h.Content != "" {
		b.WriteString(prefix(h.Content, 300) + "\n")
	}
}

// Sources lists one provenance string per hit, e.g. "equipment:eq-1 (87.3% match)".
func Sources(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, fmt.Sprintf("%s:%s %s", h.SourceType, h.SourceID, match(h)))
	}
	return out
}

// Summary describes what was retrieved, for logs.
func Summary(hits []Hit) string {
	if len(hits) == 0 {
		return "No relevant context found."
	}
	counts := map[string]int{}
	var order []string
	for _, h := range hits {
		if counts[h.SourceType] == 0 {
			order = append(order, h.SourceType)
		}
		counts[h.SourceType]++
	}
	sort.Strings(order)

	parts := make([]string, 0, len(order))
	for _, t := range order {
		label := format.Capitalize(t)
		if counts[t] > 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], label))
	}
	plural := ""
	if len(hits) > 1 {
		plural = "s"
	}
	return fmt.Sprintf("Found %d relevant result%s: %s", len(hits), plural, strings.Join(parts, ", "))
}

// Truncate cuts text to at most max bytes, preferring a section or line
// boundary near the end, and appends a notice when anything was dropped.
func Truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]

	if i := strings.LastIndex(truncated, "\n\n---"); i > max*7/10 {
		truncated = truncated[:i]
	} else if i := strings.LastIndex(truncated, "\n"); i > max*8/10 {
		truncated = truncated[:i]
	}
	return truncated + truncatedNotice
}

func metaString(meta map[string]interface{}, key, fallback string) string {
	switch v := meta[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	}
	return fallback
}

func metaFloat(meta map[string]interface{}, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func metaList(meta map[string]interface{}, key, fallback string) string {
	switch v := meta[key].(type) {
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		if len(items) > 0 {
			return strings.Join(items, ", ")
		}
	case []string:
		if len(v) > 0 {
			return strings.Join(v, ", ")
		}
	case string:
		if v != "" {
			return v
		}
	}
	return fallback
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
