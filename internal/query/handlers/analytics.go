package handlers

import (
	"context"
	"fmt"
	"math"
	"sort"

	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/store"
)

const (
	headerAnalyticsOverview = "=== ANALYTICS OVERVIEW (Real-time) ==="
	idleWindowDays          = 30
)

// revenueStatuses are the booking states that count towards revenue.
var revenueStatuses = []string{models.BookingCompleted, models.BookingConfirmed, models.BookingInProgress}

func (h *Handlers) platformStatsReport(ctx context.Context) models.QueryResult {
	k := intent.PlatformStats
	var (
		stats                                        models.PlatformStats
		availableEquip, availableLabour, verifiedUsr int
		categories                                   map[string]int
	)
	count := func(what string, dst *int, fn func() (int, error)) func() {
		return func() {
			n, err := fn()
			if err != nil {
				h.degrade(k, what, err)
				return
			}
			*dst = n
		}
	}
	parallel(
		func() { stats = h.platformStats(ctx) },
		count("available equipment", &availableEquip, func() (int, error) {
			return h.store.CountEquipment(ctx, store.EquipmentFilter{AvailableOnly: true})
		}),
		count("available labour", &availableLabour, func() (int, error) {
			return h.store.CountLabour(ctx, store.LabourFilter{Availability: models.LabourAvailable})
		}),
		count("verified users", &verifiedUsr, func() (int, error) {
			return h.store.CountUsers(ctx, store.UserFilter{VerifiedOnly: true})
		}),
		func() {
			var err error
			if categories, err = h.store.EquipmentCategoryCounts(ctx); err != nil {
				h.degrade(k, "category counts", err)
				categories = nil
			}
		},
	)

	p := newPage(format.HeaderPlatform)
	p.add("📊 Platform Overview", "")
	p.add("--- Equipment ---")
	p.addf("  Total: %d", stats.TotalEquipment)
	p.addf("  Available: %d", availableEquip)
	p.addf("  Unavailable: %d", stats.TotalEquipment-availableEquip)
	p.add("", "  By Category:")
	for _, c := range rankCounts(categories) {
		p.addf("    %s: %d", format.Capitalize(c.key), c.n)
	}
	p.add("", "--- Users ---")
	p.addf("  Total: %d", stats.TotalUsers)
	p.addf("  Verified: %d", verifiedUsr)
	p.add("", "--- Labour ---")
	p.addf("  Total Profiles: %d", stats.TotalLabour)
	p.addf("  Currently Available: %d", availableLabour)
	p.add("", "--- Reviews ---")
	p.addf("  Total: %d", stats.TotalReviews)
	p.add("", "--- Bookings ---")
	p.addf("  Total: %d", stats.TotalBookings)
	p.add("", "Last Updated: "+format.Timestamp(h.now()))

	return p.result(k, true,
		"equipment table",
		"user_profiles table",
		"labour_profiles table",
		"reviews table",
		"bookings table",
	)
}

type keyCount struct {
	key string
	n   int
}

// rankCounts orders by count descending, then key ascending so ties render
// the same way every time.
func rankCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, n := range m {
		if k == "" {
			k = "other"
		}
		out = append(out, keyCount{key: k, n: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

func bookingsPerEquipment(rows []models.Booking) []keyCount {
	m := map[string]int{}
	for _, b := range rows {
		if b.EquipmentID != "" {
			m[b.EquipmentID]++
		}
	}
	return rankCounts(m)
}

func (h *Handlers) analyticsMostRented(ctx context.Context) models.QueryResult {
	k := intent.AnalyticsMostRented
	rows, err := h.store.ListBookings(ctx, store.BookingFilter{}, 0)
	if err != nil {
		return h.fail(k, "Failed to fetch booking data", err)
	}

	p := newPage(format.HeaderAnalytics)
	if len(rows) == 0 {
		p.add("📊 Most Rented Equipment: No bookings found on the platform.")
		return p.result(k, false, "bookings table (analytics)")
	}

	ranked := bookingsPerEquipment(rows)
	if len(ranked) > limitMostRented {
		ranked = ranked[:limitMostRented]
	}
	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.key)
	}
	equipment := h.equipmentByID(ctx, k, ids)

	p.add("📊 Top 10 Most Rented Equipment")
	t := format.NewTable("Rank", "Equipment", "Category", "Booking Count")
	for i, r := range ranked {
		e, ok := equipment[r.key]
		name, category := "Unknown", format.NA
		if ok {
			name, category = format.OrNA(e.Name), format.OrNA(e.Category)
		}
		t.Row(fmt.Sprint(i+1), name, category, fmt.Sprint(r.n))
	}
	p.table(t)

	p.add(h.footer(ctx)...)
	return p.result(k, true, "bookings table aggregated by equipment_id (analytics)")
}

type monthRevenue struct {
	month    string
	revenue  float64
	bookings int
}

// revenueByMonth buckets by the YYYY-MM prefix of start_date, newest first.
func revenueByMonth(rows []models.Booking) []monthRevenue {
	m := map[string]*monthRevenue{}
	for _, b := range rows {
		if len(b.StartDate) < 7 {
			continue
		}
		key := b.StartDate[:7]
		mr, ok := m[key]
		if !ok {
			mr = &monthRevenue{month: key}
			m[key] = mr
		}
		mr.revenue += amount(b)
		mr.bookings++
	}
	out := make([]monthRevenue, 0, len(m))
	for _, mr := range m {
		out = append(out, *mr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].month > out[j].month })
	return out
}

func amount(b models.Booking) float64 {
	if b.TotalAmount == nil {
		return 0
	}
	return *b.TotalAmount
}

func isRevenue(status string) bool {
	for _, s := range revenueStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (h *Handlers) analyticsRevenue(ctx context.Context) models.QueryResult {
	k := intent.AnalyticsRevenue
	rows, err := h.store.ListBookings(ctx, store.BookingFilter{Statuses: revenueStatuses}, 0)
	if err != nil {
		return h.fail(k, "Failed to fetch revenue data", err)
	}

	p := newPage(format.HeaderAnalytics)
	if len(rows) == 0 {
		p.add("💰 Revenue: No completed/confirmed/in-progress bookings found.")
		return p.result(k, false, "bookings table (revenue analytics)")
	}

	var total float64
	for _, b := range rows {
		total += amount(b)
	}

	p.add("💰 Revenue Summary", "")
	p.add("  Total Revenue: " + format.CurrencyValue(total))
	p.addf("  Total Bookings (completed/confirmed/in-progress): %d", len(rows))
	p.add("  Average Booking Value: " + format.CurrencyValue(math.Round(total/float64(len(rows)))))

	if months := revenueByMonth(rows); len(months) > 0 {
		if len(months) > 12 {
			months = months[:12]
		}
		p.add("", "--- Monthly Breakdown ---")
		t := format.NewTable("Month", "Revenue", "Bookings")
		for _, m := range months {
			t.Row(m.month, format.CurrencyValue(m.revenue), fmt.Sprint(m.bookings))
		}
		p.table(t)
	}

	p.add(h.footer(ctx)...)
	return p.result(k, true, "bookings table (revenue analytics)")
}

// idleSplit returns the equipment with no booking starting inside the idle
// window, and the latest start date seen per equipment.
func (h *Handlers) idleSplit(all []models.Equipment, bookings []models.Booking) (idle []models.Equipment, lastBooked map[string]string) {
	cutoff := format.Date(h.now().AddDate(0, 0, -idleWindowDays))
	recent := map[string]bool{}
	lastBooked = map[string]string{}
	for _, b := range bookings {
		if b.EquipmentID == "" {
			continue
		}
		if b.StartDate >= cutoff {
			recent[b.EquipmentID] = true
		}
		if b.StartDate > lastBooked[b.EquipmentID] {
			lastBooked[b.EquipmentID] = b.StartDate
		}
	}
	for _, e := range all {
		if !recent[e.ID] {
			idle = append(idle, e)
		}
	}
	return idle, lastBooked
}

// equipmentAndBookings loads every equipment row and every booking concurrently.
func (h *Handlers) equipmentAndBookings(ctx context.Context) (equipment []models.Equipment, bookings []models.Booking, equipErr, bookErr error) {
	parallel(
		func() { equipment, equipErr = h.store.ListEquipment(ctx, store.EquipmentFilter{}, 0) },
		func() { bookings, bookErr = h.store.ListBookings(ctx, store.BookingFilter{}, 0) },
	)
	return equipment, bookings, equipErr, bookErr
}

func (h *Handlers) analyticsIdle(ctx context.Context) models.QueryResult {
	k := intent.AnalyticsIdle
	all, bookings, err, bookErr := h.equipmentAndBookings(ctx)
	if err != nil {
		return h.fail(k, "Failed to fetch equipment data", err)
	}
	if bookErr != nil {
		h.degrade(k, "bookings", bookErr)
		bookings = nil
	}

	p := newPage(format.HeaderAnalytics)
	if len(all) == 0 {
		p.add("💤 Idle Equipment: No equipment found on the platform.")
		return p.result(k, false, "equipment table (idle analytics)")
	}

	idle, lastBooked := h.idleSplit(all, bookings)
	p.addf("💤 Idle Equipment: %d of %d equipment not booked in the last %d days", len(idle), len(all), idleWindowDays)

	if len(idle) > 0 {
		shown := idle
		if len(shown) > limitIdle {
			shown = shown[:limitIdle]
		}
		t := format.NewTable("#", "Name", "Category", "Location", "Last Booking")
		for i, e := range shown {
			last := lastBooked[e.ID]
			if last == "" {
				last = "Never"
			}
			t.Row(fmt.Sprint(i+1), format.OrNA(e.Name), format.OrNA(e.Category), format.Truncate(e.Location, 20), last)
		}
		p.table(t)
		p.more(len(idle), len(shown), "idle equipment")
	} else {
		p.add("", fmt.Sprintf("All equipment has been booked within the last %d days.", idleWindowDays))
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(idle) > 0, "equipment table", "bookings table (idle equipment analytics)")
}

func (h *Handlers) analyticsOverview(ctx context.Context) models.QueryResult {
	k := intent.AnalyticsOverview
	var (
		stats    models.PlatformStats
		all      []models.Equipment
		bookings []models.Booking
		equipErr error
		bookErr  error
	)
	parallel(
		func() { stats = h.platformStats(ctx) },
		func() { all, bookings, equipErr, bookErr = h.equipmentAndBookings(ctx) },
	)
	if bookErr != nil {
		return h.fail(k, "Failed to fetch booking data", bookErr)
	}
	if equipErr != nil {
		h.degrade(k, "equipment", equipErr)
		all = nil
	}

	var (
		revenue float64
		active  int
		paid    []models.Booking
	)
	for _, b := range bookings {
		if isRevenue(b.Status) {
			revenue += amount(b)
			paid = append(paid, b)
		}
		if b.Status == models.BookingConfirmed || b.Status == models.BookingInProgress {
			active++
		}
	}

	top := bookingsPerEquipment(bookings)
	if len(top) > 5 {
		top = top[:5]
	}
	topIDs := make([]string, 0, len(top))
	for _, t := range top {
		topIDs = append(topIDs, t.key)
	}
	names := h.equipmentNames(ctx, k, topIDs)

	avg := format.NA
	if stats.TotalBookings > 0 {
		avg = format.CurrencyValue(math.Round(revenue / float64(stats.TotalBookings)))
	}

	p := newPage(headerAnalyticsOverview)
	p.add("📊 Business Dashboard", "")
	p.add("--- Revenue ---")
	p.add("  Total Revenue: " + format.CurrencyValue(revenue))
	p.addf("  Total Bookings: %d", stats.TotalBookings)
	p.addf("  Active Bookings: %d", active)
	p.add("  Avg Booking Value: " + avg)

	p.add("", "--- Top 5 Most Rented ---")
	for i, t := range top {
		p.addf("  %d. %s (%d bookings)", i+1, nameOr(names, t.key, "Unknown"), t.n)
	}

	idle, _ := h.idleSplit(all, bookings)
	utilization := 0.0
	if len(all) > 0 {
		utilization = float64(len(all)-len(idle)) / float64(len(all)) * 100
	}
	p.add("", "--- Equipment Health ---")
	p.addf("  Total Equipment: %d", len(all))
	p.addf("  Idle (%d+ days): %d", idleWindowDays, len(idle))
	p.addf("  Utilization Rate: %.1f%%", utilization)

	if months := revenueByMonth(paid); len(months) > 0 {
		if len(months) > 6 {
			months = months[:6]
		}
		p.add("", "--- Monthly Revenue Trend ---")
		for _, m := range months {
			p.addf("  %s: %s", m.month, format.CurrencyValue(m.revenue))
		}
	}

	p.add(FooterLines(stats, h.now())...)
	return p.result(k, true, "bookings table", "equipment table", "platform stats (analytics overview)")
}
