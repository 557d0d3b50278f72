package handlers

import (
	"context"
	"fmt"
	"strings"

	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/store"
)

// countBookings totals bookings by status. Non-admins with a user id only
// count bookings they take part in.
func (h *Handlers) countBookings(ctx context.Context, caller models.CallerContext) models.QueryResult {
	k := intent.CountBookings
	base := store.BookingFilter{}
	scoped := !caller.IsAdmin() && caller.UserID != ""
	if scoped {
		base = h.participantFilter(ctx, k, caller.UserID)
	}

	var (
		total int
		err   error
	)
	byStatus := make([]int, len(models.BookingStatuses))

	fns := []func(){
		func() { total, err = h.store.CountBookings(ctx, base) },
	}
	for i, status := range models.BookingStatuses {
		i, status := i, status
		fns = append(fns, func() {
			f := base
			f.Statuses = []string{status}
			n, cerr := h.store.CountBookings(ctx, f)
			if cerr != nil {
				h.degrade(k, status+" bookings", cerr)
				return
			}
			byStatus[i] = n
		})
	}
	parallel(fns...)
	if err != nil {
		return h.fail(k, "Failed to count bookings", err)
	}

	p := newPage(format.HeaderPlatform)
	source := "bookings table (real-time count with status breakdown)"
	if scoped {
		p.addf("📋 Your Booking Count: %d bookings as renter or equipment owner", total)
		source = "bookings table filtered by user (real-time count with status breakdown)"
	} else {
		p.addf("📋 Booking Count: %d total bookings on the platform", total)
	}
	p.add("", "  Status Breakdown:")
	for i, status := range models.BookingStatuses {
		p.addf("  %s: %d", statusLabel(status), byStatus[i])
	}
	p.add(h.footer(ctx)...)
	return p.result(k, true, source)
}

// statusWords renders in_progress as "in progress".
func statusWords(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}

// statusLabel renders in_progress as "In Progress".
func statusLabel(status string) string {
	words := strings.Split(status, "_")
	for i, w := range words {
		words[i] = format.Capitalize(w)
	}
	return strings.Join(words, " ")
}

// participantFilter scopes bookings to those the user rented or that are on
// equipment they own. Failing to load owned equipment narrows to renter only.
func (h *Handlers) participantFilter(ctx context.Context, k intent.Kind, userID string) store.BookingFilter {
	owned, err := h.store.EquipmentIDsByOwner(ctx, userID)
	if err != nil {
		h.degrade(k, "owned equipment", err)
		owned = nil
	}
	return store.BookingFilter{ParticipantID: userID, OwnedEquipmentIDs: owned}
}

func (h *Handlers) bookingsWithCount(ctx context.Context, k intent.Kind, f store.BookingFilter, limit int) ([]models.Booking, int, error) {
	var (
		rows     []models.Booking
		listErr  error
		total    int
		countErr error
	)
	parallel(
		func() { rows, listErr = h.store.ListBookings(ctx, f, limit) },
		func() { total, countErr = h.store.CountBookings(ctx, f) },
	)
	if listErr != nil {
		return nil, 0, listErr
	}
	if countErr != nil {
		h.degrade(k, "booking count", countErr)
		total = len(rows)
	}
	return rows, total, nil
}

// bookingNames resolves equipment and renter names for a page of bookings.
func (h *Handlers) bookingNames(ctx context.Context, k intent.Kind, rows []models.Booking) (equipment, renters map[string]string) {
	equipIDs := make([]string, 0, len(rows))
	renterIDs := make([]string, 0, len(rows))
	for _, b := range rows {
		equipIDs = append(equipIDs, b.EquipmentID)
		renterIDs = append(renterIDs, b.RenterID)
	}
	parallel(
		func() { equipment = h.equipmentNames(ctx, k, equipIDs) },
		func() { renters = h.userNames(ctx, k, renterIDs) },
	)
	return equipment, renters
}

func bookingTable(rows []models.Booking, equipment, renters map[string]string, withStatus bool) *format.Table {
	headers := []string{"#", "Equipment", "Renter", "Start", "End", "Days", "Amount"}
	if withStatus {
		headers = append(headers, "Status")
	}
	t := format.NewTable(headers...)
	for i, b := range rows {
		cells := []string{
			fmt.Sprint(i + 1),
			format.Truncate(nameOr(equipment, b.EquipmentID, "Unknown"), 20),
			format.Truncate(nameOr(renters, b.RenterID, "Unknown"), 15),
			format.OrNA(b.StartDate),
			format.OrNA(b.EndDate),
			daysOrNA(b.TotalDays),
			format.Currency(b.TotalAmount),
		}
		if withStatus {
			cells = append(cells, format.OrNA(b.Status))
		}
		t.Row(cells...)
	}
	return t
}

// listBookings shows the latest bookings. Non-admins with a user id only see
// bookings they take part in; callers without one never get past the gate.
func (h *Handlers) listBookings(ctx context.Context, caller models.CallerContext) models.QueryResult {
	k := intent.ListBookings
	f := store.BookingFilter{}
	scoped := !caller.IsAdmin() && caller.UserID != ""
	if scoped {
		f = h.participantFilter(ctx, k, caller.UserID)
	}
	rows, total, err := h.bookingsWithCount(ctx, k, f, limitBookings)
	if err != nil {
		return h.fail(k, "Failed to list bookings", err)
	}

	p := newPage(format.HeaderPlatform)
	source := "bookings table with equipment/user lookups (real-time)"
	empty := "No bookings found on the platform."
	if !scoped {
		p.addf("📋 Recent Bookings: %d total bookings (showing latest %d)", total, limitBookings)
	} else {
		p.addf("📋 Your Bookings: %d bookings found (showing latest %d)", total, limitBookings)
		source = "bookings table filtered by user (real-time)"
		empty = "No bookings found."
	}

	if len(rows) > 0 {
		equipment, renters := h.bookingNames(ctx, k, rows)
		p.table(bookingTable(rows, equipment, renters, true))
		p.more(total, len(rows), "bookings")
	} else {
		p.add("", empty)
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, source)
}

// bookingStatus lists bookings in one status. Non-admins only see bookings
// they take part in.
func (h *Handlers) bookingStatus(ctx context.Context, status string, caller models.CallerContext) models.QueryResult {
	k := intent.BookingStatus
	f := store.BookingFilter{}
	source := fmt.Sprintf("bookings table filtered by status='%s' (real-time)", status)
	if !caller.IsAdmin() && caller.UserID != "" {
		f = h.participantFilter(ctx, k, caller.UserID)
		source = fmt.Sprintf("bookings table filtered by user and status='%s' (real-time)", status)
	}
	f.Statuses = []string{status}

	rows, total, err := h.bookingsWithCount(ctx, k, f, limitBookings)
	if err != nil {
		return h.fail(k, fmt.Sprintf("Failed to query %s bookings", status), err)
	}

	spaced := statusWords(status)
	p := newPage(format.HeaderPlatform)
	p.addf("📋 %s Bookings: %d found", format.Humanize(status), total)

	if len(rows) > 0 {
		equipment, renters := h.bookingNames(ctx, k, rows)
		p.table(bookingTable(rows, equipment, renters, false))
		p.more(total, len(rows), spaced+" bookings")
	} else {
		p.add("", fmt.Sprintf("No %s bookings found.", spaced))
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, source)
}
