package handlers

import (
	"context"
	"fmt"
	"sort"

	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/store"
)

// Personal handlers assume a non-empty userID; Dispatch enforces it.

func personalBookingTable(rows []models.Booking, equipment map[string]string) *format.Table {
	t := format.NewTable("#", "Equipment", "Dates", "Days", "Amount", "Status")
	for i, b := range rows {
		t.Row(
			fmt.Sprint(i+1),
			format.Truncate(nameOr(equipment, b.EquipmentID, "Unknown"), 25),
			fmt.Sprintf("%s → %s", format.OrNA(b.StartDate), format.OrNA(b.EndDate)),
			daysOrNA(b.TotalDays),
			format.Currency(b.TotalAmount),
			format.OrNA(b.Status),
		)
	}
	return t
}

// myBookingPage renders the shared layout of the caller's booking views.
func (h *Handlers) myBookingPage(ctx context.Context, k intent.Kind, f store.BookingFilter, title func(total int) string, moreNoun, empty, source string) models.QueryResult {
	rows, total, err := h.bookingsWithCount(ctx, k, f, limitBookings)
	if err != nil {
		return h.fail(k, "Failed to fetch your bookings", err)
	}

	p := newPage(format.PersonalHeader("BOOKINGS"))
	p.add(title(total))
	if len(rows) > 0 {
		ids := make([]string, 0, len(rows))
		for _, b := range rows {
			ids = append(ids, b.EquipmentID)
		}
		p.table(personalBookingTable(rows, h.equipmentNames(ctx, k, ids)))
		p.more(total, len(rows), moreNoun)
	} else {
		p.add("", empty)
	}
	return p.result(k, len(rows) > 0, source)
}

func (h *Handlers) myBookings(ctx context.Context, userID string) models.QueryResult {
	k := intent.MyBookings
	return h.myBookingPage(ctx, k, h.participantFilter(ctx, k, userID),
		func(total int) string { return fmt.Sprintf("📋 Your Bookings: %d total", total) },
		"bookings",
		"You have no bookings yet.",
		"bookings table filtered by user (real-time)",
	)
}

func (h *Handlers) myBookingStatus(ctx context.Context, userID, status string) models.QueryResult {
	k := intent.MyBookingStatus
	f := h.participantFilter(ctx, k, userID)
	f.Statuses = []string{status}
	spaced := format.Humanize(status)
	return h.myBookingPage(ctx, k, f,
		func(total int) string { return fmt.Sprintf("📋 Your %s Bookings: %d found", spaced, total) },
		statusWords(status)+" bookings",
		fmt.Sprintf("You have no %s bookings.", statusWords(status)),
		fmt.Sprintf("bookings table filtered by user and status='%s' (real-time)", status),
	)
}

func (h *Handlers) myUpcomingBookings(ctx context.Context, userID string) models.QueryResult {
	k := intent.MyUpcomingBookings
	f := h.participantFilter(ctx, k, userID)
	f.Statuses = []string{models.BookingPending, models.BookingConfirmed}
	f.StartFrom = format.Today(h.now())
	f.SortByStart = true
	return h.myBookingPage(ctx, k, f,
		func(total int) string { return fmt.Sprintf("📅 Your Upcoming Bookings: %d scheduled", total) },
		"upcoming bookings",
		"You have no upcoming bookings.",
		"bookings table filtered by user, status in (pending, confirmed) and start_date >= today (real-time)",
	)
}

func (h *Handlers) myEquipment(ctx context.Context, userID string) models.QueryResult {
	k := intent.MyEquipment
	rows, err := h.store.ListEquipment(ctx, store.EquipmentFilter{OwnerID: userID}, 0)
	if err != nil {
		return h.fail(k, "Failed to fetch your equipment", err)
	}

	p := newPage(format.PersonalHeader("EQUIPMENT"))
	p.addf("🚜 Your Equipment: %d listed", len(rows))

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Category", "Brand", "Price/Day", "Rating", "Reviews", "Available")
		for i, e := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(e.Name),
				format.OrNA(e.Category),
				format.OrNA(e.Brand),
				format.Currency(e.PricePerDay),
				format.Rating(e.Rating),
				fmt.Sprint(e.ReviewCount),
				format.Availability(e.IsAvailable),
			)
		}
		p.table(t)
	} else {
		p.add("", "You have no equipment listed on the platform.")
	}

	return p.result(k, len(rows) > 0, "equipment table filtered by owner_id (real-time)")
}

func (h *Handlers) myProfile(ctx context.Context, userID string) models.QueryResult {
	k := intent.MyProfile
	var (
		profile   *models.UserProfile
		err       error
		roles     []string
		rolesErr  error
		labour    *models.LabourProfile
		labourErr error
	)
	parallel(
		func() { profile, err = h.store.UserProfile(ctx, userID) },
		func() { roles, rolesErr = h.store.UserRoles(ctx, userID) },
		func() { labour, labourErr = h.store.LabourByUser(ctx, userID) },
	)
	if err != nil {
		return h.fail(k, "Failed to fetch your profile", err)
	}
	if rolesErr != nil {
		h.degrade(k, "user roles", rolesErr)
		roles = nil
	}
	if labourErr != nil {
		h.degrade(k, "labour profile", labourErr)
		labour = nil
	}

	p := newPage(format.PersonalHeader("PROFILE"))
	if profile == nil {
		p.add("👤 No profile found for your account.")
		return p.result(k, false, "user_profiles table")
	}

	p.add("👤 Profile Details", "")
	p.add(
		"  Name: "+format.OrNA(profile.Name),
		"  Email: "+format.OrNA(profile.Email),
		"  Phone: "+format.OrNA(profile.Phone),
		"  City: "+format.OrNA(profile.City),
		"  State: "+format.OrNA(profile.State),
		"  Verified: "+format.Availability(profile.IsVerified),
		"  Roles (from profile): "+format.JoinOrNA(profile.Roles),
		"  Roles (from user_roles): "+format.JoinOrNA(roles),
	)
	if profile.Bio != "" {
		p.add("  Bio: " + format.Truncate(profile.Bio, 150))
	}

	if labour != nil {
		p.add("", "--- Labour Profile ---")
		p.add("  Skills: " + format.JoinOrNA(labour.Skills))
		p.addf("  Experience: %d years", labour.ExperienceYears)
		p.add("  Daily Rate: " + format.Currency(labour.DailyRate))
		p.add("  Hourly Rate: " + format.Currency(labour.HourlyRate))
		p.add("  Location: " + format.OrNA(labour.Location))
		p.add("  Availability: " + format.OrNA(labour.Availability))
		p.addf("  Rating: %s (%d reviews)", format.Rating(labour.Rating), labour.ReviewCount)
		p.add("  Active: " + format.Availability(labour.IsActive))
	}

	return p.result(k, true, "user_profiles table", "user_roles table", "labour_profiles table")
}

func (h *Handlers) myReviews(ctx context.Context, userID string) models.QueryResult {
	k := intent.MyReviews
	var (
		written      []models.Review
		writtenTotal int
		err          error
		owned        []string
		ownedErr     error
	)
	parallel(
		func() {
			written, writtenTotal, err = h.reviewsWithCount(ctx, k, store.ReviewFilter{ReviewerID: userID}, limitReviews)
		},
		func() { owned, ownedErr = h.store.EquipmentIDsByOwner(ctx, userID) },
	)
	if err != nil {
		return h.fail(k, "Failed to fetch your reviews", err)
	}
	if ownedErr != nil {
		h.degrade(k, "owned equipment", ownedErr)
		owned = nil
	}

	var (
		received      []models.Review
		receivedTotal int
	)
	if len(owned) > 0 {
		received, receivedTotal, err = h.reviewsWithCount(ctx, k, store.ReviewFilter{EquipmentIDs: owned}, limitReviews)
		if err != nil {
			h.degrade(k, "received reviews", err)
			received, receivedTotal = nil, 0
		}
	}

	equipIDs := make([]string, 0, len(written)+len(received))
	reviewerIDs := make([]string, 0, len(received))
	for _, r := range written {
		equipIDs = append(equipIDs, r.EquipmentID)
	}
	for _, r := range received {
		equipIDs = append(equipIDs, r.EquipmentID)
		reviewerIDs = append(reviewerIDs, r.ReviewerID)
	}
	var equipment, reviewers map[string]string
	parallel(
		func() { equipment = h.equipmentNames(ctx, k, equipIDs) },
		func() { reviewers = h.userNames(ctx, k, reviewerIDs) },
	)

	p := newPage(format.PersonalHeader("REVIEWS"))
	p.addf("✍️ Reviews You Wrote: %d", writtenTotal)
	if len(written) > 0 {
		t := format.NewTable("#", "Equipment", "Rating", "Comment")
		for i, r := range written {
			t.Row(
				fmt.Sprint(i+1),
				format.Truncate(nameOr(equipment, r.EquipmentID, "Unknown"), 25),
				format.Stars(r.Rating),
				format.Truncate(r.Comment, 50),
			)
		}
		p.table(t)
		p.more(writtenTotal, len(written), "reviews")
	} else {
		p.add("", "You have not written any reviews yet.")
	}

	p.add("")
	p.addf("📥 Reviews on Your Equipment: %d", receivedTotal)
	if len(received) > 0 {
		p.table(reviewTable(received, equipment, reviewers))
		p.more(receivedTotal, len(received), "reviews")
	} else {
		p.add("", "No reviews received on your equipment yet.")
	}

	return p.result(k, len(written) > 0 || len(received) > 0, "reviews table filtered by user (real-time)")
}

func (h *Handlers) myPayments(ctx context.Context, userID string) models.QueryResult {
	k := intent.MyPayments
	var (
		rows      []models.Payment
		err       error
		total     int
		countErr  error
		totals    map[string]float64
		totalsErr error
	)
	parallel(
		func() { rows, err = h.store.ListPayments(ctx, userID, limitPayments) },
		func() { total, countErr = h.store.CountPayments(ctx, userID) },
		func() { totals, totalsErr = h.store.PaymentTotals(ctx, userID) },
	)
	if err != nil {
		return h.fail(k, "Failed to fetch your payments", err)
	}
	if countErr != nil {
		h.degrade(k, "payment count", countErr)
		total = len(rows)
	}
	if totalsErr != nil {
		h.degrade(k, "payment totals", totalsErr)
		totals = nil
	}

	p := newPage(format.PersonalHeader("PAYMENTS"))
	p.addf("💳 Your Payments: %d total", total)

	if len(totals) > 0 {
		statuses := make([]string, 0, len(totals))
		for s := range totals {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		p.add("", "  Totals by Status:")
		for _, s := range statuses {
			p.addf("  %s: %s", statusLabel(s), format.CurrencyValue(totals[s]))
		}
	}

	if len(rows) > 0 {
		t := format.NewTable("#", "Date", "Amount", "Method", "Status", "Transaction")
		for i, pay := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.Date(pay.CreatedAt),
				format.CurrencyValue(pay.Amount),
				format.OrNA(pay.Method),
				format.OrNA(pay.Status),
				format.Truncate(pay.TransactionID, 20),
			)
		}
		p.table(t)
		p.more(total, len(rows), "payments")
	} else {
		p.add("", "You have no payments yet.")
	}

	return p.result(k, len(rows) > 0, "payments table filtered by user_id (real-time)")
}

func (h *Handlers) myMessages(ctx context.Context, userID string) models.QueryResult {
	k := intent.MyMessages
	var (
		rows      []models.Message
		err       error
		total     int
		totalErr  error
		unread    int
		unreadErr error
	)
	parallel(
		func() { rows, err = h.store.ListMessages(ctx, userID, limitMessages) },
		func() { total, totalErr = h.store.CountMessages(ctx, userID, false) },
		func() { unread, unreadErr = h.store.CountMessages(ctx, userID, true) },
	)
	if err != nil {
		return h.fail(k, "Failed to fetch your messages", err)
	}
	if totalErr != nil {
		h.degrade(k, "message count", totalErr)
		total = len(rows)
	}
	if unreadErr != nil {
		h.degrade(k, "unread count", unreadErr)
		unread = 0
	}

	p := newPage(format.PersonalHeader("MESSAGES"))
	p.addf("💬 Your Messages: %d total, %d unread", total, unread)

	if len(rows) > 0 {
		counterparts := make([]string, 0, len(rows))
		for _, m := range rows {
			counterparts = append(counterparts, counterpart(m, userID))
		}
		names := h.userNames(ctx, k, counterparts)

		t := format.NewTable("#", "Date", "Direction", "With", "Message", "Read")
		for i, m := range rows {
			direction := "Received"
			if m.SenderID == userID {
				direction = "Sent"
			}
			t.Row(
				fmt.Sprint(i+1),
				format.Date(m.CreatedAt),
				direction,
				format.Truncate(nameOr(names, counterpart(m, userID), "Unknown"), 20),
				format.Truncate(m.Content, 50),
				format.Verified(m.IsRead),
			)
		}
		p.table(t)
		p.more(total, len(rows), "messages")
	} else {
		p.add("", "You have no messages yet.")
	}

	return p.result(k, len(rows) > 0, "messages table filtered by sender_id/receiver_id (real-time)")
}

func counterpart(m models.Message, userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
