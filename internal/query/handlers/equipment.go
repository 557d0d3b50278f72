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

func (h *Handlers) countEquipment(ctx context.Context) models.QueryResult {
	n, err := h.store.CountEquipment(ctx, store.EquipmentFilter{})
	if err != nil {
		return h.fail(intent.CountEquipment, "Failed to count equipment", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("📊 Equipment Count: %d total equipment listed on the platform", n)
	p.add(h.footer(ctx)...)
	return p.result(intent.CountEquipment, true, "equipment table (real-time count)")
}

// listWithCount runs a capped listing and its total concurrently. The listing
// is primary; a failed count falls back to the number of rows returned.
func (h *Handlers) listWithCount(ctx context.Context, k intent.Kind, f store.EquipmentFilter, limit int) ([]models.Equipment, int, error) {
	var (
		rows     []models.Equipment
		listErr  error
		total    int
		countErr error
	)
	parallel(
		func() { rows, listErr = h.store.ListEquipment(ctx, f, limit) },
		func() { total, countErr = h.store.CountEquipment(ctx, f) },
	)
	if listErr != nil {
		return nil, 0, listErr
	}
	if countErr != nil {
		h.degrade(k, "equipment count", countErr)
		total = len(rows)
	}
	return rows, total, nil
}

func (h *Handlers) countEquipmentCategory(ctx context.Context, category string) models.QueryResult {
	k := intent.CountEquipmentCategory
	rows, total, err := h.listWithCount(ctx, k, store.EquipmentFilter{Category: category}, limitCategoryCount)
	if err != nil {
		return h.fail(k, fmt.Sprintf("Failed to query %s equipment", category), err)
	}

	plural := intent.Plural(category)
	p := newPage(format.HeaderPlatform)
	p.addf("📊 Equipment Count: %d %s found on the platform", total, plural)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Brand", "Price/Day", "Location", "Rating", "Available")
		for i, e := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(e.Name),
				format.OrNA(e.Brand),
				format.Currency(e.PricePerDay),
				format.Truncate(e.Location, 20),
				format.Rating(e.Rating),
				format.Availability(e.IsAvailable),
			)
		}
		p.table(t)
		p.more(total, len(rows), plural)
	}

	p.add(h.footer(ctx)...)
	return p.result(k, total > 0, fmt.Sprintf("equipment table filtered by category='%s' (real-time)", category))
}

func (h *Handlers) listEquipment(ctx context.Context) models.QueryResult {
	k := intent.ListEquipment
	rows, total, err := h.listWithCount(ctx, k, store.EquipmentFilter{}, limitListing)
	if err != nil {
		return h.fail(k, "Failed to list equipment", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("📊 Equipment Listing: %d total equipment on the platform", total)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Category", "Brand", "Model", "Price/Day", "Price/Hr", "Location", "Rating", "Reviews", "Available")
		for i, e := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(e.Name),
				format.OrNA(e.Category),
				format.OrNA(e.Brand),
				format.OrNA(e.Model),
				format.Currency(e.PricePerDay),
				format.Currency(e.PricePerHour),
				format.Truncate(e.Location, 20),
				format.Rating(e.Rating),
				fmt.Sprint(e.ReviewCount),
				format.Availability(e.IsAvailable),
			)
		}
		p.table(t)
		p.more(total, len(rows), "equipment items")
	} else {
		p.add("", "No equipment found on the platform.")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, "equipment table (real-time full listing)")
}

func (h *Handlers) listEquipmentCategory(ctx context.Context, category string) models.QueryResult {
	k := intent.ListEquipmentCategory
	rows, total, err := h.listWithCount(ctx, k, store.EquipmentFilter{Category: category}, limitListing)
	if err != nil {
		return h.fail(k, fmt.Sprintf("Failed to list %s equipment", category), err)
	}

	plural := intent.Plural(category)
	p := newPage(format.HeaderPlatform)
	p.addf("📊 %s Listing: %d %s on the platform", format.Capitalize(category), total, plural)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Brand", "Model", "Price/Day", "Location", "HP", "Fuel", "Rating", "Available")
		for i, e := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(e.Name),
				format.OrNA(e.Brand),
				format.OrNA(e.Model),
				format.Currency(e.PricePerDay),
				format.Truncate(e.Location, 20),
				intOrNA(e.Horsepower),
				format.OrNA(e.FuelType),
				format.Rating(e.Rating),
				format.Availability(e.IsAvailable),
			)
		}
		p.table(t)
		p.more(total, len(rows), plural)
	} else {
		p.add("", fmt.Sprintf("No %s found on the platform.", plural))
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, fmt.Sprintf("equipment table filtered by category='%s' (real-time listing)", category))
}

func (h *Handlers) searchEquipment(ctx context.Context, term string) models.QueryResult {
	k := intent.SearchEquipment
	var (
		rows     []models.Equipment
		err      error
		total    int
		countErr error
	)
	parallel(
		func() { rows, err = h.store.SearchEquipment(ctx, term, limitSearch) },
		func() { total, countErr = h.store.CountSearchEquipment(ctx, term) },
	)
	if err != nil {
		return h.fail(k, "Failed to search equipment", err)
	}
	if countErr != nil {
		h.degrade(k, "search count", countErr)
		total = len(rows)
	}

	p := newPage(format.HeaderPlatform)
	if len(rows) > 0 {
		p.addf("🔍 Search Results: %d equipment matching \"%s\"", total, term)
		p.add("")
		for i, e := range rows {
			p.add(equipmentDetail(i+1, e)...)
			p.add("")
		}
		if total > len(rows) {
			p.addf("... and %d more equipment", total-len(rows))
			p.add("")
		}
	} else {
		p.addf("🔍 No equipment found matching \"%s\".", term)
		p.add("")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, fmt.Sprintf("equipment table search for \"%s\" (real-time)", term))
}

// equipmentDetail renders one search hit as an indented block.
func equipmentDetail(n int, e models.Equipment) []string {
	lines := []string{
		fmt.Sprintf("--- Equipment %d: %s ---", n, format.OrNA(e.Name)),
		"  Category: " + format.OrNA(e.Category),
		"  Brand: " + format.OrNA(e.Brand),
		"  Model: " + format.OrNA(e.Model),
		"  Description: " + format.Truncate(e.Description, 150),
		"  Price/Day: " + format.Currency(e.PricePerDay),
		"  Price/Hour: " + format.Currency(e.PricePerHour),
		"  Location: " + format.OrNA(e.Location),
		fmt.Sprintf("  Rating: %s (%d reviews)", format.Rating(e.Rating), e.ReviewCount),
		"  Available: " + format.Availability(e.IsAvailable),
	}
	if e.Horsepower != nil && *e.Horsepower > 0 {
		lines = append(lines, fmt.Sprintf("  Horsepower: %d HP", *e.Horsepower))
	}
	if e.FuelType != "" {
		lines = append(lines, "  Fuel Type: "+e.FuelType)
	}
	if e.Year != nil && *e.Year > 0 {
		lines = append(lines, fmt.Sprintf("  Year: %d", *e.Year))
	}
	if len(e.Features) > 0 {
		lines = append(lines, "  Features: "+strings.Join(e.Features, ", "))
	}
	return lines
}

func (h *Handlers) availableEquipment(ctx context.Context) models.QueryResult {
	k := intent.AvailableEquipment
	rows, total, err := h.listWithCount(ctx, k, store.EquipmentFilter{AvailableOnly: true}, limitListing)
	if err != nil {
		return h.fail(k, "Failed to fetch available equipment", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("✅ Available Equipment: %d equipment currently available for rent", total)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Category", "Brand", "Price/Day", "Location", "Rating")
		for i, e := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(e.Name),
				format.OrNA(e.Category),
				format.OrNA(e.Brand),
				format.Currency(e.PricePerDay),
				format.Truncate(e.Location, 20),
				format.Rating(e.Rating),
			)
		}
		p.table(t)
		p.more(total, len(rows), "available items")
	} else {
		p.add("", "No equipment currently available for rent.")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, "equipment table filtered by is_available=true (real-time)")
}

// equipmentAvailability shows the availability flag of matching equipment
// together with the date ranges already booked from today on.
func (h *Handlers) equipmentAvailability(ctx context.Context, name string) models.QueryResult {
	k := intent.EquipmentAvailability
	matches, err := h.store.FindEquipmentByName(ctx, name, limitEquipmentName)
	if err != nil {
		return h.fail(k, "Failed to search equipment", err)
	}

	p := newPage(format.HeaderPlatform)
	if len(matches) == 0 {
		p.addf("🔍 No equipment found matching \"%s\" to check availability for.", name)
		p.add(h.footer(ctx)...)
		return p.result(k, false, fmt.Sprintf("equipment search for \"%s\"", name))
	}

	ids := make([]string, 0, len(matches))
	for _, e := range matches {
		ids = append(ids, e.ID)
	}
	booked, err := h.store.ListBookings(ctx, store.BookingFilter{
		EquipmentIDs: ids,
		Statuses:     []string{models.BookingPending, models.BookingConfirmed, models.BookingInProgress},
		EndFrom:      format.Today(h.now()),
		SortByStart:  true,
	}, 0)
	if err != nil {
		h.degrade(k, "booked ranges", err)
		booked = nil
	}
	byEquipment := map[string][]models.Booking{}
	for _, b := range booked {
		byEquipment[b.EquipmentID] = append(byEquipment[b.EquipmentID], b)
	}

	p.addf("📅 Availability for \"%s\": %d matching equipment", name, len(matches))
	for _, e := range matches {
		p.add("")
		p.addf("--- %s ---", format.OrNA(e.Name))
		p.add("  Category: " + format.OrNA(e.Category))
		p.add("  Location: " + format.OrNA(e.Location))
		p.add("  Price/Day: " + format.Currency(e.PricePerDay))
		p.add("  Currently Available: " + format.Availability(e.IsAvailable))

		ranges := byEquipment[e.ID]
		if len(ranges) == 0 {
			p.add("  Upcoming Bookings: none, open for all future dates")
			continue
		}
		p.addf("  Upcoming Bookings: %d", len(ranges))
		for _, b := range ranges {
			p.addf("    %s → %s (%s)", format.OrNA(b.StartDate), format.OrNA(b.EndDate), format.OrNA(b.Status))
		}
	}

	p.add(h.footer(ctx)...)
	return p.result(k, true,
		fmt.Sprintf("equipment table search for \"%s\" (real-time)", name),
		"bookings table filtered by equipment and end_date >= today (real-time)",
	)
}
