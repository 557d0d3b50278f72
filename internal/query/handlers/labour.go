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

func skillsCell(skills []string, max int) string {
	return format.Truncate(strings.Join(format.FirstN(skills, 3), ", "), max)
}

// availabilityBreakdown counts profiles per availability value. Failed counts are zero.
func (h *Handlers) availabilityBreakdown(ctx context.Context, k intent.Kind, activeOnly bool) (available, busy, unavailable int) {
	count := func(value string, dst *int) func() {
		return func() {
			n, err := h.store.CountLabour(ctx, store.LabourFilter{Availability: value, ActiveOnly: activeOnly})
			if err != nil {
				h.degrade(k, value+" labour count", err)
				return
			}
			*dst = n
		}
	}
	parallel(
		count(models.LabourAvailable, &available),
		count(models.LabourBusy, &busy),
		count(models.LabourUnavailable, &unavailable),
	)
	return available, busy, unavailable
}

func (h *Handlers) countLabour(ctx context.Context) models.QueryResult {
	k := intent.CountLabour
	var (
		total           int
		err             error
		available, busy int
	)
	parallel(
		func() { total, err = h.store.CountLabour(ctx, store.LabourFilter{}) },
		func() { available, busy, _ = h.availabilityBreakdown(ctx, k, false) },
	)
	if err != nil {
		return h.fail(k, "Failed to count labour profiles", err)
	}

	unavailable := total - available - busy
	if unavailable < 0 {
		unavailable = 0
	}

	p := newPage(format.HeaderPlatform)
	p.addf("👷 Labour Profiles: %d total labour profiles on the platform", total)
	p.add("")
	p.addf("  Available: %d", available)
	p.addf("  Busy: %d", busy)
	p.addf("  Unavailable: %d", unavailable)
	p.add(h.footer(ctx)...)
	return p.result(k, true, "labour_profiles table (real-time count)")
}

// labourWithCount mirrors listWithCount for labour profiles.
func (h *Handlers) labourWithCount(ctx context.Context, k intent.Kind, f store.LabourFilter, limit int) ([]models.LabourProfile, int, error) {
	var (
		rows     []models.LabourProfile
		listErr  error
		total    int
		countErr error
	)
	parallel(
		func() { rows, listErr = h.store.ListLabour(ctx, f, limit) },
		func() { total, countErr = h.store.CountLabour(ctx, f) },
	)
	if listErr != nil {
		return nil, 0, listErr
	}
	if countErr != nil {
		h.degrade(k, "labour count", countErr)
		total = len(rows)
	}
	return rows, total, nil
}

func (h *Handlers) listLabour(ctx context.Context) models.QueryResult {
	k := intent.ListLabour
	rows, total, err := h.labourWithCount(ctx, k, store.LabourFilter{ActiveOnly: true}, limitLabour)
	if err != nil {
		return h.fail(k, "Failed to list labour profiles", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("👷 Labour Profiles: %d active labour profiles", total)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Skills", "Experience", "Daily Rate", "Location", "Rating", "Status")
		for i, l := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(l.Name),
				skillsCell(l.Skills, 25),
				fmt.Sprintf("%d yrs", l.ExperienceYears),
				format.Currency(l.DailyRate),
				format.Truncate(l.Location, 18),
				format.Rating(l.Rating),
				format.OrNA(l.Availability),
			)
		}
		p.table(t)
		p.more(total, len(rows), "labour profiles")
	} else {
		p.add("", "No active labour profiles found.")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, "labour_profiles table with user_profiles join (real-time listing)")
}

func (h *Handlers) availableLabour(ctx context.Context) models.QueryResult {
	k := intent.AvailableLabour
	f := store.LabourFilter{Availability: models.LabourAvailable, ActiveOnly: true}
	rows, total, err := h.labourWithCount(ctx, k, f, limitLabour)
	if err != nil {
		return h.fail(k, "Failed to fetch available labour", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("✅ Available Labour: %d workers currently available for hire", total)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Skills", "Experience", "Daily Rate", "Hourly Rate", "Location", "Rating")
		for i, l := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(l.Name),
				skillsCell(l.Skills, 25),
				fmt.Sprintf("%d yrs", l.ExperienceYears),
				format.Currency(l.DailyRate),
				format.Currency(l.HourlyRate),
				format.Truncate(l.Location, 18),
				format.Rating(l.Rating),
			)
		}
		p.table(t)
		p.more(total, len(rows), "available workers")
	} else {
		p.add("", "No labour currently available for hire.")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, "labour_profiles table filtered by availability=available (real-time)")
}

func (h *Handlers) searchLabour(ctx context.Context, skill string) models.QueryResult {
	k := intent.SearchLabour
	rows, total, err := h.labourWithCount(ctx, k, store.LabourFilter{ActiveOnly: true, Skill: skill}, limitLabour)
	if err != nil {
		return h.fail(k, "Failed to search labour", err)
	}

	p := newPage(format.HeaderPlatform)
	if len(rows) > 0 {
		p.addf("🔍 Labour Search: %d workers with skills matching \"%s\"", total, skill)
		p.add("")
		for i, l := range rows {
			p.addf("--- Worker %d: %s ---", i+1, format.OrNA(l.Name))
			p.add("  Skills: " + format.JoinOrNA(l.Skills))
			p.addf("  Experience: %d years", l.ExperienceYears)
			p.add("  Daily Rate: " + format.Currency(l.DailyRate))
			p.add("  Hourly Rate: " + format.Currency(l.HourlyRate))
			p.add("  Location: " + format.OrNA(l.Location))
			p.add("  Availability: " + format.OrNA(l.Availability))
			p.addf("  Rating: %s (%d reviews)", format.Rating(l.Rating), l.ReviewCount)
			p.add("")
		}
		if total > len(rows) {
			p.addf("... and %d more workers", total-len(rows))
			p.add("")
		}
	} else {
		p.addf("🔍 No labour found with skills matching \"%s\".", skill)
		p.add("")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, fmt.Sprintf("labour_profiles table search for skill \"%s\" (real-time)", skill))
}

func (h *Handlers) labourAvailability(ctx context.Context) models.QueryResult {
	k := intent.LabourAvailability
	var (
		rows                         []models.LabourProfile
		total                        int
		err                          error
		available, busy, unavailable int
	)
	parallel(
		func() { rows, total, err = h.labourWithCount(ctx, k, store.LabourFilter{ActiveOnly: true}, limitLabour) },
		func() { available, busy, unavailable = h.availabilityBreakdown(ctx, k, true) },
	)
	if err != nil {
		return h.fail(k, "Failed to fetch labour availability", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("📅 Labour Availability: %d active labour profiles", total)
	p.add("")
	p.addf("  Available: %d", available)
	p.addf("  Busy: %d", busy)
	p.addf("  Unavailable: %d", unavailable)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Skills", "Daily Rate", "Location", "Status")
		for i, l := range rows {
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(l.Name),
				skillsCell(l.Skills, 25),
				format.Currency(l.DailyRate),
				format.Truncate(l.Location, 18),
				format.OrNA(l.Availability),
			)
		}
		p.table(t)
		p.more(total, len(rows), "labour profiles")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, "labour_profiles table grouped by availability (real-time)")
}
