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

func (h *Handlers) countReviews(ctx context.Context) models.QueryResult {
	k := intent.CountReviews
	var (
		total  int
		err    error
		avg    float64
		avgErr error
	)
	parallel(
		func() { total, err = h.store.CountReviews(ctx, store.ReviewFilter{}) },
		func() { avg, avgErr = h.store.AverageRating(ctx) },
	)
	if err != nil {
		return h.fail(k, "Failed to count reviews", err)
	}
	if avgErr != nil {
		h.degrade(k, "average rating", avgErr)
		avg = 0
	}

	p := newPage(format.HeaderPlatform)
	p.addf("⭐ Review Count: %d total reviews on the platform", total)
	p.add("")
	p.addf("  Average Rating: %.1f/5", avg)
	p.add(h.footer(ctx)...)
	return p.result(k, true, "reviews table (real-time count)")
}

// reviewsWithCount mirrors listWithCount for reviews.
func (h *Handlers) reviewsWithCount(ctx context.Context, k intent.Kind, f store.ReviewFilter, limit int) ([]models.Review, int, error) {
	var (
		rows     []models.Review
		listErr  error
		total    int
		countErr error
	)
	parallel(
		func() { rows, listErr = h.store.ListReviews(ctx, f, limit) },
		func() { total, countErr = h.store.CountReviews(ctx, f) },
	)
	if listErr != nil {
		return nil, 0, listErr
	}
	if countErr != nil {
		h.degrade(k, "review count", countErr)
		total = len(rows)
	}
	return rows, total, nil
}

// reviewNames resolves equipment and reviewer names for a batch of reviews.
func (h *Handlers) reviewNames(ctx context.Context, k intent.Kind, reviews []models.Review) (equipment, reviewers map[string]string) {
	equipIDs := make([]string, 0, len(reviews))
	reviewerIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		equipIDs = append(equipIDs, r.EquipmentID)
		reviewerIDs = append(reviewerIDs, r.ReviewerID)
	}
	parallel(
		func() { equipment = h.equipmentNames(ctx, k, equipIDs) },
		func() { reviewers = h.userNames(ctx, k, reviewerIDs) },
	)
	return equipment, reviewers
}

func reviewTable(reviews []models.Review, equipment, reviewers map[string]string) *format.Table {
	t := format.NewTable("#", "Equipment", "Reviewer", "Rating", "Comment")
	for i, r := range reviews {
		t.Row(
			fmt.Sprint(i+1),
			format.Truncate(nameOr(equipment, r.EquipmentID, "Unknown"), 25),
			format.Truncate(nameOr(reviewers, r.ReviewerID, "Anonymous"), 20),
			format.Stars(r.Rating),
			format.Truncate(r.Comment, 50),
		)
	}
	return t
}

func (h *Handlers) listReviews(ctx context.Context) models.QueryResult {
	k := intent.ListReviews
	rows, total, err := h.reviewsWithCount(ctx, k, store.ReviewFilter{}, limitReviews)
	if err != nil {
		return h.fail(k, "Failed to list reviews", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("⭐ Recent Reviews: %d total reviews (showing latest %d)", total, limitReviews)

	if len(rows) > 0 {
		equipment, reviewers := h.reviewNames(ctx, k, rows)
		p.table(reviewTable(rows, equipment, reviewers))
		p.more(total, len(rows), "reviews")
	} else {
		p.add("", "No reviews found on the platform.")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, "reviews table with equipment/user lookups (real-time)")
}

func (h *Handlers) reviewsForEquipment(ctx context.Context, name string) models.QueryResult {
	k := intent.ReviewsForEquipment
	matches, err := h.store.FindEquipmentByName(ctx, name, limitEquipmentName)
	if err != nil {
		return h.fail(k, "Failed to search equipment", err)
	}

	p := newPage(format.HeaderPlatform)
	if len(matches) == 0 {
		p.addf("🔍 No equipment found matching \"%s\" to fetch reviews for.", name)
		p.add(h.footer(ctx)...)
		return p.result(k, false, fmt.Sprintf("equipment search for \"%s\"", name))
	}

	ids := make([]string, 0, len(matches))
	equipment := make(map[string]string, len(matches))
	for _, e := range matches {
		ids = append(ids, e.ID)
		equipment[e.ID] = e.Name
	}

	reviews, total, err := h.reviewsWithCount(ctx, k, store.ReviewFilter{EquipmentIDs: ids}, limitReviews)
	if err != nil {
		return h.fail(k, "Failed to fetch reviews", err)
	}

	if len(reviews) > 0 {
		reviewerIDs := make([]string, 0, len(reviews))
		var matched []string
		for _, r := range reviews {
			reviewerIDs = append(reviewerIDs, r.ReviewerID)
			matched = append(matched, equipment[r.EquipmentID])
		}
		reviewers := h.userNames(ctx, k, reviewerIDs)

		p.addf("⭐ Reviews for \"%s\": %d review(s) found", name, total)
		p.add("")
		if names := uniq(matched); len(names) > 0 {
			p.add("Matched Equipment: "+strings.Join(names, ", "), "")
		}
		p.add(reviewTable(reviews, equipment, reviewers).Lines()...)
		p.more(total, len(reviews), "reviews")
	} else {
		names := make([]string, 0, len(matches))
		for _, e := range matches {
			names = append(names, e.Name)
		}
		p.addf("⭐ No reviews found for equipment matching \"%s\".", name)
		p.addf("  Matched equipment: %s (but no reviews yet)", strings.Join(names, ", "))
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(reviews) > 0, fmt.Sprintf("reviews for equipment matching \"%s\" (real-time)", name))
}
