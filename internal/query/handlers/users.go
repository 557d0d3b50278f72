package handlers

import (
	"context"
	"fmt"

	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/store"
)

// verifiedSplit counts users matching f and the verified subset concurrently.
func (h *Handlers) verifiedSplit(ctx context.Context, k intent.Kind, f store.UserFilter) (total, verified int, err error) {
	var verifiedErr error
	vf := f
	vf.VerifiedOnly = true
	parallel(
		func() { total, err = h.store.CountUsers(ctx, f) },
		func() { verified, verifiedErr = h.store.CountUsers(ctx, vf) },
	)
	if verifiedErr != nil {
		h.degrade(k, "verified count", verifiedErr)
		verified = 0
	}
	return total, verified, err
}

func (h *Handlers) countUsers(ctx context.Context) models.QueryResult {
	k := intent.CountUsers
	total, verified, err := h.verifiedSplit(ctx, k, store.UserFilter{})
	if err != nil {
		return h.fail(k, "Failed to count users", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("👥 User Count: %d total users on the platform", total)
	p.add("")
	p.addf("  Verified: %d", verified)
	p.addf("  Unverified: %d", total-verified)
	p.add(h.footer(ctx)...)
	return p.result(k, true, "user_profiles table (real-time count)")
}

func (h *Handlers) usersWithCount(ctx context.Context, k intent.Kind, f store.UserFilter, limit int) ([]models.UserProfile, int, error) {
	var (
		rows     []models.UserProfile
		listErr  error
		total    int
		countErr error
	)
	parallel(
		func() { rows, listErr = h.store.ListUsers(ctx, f, limit) },
		func() { total, countErr = h.store.CountUsers(ctx, f) },
	)
	if listErr != nil {
		return nil, 0, listErr
	}
	if countErr != nil {
		h.degrade(k, "user count", countErr)
		total = len(rows)
	}
	return rows, total, nil
}

// contactCells hides contact details from everyone but admins.
func contactCells(u models.UserProfile, caller models.CallerContext) (email, phone string) {
	if caller.IsAdmin() {
		return format.OrNA(u.Email), format.OrNA(u.Phone)
	}
	return format.MaskEmail(u.Email), "Hidden"
}

func (h *Handlers) listUsers(ctx context.Context, caller models.CallerContext) models.QueryResult {
	k := intent.ListUsers
	rows, total, err := h.usersWithCount(ctx, k, store.UserFilter{}, limitListing)
	if err != nil {
		return h.fail(k, "Failed to list users", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("👥 User Directory: %d total users", total)

	if len(rows) > 0 {
		t := format.NewTable("#", "Name", "Email", "Phone", "Roles", "City", "State", "Verified")
		for i, u := range rows {
			email, phone := contactCells(u, caller)
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(u.Name),
				email,
				phone,
				format.JoinOrNA(u.Roles),
				format.OrNA(u.City),
				format.OrNA(u.State),
				format.Verified(u.IsVerified),
			)
		}
		p.table(t)
		p.more(total, len(rows), "users")
	} else {
		p.add("", "No users found on the platform.")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0, "user_profiles table (real-time listing)")
}

func (h *Handlers) countProviders(ctx context.Context) models.QueryResult {
	k := intent.CountProviders
	total, verified, err := h.verifiedSplit(ctx, k, store.UserFilter{Role: string(models.RoleProvider)})
	if err != nil {
		return h.fail(k, "Failed to count providers", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("🏪 Provider Count: %d equipment providers on the platform", total)
	p.add("")
	p.addf("  Verified: %d", verified)
	p.addf("  Unverified: %d", total-verified)
	p.add(h.footer(ctx)...)
	return p.result(k, true, "user_profiles table filtered by role=provider (real-time count)")
}

func (h *Handlers) listProviders(ctx context.Context, caller models.CallerContext) models.QueryResult {
	k := intent.ListProviders
	rows, total, err := h.usersWithCount(ctx, k, store.UserFilter{Role: string(models.RoleProvider)}, limitListing)
	if err != nil {
		return h.fail(k, "Failed to list providers", err)
	}

	p := newPage(format.HeaderPlatform)
	p.addf("🏪 Equipment Providers: %d providers on the platform", total)

	if len(rows) > 0 {
		ids := make([]string, 0, len(rows))
		for _, u := range rows {
			ids = append(ids, u.ID)
		}
		listed, err := h.store.EquipmentCountsByOwner(ctx, ids)
		if err != nil {
			h.degrade(k, "equipment per provider", err)
			listed = map[string]int{}
		}

		t := format.NewTable("#", "Name", "Email", "City", "State", "Listed Equipment", "Verified")
		for i, u := range rows {
			email, _ := contactCells(u, caller)
			t.Row(
				fmt.Sprint(i+1),
				format.OrNA(u.Name),
				email,
				format.OrNA(u.City),
				format.OrNA(u.State),
				fmt.Sprint(listed[u.ID]),
				format.Verified(u.IsVerified),
			)
		}
		p.table(t)
		p.more(total, len(rows), "providers")
	} else {
		p.add("", "No equipment providers found on the platform.")
	}

	p.add(h.footer(ctx)...)
	return p.result(k, len(rows) > 0,
		"user_profiles table filtered by role=provider (real-time listing)",
		"equipment table grouped by owner_id (real-time)",
	)
}
