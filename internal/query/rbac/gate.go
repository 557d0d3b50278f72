// Package rbac decides whether a caller may run an intent that reads a sensitive table.
package rbac

import (
	"fmt"

	"agriserve-query/internal/models"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/store"
)

// Intents absent from this map read public aggregates and bypass the gate.
var intentTables = map[intent.Kind]store.Table{
	intent.MyBookings:            store.TableBookings,
	intent.MyBookingStatus:       store.TableBookings,
	intent.MyUpcomingBookings:    store.TableBookings,
	intent.ListBookings:          store.TableBookings,
	intent.CountBookings:         store.TableBookings,
	intent.BookingStatus:         store.TableBookings,
	intent.AnalyticsRevenue:      store.TableBookings,
	intent.EquipmentAvailability: store.TableBookings,
	intent.MyEquipment:           store.TableEquipment,
	intent.MyProfile:             store.TableUserProfiles,
	intent.MyReviews:             store.TableReviews,
	intent.MyPayments:            store.TablePayments,
	intent.LabourAvailability:    store.TableLabourProfiles,
	intent.MyMessages:            store.TableMessages,
}

// adminOnly intents expose platform-wide financials.
var adminOnly = map[intent.Kind]bool{
	intent.AnalyticsRevenue: true,
}

const (
	ReasonUnknownRole = "Unknown role: access denied"
	ReasonNonAdmin    = "Non-admin cannot access admin data"
	ReasonPublic      = "Public aggregate data"
)

// Gate is stateless and safe for concurrent use.
type Gate struct {
	tables map[intent.Kind]store.Table
}

func NewGate() *Gate {
	return &Gate{tables: intentTables}
}

// TableFor returns the sensitive table behind k, if any.
func (g *Gate) TableFor(k intent.Kind) (store.Table, bool) {
	t, ok := g.tables[k]
	return t, ok
}

// Check returns the decision for running k on behalf of caller. Unmapped kinds are always allowed.
func (g *Gate) Check(k intent.Kind, caller models.CallerContext) models.AccessDecision {
	table, ok := g.tables[k]
	if !ok {
		return allow(ReasonPublic)
	}
	if !caller.ActiveRole.IsKnown() {
		return deny(ReasonUnknownRole)
	}
	if !caller.IsAuthenticated || caller.UserID == "" {
		return deny(fmt.Sprintf("Must be authenticated to query %s", table))
	}
	if adminOnly[k] {
		if !caller.IsAdmin() {
			return deny(ReasonNonAdmin)
		}
		return allow("Admin data access")
	}
	return allow(fmt.Sprintf("Authenticated user may query own %s", table))
}

// Sensitive lists the gated kinds, for tests and documentation.
func (g *Gate) Sensitive() []intent.Kind {
	out := make([]intent.Kind, 0, len(g.tables))
	for _, k := range intent.AllKinds() {
		if _, ok := g.tables[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func allow(reason string) models.AccessDecision {
	return models.AccessDecision{Allowed: true, Reason: reason}
}

func deny(reason string) models.AccessDecision {
	return models.AccessDecision{Allowed: false, Reason: reason}
}
