// Package store is the read-only view of the operational tables used by query handlers.
package store

import (
	"context"

	"agriserve-query/internal/models"
)

// Table names a countable operational table.
type Table string

const (
	TableEquipment      Table = "equipment"
	TableUserProfiles   Table = "user_profiles"
	TableLabourProfiles Table = "labour_profiles"
	TableReviews        Table = "reviews"
	TableBookings       Table = "bookings"
	TablePayments       Table = "payments"
	TableMessages       Table = "messages"
	TableUserRoles      Table = "user_roles"
)

// EquipmentFilter fields combine with AND. A zero filter selects every row.
type EquipmentFilter struct {
	Category      string
	AvailableOnly bool
	OwnerID       string
	IDs           []string
}

type LabourFilter struct {
	Availability string
	ActiveOnly   bool
	Skill        string
}

type UserFilter struct {
	Role         string
	VerifiedOnly bool
}

type ReviewFilter struct {
	EquipmentIDs []string
	ReviewerID   string
}

// BookingFilter selects bookings. ParticipantID matches the renter, or any of
// OwnedEquipmentIDs when set, so a user sees both sides of their rentals.
type BookingFilter struct {
	Statuses          []string
	ParticipantID     string
	OwnedEquipmentIDs []string
	EquipmentIDs      []string
	StartFrom         string // YYYY-MM-DD, inclusive
	EndFrom           string // YYYY-MM-DD, inclusive
	SortByStart       bool   // start_date ascending instead of newest first
}

type EquipmentReader interface {
	CountEquipment(ctx context.Context, f EquipmentFilter) (int, error)
	// ListEquipment returns at most limit rows; limit <= 0 returns all.
	ListEquipment(ctx context.Context, f EquipmentFilter, limit int) ([]models.Equipment, error)
	// SearchEquipment matches term against name, brand, model and description.
	SearchEquipment(ctx context.Context, term string, limit int) ([]models.Equipment, error)
	CountSearchEquipment(ctx context.Context, term string) (int, error)
	FindEquipmentByName(ctx context.Context, name string, limit int) ([]models.Equipment, error)
	EquipmentIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	EquipmentCategoryCounts(ctx context.Context) (map[string]int, error)
	EquipmentCountsByOwner(ctx context.Context, ownerIDs []string) (map[string]int, error)
	NearbyEquipment(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyEquipment, error)
}

type LabourReader interface {
	CountLabour(ctx context.Context, f LabourFilter) (int, error)
	ListLabour(ctx context.Context, f LabourFilter, limit int) ([]models.LabourProfile, error)
	// LabourByUser returns nil, nil when the user has no labour profile.
	LabourByUser(ctx context.Context, userID string) (*models.LabourProfile, error)
}

type UserReader interface {
	CountUsers(ctx context.Context, f UserFilter) (int, error)
	ListUsers(ctx context.Context, f UserFilter, limit int) ([]models.UserProfile, error)
	// UserProfile returns nil, nil when no profile exists.
	UserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UserRoles(ctx context.Context, userID string) ([]string, error)
	UserNames(ctx context.Context, ids []string) (map[string]string, error)
}

type ReviewReader interface {
	CountReviews(ctx context.Context, f ReviewFilter) (int, error)
	AverageRating(ctx context.Context) (float64, error)
	ListReviews(ctx context.Context, f ReviewFilter, limit int) ([]models.Review, error)
}

type BookingReader interface {
	CountBookings(ctx context.Context, f BookingFilter) (int, error)
	ListBookings(ctx context.Context, f BookingFilter, limit int) ([]models.Booking, error)
}

type PaymentReader interface {
	CountPayments(ctx context.Context, userID string) (int, error)
	ListPayments(ctx context.Context, userID string, limit int) ([]models.Payment, error)
	PaymentTotals(ctx context.Context, userID string) (map[string]float64, error)
}

type MessageReader interface {
	CountMessages(ctx context.Context, userID string, unreadOnly bool) (int, error)
	ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error)
}

// Store is everything the handlers read.
type Store interface {
	Count(ctx context.Context, table Table) (int, error)
	EquipmentReader
	LabourReader
	UserReader
	ReviewReader
	BookingReader
	PaymentReader
	MessageReader
}
