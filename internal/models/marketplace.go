// internal/models/marketplace.go
package models

import "time"

// Booking statuses.
const (
	BookingPending    = "pending"
	BookingConfirmed  = "confirmed"
	BookingInProgress = "in_progress"
	BookingCompleted  = "completed"
	BookingCancelled  = "cancelled"
)

// BookingStatuses in display order.
var BookingStatuses = []string{BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled}

// Labour availability values.
const (
	LabourAvailable   = "available"
	LabourBusy        = "busy"
	LabourUnavailable = "unavailable"
)

// Equipment is a rentable listing. Empty strings and nil pointers render as N/A.
type Equipment struct {
	ID           string
	OwnerID      string
	Name         string
	Category     string
	Brand        string
	Model        string
	Description  string
	Location     string
	FuelType     string
	PricePerDay  *float64
	PricePerHour *float64
	Rating       *float64
	ReviewCount  int
	IsAvailable  bool
	Horsepower   *int
	Year         *int
	Features     []string
	Latitude     *float64
	Longitude    *float64
	CreatedAt    time.Time
}

// NearbyEquipment is an equipment row with its distance from the caller.
type NearbyEquipment struct {
	Equipment
	DistanceKm float64
}

// LabourProfile is a worker offering services; Name comes from user_profiles.
type LabourProfile struct {
	ID              string
	UserID          string
	Name            string
	Skills          []string
	ExperienceYears int
	DailyRate       *float64
	HourlyRate      *float64
	Location        string
	Availability    string
	Rating          *float64
	ReviewCount     int
	IsActive        bool
}

// UserProfile is a platform account.
type UserProfile struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	City       string
	State      string
	Bio        string
	Roles      []string
	IsVerified bool
}

type Review struct {
	ID          string
	EquipmentID string
	ReviewerID  string
	Rating      int
	Comment     string
	CreatedAt   time.Time
}

// Booking dates are calendar dates in YYYY-MM-DD form.
type Booking struct {
	ID          string
	EquipmentID string
	RenterID    string
	StartDate   string
	EndDate     string
	TotalDays   int
	TotalAmount *float64
	Status      string
	CreatedAt   time.Time
}

type Payment struct {
	ID            string
	BookingID     string
	UserID        string
	Amount        float64
	Currency      string
	Status        string
	Method        string
	TransactionID string
	CreatedAt     time.Time
}

type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	BookingID  string
	Content    string
	IsRead     bool
	CreatedAt  time.Time
}

// PlatformStats are recomputed per request.
type PlatformStats struct {
	TotalEquipment int
	TotalUsers     int
	TotalLabour    int
	TotalReviews   int
	TotalBookings  int
}
