// Package intent classifies a free-text message into exactly one structured intent.
package intent

// Kind is the discriminator of an Intent.
type Kind string

const (
	VectorSearch Kind = "vector_search"

	PlatformStats Kind = "platform_stats"

	MyBookingStatus    Kind = "my_booking_status"
	MyUpcomingBookings Kind = "my_upcoming_bookings"
	MyBookings         Kind = "my_bookings"
	MyPayments         Kind = "my_payments"
	MyMessages         Kind = "my_messages"
	MyEquipment        Kind = "my_equipment"
	MyProfile          Kind = "my_profile"
	MyReviews          Kind = "my_reviews"

	AnalyticsMostRented Kind = "analytics_most_rented"
	AnalyticsRevenue    Kind = "analytics_revenue"
	AnalyticsIdle       Kind = "analytics_idle_equipment"
	AnalyticsOverview   Kind = "analytics_overview"

	CountEquipmentCategory Kind = "count_equipment_category"
	ListEquipmentCategory  Kind = "list_equipment_category"
	CountEquipment         Kind = "count_equipment"
	ListEquipment          Kind = "list_equipment"
	AvailableEquipment     Kind = "available_equipment"
	SearchEquipment        Kind = "search_equipment"

	SearchLabour    Kind = "search_labour"
	CountLabour     Kind = "count_labour"
	AvailableLabour Kind = "available_labour"
	ListLabour      Kind = "list_labour"

	CountProviders Kind = "count_providers"
	ListProviders  Kind = "list_providers"

	CountUsers Kind = "count_users"
	ListUsers  Kind = "list_users"

	ReviewsForEquipment Kind = "reviews_for_equipment"
	CountReviews        Kind = "count_reviews"
	ListReviews         Kind = "list_reviews"

	BookingStatus Kind = "booking_status"
	CountBookings Kind = "count_bookings"
	ListBookings  Kind = "list_bookings"

	EquipmentAvailability Kind = "equipment_availability"
	LabourAvailability    Kind = "labour_availability"
)

var allKinds = []Kind{
	VectorSearch,
	PlatformStats,
	MyBookingStatus, MyUpcomingBookings, MyBookings, MyPayments, MyMessages, MyEquipment, MyProfile, MyReviews,
	AnalyticsMostRented, AnalyticsRevenue, AnalyticsIdle, AnalyticsOverview,
	CountEquipmentCategory, ListEquipmentCategory, CountEquipment, ListEquipment, AvailableEquipment, SearchEquipment,
	SearchLabour, CountLabour, AvailableLabour, ListLabour,
	CountProviders, ListProviders,
	CountUsers, ListUsers,
	ReviewsForEquipment, CountReviews, ListReviews,
	BookingStatus, CountBookings, ListBookings,
	EquipmentAvailability, LabourAvailability,
}

// AllKinds returns every declared Kind. The returned slice is a copy.
func AllKinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Personal reports whether the kind is scoped to the caller's own records.
func (k Kind) Personal() bool {
	switch k {
	case MyBookingStatus, MyUpcomingBookings, MyBookings, MyPayments, MyMessages,
		MyEquipment, MyProfile, MyReviews:
		return true
	}
	return false
}

// Intent is one classified message. Only the parameters relevant to Kind are set.
type Intent struct {
	Kind          Kind   `json:"type"`
	Category      string `json:"category,omitempty"`
	SearchTerm    string `json:"searchTerm,omitempty"`
	Status        string `json:"status,omitempty"`
	EquipmentName string `json:"equipmentName,omitempty"`
}
