package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/knowledge"
	"agriserve-query/internal/query/store"
	"agriserve-query/internal/query/store/storetest"
)

// ==========================
// Fixtures
// ==========================

var fixedNow = time.Date(2026, 10, 14, 9, 34, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func fixture() *storetest.Memory {
	return &storetest.Memory{
		Equipment: []models.Equipment{
			{ID: "eq-1", OwnerID: "u-owner", Name: "Swaraj 744", Category: "tractor", Brand: "Swaraj", Model: "744 FE",
				Location: "Ludhiana, Punjab", PricePerDay: f64(2500), Rating: f64(4.5), ReviewCount: 2, IsAvailable: true,
				Horsepower: intp(48), FuelType: "diesel"},
			{ID: "eq-2", OwnerID: "u-owner", Name: "Kubota Harvester", Category: "harvester", Brand: "Kubota",
				PricePerDay: f64(12000), IsAvailable: false},
			{ID: "eq-3", OwnerID: "u-other", Name: "Mahindra 575", Category: "tractor", Brand: "Mahindra",
				PricePerDay: f64(2200), Rating: f64(4.0), IsAvailable: true},
		},
		Labour: []models.LabourProfile{
			{ID: "lab-1", UserID: "u-lab", Name: "Ramesh Kumar", Skills: []string{"harvesting", "tractor driving"},
				ExperienceYears: 6, DailyRate: f64(800), HourlyRate: f64(120), Location: "Karnal",
				Availability: models.LabourAvailable, Rating: f64(4.7), ReviewCount: 3, IsActive: true},
			{ID: "lab-2", UserID: "u-lab2", Name: "Suresh", Skills: []string{"spraying"},
				Availability: models.LabourBusy, IsActive: true},
			{ID: "lab-3", Name: "Retired Worker", Availability: models.LabourAvailable, IsActive: false},
		},
		Users: []models.UserProfile{
			{ID: "u-owner", Name: "Gurpreet Singh", Email: "gurpreet@example.com", Phone: "9876543210",
				City: "Ludhiana", State: "Punjab", Roles: []string{"provider", "farmer"}, IsVerified: true},
			{ID: "u-renter", Name: "Anita Devi", Email: "anita@example.com", Roles: []string{"farmer"}},
			{ID: "u-lab", Name: "Ramesh Kumar", Roles: []string{"labour"}, IsVerified: true},
		},
		Roles: map[string][]string{"u-owner": {"provider", "farmer"}},
		Reviews: []models.Review{
			{ID: "r-1", EquipmentID: "eq-1", ReviewerID: "u-renter", Rating: 5, Comment: "Excellent tractor"},
			{ID: "r-2", EquipmentID: "eq-1", ReviewerID: "u-ghost", Rating: 4},
		},
		Bookings: []models.Booking{
			{ID: "b-1", EquipmentID: "eq-1", RenterID: "u-renter", StartDate: "2026-10-20", EndDate: "2026-10-22",
				TotalDays: 3, TotalAmount: f64(7500), Status: models.BookingPending},
			{ID: "b-2", EquipmentID: "eq-2", RenterID: "u-renter", StartDate: "2026-09-01", EndDate: "2026-09-02",
				TotalDays: 2, TotalAmount: f64(24000), Status: models.BookingCompleted},
			{ID: "b-3", EquipmentID: "eq-3", RenterID: "u-owner", StartDate: "2026-10-01", EndDate: "2026-10-05",
				TotalDays: 5, TotalAmount: f64(11000), Status: models.BookingConfirmed},
		},
		Payments: []models.Payment{
			{ID: "p-1", UserID: "u-owner", Amount: 11000, Status: "completed", Method: "upi",
				TransactionID: "TXN-0001", CreatedAt: fixedNow.AddDate(0, 0, -10)},
		},
		Messages: []models.Message{
			{ID: "m-1", SenderID: "u-renter", ReceiverID: "u-owner", Content: "Is the tractor free next week?",
				CreatedAt: fixedNow.AddDate(0, 0, -1)},
			{ID: "m-2", SenderID: "u-owner", ReceiverID: "u-renter", Content: "Yes, from Monday", IsRead: true,
				CreatedAt: fixedNow},
		},
	}
}

const fixtureFooter = `
--- Platform Summary ---
Total Equipment: 3
Total Users: 3
Total Labour Profiles: 3
Total Reviews: 2
Total Bookings: 3
Last Updated: 14 Oct 2026, 3:04 pm`

func newHandlers(t *testing.T, st store.Store) *Handlers {
	return New(st, nil, nil, Options{}, func() time.Time { return fixedNow }, logger.NewTestLogger(t))
}

var (
	admin  = models.CallerContext{UserID: "u-admin", ActiveRole: models.RoleAdmin, IsAuthenticated: true}
	owner  = models.CallerContext{UserID: "u-owner", ActiveRole: models.RoleProvider, IsAuthenticated: true}
	renter = models.CallerContext{UserID: "u-renter", ActiveRole: models.RoleFarmer, IsAuthenticated: true}
	guest  = models.AnonymousCaller()
)

func dispatch(t *testing.T, h *Handlers, in intent.Intent, caller models.CallerContext) models.QueryResult {
	t.Helper()
	return h.Dispatch(context.Background(), in, "", caller)
}

// ==========================
// Dispatcher
// ==========================

func TestDispatch_EveryKindHasItsOwnHandler(t *testing.T) {
	h := newHandlers(t, fixture())
	params := intent.Intent{Category: "tractor", SearchTerm: "swaraj", Status: "pending", EquipmentName: "swaraj"}

	for _, k := range intent.AllKinds() {
		in := params
		in.Kind = k
		res := dispatch(t, h, in, admin)
		assert.Equal(t, string(k), res.QueryType, "kind %s fell through to another handler", k)
		assert.False(t, format.IsErrorResult(res), "kind %s has no handler", k)
		assert.NotEmpty(t, res.Context, k)
		assert.NotNil(t, res.Sources, k)
	}
}

func TestDispatch_PersonalWithoutUserTouchesNoStore(t *testing.T) {
	for _, k := range intent.AllKinds() {
		if !k.Personal() {
			continue
		}
		st := fixture()
		res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: k, Status: "pending"}, guest)

		assert.Equal(t, AuthRequired(k), res, k)
		assert.Equal(t, "my_"+AuthNoun(k), res.QueryType, k)
		assert.Zero(t, st.TotalCalls(), k)
	}
	assert.Equal(t, "⚠️ You need to be logged in to view your profile. Please sign in first.",
		AuthRequired(intent.MyProfile).Context)
	assert.Equal(t, "my_bookings", AuthRequired(intent.MyBookingStatus).QueryType)
	assert.Equal(t, "my_bookings", AuthRequired(intent.MyUpcomingBookings).QueryType)
}

func TestDispatch_UnhandledKindIsErrorResult(t *testing.T) {
	st := fixture()
	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.Kind("crop_prices")}, admin)

	assert.True(t, format.IsErrorResult(res))
	assert.Equal(t, "crop_prices", res.QueryType)
	assert.Contains(t, res.Context, `No handler for query type "crop_prices"`)
	assert.Zero(t, st.TotalCalls())
}

func TestNew_NilLoggerIsNoOp(t *testing.T) {
	h := New(fixture(), nil, nil, Options{}, func() time.Time { return fixedNow }, nil)
	assert.NotPanics(t, func() {
		h.Dispatch(context.Background(), intent.Intent{Kind: intent.VectorSearch}, "hello", guest)
	})
}

func TestDispatch_Deterministic(t *testing.T) {
	h := newHandlers(t, fixture())
	for _, k := range intent.AllKinds() {
		in := intent.Intent{Kind: k, Category: "tractor", SearchTerm: "swaraj", Status: "pending", EquipmentName: "swaraj"}
		first := dispatch(t, h, in, owner)
		second := dispatch(t, h, in, owner)
		assert.Equal(t, first, second, k)
	}
}

// ==========================
// Footer and failures
// ==========================

func TestFooterLines(t *testing.T) {
	s := models.PlatformStats{TotalEquipment: 3, TotalUsers: 3, TotalLabour: 3, TotalReviews: 2, TotalBookings: 3}
	assert.Equal(t, fixtureFooter, strings.Join(FooterLines(s, fixedNow), "\n"))
}

func TestCountEquipment_SecondaryCountDegradesToZero(t *testing.T) {
	st := fixture()
	st.Errors = map[string]error{"Count:reviews": errors.New("statement timeout")}

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.CountEquipment}, guest)

	assert.True(t, res.HasContext)
	assert.Contains(t, res.Context, "📊 Equipment Count: 3 total equipment listed on the platform")
	assert.Contains(t, res.Context, "\nTotal Reviews: 0\n")
	assert.Contains(t, res.Context, "\nTotal Bookings: 3\n")
}

func TestPrimaryFailure_BecomesErrorResult(t *testing.T) {
	st := fixture()
	st.Errors = map[string]error{"ListEquipment": errors.New("connection refused")}

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.ListEquipment}, guest)

	assert.True(t, format.IsErrorResult(res))
	assert.False(t, res.HasContext)
	assert.Equal(t, "list_equipment", res.QueryType)
	assert.Contains(t, res.Context, "⚠️ Error: Failed to list equipment: connection refused")
}

func TestListing_FailedCountFallsBackToRows(t *testing.T) {
	st := fixture()
	st.Errors = map[string]error{"CountEquipment": errors.New("boom")}

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.AvailableEquipment}, guest)

	assert.Contains(t, res.Context, "✅ Available Equipment: 2 equipment currently available for rent")
	assert.NotContains(t, res.Context, "more available items")
}

// ==========================
// Equipment
// ==========================

func TestCountEquipmentCategory(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.CountEquipmentCategory, Category: "tractor"}, guest)

	want := `=== PLATFORM DATA (Real-time) ===

📊 Equipment Count: 2 tractors found on the platform

| # | Name | Brand | Price/Day | Location | Rating | Available |
|---|------|-------|-----------|----------|--------|-----------|
| 1 | Swaraj 744 | Swaraj | ₹2,500 | Ludhiana, Punjab | 4.5/5 | ✅ Yes |
| 2 | Mahindra 575 | Mahindra | ₹2,200 | N/A | 4.0/5 | ✅ Yes |
` + fixtureFooter

	assert.Equal(t, want, res.Context)
	assert.Equal(t, []string{"equipment table filtered by category='tractor' (real-time)"}, res.Sources)
	assert.True(t, res.HasContext)
	assert.Equal(t, models.FreshnessRealTime, res.DataFreshness)
}

func TestCountEquipmentCategory_EmptyHasNoContext(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.CountEquipmentCategory, Category: "plough"}, guest)

	assert.Contains(t, res.Context, "📊 Equipment Count: 0 ploughs found on the platform")
	assert.False(t, res.HasContext)
}

func TestListEquipment_MoreNotice(t *testing.T) {
	st := fixture()
	for i := 0; i < 40; i++ {
		st.Equipment = append(st.Equipment, models.Equipment{ID: "bulk", Name: "Seeder", Category: "seeder"})
	}

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.ListEquipment}, guest)

	assert.Contains(t, res.Context, "📊 Equipment Listing: 43 total equipment on the platform")
	assert.Contains(t, res.Context, "\n| 30 | Seeder |")
	assert.NotContains(t, res.Context, "\n| 31 |")
	assert.Contains(t, res.Context, "\n\n... and 13 more equipment items\n")
}

func TestSearchEquipment_DetailBlock(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.SearchEquipment, SearchTerm: "swaraj"}, guest)

	assert.Contains(t, res.Context, `🔍 Search Results: 1 equipment matching "swaraj"`)
	assert.Contains(t, res.Context, strings.Join([]string{
		"--- Equipment 1: Swaraj 744 ---",
		"  Category: tractor",
		"  Brand: Swaraj",
		"  Model: 744 FE",
		"  Description: N/A",
		"  Price/Day: ₹2,500",
		"  Price/Hour: N/A",
		"  Location: Ludhiana, Punjab",
		"  Rating: 4.5/5 (2 reviews)",
		"  Available: ✅ Yes",
		"  Horsepower: 48 HP",
		"  Fuel Type: diesel",
		"",
	}, "\n"))
	assert.NotContains(t, res.Context, "  Year:")
	assert.Equal(t, []string{`equipment table search for "swaraj" (real-time)`}, res.Sources)

	miss := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.SearchEquipment, SearchTerm: "jcb"}, guest)
	assert.Contains(t, miss.Context, `🔍 No equipment found matching "jcb".`)
	assert.False(t, miss.HasContext)
}

func TestSearchEquipment_MoreNotice(t *testing.T) {
	st := fixture()
	for i := 0; i < 15; i++ {
		st.Equipment = append(st.Equipment, models.Equipment{ID: "bulk", Name: "Swaraj 855", Category: "tractor"})
	}

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.SearchEquipment, SearchTerm: "swaraj"}, guest)

	assert.Contains(t, res.Context, `🔍 Search Results: 16 equipment matching "swaraj"`)
	assert.Contains(t, res.Context, "--- Equipment 10: Swaraj 855 ---")
	assert.NotContains(t, res.Context, "--- Equipment 11:")
	assert.Contains(t, res.Context, "\n... and 6 more equipment\n")
}

func TestEquipmentAvailability(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.EquipmentAvailability, EquipmentName: "swaraj"}, owner)

	assert.Contains(t, res.Context, `📅 Availability for "swaraj": 1 matching equipment`)
	assert.Contains(t, res.Context, "  Currently Available: ✅ Yes\n  Upcoming Bookings: 1\n    2026-10-20 → 2026-10-22 (pending)")
	assert.True(t, res.HasContext)

	open := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.EquipmentAvailability, EquipmentName: "mahindra"}, owner)
	assert.Contains(t, open.Context, "  Upcoming Bookings: none, open for all future dates")
}

// ==========================
// Labour and users
// ==========================

func TestAvailableLabour(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.AvailableLabour}, guest)

	assert.Contains(t, res.Context, "✅ Available Labour: 1 workers currently available for hire")
	assert.Contains(t, res.Context, "| 1 | Ramesh Kumar | harvesting, tractor dr... | 6 yrs | ₹800 | ₹120 | Karnal | 4.7/5 |")
	assert.NotContains(t, res.Context, "Retired Worker")
	assert.Equal(t, []string{"labour_profiles table filtered by availability=available (real-time)"}, res.Sources)
}

func TestCountLabour_Breakdown(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.CountLabour}, guest)

	assert.Contains(t, res.Context, "👷 Labour Profiles: 3 total labour profiles on the platform\n\n  Available: 2\n  Busy: 1\n  Unavailable: 0")
}

func TestSearchLabour(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.SearchLabour, SearchTerm: "harvest"}, guest)

	assert.Contains(t, res.Context, `🔍 Labour Search: 1 workers with skills matching "harvest"`)
	assert.Contains(t, res.Context, "  Skills: harvesting, tractor driving")
	assert.True(t, res.HasContext)
}

func TestSearchLabour_MoreNotice(t *testing.T) {
	st := fixture()
	for i := 0; i < 40; i++ {
		st.Labour = append(st.Labour, models.LabourProfile{ID: "weld", Name: "Welder", Skills: []string{"welding"},
			Availability: models.LabourAvailable, IsActive: true})
	}

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.SearchLabour, SearchTerm: "welding"}, guest)

	assert.Contains(t, res.Context, `🔍 Labour Search: 40 workers with skills matching "welding"`)
	assert.Contains(t, res.Context, "--- Worker 25: Welder ---")
	assert.NotContains(t, res.Context, "--- Worker 26:")
	assert.Contains(t, res.Context, "\n... and 15 more workers\n")
}

func TestListUsers_MasksContactsForNonAdmins(t *testing.T) {
	st := fixture()

	asOwner := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.ListUsers}, owner)
	assert.Contains(t, asOwner.Context, "| 1 | Gurpreet Singh | gu***@example.com | Hidden | provider, farmer | Ludhiana | Punjab | ✅ |")
	assert.NotContains(t, asOwner.Context, "9876543210")

	asAdmin := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.ListUsers}, admin)
	assert.Contains(t, asAdmin.Context, "| 1 | Gurpreet Singh | gurpreet@example.com | 9876543210 |")
}

func TestListProviders_CountsListedEquipment(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.ListProviders}, guest)

	assert.Contains(t, res.Context, "🏪 Equipment Providers: 1 providers on the platform")
	assert.Contains(t, res.Context, "| 1 | Gurpreet Singh | gu***@example.com | Ludhiana | Punjab | 2 | ✅ |")
}

// ==========================
// Reviews and bookings
// ==========================

func TestReviewsForEquipment(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.ReviewsForEquipment, EquipmentName: "swaraj"}, guest)

	assert.Contains(t, res.Context, `⭐ Reviews for "swaraj": 2 review(s) found`)
	assert.Contains(t, res.Context, "Matched Equipment: Swaraj 744\n\n| # | Equipment | Reviewer | Rating | Comment |")
	assert.Contains(t, res.Context, "| 1 | Swaraj 744 | Anita Devi | ⭐⭐⭐⭐⭐ (5/5) | Excellent tractor |")
	assert.Contains(t, res.Context, "| 2 | Swaraj 744 | Anonymous | ⭐⭐⭐⭐ (4/5) | N/A |")

	none := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.ReviewsForEquipment, EquipmentName: "mahindra"}, guest)
	assert.Contains(t, none.Context, "  Matched equipment: Mahindra 575 (but no reviews yet)")
	assert.False(t, none.HasContext)
}

func TestReviewsForEquipment_MoreNotice(t *testing.T) {
	st := fixture()
	for i := 0; i < 25; i++ {
		st.Reviews = append(st.Reviews, models.Review{ID: "bulk", EquipmentID: "eq-1", ReviewerID: "u-renter", Rating: 3})
	}

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.ReviewsForEquipment, EquipmentName: "swaraj"}, guest)

	assert.Contains(t, res.Context, `⭐ Reviews for "swaraj": 27 review(s) found`)
	assert.Contains(t, res.Context, "\n| 20 | Swaraj 744 |")
	assert.NotContains(t, res.Context, "\n| 21 |")
	assert.Contains(t, res.Context, "\n\n... and 7 more reviews\n")
}

func TestCountBookings_StatusBreakdown(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.CountBookings}, admin)

	assert.Contains(t, res.Context, strings.Join([]string{
		"📋 Booking Count: 3 total bookings on the platform",
		"",
		"  Status Breakdown:",
		"  Pending: 1",
		"  Confirmed: 1",
		"  In Progress: 0",
		"  Completed: 1",
		"  Cancelled: 0",
	}, "\n"))
}

func TestCountBookings_ScopedForNonAdmins(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.CountBookings}, renter)

	assert.Contains(t, res.Context, strings.Join([]string{
		"📋 Your Booking Count: 2 bookings as renter or equipment owner",
		"",
		"  Status Breakdown:",
		"  Pending: 1",
		"  Confirmed: 0",
		"  In Progress: 0",
		"  Completed: 1",
		"  Cancelled: 0",
	}, "\n"))
	assert.NotContains(t, res.Context, "on the platform")
	assert.Equal(t, []string{"bookings table filtered by user (real-time count with status breakdown)"}, res.Sources)

	asOwner := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.CountBookings}, owner)
	assert.Contains(t, asOwner.Context, "📋 Your Booking Count: 3 bookings as renter or equipment owner")
}

func TestListBookings_ScopedForNonAdmins(t *testing.T) {
	st := fixture()

	asAdmin := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.ListBookings}, admin)
	assert.Contains(t, asAdmin.Context, "📋 Recent Bookings: 3 total bookings (showing latest 20)")

	asRenter := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.ListBookings}, renter)
	assert.Contains(t, asRenter.Context, "📋 Your Bookings: 2 bookings found (showing latest 20)")
	assert.NotContains(t, asRenter.Context, "Mahindra 575")
	assert.Equal(t, []string{"bookings table filtered by user (real-time)"}, asRenter.Sources)
}

func TestBookingStatus(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.BookingStatus, Status: "pending"}, admin)

	assert.Contains(t, res.Context, "📋 Pending Bookings: 1 found\n\n| # | Equipment | Renter | Start | End | Days | Amount |")
	assert.Contains(t, res.Context, "| 1 | Swaraj 744 | Anita Devi | 2026-10-20 | 2026-10-22 | 3 | ₹7,500 |")

	none := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.BookingStatus, Status: "in_progress"}, admin)
	assert.Contains(t, none.Context, "No in progress bookings found.")
	assert.False(t, none.HasContext)
}

// ==========================
// Personal
// ==========================

func TestMyBookingStatus_RenterOrOwner(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.MyBookingStatus, Status: "pending"}, owner)

	want := `=== YOUR BOOKINGS (Real-time) ===

📋 Your Pending Bookings: 1 found

| # | Equipment | Dates | Days | Amount | Status |
|---|-----------|-------|------|--------|--------|
| 1 | Swaraj 744 | 2026-10-20 → 2026-10-22 | 3 | ₹7,500 | pending |`

	assert.Equal(t, want, res.Context)
	assert.Equal(t, []string{"bookings table filtered by user and status='pending' (real-time)"}, res.Sources)
	assert.True(t, res.HasContext)
}

func TestMyBookings_BothSides(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.MyBookings}, owner)

	assert.Contains(t, res.Context, "📋 Your Bookings: 3 total")
	assert.NotContains(t, res.Context, "--- Platform Summary ---")
}

func TestMyUpcomingBookings(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.MyUpcomingBookings}, renter)

	assert.Contains(t, res.Context, "📅 Your Upcoming Bookings: 1 scheduled")
	assert.Contains(t, res.Context, "| 1 | Swaraj 744 | 2026-10-20 → 2026-10-22 |")
}

func TestMyProfile(t *testing.T) {
	st := fixture()
	st.Users[0].Bio = "Third-generation farmer"

	res := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.MyProfile}, owner)

	assert.Contains(t, res.Context, "=== YOUR PROFILE (Real-time) ===\n\n👤 Profile Details\n\n  Name: Gurpreet Singh")
	assert.Contains(t, res.Context, "  Roles (from user_roles): provider, farmer")
	assert.Contains(t, res.Context, "  Bio: Third-generation farmer")
	assert.NotContains(t, res.Context, "--- Labour Profile ---")

	labourer := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.MyProfile},
		models.CallerContext{UserID: "u-lab", ActiveRole: models.RoleLabour, IsAuthenticated: true})
	assert.Contains(t, labourer.Context, "--- Labour Profile ---\n  Skills: harvesting, tractor driving\n  Experience: 6 years")
	assert.Contains(t, labourer.Context, "  Roles (from user_roles): N/A")
}

func TestMyReviews_WrittenAndReceived(t *testing.T) {
	st := fixture()

	asOwner := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.MyReviews}, owner)
	assert.Contains(t, asOwner.Context, "✍️ Reviews You Wrote: 0\n\nYou have not written any reviews yet.")
	assert.Contains(t, asOwner.Context, "📥 Reviews on Your Equipment: 2")
	assert.True(t, asOwner.HasContext)

	asRenter := dispatch(t, newHandlers(t, st), intent.Intent{Kind: intent.MyReviews}, renter)
	assert.Contains(t, asRenter.Context, "| 1 | Swaraj 744 | ⭐⭐⭐⭐⭐ (5/5) | Excellent tractor |")
	assert.Contains(t, asRenter.Context, "No reviews received on your equipment yet.")
}

func TestMyReviews_MoreNotice(t *testing.T) {
	st := fixture()
	for i := 0; i < 25; i++ {
		st.Reviews = append(st.Reviews, models.Review{ID: "bulk", EquipmentID: "eq-1", ReviewerID: "u-renter", Rating: 3})
	}
	h := newHandlers(t, st)

	asRenter := dispatch(t, h, intent.Intent{Kind: intent.MyReviews}, renter)
	assert.Contains(t, asRenter.Context, "✍️ Reviews You Wrote: 26\n")
	assert.Contains(t, asRenter.Context, "\n\n... and 6 more reviews\n")

	asOwner := dispatch(t, h, intent.Intent{Kind: intent.MyReviews}, owner)
	assert.Contains(t, asOwner.Context, "📥 Reviews on Your Equipment: 27\n")
	assert.Contains(t, asOwner.Context, "\n\n... and 7 more reviews")
}

func TestMyPaymentsAndMessages(t *testing.T) {
	h := newHandlers(t, fixture())

	pay := dispatch(t, h, intent.Intent{Kind: intent.MyPayments}, owner)
	assert.Contains(t, pay.Context, "💳 Your Payments: 1 total\n\n  Totals by Status:\n  Completed: ₹11,000")
	assert.Contains(t, pay.Context, "| 1 | 2026-10-04 | ₹11,000 | upi | completed | TXN-0001 |")

	msgs := dispatch(t, h, intent.Intent{Kind: intent.MyMessages}, owner)
	assert.Contains(t, msgs.Context, "💬 Your Messages: 2 total, 1 unread")
	assert.Contains(t, msgs.Context, "| 1 | 2026-10-13 | Received | Anita Devi | Is the tractor free next week? | ❌ |")
	assert.Contains(t, msgs.Context, "| 2 | 2026-10-14 | Sent | Anita Devi | Yes, from Monday | ✅ |")
}

// ==========================
// Analytics
// ==========================

func TestPlatformStatsReport(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.PlatformStats}, guest)

	assert.Contains(t, res.Context, "--- Equipment ---\n  Total: 3\n  Available: 2\n  Unavailable: 1\n\n  By Category:\n    Tractor: 2\n    Harvester: 1")
	assert.Contains(t, res.Context, "--- Users ---\n  Total: 3\n  Verified: 2")
	assert.True(t, strings.HasSuffix(res.Context, "Last Updated: 14 Oct 2026, 3:04 pm"))
	assert.Len(t, res.Sources, 5)
}

func TestAnalyticsMostRented_TiesByID(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.AnalyticsMostRented}, admin)

	assert.Contains(t, res.Context, strings.Join([]string{
		"| Rank | Equipment | Category | Booking Count |",
		"|------|-----------|----------|---------------|",
		"| 1 | Swaraj 744 | tractor | 1 |",
		"| 2 | Kubota Harvester | harvester | 1 |",
		"| 3 | Mahindra 575 | tractor | 1 |",
	}, "\n"))
}

func TestAnalyticsRevenue(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.AnalyticsRevenue}, admin)

	assert.Contains(t, res.Context, "  Total Revenue: ₹35,000\n  Total Bookings (completed/confirmed/in-progress): 2\n  Average Booking Value: ₹17,500")
	assert.Contains(t, res.Context, "| 2026-10 | ₹11,000 | 1 |\n| 2026-09 | ₹24,000 | 1 |")

	empty := dispatch(t, newHandlers(t, &storetest.Memory{}), intent.Intent{Kind: intent.AnalyticsRevenue}, admin)
	assert.Equal(t, "=== ANALYTICS (Real-time) ===\n\n💰 Revenue: No completed/confirmed/in-progress bookings found.", empty.Context)
	assert.False(t, empty.HasContext)
}

func TestAnalyticsIdle(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.AnalyticsIdle}, admin)

	assert.Contains(t, res.Context, "💤 Idle Equipment: 1 of 3 equipment not booked in the last 30 days")
	assert.Contains(t, res.Context, "| 1 | Kubota Harvester | harvester | N/A | 2026-09-01 |")
}

func TestAnalyticsOverview(t *testing.T) {
	res := dispatch(t, newHandlers(t, fixture()), intent.Intent{Kind: intent.AnalyticsOverview}, admin)

	assert.True(t, strings.HasPrefix(res.Context, "=== ANALYTICS OVERVIEW (Real-time) ===\n\n📊 Business Dashboard"))
	assert.Contains(t, res.Context, "  Total Revenue: ₹35,000\n  Total Bookings: 3\n  Active Bookings: 1\n  Avg Booking Value: ₹11,667")
	assert.Contains(t, res.Context, "  Idle (30+ days): 1\n  Utilization Rate: 66.7%")
	assert.Contains(t, res.Context, "--- Monthly Revenue Trend ---\n  2026-10: ₹11,000\n  2026-09: ₹24,000")
	assert.True(t, strings.HasSuffix(res.Context, fixtureFooter))
}

// ==========================
// Vector search
// ==========================

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, f.err }

type fakeSearcher struct {
	hits []knowledge.Hit
	err  error
}

func (f fakeSearcher) Name() string { return "fake" }
func (f fakeSearcher) Search(context.Context, []float32, knowledge.Options) ([]knowledge.Hit, error) {
	return f.hits, f.err
}

func vectorHandlers(t *testing.T, st store.Store, e Embedder, s knowledge.Searcher) *Handlers {
	return New(st, e, s, Options{}, func() time.Time { return fixedNow }, logger.NewTestLogger(t))
}

func TestVectorSearch_KnowledgeHits(t *testing.T) {
	hits := []knowledge.Hit{{
		SourceType: "equipment",
		SourceID:   "eq-1",
		Content:    "Swaraj 744 tractor for rent",
		Similarity: 0.873,
		Metadata:   map[string]interface{}{"name": "Swaraj 744"},
	}}
	h := vectorHandlers(t, fixture(), fakeEmbedder{vec: []float32{0.1, 0.2}}, fakeSearcher{hits: hits})

	res := h.Dispatch(context.Background(), intent.Intent{Kind: intent.VectorSearch}, "tractor for my farm", guest)

	assert.True(t, strings.HasPrefix(res.Context, "=== PLATFORM DATA (Cached Knowledge Base) ===\n\n🔍 Found 1 relevant result(s):\n\n"))
	assert.Contains(t, res.Context, knowledge.BuildContext(hits))
	assert.True(t, strings.HasSuffix(res.Context, fixtureFooter))
	assert.Equal(t, []string{"equipment:eq-1 (87.3% match)"}, res.Sources)
	assert.Equal(t, models.FreshnessCached, res.DataFreshness)
	assert.True(t, res.HasContext)
}

func TestVectorSearch_LiveFallbackWhenBothBackendsFail(t *testing.T) {
	h := vectorHandlers(t, fixture(),
		fakeEmbedder{err: errors.New("embedding timeout")},
		fakeSearcher{err: errors.New("search down")},
	)

	res := h.Dispatch(context.Background(), intent.Intent{Kind: intent.VectorSearch}, "anything useful", guest)

	require.True(t, res.HasContext)
	assert.True(t, strings.HasPrefix(res.Context, "=== PLATFORM DATA (Live Snapshot) ===\n\n"))
	assert.Contains(t, res.Context, "  1. Swaraj 744 (tractor) - ₹2,500/day - Ludhiana, Punjab - 4.5/5")
	assert.Contains(t, res.Context, "  1. Ramesh Kumar - harvesting, tractor driving - ₹800/day - Karnal - 4.7/5")
	assert.Contains(t, res.Context, "📋 Bookings: 3 total bookings on the platform")
	assert.Contains(t, res.Sources, "equipment table filtered by is_available=true (live fallback)")
	assert.Equal(t, models.FreshnessRealTime, res.DataFreshness)
}

func TestVectorSearch_NoHitsAndEmptyMessage(t *testing.T) {
	h := vectorHandlers(t, fixture(), fakeEmbedder{vec: []float32{1}}, fakeSearcher{})

	noHits := h.Dispatch(context.Background(), intent.Intent{Kind: intent.VectorSearch}, "weather in pune", guest)
	assert.Contains(t, noHits.Context, "No matching entries in the knowledge base.")
	assert.True(t, noHits.HasContext)

	empty := h.Dispatch(context.Background(), intent.Intent{Kind: intent.VectorSearch}, "", guest)
	assert.True(t, empty.HasContext)
	assert.NotEmpty(t, empty.Context)
}

func TestVectorSearch_EmptyStoreHasNoContext(t *testing.T) {
	h := vectorHandlers(t, &storetest.Memory{}, nil, nil)

	res := h.Dispatch(context.Background(), intent.Intent{Kind: intent.VectorSearch}, "hello", guest)

	assert.False(t, res.HasContext)
	assert.Contains(t, res.Context, "  No equipment currently available.")
	assert.Contains(t, res.Context, "  No labour currently available.")
}
