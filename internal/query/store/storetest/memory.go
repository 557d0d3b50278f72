// Package storetest provides an in-memory store.Store for handler and engine tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"agriserve-query/internal/models"
	"agriserve-query/internal/query/store"
)

// Memory serves rows from slices. Set Errors[method] to make that method fail.
// Rows are returned in slice order.
type Memory struct {
	Equipment []models.Equipment
	Nearby    []models.NearbyEquipment
	Labour    []models.LabourProfile
	Users     []models.UserProfile
	Roles     map[string][]string
	Reviews   []models.Review
	Bookings  []models.Booking
	Payments  []models.Payment
	Messages  []models.Message
	Errors    map[string]error

	mu    sync.Mutex
	calls map[string]int
}

var _ store.Store = (*Memory)(nil)

func (m *Memory) hit(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
	return m.Errors[method]
}

// Calls returns how many times method was invoked.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of store calls of any kind.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func capped[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (m *Memory) Count(_ context.Context, table store.Table) (int, error) {
	if err := m.hit("Count:" + string(table)); err != nil {
		return 0, err
	}
	switch table {
	case store.TableEquipment:
		return len(m.Equipment), nil
	case store.TableUserProfiles:
		return len(m.Users), nil
	case store.TableLabourProfiles:
		return len(m.Labour), nil
	case store.TableReviews:
		return len(m.Reviews), nil
	case store.TableBookings:
		return len(m.Bookings), nil
	case store.TablePayments:
		return len(m.Payments), nil
	case store.TableMessages:
		return len(m.Messages), nil
	case store.TableUserRoles:
		n := 0
		for _, r := range m.Roles {
			n += len(r)
		}
		return n, nil
	}
	return 0, nil
}

// ==========================
// Equipment
// ==========================

func (m *Memory) filterEquipment(f store.EquipmentFilter) []models.Equipment {
	var out []models.Equipment
	for _, e := range m.Equipment {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.AvailableOnly && !e.IsAvailable {
			continue
		}
		if f.OwnerID != "" && e.OwnerID != f.OwnerID {
			continue
		}
		if len(f.IDs) > 0 && !contains(f.IDs, e.ID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *Memory) CountEquipment(_ context.Context, f store.EquipmentFilter) (int, error) {
	if err := m.hit("CountEquipment"); err != nil {
		return 0, err
	}
	return len(m.filterEquipment(f)), nil
}

func (m *Memory) ListEquipment(_ context.Context, f store.EquipmentFilter, limit int) ([]models.Equipment, error) {
	if err := m.hit("ListEquipment"); err != nil {
		return nil, err
	}
	return capped(m.filterEquipment(f), limit), nil
}

func (m *Memory) searchEquipment(term string) []models.Equipment {
	var out []models.Equipment
	for _, e := range m.Equipment {
		if containsFold(e.Name, term) || containsFold(e.Brand, term) || containsFold(e.Model, term) || containsFold(e.Description, term) {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) CountSearchEquipment(_ context.Context, term string) (int, error) {
	if err := m.hit("CountSearchEquipment"); err != nil {
		return 0, err
	}
	return len(m.searchEquipment(term)), nil
}

func (m *Memory) SearchEquipment(_ context.Context, term string, limit int) ([]models.Equipment, error) {
	if err := m.hit("SearchEquipment"); err != nil {
		return nil, err
	}
	return capped(m.searchEquipment(term), limit), nil
}

func (m *Memory) FindEquipmentByName(_ context.Context, name string, limit int) ([]models.Equipment, error) {
	if err := m.hit("FindEquipmentByName"); err != nil {
		return nil, err
	}
	var out []models.Equipment
	for _, e := range m.Equipment {
		if containsFold(e.Name, name) {
			out = append(out, e)
		}
	}
	return capped(out, limit), nil
}

func (m *Memory) EquipmentIDsByOwner(_ context.Context, ownerID string) ([]string, error) {
	if err := m.hit("EquipmentIDsByOwner"); err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range m.Equipment {
		if e.OwnerID == ownerID {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (m *Memory) EquipmentCategoryCounts(_ context.Context) (map[string]int, error) {
	if err := m.hit("EquipmentCategoryCounts"); err != nil {
		return nil, err
	}
	out := map[string]int{}
	for _, e := range m.Equipment {
		c := e.Category
		if c == "" {
			c = "other"
		}
		out[c]++
	}
	return out, nil
}

func (m *Memory) EquipmentCountsByOwner(_ context.Context, ownerIDs []string) (map[string]int, error) {
	if err := m.hit("EquipmentCountsByOwner"); err != nil {
		return nil, err
	}
	out := map[string]int{}
	for _, e := range m.Equipment {
		if contains(ownerIDs, e.OwnerID) {
			out[e.OwnerID]++
		}
	}
	return out, nil
}

// NearbyEquipment returns Nearby rows within radiusKm, nearest first.
func (m *Memory) NearbyEquipment(_ context.Context, _, _, radiusKm float64, limit int) ([]models.NearbyEquipment, error) {
	if err := m.hit("NearbyEquipment"); err != nil {
		return nil, err
	}
	var out []models.NearbyEquipment
	for _, n := range m.Nearby {
		if n.DistanceKm <= radiusKm {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return capped(out, limit), nil
}

// ==========================
// Labour
// ==========================

func (m *Memory) filterLabour(f store.LabourFilter) []models.LabourProfile {
	var out []models.LabourProfile
	for _, l := range m.Labour {
		if f.Availability != "" && l.Availability != f.Availability {
			continue
		}
		if f.ActiveOnly && !l.IsActive {
			continue
		}
		if f.Skill != "" {
			match := false
			for _, s := range l.Skills {
				if containsFold(s, f.Skill) {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

func (m *Memory) CountLabour(_ context.Context, f store.LabourFilter) (int, error) {
	if err := m.hit("CountLabour"); err != nil {
		return 0, err
	}
	return len(m.filterLabour(f)), nil
}

func (m *Memory) ListLabour(_ context.Context, f store.LabourFilter, limit int) ([]models.LabourProfile, error) {
	if err := m.hit("ListLabour"); err != nil {
		return nil, err
	}
	return capped(m.filterLabour(f), limit), nil
}

func (m *Memory) LabourByUser(_ context.Context, userID string) (*models.LabourProfile, error) {
	if err := m.hit("LabourByUser"); err != nil {
		return nil, err
	}
	for i := range m.Labour {
		if m.Labour[i].UserID == userID {
			l := m.Labour[i]
			return &l, nil
		}
	}
	return nil, nil
}

// ==========================
// Users
// ==========================

func (m *Memory) filterUsers(f store.UserFilter) []models.UserProfile {
	var out []models.UserProfile
	for _, u := range m.Users {
		if f.Role != "" && !contains(u.Roles, f.Role) {
			continue
		}
		if f.VerifiedOnly && !u.IsVerified {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (m *Memory) CountUsers(_ context.Context, f store.UserFilter) (int, error) {
	if err := m.hit("CountUsers"); err != nil {
		return 0, err
	}
	return len(m.filterUsers(f)), nil
}

func (m *Memory) ListUsers(_ context.Context, f store.UserFilter, limit int) ([]models.UserProfile, error) {
	if err := m.hit("ListUsers"); err != nil {
		return nil, err
	}
	return capped(m.filterUsers(f), limit), nil
}

func (m *Memory) UserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	if err := m.hit("UserProfile"); err != nil {
		return nil, err
	}
	for i := range m.Users {
		if m.Users[i].ID == userID {
			u := m.Users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) UserRoles(_ context.Context, userID string) ([]string, error) {
	if err := m.hit("UserRoles"); err != nil {
		return nil, err
	}
	return m.Roles[userID], nil
}

func (m *Memory) UserNames(_ context.Context, ids []string) (map[string]string, error) {
	if err := m.hit("UserNames"); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, u := range m.Users {
		if contains(ids, u.ID) {
			out[u.ID] = u.Name
		}
	}
	return out, nil
}

// ==========================
// Reviews
// ==========================

func (m *Memory) filterReviews(f store.ReviewFilter) []models.Review {
	var out []models.Review
	for _, r := range m.Reviews {
		if len(f.EquipmentIDs) > 0 && !contains(f.EquipmentIDs, r.EquipmentID) {
			continue
		}
		if f.ReviewerID != "" && r.ReviewerID != f.ReviewerID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *Memory) CountReviews(_ context.Context, f store.ReviewFilter) (int, error) {
	if err := m.hit("CountReviews"); err != nil {
		return 0, err
	}
	return len(m.filterReviews(f)), nil
}

func (m *Memory) AverageRating(_ context.Context) (float64, error) {
	if err := m.hit("AverageRating"); err != nil {
		return 0, err
	}
	if len(m.Reviews) == 0 {
		return 0, nil
	}
	sum := 0
	for _, r := range m.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(m.Reviews)), nil
}

func (m *Memory) ListReviews(_ context.Context, f store.ReviewFilter, limit int) ([]models.Review, error) {
	if err := m.hit("ListReviews"); err != nil {
		return nil, err
	}
	return capped(m.filterReviews(f), limit), nil
}

// ==========================
// Bookings
// ==========================

func (m *Memory) filterBookings(f store.BookingFilter) []models.Booking {
	var out []models.Booking
	for _, b := range m.Bookings {
		if len(f.Statuses) > 0 && !contains(f.Statuses, b.Status) {
			continue
		}
		if f.ParticipantID != "" && b.RenterID != f.ParticipantID && !contains(f.OwnedEquipmentIDs, b.EquipmentID) {
			continue
		}
		if len(f.EquipmentIDs) > 0 && !contains(f.EquipmentIDs, b.EquipmentID) {
			continue
		}
		if f.StartFrom != "" && b.StartDate < f.StartFrom {
			continue
		}
		if f.EndFrom != "" && b.EndDate < f.EndFrom {
			continue
		}
		out = append(out, b)
	}
	if f.SortByStart {
		sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })
	}
	return out
}

func (m *Memory) CountBookings(_ context.Context, f store.BookingFilter) (int, error) {
	if err := m.hit("CountBookings"); err != nil {
		return 0, err
	}
	return len(m.filterBookings(f)), nil
}

func (m *Memory) ListBookings(_ context.Context, f store.BookingFilter, limit int) ([]models.Booking, error) {
	if err := m.hit("ListBookings"); err != nil {
		return nil, err
	}
	return capped(m.filterBookings(f), limit), nil
}

// ==========================
// Payments and messages
// ==========================

func (m *Memory) userPayments(userID string) []models.Payment {
	var out []models.Payment
	for _, p := range m.Payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func (m *Memory) CountPayments(_ context.Context, userID string) (int, error) {
	if err := m.hit("CountPayments"); err != nil {
		return 0, err
	}
	return len(m.userPayments(userID)), nil
}

func (m *Memory) ListPayments(_ context.Context, userID string, limit int) ([]models.Payment, error) {
	if err := m.hit("ListPayments"); err != nil {
		return nil, err
	}
	return capped(m.userPayments(userID), limit), nil
}

func (m *Memory) PaymentTotals(_ context.Context, userID string) (map[string]float64, error) {
	if err := m.hit("PaymentTotals"); err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, p := range m.userPayments(userID) {
		out[p.Status] += p.Amount
	}
	return out, nil
}

func (m *Memory) userMessages(userID string, unreadOnly bool) []models.Message {
	var out []models.Message
	for _, msg := range m.Messages {
		if unreadOnly {
			if msg.ReceiverID == userID && !msg.IsRead {
				out = append(out, msg)
			}
			continue
		}
		if msg.SenderID == userID || msg.ReceiverID == userID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *Memory) CountMessages(_ context.Context, userID string, unreadOnly bool) (int, error) {
	if err := m.hit("CountMessages"); err != nil {
		return 0, err
	}
	return len(m.userMessages(userID, unreadOnly)), nil
}

func (m *Memory) ListMessages(_ context.Context, userID string, limit int) ([]models.Message, error) {
	if err := m.hit("ListMessages"); err != nil {
		return nil, err
	}
	return capped(m.userMessages(userID, false), limit), nil
}
