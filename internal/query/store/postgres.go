package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"agriserve-query/internal/models"
)

const (
	equipmentColumns = "id, owner_id, name, category, COALESCE(brand, ''), COALESCE(model, ''), " +
		"COALESCE(description, ''), COALESCE(location_name, ''), COALESCE(fuel_type, ''), " +
		"price_per_day, price_per_hour, rating, COALESCE(review_count, 0), COALESCE(is_available, false), " +
		"horsepower, year, COALESCE(features, '{}'), latitude, longitude, created_at"

	labourColumns = "l.id, l.user_id, COALESCE(u.name, ''), COALESCE(l.skills, '{}'), COALESCE(l.experience_years, 0), " +
		"l.daily_rate, l.hourly_rate, COALESCE(l.location_name, ''), COALESCE(l.availability, ''), " +
		"l.average_rating, COALESCE(l.total_reviews, 0), COALESCE(l.is_active, false)"

	labourFrom = " FROM labour_profiles l LEFT JOIN user_profiles u ON u.id = l.user_id"

	userColumns = "id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(city, ''), " +
		"COALESCE(state, ''), COALESCE(bio, ''), COALESCE(roles, '{}'), COALESCE(is_verified, false)"

	reviewColumns = "id, equipment_id, reviewer_id, rating, COALESCE(comment, ''), created_at"

	bookingColumns = "id, equipment_id, renter_id, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), " +
		"COALESCE(total_days, 0), total_amount, status, created_at"

	paymentColumns = "id, COALESCE(booking_id::text, ''), user_id, amount, COALESCE(currency, 'INR'), status, " +
		"COALESCE(payment_method, ''), COALESCE(transaction_id, ''), created_at"

	messageColumns = "id, sender_id, receiver_id, COALESCE(booking_id::text, ''), COALESCE(content, ''), " +
		"COALESCE(is_read, false), created_at"

	// great-circle distance in km against $1 latitude, $2 longitude
	haversineKm = "6371 * 2 * ASIN(SQRT(POWER(SIN(RADIANS(latitude - $1) / 2), 2) + " +
		"COS(RADIANS($1)) * COS(RADIANS(latitude)) * POWER(SIN(RADIANS(longitude - $2) / 2), 2)))"
)

var countableTables = map[Table]bool{
	TableEquipment:      true,
	TableUserProfiles:   true,
	TableLabourProfiles: true,
	TableReviews:        true,
	TableBookings:       true,
	TablePayments:       true,
	TableMessages:       true,
	TableUserRoles:      true,
}

// Postgres implements Store over the marketplace schema with lib/pq.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

// where accumulates AND-ed predicates with positional placeholders.
type where struct {
	clauses []string
	args    []interface{}
}

// add appends a predicate; each "?" in cond becomes the next placeholder for args in order.
func (w *where) add(cond string, args ...interface{}) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.clauses = append(w.clauses, cond)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// limit appends a LIMIT placeholder when n is positive.
func (w *where) limit(n int) string {
	if n <= 0 {
		return ""
	}
	w.args = append(w.args, n)
	return " LIMIT $" + strconv.Itoa(len(w.args))
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func (p *Postgres) countWhere(ctx context.Context, from string, w *where) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from+w.String(), w.args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Postgres) Count(ctx context.Context, table Table) (int, error) {
	if !countableTables[table] {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	return p.countWhere(ctx, " FROM "+string(table), &where{})
}

// ==========================
// Equipment
// ==========================

func equipmentWhere(f EquipmentFilter) *where {
	w := &where{}
	if f.Category != "" {
		w.add("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.AvailableOnly {
		w.add("is_available = true")
	}
	if f.OwnerID != "" {
		w.add("owner_id = ?", f.OwnerID)
	}
	if len(f.IDs) > 0 {
		w.add("id = ANY(?)", pq.Array(f.IDs))
	}
	return w
}

func (p *Postgres) CountEquipment(ctx context.Context, f EquipmentFilter) (int, error) {
	return p.countWhere(ctx, " FROM equipment", equipmentWhere(f))
}

func (p *Postgres) ListEquipment(ctx context.Context, f EquipmentFilter, limit int) ([]models.Equipment, error) {
	w := equipmentWhere(f)
	order := " ORDER BY rating DESC NULLS LAST, name ASC, id ASC"
	if f.OwnerID != "" {
		order = " ORDER BY created_at DESC, id ASC"
	}
	query := "SELECT " + equipmentColumns + " FROM equipment" + w.String() + order
	query += w.limit(limit)
	return p.queryEquipment(ctx, query, w.args...)
}

// searchWhere must be the first predicate: the pattern is reused as $1.
func searchWhere(term string) *where {
	w := &where{}
	w.add("(name ILIKE ? OR brand ILIKE $1 OR model ILIKE $1 OR description ILIKE $1)", likePattern(term))
	return w
}

func (p *Postgres) CountSearchEquipment(ctx context.Context, term string) (int, error) {
	return p.countWhere(ctx, " FROM equipment", searchWhere(term))
}

func (p *Postgres) SearchEquipment(ctx context.Context, term string, limit int) ([]models.Equipment, error) {
	w := searchWhere(term)
	query := "SELECT " + equipmentColumns + " FROM equipment" + w.String() + " ORDER BY rating DESC NULLS LAST, id ASC"
	query += w.limit(limit)
	return p.queryEquipment(ctx, query, w.args...)
}

func (p *Postgres) FindEquipmentByName(ctx context.Context, name string, limit int) ([]models.Equipment, error) {
	w := &where{}
	w.add("name ILIKE ?", likePattern(name))
	query := "SELECT " + equipmentColumns + " FROM equipment" + w.String() + " ORDER BY name ASC, id ASC"
	query += w.limit(limit)
	return p.queryEquipment(ctx, query, w.args...)
}

func (p *Postgres) EquipmentIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT id FROM equipment WHERE owner_id = $1 ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) EquipmentCategoryCounts(ctx context.Context) (map[string]int, error) {
	return p.queryCounts(ctx, "SELECT category, COUNT(*) FROM equipment GROUP BY category")
}

func (p *Postgres) EquipmentCountsByOwner(ctx context.Context, ownerIDs []string) (map[string]int, error) {
	if len(ownerIDs) == 0 {
		return map[string]int{}, nil
	}
	return p.queryCounts(ctx,
		"SELECT owner_id, COUNT(*) FROM equipment WHERE owner_id = ANY($1) GROUP BY owner_id",
		pq.Array(ownerIDs))
}

func (p *Postgres) NearbyEquipment(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyEquipment, error) {
	query := "SELECT " + equipmentColumns + ", distance_km FROM (SELECT *, " + haversineKm + " AS distance_km" +
		" FROM equipment WHERE latitude IS NOT NULL AND longitude IS NOT NULL) e" +
		" WHERE distance_km <= $3 ORDER BY distance_km ASC, id ASC LIMIT $4"

	rows, err := p.db.QueryContext(ctx, query, lat, lon, radiusKm, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.NearbyEquipment{}
	for rows.Next() {
		var n models.NearbyEquipment
		if err := scanEquipment(rows, &n.Equipment, &n.DistanceKm); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) queryEquipment(ctx context.Context, query string, args ...interface{}) ([]models.Equipment, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Equipment{}
	for rows.Next() {
		var e models.Equipment
		if err := scanEquipment(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEquipment(rows *sql.Rows, e *models.Equipment, extra ...interface{}) error {
	var (
		pricePerDay, pricePerHour, rating, lat, lon sql.NullFloat64
		horsepower, year                            sql.NullInt64
		features                                    pq.StringArray
	)
	dest := []interface{}{
		&e.ID, &e.OwnerID, &e.Name, &e.Category, &e.Brand, &e.Model,
		&e.Description, &e.Location, &e.FuelType,
		&pricePerDay, &pricePerHour, &rating, &e.ReviewCount, &e.IsAvailable,
		&horsepower, &year, &features, &lat, &lon, &e.CreatedAt,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	e.PricePerDay = nullFloat(pricePerDay)
	e.PricePerHour = nullFloat(pricePerHour)
	e.Rating = nullFloat(rating)
	e.Latitude = nullFloat(lat)
	e.Longitude = nullFloat(lon)
	e.Horsepower = nullInt(horsepower)
	e.Year = nullInt(year)
	e.Features = []string(features)
	return nil
}

// ==========================
// Labour
// ==========================

func labourWhere(f LabourFilter) *where {
	w := &where{}
	if f.Availability != "" {
		w.add("l.availability = ?", f.Availability)
	}
	if f.ActiveOnly {
		w.add("l.is_active = true")
	}
	if f.Skill != "" {
		w.add("EXISTS (SELECT 1 FROM unnest(l.skills) s WHERE s ILIKE ?)", likePattern(f.Skill))
	}
	return w
}

func (p *Postgres) CountLabour(ctx context.Context, f LabourFilter) (int, error) {
	return p.countWhere(ctx, " FROM labour_profiles l", labourWhere(f))
}

func (p *Postgres) ListLabour(ctx context.Context, f LabourFilter, limit int) ([]models.LabourProfile, error) {
	w := labourWhere(f)
	query := "SELECT " + labourColumns + labourFrom + w.String() + " ORDER BY l.average_rating DESC NULLS LAST, l.id ASC"
	query += w.limit(limit)

	rows, err := p.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.LabourProfile{}
	for rows.Next() {
		var l models.LabourProfile
		if err := scanLabour(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) LabourByUser(ctx context.Context, userID string) (*models.LabourProfile, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT "+labourColumns+labourFrom+" WHERE l.user_id = $1 LIMIT 1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var l models.LabourProfile
	if err := scanLabour(rows, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanLabour(rows *sql.Rows, l *models.LabourProfile) error {
	var (
		dailyRate, hourlyRate, rating sql.NullFloat64
		skills                        pq.StringArray
	)
	if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &skills, &l.ExperienceYears,
		&dailyRate, &hourlyRate, &l.Location, &l.Availability,
		&rating, &l.ReviewCount, &l.IsActive); err != nil {
		return err
	}
	l.Skills = []string(skills)
	l.DailyRate = nullFloat(dailyRate)
	l.HourlyRate = nullFloat(hourlyRate)
	l.Rating = nullFloat(rating)
	return nil
}

// ==========================
// Users
// ==========================

func userWhere(f UserFilter) *where {
	w := &where{}
	if f.Role != "" {
		w.add("? = ANY(roles)", f.Role)
	}
	if f.VerifiedOnly {
		w.add("is_verified = true")
	}
	return w
}

func (p *Postgres) CountUsers(ctx context.Context, f UserFilter) (int, error) {
	return p.countWhere(ctx, " FROM user_profiles", userWhere(f))
}

func (p *Postgres) ListUsers(ctx context.Context, f UserFilter, limit int) ([]models.UserProfile, error) {
	w := userWhere(f)
	query := "SELECT " + userColumns + " FROM user_profiles" + w.String() + " ORDER BY name ASC, id ASC"
	query += w.limit(limit)

	rows, err := p.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.UserProfile{}
	for rows.Next() {
		var u models.UserProfile
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (p *Postgres) UserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT "+userColumns+" FROM user_profiles WHERE id = $1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var u models.UserProfile
	if err := scanUser(rows, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(rows *sql.Rows, u *models.UserProfile) error {
	var roles pq.StringArray
	if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.City, &u.State, &u.Bio, &roles, &u.IsVerified); err != nil {
		return err
	}
	u.Roles = []string(roles)
	return nil
}

func (p *Postgres) UserRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (p *Postgres) UserNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := p.db.QueryContext(ctx, "SELECT id, COALESCE(name, '') FROM user_profiles WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// ==========================
// Reviews
// ==========================

func reviewWhere(f ReviewFilter) *where {
	w := &where{}
	if len(f.EquipmentIDs) > 0 {
		w.add("equipment_id = ANY(?)", pq.Array(f.EquipmentIDs))
	}
	if f.ReviewerID != "" {
		w.add("reviewer_id = ?", f.ReviewerID)
	}
	return w
}

func (p *Postgres) CountReviews(ctx context.Context, f ReviewFilter) (int, error) {
	return p.countWhere(ctx, " FROM reviews", reviewWhere(f))
}

func (p *Postgres) AverageRating(ctx context.Context) (float64, error) {
	var avg float64
	if err := p.db.QueryRowContext(ctx, "SELECT COALESCE(AVG(rating), 0) FROM reviews").Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

func (p *Postgres) ListReviews(ctx context.Context, f ReviewFilter, limit int) ([]models.Review, error) {
	w := reviewWhere(f)
	query := "SELECT " + reviewColumns + " FROM reviews" + w.String() + " ORDER BY created_at DESC, id ASC"
	query += w.limit(limit)

	rows, err := p.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.EquipmentID, &r.ReviewerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ==========================
// Bookings
// ==========================

func bookingWhere(f BookingFilter) *where {
	w := &where{}
	if len(f.Statuses) > 0 {
		w.add("status = ANY(?)", pq.Array(f.Statuses))
	}
	if f.ParticipantID != "" {
		if len(f.OwnedEquipmentIDs) > 0 {
			w.add("(renter_id = ? OR equipment_id = ANY(?))", f.ParticipantID, pq.Array(f.OwnedEquipmentIDs))
		} else {
			w.add("renter_id = ?", f.ParticipantID)
		}
	}
	if len(f.EquipmentIDs) > 0 {
		w.add("equipment_id = ANY(?)", pq.Array(f.EquipmentIDs))
	}
	if f.StartFrom != "" {
		w.add("start_date >= ?::date", f.StartFrom)
	}
	if f.EndFrom != "" {
		w.add("end_date >= ?::date", f.EndFrom)
	}
	return w
}

func (p *Postgres) CountBookings(ctx context.Context, f BookingFilter) (int, error) {
	return p.countWhere(ctx, " FROM bookings", bookingWhere(f))
}

func (p *Postgres) ListBookings(ctx context.Context, f BookingFilter, limit int) ([]models.Booking, error) {
	w := bookingWhere(f)
	order := " ORDER BY created_at DESC, id ASC"
	if f.SortByStart {
		order = " ORDER BY start_date ASC, id ASC"
	}
	query := "SELECT " + bookingColumns + " FROM bookings" + w.String() + order
	query += w.limit(limit)

	rows, err := p.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		var (
			b      models.Booking
			amount sql.NullFloat64
		)
		if err := rows.Scan(&b.ID, &b.EquipmentID, &b.RenterID, &b.StartDate, &b.EndDate,
			&b.TotalDays, &amount, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.TotalAmount = nullFloat(amount)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ==========================
// Payments and messages
// ==========================

func (p *Postgres) CountPayments(ctx context.Context, userID string) (int, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	return p.countWhere(ctx, " FROM payments", w)
}

func (p *Postgres) ListPayments(ctx context.Context, userID string, limit int) ([]models.Payment, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	query := "SELECT " + paymentColumns + " FROM payments" + w.String() + " ORDER BY created_at DESC, id ASC"
	query += w.limit(limit)

	rows, err := p.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		var pay models.Payment
		if err := rows.Scan(&pay.ID, &pay.BookingID, &pay.UserID, &pay.Amount, &pay.Currency,
			&pay.Status, &pay.Method, &pay.TransactionID, &pay.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pay)
	}
	return out, rows.Err()
}

func (p *Postgres) PaymentTotals(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT status, COALESCE(SUM(amount), 0) FROM payments WHERE user_id = $1 GROUP BY status", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]float64{}
	for rows.Next() {
		var (
			status string
			sum    float64
		)
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, err
		}
		totals[status] = sum
	}
	return totals, rows.Err()
}

func (p *Postgres) CountMessages(ctx context.Context, userID string, unreadOnly bool) (int, error) {
	w := &where{}
	if unreadOnly {
		w.add("receiver_id = ?", userID)
		w.add("is_read = false")
	} else {
		w.add("(sender_id = ? OR receiver_id = $1)", userID)
	}
	return p.countWhere(ctx, " FROM messages", w)
}

func (p *Postgres) ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	w := &where{}
	w.add("(sender_id = ? OR receiver_id = $1)", userID)
	query := "SELECT " + messageColumns + " FROM messages" + w.String() + " ORDER BY created_at DESC, id ASC"
	query += w.limit(limit)

	rows, err := p.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.BookingID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ==========================
// Helpers
// ==========================

func (p *Postgres) queryCounts(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
