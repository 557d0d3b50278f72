// Package handlers turns one classified intent into a formatted QueryResult
// using live reads from the operational store.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/knowledge"
	"agriserve-query/internal/query/store"
)

// Row caps per intent family.
const (
	limitCategoryCount = 20
	limitListing       = 30
	limitLabour        = 25
	limitSearch        = 10
	limitReviews       = 20
	limitBookings      = 20
	limitIdle          = 30
	limitPayments      = 20
	limitMessages      = 20
	limitMostRented    = 10
	limitEquipmentName = 5

	defaultLiveFallbackLimit = 5
)

// Embedder produces the query vector for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	Knowledge         knowledge.Options
	KnowledgeTimeout  time.Duration
	LiveFallbackLimit int
}

// Handlers owns one handler per intent kind. It is safe for concurrent use.
type Handlers struct {
	store    store.Store
	embedder Embedder
	searcher knowledge.Searcher
	opts     Options
	now      func() time.Time
	log      logger.Logger
}

// New wires the handlers. embedder and searcher may be nil, in which case the
// vector route always answers from the live fallback.
func New(st store.Store, embedder Embedder, searcher knowledge.Searcher, opts Options, now func() time.Time, log logger.Logger) *Handlers {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.LiveFallbackLimit <= 0 {
		opts.LiveFallbackLimit = defaultLiveFallbackLimit
	}
	return &Handlers{
		store:    st,
		embedder: embedder,
		searcher: searcher,
		opts:     opts,
		now:      now,
		log:      log,
	}
}

// authNouns names what a caller-scoped intent shows, for the sign-in prompt.
var authNouns = map[intent.Kind]string{
	intent.MyBookings:         "bookings",
	intent.MyBookingStatus:    "bookings",
	intent.MyUpcomingBookings: "bookings",
	intent.MyEquipment:        "equipment",
	intent.MyProfile:          "profile",
	intent.MyReviews:          "reviews",
	intent.MyPayments:         "payments",
	intent.MyMessages:         "messages",
}

// AuthNoun returns the noun used in the sign-in prompt for a personal kind.
func AuthNoun(k intent.Kind) string {
	if n, ok := authNouns[k]; ok {
		return n
	}
	return "data"
}

// AuthRequired is the sign-in prompt for a personal kind. Every kind reports
// my_<noun>, so the booking variants all answer as my_bookings.
func AuthRequired(k intent.Kind) models.QueryResult {
	noun := AuthNoun(k)
	return format.AuthRequired("my_"+noun, noun)
}

// Dispatch runs the handler for in.Kind. A kind without a handler yields an
// error result.
func (h *Handlers) Dispatch(ctx context.Context, in intent.Intent, message string, caller models.CallerContext) models.QueryResult {
	if in.Kind.Personal() && caller.UserID == "" {
		return AuthRequired(in.Kind)
	}

	switch in.Kind {
	case intent.PlatformStats:
		return h.platformStatsReport(ctx)

	case intent.MyBookingStatus:
		return h.myBookingStatus(ctx, caller.UserID, in.Status)
	case intent.MyUpcomingBookings:
		return h.myUpcomingBookings(ctx, caller.UserID)
	case intent.MyBookings:
		return h.myBookings(ctx, caller.UserID)
	case intent.MyPayments:
		return h.myPayments(ctx, caller.UserID)
	case intent.MyMessages:
		return h.myMessages(ctx, caller.UserID)
	case intent.MyEquipment:
		return h.myEquipment(ctx, caller.UserID)
	case intent.MyProfile:
		return h.myProfile(ctx, caller.UserID)
	case intent.MyReviews:
		return h.myReviews(ctx, caller.UserID)

	case intent.AnalyticsMostRented:
		return h.analyticsMostRented(ctx)
	case intent.AnalyticsRevenue:
		return h.analyticsRevenue(ctx)
	case intent.AnalyticsIdle:
		return h.analyticsIdle(ctx)
	case intent.AnalyticsOverview:
		return h.analyticsOverview(ctx)

	case intent.CountEquipmentCategory:
		return h.countEquipmentCategory(ctx, in.Category)
	case intent.ListEquipmentCategory:
		return h.listEquipmentCategory(ctx, in.Category)
	case intent.CountEquipment:
		return h.countEquipment(ctx)
	case intent.ListEquipment:
		return h.listEquipment(ctx)
	case intent.AvailableEquipment:
		return h.availableEquipment(ctx)
	case intent.SearchEquipment:
		return h.searchEquipment(ctx, in.SearchTerm)

	case intent.SearchLabour:
		return h.searchLabour(ctx, in.SearchTerm)
	case intent.CountLabour:
		return h.countLabour(ctx)
	case intent.AvailableLabour:
		return h.availableLabour(ctx)
	case intent.ListLabour:
		return h.listLabour(ctx)

	case intent.CountProviders:
		return h.countProviders(ctx)
	case intent.ListProviders:
		return h.listProviders(ctx, caller)

	case intent.CountUsers:
		return h.countUsers(ctx)
	case intent.ListUsers:
		return h.listUsers(ctx, caller)

	case intent.ReviewsForEquipment:
		return h.reviewsForEquipment(ctx, in.EquipmentName)
	case intent.CountReviews:
		return h.countReviews(ctx)
	case intent.ListReviews:
		return h.listReviews(ctx)

	case intent.BookingStatus:
		return h.bookingStatus(ctx, in.Status, caller)
	case intent.CountBookings:
		return h.countBookings(ctx, caller)
	case intent.ListBookings:
		return h.listBookings(ctx, caller)

	case intent.EquipmentAvailability:
		return h.equipmentAvailability(ctx, in.EquipmentName)
	case intent.LabourAvailability:
		return h.labourAvailability(ctx)

	case intent.VectorSearch:
		return h.vectorSearch(ctx, message)
	}
	h.log.Error("no handler for intent", map[string]interface{}{"intent": string(in.Kind)})
	return format.ErrorResult(string(in.Kind), fmt.Sprintf("No handler for query type %q", in.Kind))
}

// ==========================
// Shared plumbing
// ==========================

// parallel runs fns concurrently and returns once all are done. A panic in any
// of them is re-raised on the calling goroutine.
func parallel(fns ...func()) {
	var wg conc.WaitGroup
	for _, fn := range fns {
		wg.Go(fn)
	}
	wg.Wait()
}

// page accumulates the lines of one context block.
type page struct {
	lines []string
}

func newPage(header string) *page {
	return &page{lines: []string{header, ""}}
}

func (p *page) add(lines ...string) {
	p.lines = append(p.lines, lines...)
}

func (p *page) addf(f string, args ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintf(f, args...))
}

// table appends a blank line followed by the rendered table.
func (p *page) table(t *format.Table) {
	p.lines = append(p.lines, "")
	p.lines = append(p.lines, t.Lines()...)
}

// more appends the "... and N more" notice when rows were capped.
func (p *page) more(total, shown int, noun string) {
	if total > shown {
		p.add("", fmt.Sprintf("... and %d more %s", total-shown, noun))
	}
}

func (p *page) String() string {
	return strings.Join(p.lines, "\n")
}

func (p *page) result(k intent.Kind, hasContext bool, sources ...string) models.QueryResult {
	return format.Build(p.String(), sources, hasContext, string(k), models.FreshnessRealTime)
}

// fail converts a primary query failure into the standard error result.
func (h *Handlers) fail(k intent.Kind, what string, err error) models.QueryResult {
	h.log.Warn("primary query failed", map[string]interface{}{
		"intent": string(k),
		"error":  err.Error(),
	})
	return format.ErrorResult(string(k), fmt.Sprintf("%s: %v", what, err))
}

// degrade logs a secondary failure; the caller substitutes its default.
func (h *Handlers) degrade(k intent.Kind, what string, err error) {
	h.log.Debug("secondary query degraded", map[string]interface{}{
		"intent": string(k),
		"query":  what,
		"error":  err.Error(),
	})
}

// ==========================
// Platform summary footer
// ==========================

func (h *Handlers) platformStats(ctx context.Context) models.PlatformStats {
	var s models.PlatformStats
	count := func(table store.Table, dst *int) func() {
		return func() {
			n, err := h.store.Count(ctx, table)
			if err != nil {
				h.log.Debug("platform count failed", map[string]interface{}{
					"table": string(table),
					"error": err.Error(),
				})
				return
			}
			*dst = n
		}
	}
	parallel(
		count(store.TableEquipment, &s.TotalEquipment),
		count(store.TableUserProfiles, &s.TotalUsers),
		count(store.TableLabourProfiles, &s.TotalLabour),
		count(store.TableReviews, &s.TotalReviews),
		count(store.TableBookings, &s.TotalBookings),
	)
	return s
}

// FooterLines renders the platform summary block, blank line first.
func FooterLines(s models.PlatformStats, now time.Time) []string {
	return []string{
		"",
		"--- Platform Summary ---",
		fmt.Sprintf("Total Equipment: %d", s.TotalEquipment),
		fmt.Sprintf("Total Users: %d", s.TotalUsers),
		fmt.Sprintf("Total Labour Profiles: %d", s.TotalLabour),
		fmt.Sprintf("Total Reviews: %d", s.TotalReviews),
		fmt.Sprintf("Total Bookings: %d", s.TotalBookings),
		"Last Updated: " + format.Timestamp(now),
	}
}

func (h *Handlers) footer(ctx context.Context) []string {
	return FooterLines(h.platformStats(ctx), h.now())
}

// ==========================
// Name lookups
// ==========================

// uniq returns the distinct non-empty values in first-seen order.
func uniq(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// equipmentByID loads the named equipment rows. Failure yields an empty map.
func (h *Handlers) equipmentByID(ctx context.Context, k intent.Kind, ids []string) map[string]models.Equipment {
	out := map[string]models.Equipment{}
	ids = uniq(ids)
	if len(ids) == 0 {
		return out
	}
	rows, err := h.store.ListEquipment(ctx, store.EquipmentFilter{IDs: ids}, 0)
	if err != nil {
		h.degrade(k, "equipment lookup", err)
		return out
	}
	for _, e := range rows {
		out[e.ID] = e
	}
	return out
}

func (h *Handlers) equipmentNames(ctx context.Context, k intent.Kind, ids []string) map[string]string {
	out := map[string]string{}
	for id, e := range h.equipmentByID(ctx, k, ids) {
		out[id] = e.Name
	}
	return out
}

func (h *Handlers) userNames(ctx context.Context, k intent.Kind, ids []string) map[string]string {
	ids = uniq(ids)
	if len(ids) == 0 {
		return map[string]string{}
	}
	names, err := h.store.UserNames(ctx, ids)
	if err != nil {
		h.degrade(k, "user lookup", err)
		return map[string]string{}
	}
	return names
}

func nameOr(names map[string]string, id, fallback string) string {
	if n := names[id]; n != "" {
		return n
	}
	return fallback
}

func intOrNA(v *int) string {
	if v == nil {
		return format.NA
	}
	return fmt.Sprintf("%d", *v)
}

func daysOrNA(n int) string {
	if n <= 0 {
		return format.NA
	}
	return fmt.Sprintf("%d", n)
}
