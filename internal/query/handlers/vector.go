package handlers

import (
	"context"
	"fmt"
	"strings"

	"agriserve-query/internal/common/metrics"
	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/knowledge"
	"agriserve-query/internal/query/store"
)

// Fallback stages, as recorded in smartquery_vector_fallback_total.
const (
	StageKnowledgeHits   = "kb_hits"
	StageNoHits          = "no_hits"
	StageEmbeddingFailed = "embedding_failed"
	StageSearchFailed    = "search_failed"
)

// vectorSearch answers free-text questions from the knowledge base, falling
// back to a live snapshot whenever semantic search yields nothing.
func (h *Handlers) vectorSearch(ctx context.Context, message string) models.QueryResult {
	hits, stage := h.knowledgeHits(ctx, message)
	metrics.VectorFallback.WithLabelValues(stage).Inc()
	if stage != StageKnowledgeHits {
		h.log.Info("vector search using live fallback", map[string]interface{}{"stage": stage})
		return h.liveFallback(ctx)
	}

	var b strings.Builder
	b.WriteString(format.HeaderCached)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "🔍 Found %d relevant result(s):\n\n", len(hits))
	b.WriteString(knowledge.BuildContext(hits))

	lines := append([]string{b.String()}, h.footer(ctx)...)
	return format.Build(
		strings.Join(lines, "\n"),
		knowledge.Sources(hits),
		true,
		string(intent.VectorSearch),
		models.FreshnessCached,
	)
}

// knowledgeHits runs embedding then similarity search and reports which stage ended the attempt.
func (h *Handlers) knowledgeHits(ctx context.Context, message string) ([]knowledge.Hit, string) {
	if h.embedder == nil || h.searcher == nil || strings.TrimSpace(message) == "" {
		return nil, StageEmbeddingFailed
	}

	vec, err := h.embedder.Embed(ctx, message)
	if err != nil || len(vec) == 0 {
		if err != nil {
			h.log.Warn("embedding failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, StageEmbeddingFailed
	}

	searchCtx := ctx
	if h.opts.KnowledgeTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, h.opts.KnowledgeTimeout)
		defer cancel()
	}
	hits, err := h.searcher.Search(searchCtx, vec, h.opts.Knowledge)
	if err != nil {
		h.log.Warn("knowledge search failed", map[string]interface{}{
			"backend": h.searcher.Name(),
			"error":   err.Error(),
		})
		return nil, StageSearchFailed
	}
	if len(hits) == 0 {
		return nil, StageNoHits
	}
	h.log.Debug("knowledge hits", map[string]interface{}{
		"backend": h.searcher.Name(),
		"summary": knowledge.Summary(hits),
	})
	return hits, StageKnowledgeHits
}

// liveFallback reads a small slice of available equipment and labour plus the
// booking total straight from the store.
func (h *Handlers) liveFallback(ctx context.Context) models.QueryResult {
	n := h.opts.LiveFallbackLimit
	var (
		equipment []models.Equipment
		labour    []models.LabourProfile
		bookings  int
		stats     models.PlatformStats
	)
	parallel(
		func() {
			rows, err := h.store.ListEquipment(ctx, store.EquipmentFilter{AvailableOnly: true}, n)
			if err != nil {
				h.degrade(intent.VectorSearch, "live equipment", err)
				return
			}
			equipment = rows
		},
		func() {
			rows, err := h.store.ListLabour(ctx, store.LabourFilter{Availability: models.LabourAvailable, ActiveOnly: true}, n)
			if err != nil {
				h.degrade(intent.VectorSearch, "live labour", err)
				return
			}
			labour = rows
		},
		func() {
			total, err := h.store.CountBookings(ctx, store.BookingFilter{})
			if err != nil {
				h.degrade(intent.VectorSearch, "live bookings", err)
				return
			}
			bookings = total
		},
		func() { stats = h.platformStats(ctx) },
	)

	p := newPage(format.HeaderLive)
	p.add("No matching entries in the knowledge base. Current platform snapshot:", "")

	p.addf("🚜 Available Equipment (top %d):", n)
	if len(equipment) == 0 {
		p.add("  No equipment currently available.")
	}
	for i, e := range equipment {
		p.addf("  %d. %s (%s) - %s/day - %s - %s",
			i+1,
			format.OrNA(e.Name),
			format.OrNA(e.Category),
			format.Currency(e.PricePerDay),
			format.OrNA(e.Location),
			format.Rating(e.Rating),
		)
	}

	p.add("")
	p.addf("👷 Available Labour (top %d):", n)
	if len(labour) == 0 {
		p.add("  No labour currently available.")
	}
	for i, l := range labour {
		p.addf("  %d. %s - %s - %s/day - %s - %s",
			i+1,
			format.OrNA(l.Name),
			format.JoinOrNA(format.FirstN(l.Skills, 3)),
			format.Currency(l.DailyRate),
			format.OrNA(l.Location),
			format.Rating(l.Rating),
		)
	}

	p.add("")
	p.addf("📋 Bookings: %d total bookings on the platform", bookings)
	p.add(FooterLines(stats, h.now())...)

	return p.result(intent.VectorSearch, len(equipment)+len(labour) > 0,
		"equipment table filtered by is_available=true (live fallback)",
		"labour_profiles table filtered by availability=available (live fallback)",
		"bookings table count (live fallback)",
	)
}
