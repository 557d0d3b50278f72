package format

import (
	"fmt"

	"agriserve-query/internal/models"
)

const (
	HeaderPlatform  = "=== PLATFORM DATA (Real-time) ==="
	HeaderCached    = "=== PLATFORM DATA (Cached Knowledge Base) ==="
	HeaderLive      = "=== PLATFORM DATA (Live Snapshot) ==="
	HeaderAnalytics = "=== ANALYTICS (Real-time) ==="
)

// PersonalHeader is the banner for caller-scoped results, e.g. YOUR BOOKINGS.
func PersonalHeader(noun string) string {
	return fmt.Sprintf("=== YOUR %s (Real-time) ===", noun)
}

func Build(context string, sources []string, hasContext bool, queryType string, freshness models.DataFreshness) models.QueryResult {
	if sources == nil {
		sources = []string{}
	}
	return models.QueryResult{
		Context:       context,
		Sources:       sources,
		HasContext:    hasContext,
		QueryType:     queryType,
		DataFreshness: freshness,
	}
}

// ErrorResult is returned when a handler's primary query fails.
func ErrorResult(queryType, message string) models.QueryResult {
	return Build(
		fmt.Sprintf("=== PLATFORM DATA ===\n\n⚠️ Error: %s\n\nThe system encountered an issue fetching live data. Please try again.", message),
		[]string{"error"},
		false,
		queryType,
		models.FreshnessRealTime,
	)
}

// AuthRequired is returned for caller-scoped intents without a user id.
func AuthRequired(queryType, noun string) models.QueryResult {
	return Build(
		fmt.Sprintf("⚠️ You need to be logged in to view your %s. Please sign in first.", noun),
		nil,
		false,
		queryType,
		models.FreshnessRealTime,
	)
}

// Denied is returned when the access gate refuses a request.
func Denied(queryType, reason string) models.QueryResult {
	return Build(
		fmt.Sprintf("=== ACCESS DENIED ===\n\n🔒 %s", reason),
		[]string{"rbac"},
		false,
		queryType,
		models.FreshnessRealTime,
	)
}

// IsErrorResult reports whether r came from ErrorResult.
func IsErrorResult(r models.QueryResult) bool {
	return len(r.Sources) == 1 && r.Sources[0] == "error"
}
