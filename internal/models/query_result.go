// internal/models/query_result.go
package models

// DataFreshness tells the downstream model whether context came from live tables or the knowledge base.
type DataFreshness string

const (
	FreshnessRealTime DataFreshness = "real-time"
	FreshnessCached   DataFreshness = "cached"
)

// QueryResult is the single value returned for every message.
type QueryResult struct {
	Context       string        `json:"context"`
	Sources       []string      `json:"sources"`
	HasContext    bool          `json:"hasContext"`
	QueryType     string        `json:"queryType"`
	DataFreshness DataFreshness `json:"dataFreshness"`
}

// AccessDecision is the gate's verdict for one (intent, table) pair.
type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}
