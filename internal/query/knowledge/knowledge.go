// Package knowledge searches the precomputed embedding corpus and renders hits for the prompt.
package knowledge

import (
	"context"
	"strconv"
	"strings"
)

// Hit is one knowledge-base row whose similarity met the threshold.
type Hit struct {
	SourceType string                 `json:"sourceType"`
	SourceID   string                 `json:"sourceId"`
	Content    string                 `json:"content"`
	Similarity float64                `json:"similarity"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type Options struct {
	Threshold float64
	Limit     int
}

// Searcher runs a similarity search. Hits are ordered by descending similarity.
type Searcher interface {
	Name() string
	Search(ctx context.Context, embedding []float32, opts Options) ([]Hit, error)
}

const (
	DefaultThreshold = 0.3
	DefaultLimit     = 10
)

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

// vectorLiteral renders a pgvector text literal, e.g. [0.1,0.2].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
