package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "agriserve-query/internal/common/errors"
)

const (
	DefaultIndex   = "knowledge_embeddings"
	embeddingField = "embedding"
	minCandidates  = 100
)

// ElasticsearchSearcher runs an approximate kNN query over a dense_vector field
// indexed with cosine similarity.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSearcher(client *elasticsearch.Client, index string) *ElasticsearchSearcher {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchSearcher{client: client, index: index}
}

func (s *ElasticsearchSearcher) Name() string { return "elasticsearch" }

type esSource struct {
	SourceType string                 `json:"source_type"`
	SourceID   string                 `json:"source_id"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type esResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64  `json:"_score"`
			Source esSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSearcher) Search(ctx context.Context, embedding []float32, opts Options) ([]Hit, error) {
	opts = opts.withDefaults()

	candidates := opts.Limit * 10
	if candidates < minCandidates {
		candidates = minCandidates
	}
	queryBody := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          embeddingField,
			"query_vector":   embedding,
			"k":              opts.Limit,
			"num_candidates": candidates,
		},
		"size":    opts.Limit,
		"_source": []string{"source_type", "source_id", "content", "metadata"},
	}

	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, apperrors.NewKnowledgeSearchFailedError(s.Name(), err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, searchError(ctx, s.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewKnowledgeSearchFailedError(s.Name(), fmt.Errorf("search failed: %s", res.String()))
	}

	var r esResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewKnowledgeSearchFailedError(s.Name(), err)
	}

	hits := []Hit{}
	for _, h := range r.Hits.Hits {
		// cosine _score is (1 + cos) / 2
		similarity := 2*h.Score - 1
		if similarity < opts.Threshold {
			continue
		}
		meta := h.Source.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		hits = append(hits, Hit{
			SourceType: h.Source.SourceType,
			SourceID:   h.Source.SourceID,
			Content:    h.Source.Content,
			Similarity: similarity,
			Metadata:   meta,
		})
	}
	return hits, nil
}
