package embedding

import (
	"context"

	"agriserve-query/internal/common/logger"
)

// Service is the cache-first embedding lookup used by the vector fallback.
type Service struct {
	cache    Cache
	provider Provider
	scrubber *Scrubber
	log      logger.Logger
}

func NewService(cache Cache, provider Provider, scrubber *Scrubber, log logger.Logger) *Service {
	if scrubber == nil {
		scrubber = NewScrubber()
	}
	return &Service{cache: cache, provider: provider, scrubber: scrubber, log: log}
}

// Embed returns the cached vector for the normalized query, or scrubs the raw
// text, asks the provider and caches the result. Failures are not cached.
func (s *Service) Embed(ctx context.Context, query string) ([]float32, error) {
	key := NormalizeKey(query)
	if vec, ok := s.cache.Get(ctx, key); ok {
		return vec, nil
	}

	vec, err := s.provider.Embed(ctx, s.scrubber.Scrub(query))
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, vec)
	s.log.Debug("embedding cached", map[string]interface{}{"dimensions": len(vec)})
	return vec, nil
}
