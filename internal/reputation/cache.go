package reputation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/geoippro/internal/risk"
	"github.com/richxcame/geoippro/pkg/logger"
	"github.com/richxcame/geoippro/pkg/redis"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "geoippro:reputation:"

var cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geoippro_reputation_cache_lookups_total",
	Help: "Reputation cache lookups by result (hit, miss, error)",
}, []string{"result"})

// CachedClient memoizes successful lookups in Redis. Cache errors fall
// through to the wrapped client.
type CachedClient struct {
	next  risk.ReputationClient
	cache *redis.Client
	ttl   time.Duration
}

var _ risk.ReputationClient = (*CachedClient)(nil)

// NewCachedClient wraps next with a Redis cache.
func NewCachedClient(next risk.ReputationClient, cache *redis.Client, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, cache: cache, ttl: ttl}
}

// Lookup serves from cache when possible.
func (c *CachedClient) Lookup(ctx context.Context, q risk.ReputationQuery) (*risk.ReputationReport, error) {
	key := cacheKey(q)
	log := logger.WithContext(ctx)

	var cached risk.ReputationReport
	err := c.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return &cached, nil
	case errors.Is(err, redis.ErrCacheMiss):
		cacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		cacheLookupsTotal.WithLabelValues("error").Inc()
		log.Warn("reputation cache read failed", zap.Error(err))
	}

	report, err := c.next.Lookup(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetJSON(ctx, key, report, c.ttl); err != nil {
		log.Warn("reputation cache write failed", zap.Error(err))
	}
	return report, nil
}

// cacheKey hashes the identity fields so no PII is stored in key names.
// The API key is left out; reports do not depend on who asks.
func cacheKey(q risk.ReputationQuery) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(strings.TrimSpace(q.Email)),
		q.IP,
		strings.TrimSpace(q.Name),
		strings.TrimSpace(q.Phone),
	}, "\x1f")))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}
