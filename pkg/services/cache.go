package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// SolutionCache stores the full computed solution list for an incident so
// the load-more endpoint can page through it without recomputing the plan.
// With a nil Redis client it degrades to an in-process store, so lazy
// loading keeps working on a single instance without Redis.
type SolutionCache interface {
	Put(ctx context.Context, incidentID string, plan *models.ResolutionPlan)
	Get(ctx context.Context, incidentID string) (*models.ResolutionPlan, bool)
	Invalidate(ctx context.Context, incidentID string)
}

type localEntry struct {
	plan      *models.ResolutionPlan
	expiresAt time.Time
}

type solutionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	local map[string]localEntry
	now   func() time.Time
}

// NewSolutionCache creates a new SolutionCache. client may be nil.
func NewSolutionCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) SolutionCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &solutionCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("solution-cache"),
		local:  make(map[string]localEntry),
		now:    time.Now,
	}
}

var _ SolutionCache = (*solutionCache)(nil)

func cacheKey(incidentID string) string {
	return fmt.Sprintf("incident:%s:solutions", incidentID)
}

// Put is best-effort: a cache write failure costs a "refresh the page"
// later, so it is logged and swallowed.
func (c *solutionCache) Put(ctx context.Context, incidentID string, plan *models.ResolutionPlan) {
	if plan == nil {
		return
	}

	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.evictExpiredLocked()
		c.local[incidentID] = localEntry{plan: plan, expiresAt: c.now().Add(c.ttl)}
		return
	}

	payload, err := json.Marshal(plan)
	if err != nil {
		c.logger.Warn("Failed to encode solution plan",
			zap.String("incident_id", incidentID),
			zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(incidentID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache solution plan",
			zap.String("incident_id", incidentID),
			zap.Error(err))
	}
}

func (c *solutionCache) Get(ctx context.Context, incidentID string) (*models.ResolutionPlan, bool) {
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		entry, ok := c.local[incidentID]
		if !ok || c.now().After(entry.expiresAt) {
			delete(c.local, incidentID)
			return nil, false
		}
		return entry.plan, true
	}

	payload, err := c.client.Get(ctx, cacheKey(incidentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Failed to read solution cache",
				zap.String("incident_id", incidentID),
				zap.Error(err))
		}
		return nil, false
	}

	var plan models.ResolutionPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		c.logger.Warn("Corrupt solution cache entry",
			zap.String("incident_id", incidentID),
			zap.Error(err))
		return nil, false
	}
	return &plan, true
}

func (c *solutionCache) Invalidate(ctx context.Context, incidentID string) {
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.local, incidentID)
		return
	}
	if err := c.client.Del(ctx, cacheKey(incidentID)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate solution cache",
			zap.String("incident_id", incidentID),
			zap.Error(err))
	}
}

func (c *solutionCache) evictExpiredLocked() {
	now := c.now()
	for id, entry := range c.local {
		if now.After(entry.expiresAt) {
			delete(c.local, id)
		}
	}
}
