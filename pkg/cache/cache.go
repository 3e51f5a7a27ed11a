package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const latestKey = "spvplanning:plan:latest"

func planKey(runID string) string {
	return fmt.Sprintf("spvplanning:plan:%s", runID)
}

// PlanCache keeps serialized plans in Redis, keyed by run id, plus a pointer to the latest one
type PlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient creates a Redis client for the given address and database
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewPlanCache wraps a Redis client. A zero ttl keeps plans until they are overwritten.
func NewPlanCache(client *redis.Client, ttl time.Duration) *PlanCache {
	return &PlanCache{client: client, ttl: ttl}
}

// Ping checks that Redis is reachable
func (c *PlanCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// SetPlan stores a plan under its run id and marks it as the latest plan
func (c *PlanCache) SetPlan(ctx context.Context, runID string, data []byte) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, planKey(runID), data, c.ttl)
	pipe.Set(ctx, latestKey, data, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache plan %s: %w", runID, err)
	}
	return nil
}

// GetPlan returns the cached plan for a run, or nil if it is not cached
func (c *PlanCache) GetPlan(ctx context.Context, runID string) ([]byte, error) {
	return c.get(ctx, planKey(runID))
}

// GetLatestPlan returns the most recently cached plan, or nil if there is none
func (c *PlanCache) GetLatestPlan(ctx context.Context) ([]byte, error) {
	return c.get(ctx, latestKey)
}

func (c *PlanCache) get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from cache: %w", key, err)
	}
	return data, nil
}

// Close closes the underlying client
func (c *PlanCache) Close() error {
	return c.client.Close()
}
