package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanKey(t *testing.T) {
	assert.Equal(t, "spvplanning:plan:3f2a", planKey("3f2a"))
	assert.NotEqual(t, latestKey, planKey("latest-run"))
}

// unreachableCache points at a port nothing listens on, without retries
func unreachableCache(t *testing.T) *PlanCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	c := NewPlanCache(client, time.Minute)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPlanCache_Unreachable(t *testing.T) {
	c := unreachableCache(t)
	ctx := context.Background()

	err := c.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach redis")

	err = c.SetPlan(ctx, "run-1", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to cache plan run-1")

	data, err := c.GetLatestPlan(ctx)
	require.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), latestKey)
}
