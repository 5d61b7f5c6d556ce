package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
}

func TestJSONFetchCachesUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	c := NewJSON(client, "billdesk", time.Minute, nil)

	calls := 0
	loader := func(ctx context.Context) (any, error) {
		calls++
		return profile{Name: "Aspire Solar"}, nil
	}
	var got profile
	require.NoError(t, c.Fetch(context.Background(), "settings", &got, loader))
	require.NoError(t, c.Fetch(context.Background(), "settings", &got, loader))
	assert.Equal(t, "Aspire Solar", got.Name)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("billdesk:settings"))

	c.Invalidate(context.Background(), "settings")
	require.NoError(t, c.Fetch(context.Background(), "settings", &got, loader))
	assert.Equal(t, 2, calls)
}

func TestJSONFetchFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewJSON(client, "billdesk", time.Minute, nil)
	mr.Close()

	var got profile
	require.NoError(t, c.Fetch(context.Background(), "settings", &got, func(ctx context.Context) (any, error) {
		return profile{Name: "direct"}, nil
	}))
	assert.Equal(t, "direct", got.Name)

	boom := errors.New("db down")
	err := c.Fetch(context.Background(), "settings", &got, func(ctx context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestNilJSONCacheCallsLoader(t *testing.T) {
	var c *JSON
	var got profile
	require.NoError(t, c.Fetch(context.Background(), "k", &got, func(ctx context.Context) (any, error) {
		return profile{Name: "x"}, nil
	}))
	assert.Equal(t, "x", got.Name)
	c.Invalidate(context.Background(), "k")
}
