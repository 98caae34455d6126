package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/etfmomo/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, _ := New(context.Background(), &config.Config{})
	limiter := NewRateLimiter(client, "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), YahooRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, YahooRateLimit.Limit, remaining)

	assert.NoError(t, limiter.Bound(YahooRateLimit).Wait(context.Background()))
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(context.Background(), &config.Config{})
	cache := NewCache(client, "test")

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "key", "v", time.Minute))
	assert.NoError(t, cache.Delete(context.Background(), "key"))
}

func TestCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "momo")

	mock.ExpectGet("momo:cache:universe:NSEETF").SetVal(`["NIFTYBEES.NS","GOLDBEES.NS"]`)

	var symbols []string
	found, err := cache.Get(context.Background(), UniverseKey("nseetf"), &symbols)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"NIFTYBEES.NS", "GOLDBEES.NS"}, symbols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "momo")

	mock.ExpectGet("momo:cache:universe:NSEETF").RedisNil()

	var symbols []string
	found, err := cache.Get(context.Background(), UniverseKey("NSEETF"), &symbols)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "momo")

	mock.ExpectGet("momo:cache:universe:NSEETF").SetErr(errors.New("connection reset"))

	var symbols []string
	found, err := cache.Get(context.Background(), UniverseKey("NSEETF"), &symbols)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCache_SetAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "momo")

	mock.ExpectSet("momo:cache:universe:NSEETF", []byte(`["NIFTYBEES.NS"]`), TTLShort).SetVal("OK")
	mock.ExpectDel("momo:cache:universe:NSEETF").SetVal(1)

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, UniverseKey("NSEETF"), []string{"NIFTYBEES.NS"}, TTLShort))
	require.NoError(t, cache.Delete(ctx, UniverseKey("NSEETF")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKeys(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "HistoryKey",
			fn:       func() string { return HistoryKey("niftybees.ns", start, end) },
			expected: "history:NIFTYBEES.NS:2024-01-31:2025-01-31",
		},
		{
			name:     "UniverseKey",
			fn:       func() string { return UniverseKey("NSEETF") },
			expected: "universe:NSEETF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
