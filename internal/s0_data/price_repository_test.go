package s0_data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/config"
	"github.com/wonny/etfmomo/pkg/database"
)

func TestPriceRepository_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	symbol := "TEST" + time.Now().Format("150405") + ".NS"
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM price_history WHERE symbol = $1`, symbol)
	})

	repo := NewPriceRepository(db.Pool)

	latest, err := repo.LatestDate(ctx, symbol)
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	bars := []contracts.Bar{
		bar(d(2024, 1, 2), 100, 101, 10),
		bar(d(2024, 1, 3), 102, 103, 20),
	}
	n, err := repo.SaveBars(ctx, symbol, bars)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// upsert overwrites
	bars[1].Close = 104
	_, err = repo.SaveBars(ctx, symbol, bars[1:])
	require.NoError(t, err)

	got, err := repo.GetBars(ctx, symbol, d(2024, 1, 1), d(2024, 1, 31))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, d(2024, 1, 2), got[0].Date)
	assert.Equal(t, 104.0, got[1].Close)

	latest, err = repo.LatestDate(ctx, symbol)
	require.NoError(t, err)
	assert.Equal(t, d(2024, 1, 3), latest)
}
