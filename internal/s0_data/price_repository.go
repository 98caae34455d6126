package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/etfmomo/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository
// ⭐ SSOT: the price_history table is read and written here only
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

const upsertBar = `
	INSERT INTO price_history (symbol, trade_date, open_price, high_price, low_price, close_price, volume, fetched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	ON CONFLICT (symbol, trade_date) DO UPDATE SET
		open_price = EXCLUDED.open_price,
		high_price = EXCLUDED.high_price,
		low_price = EXCLUDED.low_price,
		close_price = EXCLUDED.close_price,
		volume = EXCLUDED.volume,
		fetched_at = EXCLUDED.fetched_at
`

// SaveBars upserts bars for a symbol in a single batch and returns the row count
func (r *PriceRepository) SaveBars(ctx context.Context, symbol string, bars []contracts.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(upsertBar, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	saved := 0
	for range bars {
		tag, err := br.Exec()
		if err != nil {
			return saved, fmt.Errorf("upsert bars for %s: %w", symbol, err)
		}
		saved += int(tag.RowsAffected())
	}
	return saved, nil
}

// GetBars retrieves bars for a symbol within [from, to], oldest first
func (r *PriceRepository) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT trade_date,
		       COALESCE(open_price, close_price),
		       COALESCE(high_price, close_price),
		       COALESCE(low_price, close_price),
		       close_price,
		       COALESCE(volume, 0)
		FROM price_history
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3 AND close_price IS NOT NULL
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = b.Date.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LatestDate returns the newest stored trade date, or the zero time if none
func (r *PriceRepository) LatestDate(ctx context.Context, symbol string) (time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(trade_date) FROM price_history WHERE symbol = $1`, symbol).Scan(&latest)
	if err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return latest.UTC(), nil
}
