package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: repository interfaces are defined here only

// PriceRepository stores daily bars
type PriceRepository interface {
	SaveBars(ctx context.Context, symbol string, bars []Bar) (int, error)
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
	LatestDate(ctx context.Context, symbol string) (time.Time, error)
}
