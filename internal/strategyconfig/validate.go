package strategyconfig

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // Asia/Kolkata on hosts without a zoneinfo database

	"github.com/wonny/etfmomo/internal/contracts"
)

// ValidationError is a fatal configuration problem
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a legal but unusual setting
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Ranking ===
	if _, err := cfg.Method(); err != nil {
		return ValidationError{"ranking.method", err.Error()}
	}

	// === Filters ===
	if cfg.Filters.MinVolumeCr < 0 {
		return ValidationError{"filters.min_volume_cr", "must be >= 0"}
	}
	if cfg.Filters.DMAWindow < 1 {
		return ValidationError{"filters.dma_window", "must be >= 1"}
	}
	if cfg.Filters.MinAwayFromATH > 0 {
		return ValidationError{"filters.min_away_from_ath", "must be <= 0"}
	}

	// === Data ===
	if err := validateDate(cfg.Data.EpochStart); err != nil {
		return ValidationError{"data.epoch_start", err.Error()}
	}
	if cfg.Data.ChunkSize < 1 {
		return ValidationError{"data.chunk_size", "must be >= 1"}
	}
	if cfg.Data.Workers < 1 {
		return ValidationError{"data.workers", "must be >= 1"}
	}

	// === Quality ===
	if cfg.Quality.MinBars < 2 {
		return ValidationError{"quality.min_bars", "must be >= 2"}
	}
	if cfg.Quality.StaleAfter < 1 {
		return ValidationError{"quality.stale_after", "must be >= 1"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Thresholds() != contracts.DefaultFilterThresholds() {
		warnings = append(warnings, Warning{
			Code:    "CUSTOM_FILTERS",
			Message: "filter thresholds differ from the published momentum filters",
		})
	}

	if cfg.Filters.MinVolumeCr < 0.5 {
		warnings = append(warnings, Warning{
			Code:    "LOW_LIQUIDITY",
			Message: "median volume floor below 0.5 crore admits thinly traded ETFs",
		})
	}

	if cfg.Data.ChunkSize > 100 {
		warnings = append(warnings, Warning{
			Code:    "LARGE_CHUNK",
			Message: "chunks above 100 symbols tend to hit the quote API rate limit",
		})
	}

	if cfg.Data.Benchmark == "" && cfg.Ranking.Diagnostics {
		warnings = append(warnings, Warning{
			Code:    "NO_BENCHMARK",
			Message: "diagnostics enabled without a benchmark: beta will be undefined",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateDate(s string) error {
	if s == "" {
		return errors.New("required")
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return errors.New("must be YYYY-MM-DD")
	}
	return nil
}
