package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/etfmomo/internal/contracts"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/etf_momentum.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "etf_momentum", cfg.Meta.StrategyID)
	assert.Equal(t, contracts.DefaultFilterThresholds(), cfg.Thresholds())

	method, err := cfg.Method()
	require.NoError(t, err)
	assert.Equal(t, contracts.MethodAvgSharpe, method)

	// the shipped file matches the built-in defaults
	want, err := Hash(Default())
	require.NoError(t, err)
	got, err := Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, got, 64)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
ranking:
  method: sharpe3m
filters:
  min_return_12m: 10
`))
	require.NoError(t, err)

	method, err := cfg.Method()
	require.NoError(t, err)
	assert.Equal(t, contracts.MethodSharpe3M, method)
	assert.Equal(t, 10.0, cfg.Filters.MinReturn12M)
	assert.Equal(t, 200, cfg.Filters.DMAWindow, "unset fields keep defaults")
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Epoch())
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("filters:\n  min_volume: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_volume")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"bad method", func(c *Config) { c.Ranking.Method = "momentum" }, "ranking.method"},
		{"negative volume", func(c *Config) { c.Filters.MinVolumeCr = -1 }, "filters.min_volume_cr"},
		{"zero dma", func(c *Config) { c.Filters.DMAWindow = 0 }, "filters.dma_window"},
		{"positive ath", func(c *Config) { c.Filters.MinAwayFromATH = 5 }, "filters.min_away_from_ath"},
		{"bad epoch", func(c *Config) { c.Data.EpochStart = "01/01/2000" }, "data.epoch_start"},
		{"zero chunk", func(c *Config) { c.Data.ChunkSize = 0 }, "data.chunk_size"},
		{"zero workers", func(c *Config) { c.Data.Workers = 0 }, "data.workers"},
		{"min bars", func(c *Config) { c.Quality.MinBars = 1 }, "quality.min_bars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Filters.MinVolumeCr = 0.2
	cfg.Data.ChunkSize = 200
	cfg.Data.Benchmark = ""

	codes := make(map[string]bool)
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.True(t, codes["CUSTOM_FILTERS"])
	assert.True(t, codes["LOW_LIQUIDITY"])
	assert.True(t, codes["LARGE_CHUNK"])
	assert.True(t, codes["NO_BENCHMARK"])
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranking:\n  method: nope\n"), 0o644))
	_, err = LoadOrDefault(path)
	assert.Error(t, err)
}
