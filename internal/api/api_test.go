package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/etfmomo/internal/api/handlers"
	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
	"github.com/wonny/etfmomo/pkg/metrics"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, cfg contracts.RunConfig, progress contracts.ProgressFunc) (*contracts.RankingReport, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if progress != nil {
		progress(contracts.Progress{Stage: contracts.StageData.String(), Done: 1, Total: 1, Percent: 100})
	}

	pass := contracts.FilterChecks{Liquidity: true, Trend: true, Momentum: true, Drawdown: true}
	good := contracts.RankedResult{
		InstrumentMetrics: contracts.InstrumentMetrics{
			Ticker: "NIFTYBEES", Symbol: "NIFTYBEES.NS", Close: 110, DMA200: 100,
			Horizons: []contracts.HorizonMetrics{{Horizon: "3M", Return: 5, Volatility: 10, Sharpe: 2}},
			AvgSharpe: 2, VolumeCr: 3, ATH: 115, AwayATH: -4.35,
		},
		Rank: 1, CompositeScore: 2, Checks: pass, FinalMomentum: true,
	}
	young := contracts.RankedResult{
		InstrumentMetrics: contracts.InstrumentMetrics{
			Ticker: "NEWETF", Symbol: "NEWETF.NS", Close: 50, DMA200: math.NaN(),
			Horizons: []contracts.HorizonMetrics{{Horizon: "3M", Return: math.NaN(), Volatility: math.NaN(), Sharpe: math.NaN()}},
			AvgSharpe: 0, VolumeCr: 2, ATH: 60, AwayATH: -16.67,
		},
		Rank: 2, Checks: contracts.FilterChecks{Liquidity: true, Momentum: true, Drawdown: true},
	}

	return &contracts.RankingReport{
		RunID:        fmt.Sprintf("run-%d", f.calls.Load()),
		LookbackDate: cfg.LookbackDate,
		Method:       cfg.Method,
		Universe:     cfg.Universe,
		Thresholds:   contracts.DefaultFilterThresholds(),
		All:          []contracts.RankedResult{good, young},
		Filtered:     []contracts.RankedResult{good},
		FilterCounts: map[string]int{"liquidity": 0, "trend": 1, "momentum": 0, "drawdown": 0},
		GeneratedAt:  time.Date(2024, 6, 28, 17, 0, 0, 0, time.UTC),
	}, nil
}

type testEnv struct {
	server *httptest.Server
	runner *fakeRunner
	store  *ReportStore
	hub    *ProgressHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	runner := &fakeRunner{}
	store := NewReportStore(4)
	hub := NewProgressHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	defaults := contracts.RunConfig{Method: contracts.MethodAvgSharpe, Universe: "NSEETF"}
	h := handlers.NewRankingHandler(runner, store, hub.ProgressFunc(), contracts.DefaultFilterThresholds(), defaults, log)

	srv := httptest.NewServer(NewRouter(h, hub, metrics.New(), log))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, runner: runner, store: store, hub: hub}
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, env.server.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetRankings_RunsThenCaches(t *testing.T) {
	env := newTestEnv(t)
	url := env.server.URL + "/api/rankings?date=2024-06-28&method=sharpe3m&universe=nseetf"

	var first handlers.ReportDTO
	require.Equal(t, http.StatusOK, getJSON(t, url, &first))
	assert.Equal(t, "2024-06-28", first.LookbackDate)
	assert.Equal(t, contracts.MethodSharpe3M, first.Method)
	assert.Equal(t, "NSEETF", first.Universe)
	require.Len(t, first.All, 2)
	require.Len(t, first.Filtered, 1)
	assert.Len(t, first.Filters, 4)

	// undefined values are null
	assert.Nil(t, first.All[1].DMA200)
	assert.Nil(t, first.All[1].Horizons["3M"].Sharpe)
	assert.Equal(t, []string{"trend"}, first.All[1].FailedFilters)
	require.NotNil(t, first.All[0].DMA200)
	assert.Equal(t, 100.0, *first.All[0].DMA200)
	assert.Empty(t, first.All[0].FailedFilters)

	var second handlers.ReportDTO
	require.Equal(t, http.StatusOK, getJSON(t, url, &second))
	assert.Equal(t, first.RunID, second.RunID)
	assert.EqualValues(t, 1, env.runner.calls.Load())
}

func TestGetRankings_Defaults(t *testing.T) {
	env := newTestEnv(t)

	var dto handlers.ReportDTO
	require.Equal(t, http.StatusOK, getJSON(t, env.server.URL+"/api/rankings", &dto))
	assert.Equal(t, contracts.MethodAvgSharpe, dto.Method)
	assert.Equal(t, "NSEETF", dto.Universe)
	assert.NotEmpty(t, dto.LookbackDate)
}

func TestGetRankings_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		query string
	}{
		{"bad date", "date=28-06-2024"},
		{"bad method", "method=sortino"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			status := getJSON(t, env.server.URL+"/api/rankings?"+tt.query, &body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.EqualValues(t, 0, env.runner.calls.Load())
}

func TestGetRankings_RunErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no data", fmt.Errorf("S0 failed: %w", contracts.ErrNoData), http.StatusNotFound},
		{"unknown universe", fmt.Errorf("S1 failed: %w", contracts.ErrUnknownUniverse), http.StatusBadRequest},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.runner.err = tt.err

			status := getJSON(t, env.server.URL+"/api/rankings?date=2024-06-28", nil)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, 0, env.store.Len())
		})
	}
}

func TestGetLatest(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, getJSON(t, env.server.URL+"/api/rankings/latest", nil))

	require.Equal(t, http.StatusOK, getJSON(t, env.server.URL+"/api/rankings?date=2024-06-27", nil))
	require.Equal(t, http.StatusOK, getJSON(t, env.server.URL+"/api/rankings?date=2024-06-28", nil))

	var dto handlers.ReportDTO
	require.Equal(t, http.StatusOK, getJSON(t, env.server.URL+"/api/rankings/latest", &dto))
	assert.Equal(t, "2024-06-28", dto.LookbackDate)
}

func TestGetFilters(t *testing.T) {
	env := newTestEnv(t)

	var resp handlers.FiltersResponse
	require.Equal(t, http.StatusOK, getJSON(t, env.server.URL+"/api/filters", &resp))
	assert.Equal(t, contracts.DefaultFilterThresholds(), resp.Thresholds)
	assert.Equal(t, contracts.DefaultFilterThresholds().Describe(), resp.Filters)
	assert.Equal(t, contracts.RankingMethods, resp.Methods)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProgressStream(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.hub.Publish(contracts.Progress{Stage: "S0_DATA", Done: 50, Total: 120, Percent: 41.67})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var p contracts.Progress
	require.NoError(t, json.Unmarshal(msg, &p))
	assert.Equal(t, 50, p.Done)
	assert.Equal(t, 120, p.Total)
}

func TestReportStore_Evicts(t *testing.T) {
	store := NewReportStore(2)
	day := func(d int) *contracts.RankingReport {
		return &contracts.RankingReport{
			LookbackDate: time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC),
			Method:       contracts.MethodAvgSharpe,
			Universe:     "NSEETF",
		}
	}

	store.Put(day(26))
	store.Put(day(27))
	store.Put(day(28))
	store.Put(nil)

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get(handlers.ReportKey(day(26).LookbackDate, contracts.MethodAvgSharpe, "NSEETF"))
	assert.False(t, ok)
	_, ok = store.Get(handlers.ReportKey(day(28).LookbackDate, contracts.MethodAvgSharpe, "nseetf"))
	assert.True(t, ok)

	latest, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, 28, latest.LookbackDate.Day())
}
