package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
)

const dateLayout = "2006-01-02"

// Runner executes one ranking run (pipeline.Engine)
type Runner interface {
	Run(ctx context.Context, cfg contracts.RunConfig, progress contracts.ProgressFunc) (*contracts.RankingReport, error)
}

// ReportStore holds finished reports
type ReportStore interface {
	Put(report *contracts.RankingReport)
	Get(key string) (*contracts.RankingReport, bool)
	Latest() (*contracts.RankingReport, bool)
}

// ReportKey identifies a run by its inputs
func ReportKey(date time.Time, method contracts.RankingMethod, universe string) string {
	return date.Format(dateLayout) + "|" + string(method) + "|" + strings.ToUpper(universe)
}

// RankingHandler serves ranking runs and their results
// ⭐ SSOT: ranking API handlers live in this struct only
type RankingHandler struct {
	runner     Runner
	store      ReportStore
	progress   contracts.ProgressFunc
	thresholds contracts.FilterThresholds
	defaults   contracts.RunConfig // Method and Universe used when the query omits them
	group      singleflight.Group
	logger     *logger.Logger
	now        func() time.Time
}

// NewRankingHandler creates a new ranking handler. progress may be nil.
func NewRankingHandler(
	runner Runner,
	store ReportStore,
	progress contracts.ProgressFunc,
	thresholds contracts.FilterThresholds,
	defaults contracts.RunConfig,
	log *logger.Logger,
) *RankingHandler {
	return &RankingHandler{
		runner:     runner,
		store:      store,
		progress:   progress,
		thresholds: thresholds,
		defaults:   defaults,
		logger:     log,
		now:        time.Now,
	}
}

// GetRankings returns the report for a lookback date, running the pipeline on a miss
// GET /api/rankings?date=YYYY-MM-DD&method=avgSharpe&universe=NSEETF
func (h *RankingHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.parseRunConfig(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := ReportKey(cfg.LookbackDate, cfg.Method, cfg.Universe)
	if report, ok := h.store.Get(key); ok {
		respondJSON(w, http.StatusOK, NewReportDTO(report))
		return
	}

	// concurrent requests for the same key share one run, which outlives any single client
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		report, err := h.runner.Run(ctx, cfg, h.progress)
		if err != nil {
			return nil, err
		}
		h.store.Put(report)
		return report, nil
	})
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Error("Ranking run failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, NewReportDTO(v.(*contracts.RankingReport)))
}

// GetLatest returns the most recent stored report
// GET /api/rankings/latest
func (h *RankingHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	report, ok := h.store.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "no ranking available yet")
		return
	}
	respondJSON(w, http.StatusOK, NewReportDTO(report))
}

// FiltersResponse lists the applied thresholds
type FiltersResponse struct {
	Thresholds contracts.FilterThresholds `json:"thresholds"`
	Filters    []string                   `json:"filters"`
	Methods    []contracts.RankingMethod  `json:"methods"`
}

// GetFilters returns the filter thresholds and accepted methods
// GET /api/filters
func (h *RankingHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, FiltersResponse{
		Thresholds: h.thresholds,
		Filters:    h.thresholds.Describe(),
		Methods:    contracts.RankingMethods,
	})
}

func (h *RankingHandler) parseRunConfig(r *http.Request) (contracts.RunConfig, error) {
	q := r.URL.Query()
	cfg := h.defaults

	now := h.now()
	cfg.LookbackDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if s := q.Get("date"); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return cfg, errors.New("invalid 'date' format (expected YYYY-MM-DD)")
		}
		cfg.LookbackDate = d
	}

	if s := q.Get("method"); s != "" {
		cfg.Method = contracts.RankingMethod(s)
	}
	method, err := contracts.ParseRankingMethod(string(cfg.Method))
	if err != nil {
		return cfg, err
	}
	cfg.Method = method

	if s := q.Get("universe"); s != "" {
		cfg.Universe = strings.ToUpper(s)
	}

	return cfg, cfg.Validate()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrUnknownUniverse), errors.Is(err, contracts.ErrUnknownMethod):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
