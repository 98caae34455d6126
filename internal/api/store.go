package api

import (
	"sync"

	"github.com/wonny/etfmomo/internal/api/handlers"
	"github.com/wonny/etfmomo/internal/contracts"
)

const defaultStoreCapacity = 32

// ReportStore keeps recent reports in memory, keyed by date/method/universe
// ⭐ SSOT: the API and the scheduler publish through this store
type ReportStore struct {
	mu       sync.RWMutex
	reports  map[string]*contracts.RankingReport
	order    []string // insertion order, oldest first
	latest   *contracts.RankingReport
	capacity int
}

// NewReportStore creates a store that evicts the oldest report past capacity
func NewReportStore(capacity int) *ReportStore {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	return &ReportStore{
		reports:  make(map[string]*contracts.RankingReport),
		capacity: capacity,
	}
}

// Put stores a report and marks it as the latest
func (s *ReportStore) Put(report *contracts.RankingReport) {
	if report == nil {
		return
	}
	key := handlers.ReportKey(report.LookbackDate, report.Method, report.Universe)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[key]; !ok {
		s.order = append(s.order, key)
	}
	s.reports[key] = report
	s.latest = report

	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.reports, oldest)
	}
}

// Get returns the report stored under key
func (s *ReportStore) Get(key string) (*contracts.RankingReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[key]
	return r, ok
}

// Latest returns the most recently stored report
func (s *ReportStore) Latest() (*contracts.RankingReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Len returns the number of stored reports
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
