package contracts

// Pipeline stages (SSOT)
// Every log line, metric label and report stage result uses these constants.
//
// Flow:
//   S1 → S0 → S2 → S4 → S3 → report
//   Universe  Data  Metrics  Ranker  Screener  Output
//
// The ranker runs before the screener: every instrument is ranked
// universe-wide, then the filters partition the ranked set.

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S1: resolve the universe id to its symbol list
	// Location: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageData S0: download histories and align them on a date index
	// Location: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageMetrics S2: horizon statistics per instrument
	// Location: internal/s2_metrics/
	StageMetrics Stage = "S2_METRICS"

	// StageRanker S4: composite score and universe-wide rank
	// Location: internal/selection/ranker.go
	StageRanker Stage = "S4_RANKER"

	// StageScreener S3: the four filter predicates
	// Location: internal/selection/screener.go
	StageScreener Stage = "S3_SCREENER"

	// StageReport: workbook, chart and console output
	// Location: internal/report/
	StageReport Stage = "REPORT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageUniverse:
		return "S1"
	case StageData:
		return "S0"
	case StageMetrics:
		return "S2"
	case StageRanker:
		return "S4"
	case StageScreener:
		return "S3"
	case StageReport:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Description returns a human readable description of the stage
func (s Stage) Description() string {
	switch s {
	case StageUniverse:
		return "Universe symbols"
	case StageData:
		return "Price history download"
	case StageMetrics:
		return "Horizon metrics"
	case StageRanker:
		return "Composite score and rank"
	case StageScreener:
		return "Momentum filters"
	case StageReport:
		return "Report output"
	default:
		return "Unknown"
	}
}

// AllStages returns all pipeline stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StageData,
		StageMetrics,
		StageRanker,
		StageScreener,
		StageReport,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
