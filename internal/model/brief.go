package model

import "time"

// Brief is the per-entity result of one scout invocation.
// A Brief either carries an Error (and no features or insight) or
// a non-empty feature list together with an Insight.
type Brief struct {
	Company   string    `json:"company"`           // Uppercased entity name
	DateRange string    `json:"dateRange"`         // Descriptive label for the covered window
	Timestamp time.Time `json:"timestamp"`         // Generation time
	Insight   *Insight  `json:"insight,omitempty"` // Synthesized summary (nil on error)
	Features  []Feature `json:"features"`          // Filtered evidence, GitHub items last
	Error     string    `json:"error,omitempty"`   // Human-readable reason when nothing was found
}

// HasInsight reports whether the brief carries a synthesized insight
func (b Brief) HasInsight() bool {
	return b.Insight != nil
}

// Feature is a search result that survived the relevance filter
type Feature struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Source      SourceTag `json:"source"`
	URL         string    `json:"url"`
	Site        string    `json:"site"` // Derived from the URL host
}

// Status classifies the overall sentiment of an insight
type Status string

const (
	StatusBullish Status = "BULLISH"
	StatusStable  Status = "STABLE"
)

// Velocity classifies observed movement
type Velocity string

const (
	VelocityHigh   Velocity = "HIGH"
	VelocitySteady Velocity = "STEADY"
)

// Insight is the deterministic tactical summary derived from a brief's features
type Insight struct {
	Sentiment int      `json:"sentiment"` // 0-100
	Status    Status   `json:"status"`
	SWOT      SWOT     `json:"swot"`
	Velocity  Velocity `json:"velocity"`
	Signals   Signals  `json:"signals"`
}

// SWOT holds one sentence per category
type SWOT struct {
	Strength    string `json:"strength"`
	Weakness    string `json:"weakness"`
	Opportunity string `json:"opportunity"`
	Threat      string `json:"threat"`
}

// Signals are boolean activity markers derived from feature sources
type Signals struct {
	GitHub   bool `json:"github"`
	Hiring   bool `json:"hiring"`
	Releases bool `json:"releases"`
}

// Stage is a step of the per-entity pipeline
type Stage int

const (
	StageNotStarted Stage = -1
	StagePlan       Stage = 0
	StageFetch      Stage = 1
	StageVerify     Stage = 2
	StageSynthesize Stage = 3
)

func (s Stage) String() string {
	switch s {
	case StagePlan:
		return "PLAN"
	case StageFetch:
		return "FETCH"
	case StageVerify:
		return "VERIFY"
	case StageSynthesize:
		return "SYNTHESIZE"
	default:
		return "NOT_STARTED"
	}
}

// StageFunc receives each stage a pipeline enters
type StageFunc func(stage Stage)

// AlertType classifies an alert
type AlertType string

const (
	AlertCritical AlertType = "CRITICAL"
	AlertMomentum AlertType = "MOMENTUM"
	AlertRelease  AlertType = "RELEASE"
)

// Alert is raised when a brief crosses one of the alerting thresholds
type Alert struct {
	Company string    `json:"company"`
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
}

// HistoryEntry is one saved scout invocation
type HistoryEntry struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Timestamp   time.Time `json:"timestamp"`
	Competitors []string  `json:"competitors"`
	Briefs      []Brief   `json:"briefs"`
}
