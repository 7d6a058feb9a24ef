package domain

// Severity grades an insight.
type Severity string

const (
	SeverityNoIssue Severity = "no-issue"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityNoIssue, SeverityInfo, SeverityWarning:
		return true
	default:
		return false
	}
}

// Insight is optional commentary produced by the insight generator.
type Insight struct {
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Analysis string   `json:"analysis"`
}

// TimelineInsight is an insight anchored to a point in the match timeline.
type TimelineInsight struct {
	Timestamp int64    `json:"timestamp"` // ms since game start
	Severity  Severity `json:"severity"`
	Summary   string   `json:"summary"`
	Analysis  string   `json:"analysis"`
}

// Clone returns a copy of the insight.
func (i *Insight) Clone() *Insight {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
