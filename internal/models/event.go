package models

import "time"

// Impact is the polarity of a simulation event. It carries no magnitude.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Impacts lists the polarities in a fixed order.
var Impacts = []Impact{ImpactPositive, ImpactNegative, ImpactNeutral}

// Valid reports whether i is one of the three polarities.
func (i Impact) Valid() bool {
	switch i {
	case ImpactPositive, ImpactNegative, ImpactNeutral:
		return true
	default:
		return false
	}
}

// SimulationEvent is one predicted consequence of a bill in a jurisdiction on a calendar date.
//
// Events are values and never modified after creation.
type SimulationEvent struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Impact      Impact    `json:"impact"`
}

// SimulationRun is the log entry of a single analyze and simulate request chain.
type SimulationRun struct {
	ID          string
	WorkspaceID string
	BillTitle   string
	Mode        string
	EventCount  int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}
