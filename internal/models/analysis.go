package models

import (
	"strings"
	"time"
)

// Category is the policy area of a clause.
type Category string

const (
	CategoryHealthcare     Category = "healthcare"
	CategoryEconomy        Category = "economy"
	CategoryEnvironment    Category = "environment"
	CategoryEducation      Category = "education"
	CategoryInfrastructure Category = "infrastructure"
	CategoryDefense        Category = "defense"
	CategorySocial         Category = "social"
	CategoryOther          Category = "other"
)

// Label is the capitalized category name, e.g. "Healthcare".
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// OverallImpact is the aggregate valence of a bill. Unlike [Impact] it allows mixed.
type OverallImpact string

const (
	OverallPositive OverallImpact = "positive"
	OverallNegative OverallImpact = "negative"
	OverallMixed    OverallImpact = "mixed"
	OverallNeutral  OverallImpact = "neutral"
)

// Clause is a provision of the bill and the jurisdictions it affects.
type Clause struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"          validate:"required"`
	Summary        string   `json:"summary"`
	AffectedStates []string `json:"affectedStates" validate:"dive,required"`
	Category       Category `json:"category"       validate:"oneof=healthcare economy environment education infrastructure defense social other"` //nolint:lll // validator tag
}

// Timeframe classifies when the effects are expected.
type Timeframe struct {
	// Immediate effects land within 30 days.
	Immediate bool `json:"immediate"`
	// ShortTerm effects land within a year.
	ShortTerm bool `json:"shortTerm"`
	// LongTerm effects land after a year.
	LongTerm bool `json:"longTerm"`
}

// BillAnalysis is the structured reading of a bill produced by the analysis collaborator.
type BillAnalysis struct {
	BillID             string        `json:"billId"`
	Title              string        `json:"title"`
	Summary            string        `json:"summary"`
	Clauses            []Clause      `json:"clauses"            validate:"dive"`
	OverallImpact      OverallImpact `json:"overallImpact"      validate:"oneof=positive negative mixed neutral"`
	EstimatedTimeframe Timeframe     `json:"estimatedTimeframe"`
}

// KeyPoints converts the clauses to the key points kept on the bill.
func (a BillAnalysis) KeyPoints() []KeyPoint {
	points := make([]KeyPoint, 0, len(a.Clauses))
	for _, c := range a.Clauses {
		points = append(points, KeyPoint{Title: c.Title, Summary: c.Summary, Category: c.Category})
	}
	return points
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days is the number of days between Start and End.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24) //nolint:mnd // hours per day
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}
