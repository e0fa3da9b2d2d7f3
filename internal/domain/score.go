package domain

import "time"

// Radius is a fixed search distance from a query point, in meters.
type Radius int

// Timeframe is a fixed lookback window from "now", in days.
type Timeframe int

const (
	Radius500m Radius = 500
	Radius1km  Radius = 1000
	Radius2km  Radius = 2000

	Timeframe30d  Timeframe = 30
	Timeframe90d  Timeframe = 90
	Timeframe365d Timeframe = 365
)

// Radii and Timeframes enumerate the aggregation grid in a stable order.
var (
	Radii      = []Radius{Radius500m, Radius1km, Radius2km}
	Timeframes = []Timeframe{Timeframe30d, Timeframe90d, Timeframe365d}
)

// AggregationCell holds the reduced result of one radius/timeframe query.
// WeightedTotal is the sum of severity scores over matched incidents.
type AggregationCell struct {
	Total         int                  `json:"total"`
	ByType        map[IncidentType]int `json:"by_type"`
	WeightedTotal float64              `json:"weighted_total"`
}

// AggregatedIncidents is the 3x3 radius-by-timeframe matrix computed fresh
// for every score request.
type AggregatedIncidents struct {
	Cells map[Radius]map[Timeframe]AggregationCell `json:"cells"`
}

// Cell returns the aggregation cell for a radius/timeframe pair, zero-valued
// when the matrix has no entry.
func (a AggregatedIncidents) Cell(r Radius, tf Timeframe) AggregationCell {
	if byTF, ok := a.Cells[r]; ok {
		return byTF[tf]
	}
	return AggregationCell{}
}

// TrendDirection classifies the movement of a location's recent incident rate.
type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendStable    TrendDirection = "STABLE"
	TrendWorsening TrendDirection = "WORSENING"
)

// TrendAnalysis compares the last 30 days against the estimated prior
// 30-day window at the 1 km radius.
type TrendAnalysis struct {
	Direction      TrendDirection `json:"direction"`
	Percentage     float64        `json:"percentage"` // absolute change, >= 0
	Confidence     float64        `json:"confidence"` // 0..1 from sample size
	Recent30Days   int            `json:"recent_30_days"`
	Previous30Days int            `json:"previous_30_days"`
}

// ComparisonMetrics positions a score against the trailing 7-day peer
// population. Averages default to 60 (neutral midpoint) and the percentile
// to 50 when no peer data exists.
type ComparisonMetrics struct {
	NeighborhoodAvgScore   float64 `json:"neighborhood_avg_score"`
	CityAvgScore           float64 `json:"city_avg_score"`
	PercentileRank         int     `json:"percentile_rank"`
	BetterThanNeighborhood bool    `json:"better_than_neighborhood"`
	BetterThanCity         bool    `json:"better_than_city"`
}

// SafetyScore is the engine's result value. Persisting it for later peer
// comparison is the caller's job; the engine is stateless per call.
type SafetyScore struct {
	OverallScore int `json:"overall_score"`
	Score500m    int `json:"score_500m"`
	Score1km     int `json:"score_1km"`
	Score2km     int `json:"score_2km"`

	Incidents  AggregatedIncidents `json:"incidents"`
	Trend      TrendAnalysis       `json:"trend"`
	Comparison ComparisonMetrics   `json:"comparison"`

	Neighborhood string    `json:"neighborhood"`
	Municipality string    `json:"municipality"`
	CalculatedAt time.Time `json:"calculated_at"`
}
