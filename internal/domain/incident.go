package domain

import (
	"regexp"
	"strings"
	"time"
)

// IncidentType is the closed set of occurrence categories the parsers emit.
// Adding a value here requires extending SeverityScore's switch, which is
// exhaustive on purpose.
type IncidentType string

const (
	TypeShooting        IncidentType = "shooting"
	TypeHomicide        IncidentType = "homicide"
	TypePoliceOperation IncidentType = "police_operation"
	TypeMassRobbery     IncidentType = "mass_robbery"
	TypeRobbery         IncidentType = "robbery"
	TypeGunfire         IncidentType = "gunfire"
	TypeFire            IncidentType = "fire"
)

// Source identifies which grammar produced a raw incident.
const (
	SourceWebTable      = "WEB_TABLE"
	SourceSocialCaption = "SOCIAL_CAPTION"
)

// RawIncident is unvalidated parse output. It is consumed by the ingestion
// orchestrator immediately and never persisted as-is.
type RawIncident struct {
	OccurredAt   time.Time
	Type         IncidentType
	Neighborhood string
	Municipality string
	State        string
	Source       string
	ScrapedAt    time.Time
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeocodedIncident is a RawIncident with resolved coordinates. Geo is nil
// when geocoding failed; the store adapter decides what to do with those.
type GeocodedIncident struct {
	RawIncident
	Geo *Geo
}

// Incident is the persisted shape. Rows are immutable once stored: the
// adapter only ever inserts, and (Source, SourceID) is the sole
// deduplication identity.
type Incident struct {
	ID            string       `json:"id"`
	Type          IncidentType `json:"type"`
	OccurredAt    time.Time    `json:"occurred_at"`
	Neighborhood  string       `json:"neighborhood"`
	Municipality  string       `json:"municipality"`
	State         string       `json:"state"`
	Geo           Geo          `json:"geo"`
	SeverityScore int          `json:"severity_score"`
	Source        string       `json:"source"`
	SourceID      string       `json:"source_id"`
	ScrapedAt     time.Time    `json:"scraped_at"`
}

// SeverityScore maps an incident type to its fixed weight on the 2-10 scale.
// The switch is exhaustive over IncidentType; unknown values (which the
// parsers never emit) fall through to the minimum.
func SeverityScore(t IncidentType) int {
	switch t {
	case TypeHomicide:
		return 10
	case TypeShooting:
		return 9
	case TypePoliceOperation:
		return 8
	case TypeMassRobbery:
		return 7
	case TypeRobbery:
		return 6
	case TypeGunfire:
		return 4
	case TypeFire:
		return 2
	default:
		return 2
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// SourceID builds the deterministic half of the deduplication key from an
// incident's identifying fields. Reprocessing the same raw row always yields
// the same ID, which is what makes bulk inserts replay-safe
// (ON CONFLICT DO NOTHING downstream). Casing and whitespace variations in
// the source text normalize away.
func SourceID(occurredAt time.Time, municipality, neighborhood string, t IncidentType) string {
	parts := []string{
		occurredAt.UTC().Format("2006-01-02t15:04"),
		normalizeKeyPart(municipality),
		normalizeKeyPart(neighborhood),
		normalizeKeyPart(string(t)),
	}
	return strings.Join(parts, "-")
}

func normalizeKeyPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRe.ReplaceAllString(s, "-")
}

// InsertSummary collects the per-record outcomes of one bulk insert.
// Partial success is normal operation: a failed or skipped record never
// aborts the rest of the batch.
type InsertSummary struct {
	Inserted   []Incident
	Duplicates int
	Skipped    int
	Failed     int
}

// TypeAggregate is one group row of a distance+time-window store query.
type TypeAggregate struct {
	Type        IncidentType
	Count       int
	SeveritySum float64
}

// Materialize turns a geocoded incident into its persistable form. The
// caller must have verified that coordinates are present.
func Materialize(g GeocodedIncident) Incident {
	return Incident{
		Type:          g.Type,
		OccurredAt:    g.OccurredAt,
		Neighborhood:  g.Neighborhood,
		Municipality:  g.Municipality,
		State:         g.State,
		Geo:           *g.Geo,
		SeverityScore: SeverityScore(g.Type),
		Source:        g.Source,
		SourceID:      SourceID(g.OccurredAt, g.Municipality, g.Neighborhood, g.Type),
		ScrapedAt:     g.ScrapedAt,
	}
}
