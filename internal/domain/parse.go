package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// occurrenceTimeRe matches the source date format "DD/MM/YY HH:MM",
// e.g. "03/11/25 14:30".
var occurrenceTimeRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2})\s+(\d{2}):(\d{2})$`)

// tableTypeLabels maps the occurrence labels of the tabular source to
// incident types. Keys are lowercase; accented and unaccented spellings are
// both listed because the source is inconsistent about encoding.
var tableTypeLabels = map[string]IncidentType{
	"tiroteio":         TypeShooting,
	"homicídio":        TypeHomicide,
	"homicidio":        TypeHomicide,
	"disparos ouvidos": TypeGunfire,
	"disparos":         TypeGunfire,
	"incêndio":         TypeFire,
	"incendio":         TypeFire,
}

// captionTypeLabels is the caption grammar's dictionary: a superset of the
// tabular one that adds the types only the social feed reports.
var captionTypeLabels = func() map[string]IncidentType {
	m := map[string]IncidentType{
		"operação policial": TypePoliceOperation,
		"operacao policial": TypePoliceOperation,
		"arrastão":          TypeMassRobbery,
		"arrastao":          TypeMassRobbery,
		"roubo":             TypeRobbery,
		"assalto":           TypeRobbery,
	}
	for label, t := range tableTypeLabels {
		m[label] = t
	}
	return m
}()

// parseIncidentType resolves a free-text occurrence label through the given
// dictionary, case-insensitively. Unknown labels cause the record to be
// dropped by the caller.
func parseIncidentType(label string, dict map[string]IncidentType) (IncidentType, bool) {
	t, ok := dict[strings.ToLower(strings.TrimSpace(label))]
	return t, ok
}

// parseOccurrenceTime parses "DD/MM/YY HH:MM" into a UTC civil timestamp.
// Two-digit years are assumed to be in the 2000s. Components outside
// calendar range (including impossible dates like 31/02) are rejected.
func parseOccurrenceTime(s string) (time.Time, error) {
	m := occurrenceTimeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("malformed occurrence time %q", s)
	}

	day := atoiSafe(m[1])
	month := atoiSafe(m[2])
	year := 2000 + atoiSafe(m[3])
	hour := atoiSafe(m[4])
	minute := atoiSafe(m[5])

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("occurrence time out of range %q", s)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes overflow (31/02 becomes 02/03 or 03/03); a
	// round-trip mismatch means the calendar date did not exist.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid calendar date %q", s)
	}
	return t, nil
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
