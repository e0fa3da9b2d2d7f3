package domain

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
)

var (
	// captionTypeLineRe parses the second caption line,
	// e.g. "Tiroteio - 03/11/25 14:30".
	captionTypeLineRe = regexp.MustCompile(`^(.+?)\s*-\s*(\d{2}/\d{2}/\d{2}\s+\d{2}:\d{2})$`)

	// captionPlaceLineRe parses the third caption line,
	// e.g. "Copacabana - Rio de Janeiro RJ".
	captionPlaceLineRe = regexp.MustCompile(`^(.+?)\s*-\s*(.+?)\s+([A-Z]{2})$`)
)

// ParseCaptions extracts raw incidents from the social caption source. Each
// caption is a fixed 3-line shape: a banner line (ignored), a
// "<Type> - <date>" line, and a "<Neighborhood> - <Municipality> <ST>" line.
// Captions are separated by blank lines.
//
// The caption grammar's type dictionary is a superset of the tabular one.
// Malformed captions are dropped and logged; parsing never fails.
func ParseCaptions(text string, scrapedAt time.Time, logger *slog.Logger) []RawIncident {
	incidents := make([]RawIncident, 0)
	for _, block := range splitCaptionBlocks(text) {
		if inc, ok := parseCaptionBlock(block, scrapedAt, logger); ok {
			incidents = append(incidents, inc)
		}
	}
	return incidents
}

func splitCaptionBlocks(text string) [][]string {
	blocks := make([][]string, 0)
	current := make([]string, 0, 3)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = make([]string, 0, 3)
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func parseCaptionBlock(lines []string, scrapedAt time.Time, logger *slog.Logger) (RawIncident, bool) {
	if len(lines) < 3 {
		logger.Debug("dropping caption with too few lines", "lines", len(lines))
		return RawIncident{}, false
	}

	// lines[0] is the constant banner; only its presence matters.
	typeMatch := captionTypeLineRe.FindStringSubmatch(lines[1])
	if typeMatch == nil {
		logger.Debug("dropping caption with malformed type line", "line", lines[1])
		return RawIncident{}, false
	}

	incidentType, ok := parseIncidentType(typeMatch[1], captionTypeLabels)
	if !ok {
		logger.Debug("dropping caption with unknown type", "label", typeMatch[1])
		return RawIncident{}, false
	}

	occurredAt, err := parseOccurrenceTime(typeMatch[2])
	if err != nil {
		logger.Debug("dropping caption with bad date", "date", typeMatch[2], "error", err)
		return RawIncident{}, false
	}

	placeMatch := captionPlaceLineRe.FindStringSubmatch(lines[2])
	if placeMatch == nil {
		logger.Debug("dropping caption with malformed place line", "line", lines[2])
		return RawIncident{}, false
	}

	return RawIncident{
		OccurredAt:   occurredAt,
		Type:         incidentType,
		Neighborhood: strings.TrimSpace(placeMatch[1]),
		Municipality: strings.TrimSpace(placeMatch[2]),
		State:        placeMatch[3],
		Source:       SourceSocialCaption,
		ScrapedAt:    scrapedAt,
	}, true
}
