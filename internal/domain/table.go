package domain

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// occurrenceHeader marks the table that carries incident rows; the source
// page contains unrelated tables as well.
var occurrenceHeaders = []string{"ocorrência", "ocorrencia"}

// ParseOccurrenceTable extracts raw incidents from the tabular HTML source.
// Only tables containing an "Ocorrência" header cell are considered, and
// within them each data row must have exactly 5 cells in fixed order:
// date, occurrence label, neighborhood, municipality, state.
//
// Malformed rows (wrong cell count, bad date, unknown label) are dropped and
// logged; no error ever escapes. An unparseable document yields an empty
// slice, which the orchestrator treats as a structural failure.
func ParseOccurrenceTable(html string, scrapedAt time.Time, logger *slog.Logger) []RawIncident {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("occurrence table document unreadable", "error", err)
		return []RawIncident{}
	}

	incidents := make([]RawIncident, 0)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if !hasOccurrenceHeader(table) {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if inc, ok := parseTableRow(row, scrapedAt, logger); ok {
				incidents = append(incidents, inc)
			}
		})
	})
	return incidents
}

func hasOccurrenceHeader(table *goquery.Selection) bool {
	found := false
	table.Find("th, td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(cell.Text()))
		for _, h := range occurrenceHeaders {
			if text == h {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func parseTableRow(row *goquery.Selection, scrapedAt time.Time, logger *slog.Logger) (RawIncident, bool) {
	if row.Find("th").Length() > 0 {
		return RawIncident{}, false
	}

	cells := row.Find("td").Map(func(_ int, cell *goquery.Selection) string {
		return strings.TrimSpace(cell.Text())
	})
	if len(cells) != 5 {
		if len(cells) > 0 {
			logger.Debug("dropping row with unexpected cell count", "cells", len(cells))
		}
		return RawIncident{}, false
	}

	occurredAt, err := parseOccurrenceTime(cells[0])
	if err != nil {
		logger.Debug("dropping row with bad date", "date", cells[0], "error", err)
		return RawIncident{}, false
	}

	incidentType, ok := parseIncidentType(cells[1], tableTypeLabels)
	if !ok {
		logger.Debug("dropping row with unknown occurrence label", "label", cells[1])
		return RawIncident{}, false
	}

	return RawIncident{
		OccurredAt:   occurredAt,
		Type:         incidentType,
		Neighborhood: cells[2],
		Municipality: cells[3],
		State:        cells[4],
		Source:       SourceWebTable,
		ScrapedAt:    scrapedAt,
	}, true
}
