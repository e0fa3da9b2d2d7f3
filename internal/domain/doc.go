// Package domain models public incident reports and the safety score values
// derived from them.
//
// # Data Sources
//
// Incident reports arrive through two grammars that map to the same
// RawIncident shape:
//
// Tabular source: an HTML page whose relevant table carries an "Ocorrência"
// header cell. Each data row has 5 ordered cells:
//
//	Date | Type | Neighborhood | Municipality | State
//
// Caption source: short social-media captions with a fixed 3-line shape:
//
//	<banner line, constant, ignored>
//	<Type> - DD/MM/YY HH:MM
//	<Neighborhood> - <Municipality> <ST>
//
// Dates use DD/MM/YY HH:MM with two-digit years assumed to be in the 2000s:
// "03/11/25 14:30" is 3 November 2025, 14:30. Occurrence labels resolve
// case-insensitively through closed dictionaries; the caption dictionary is
// a superset of the tabular one. Accented and unaccented spellings both
// resolve ("incêndio"/"incendio"). Records that fail any of these rules are
// dropped individually; a parse call never fails as a whole.
//
// # Deduplication
//
// Persisted incidents carry a deterministic SourceID built from
// occurredAt|municipality|neighborhood|type, normalized to lowercase with
// whitespace collapsed to hyphens. The (Source, SourceID) pair is the sole
// deduplication identity: re-ingesting identical raw data never creates a
// second row (ON CONFLICT DO NOTHING at the store). See [SourceID].
//
// # Severity
//
// Each incident type maps to a fixed severity weight on a 2-10 scale via an
// exhaustive switch, see [SeverityScore]. Severity sums ("weighted totals")
// are what the score calculator deducts from the 100-point base.
package domain
