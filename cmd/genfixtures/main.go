// Command genfixtures generates synthetic source fixtures (an occurrence
// table HTML page and a social caption feed) for local ingestion testing.
// It renders through the same seed data and then parses the output back with
// the real parsers, so a fixture that fails ingestion never gets written.
//
// Usage:
//
//	go run ./cmd/genfixtures -out-dir data/fixtures -count 50
//
// Serve the output directory with any static file server and point
// SOURCE_TABLE_URL / SOURCE_CAPTION_URL at it.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vigiapp/vigia/internal/domain"
)

var baseDate = time.Date(2025, time.November, 3, 8, 0, 0, 0, time.UTC)

type seedRow struct {
	label        string
	neighborhood string
	municipality string
	state        string
}

var tableSeeds = []seedRow{
	{"Tiroteio", "Icaraí", "Niterói", "RJ"},
	{"Disparos Ouvidos", "Fonseca", "Niterói", "RJ"},
	{"Homicídio", "Copacabana", "Rio de Janeiro", "RJ"},
	{"Incêndio", "Centro", "São Gonçalo", "RJ"},
	{"Disparos", "Alcântara", "São Gonçalo", "RJ"},
}

var captionSeeds = []seedRow{
	{"Tiroteio", "Copacabana", "Rio de Janeiro", "RJ"},
	{"Operação Policial", "Maré", "Rio de Janeiro", "RJ"},
	{"Arrastão", "Barreto", "Niterói", "RJ"},
	{"Roubo", "Icaraí", "Niterói", "RJ"},
	{"Incêndio", "Santa Rosa", "Niterói", "RJ"},
}

func main() {
	outDir := flag.String("out-dir", "data/fixtures", "directory for generated fixtures")
	count := flag.Int("count", 50, "rows per fixture")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tablePage := renderTablePage(rng, *count)
	captionFeed := renderCaptionFeed(rng, *count)

	// A fixture the parsers reject is worse than no fixture.
	scrapedAt := baseDate.Add(12 * time.Hour)
	if got := len(domain.ParseOccurrenceTable(tablePage, scrapedAt, logger)); got != *count {
		log.Fatalf("table fixture: expected %d parsed rows, got %d", *count, got)
	}
	if got := len(domain.ParseCaptions(captionFeed, scrapedAt, logger)); got != *count {
		log.Fatalf("caption fixture: expected %d parsed captions, got %d", *count, got)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	writeFile(filepath.Join(*outDir, "ocorrencias.html"), tablePage)
	writeFile(filepath.Join(*outDir, "captions.txt"), captionFeed)

	fmt.Printf("wrote %d table rows and %d captions to %s\n", *count, *count, *outDir)
}

func occurrence(rng *rand.Rand, i int) (time.Time, string) {
	at := baseDate.Add(-time.Duration(rng.Intn(90*24)) * time.Hour).Add(time.Duration(i) * time.Minute)
	return at, at.Format("02/01/06 15:04")
}

func renderTablePage(rng *rand.Rand, count int) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	b.WriteString("<table><tr><td>Boletim</td><td>Atualizado diariamente</td></tr></table>\n")
	b.WriteString("<table>\n<tr><th>Data</th><th>Ocorrência</th><th>Bairro</th><th>Município</th><th>Estado</th></tr>\n")
	for i := 0; i < count; i++ {
		row := tableSeeds[rng.Intn(len(tableSeeds))]
		_, stamp := occurrence(rng, i)
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			stamp, row.label, row.neighborhood, row.municipality, row.state)
	}
	b.WriteString("</table>\n</body></html>\n")
	return b.String()
}

func renderCaptionFeed(rng *rand.Rand, count int) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		row := captionSeeds[rng.Intn(len(captionSeeds))]
		_, stamp := occurrence(rng, i)
		fmt.Fprintf(&b, "ALERTA DE OCORRÊNCIA\n%s - %s\n%s - %s %s\n\n",
			row.label, stamp, row.neighborhood, row.municipality, row.state)
	}
	return b.String()
}

func writeFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
}
