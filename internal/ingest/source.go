package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vigiapp/vigia/internal/domain"
)

// Source is one raw incident feed: it fetches the current payload and
// parses it with its grammar. Parse never fails; it returns the records it
// could accept, possibly none.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
	Parse(text string, scrapedAt time.Time) []domain.RawIncident
}

// httpSource fetches a source payload over HTTP and delegates to a parser.
type httpSource struct {
	name   string
	url    string
	client *http.Client
	logger *slog.Logger
	parse  func(text string, scrapedAt time.Time, logger *slog.Logger) []domain.RawIncident
}

// NewTableSource creates the tabular-HTML incident source.
func NewTableSource(url string, timeout time.Duration, logger *slog.Logger) Source {
	return &httpSource{
		name:   domain.SourceWebTable,
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		parse:  domain.ParseOccurrenceTable,
	}
}

// NewCaptionSource creates the social-caption incident source.
func NewCaptionSource(url string, timeout time.Duration, logger *slog.Logger) Source {
	return &httpSource{
		name:   domain.SourceSocialCaption,
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		parse:  domain.ParseCaptions,
	}
}

func (s *httpSource) Name() string { return s.name }

// Fetch retrieves the raw source text. Any transport failure, non-2xx
// status included, is fatal for the run.
func (s *httpSource) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", s.name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s body: %w", s.name, err)
	}
	return string(body), nil
}

func (s *httpSource) Parse(text string, scrapedAt time.Time) []domain.RawIncident {
	return s.parse(text, scrapedAt, s.logger)
}
