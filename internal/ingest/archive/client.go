package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// BaseURL for the play-by-play archive.
const BaseURL = "https://www.collegebasketballarchive.com"

// Fetcher retrieves raw bytes from the archive, paced and retried.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RenderedFetcher fetches a page through a headless browser. Used only when
// the archive serves its JavaScript shell instead of server-rendered HTML.
type RenderedFetcher interface {
	FetchRendered(ctx context.Context, url string) (string, error)
}

// Client searches the archive's schedule pages and fetches play-by-play
// documents. All traffic goes through the shared rate-limited fetcher.
type Client struct {
	baseURL  string
	fetcher  Fetcher
	rendered RenderedFetcher
	logger   *zap.Logger
}

// NewClient creates an archive client. rendered may be nil to disable the
// browser fallback.
func NewClient(baseURL string, fetcher Fetcher, rendered RenderedFetcher, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:  baseURL,
		fetcher:  fetcher,
		rendered: rendered,
		logger:   logger,
	}
}

// SearchGames lists the archive's contests for a date.
func (c *Client) SearchGames(ctx context.Context, date time.Time) ([]Candidate, error) {
	url := fmt.Sprintf("%s/schedule?date=%s", c.baseURL, date.Format("2006-01-02"))

	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	candidates, err := ParseSchedule(body, date)
	if errors.Is(err, ErrMalformedDocument) && c.rendered != nil {
		// The archive intermittently serves a JS shell; render it and retry.
		c.logger.Info("schedule page needs rendering", zap.String("url", url))
		html, rerr := c.rendered.FetchRendered(ctx, url)
		if rerr != nil {
			return nil, fmt.Errorf("rendered schedule fetch: %w", rerr)
		}
		candidates, err = ParseSchedule([]byte(html), date)
	}
	if err != nil {
		return nil, err
	}

	return candidates, nil
}

// FetchDocument retrieves the raw play-by-play document for an archive id.
func (c *Client) FetchDocument(ctx context.Context, archiveID string) ([]byte, error) {
	url := fmt.Sprintf("%s/contest/%s/pbp", c.baseURL, archiveID)
	return c.fetcher.Fetch(ctx, url)
}

// ParseSchedule extracts contest candidates from a schedule search page.
// Rows missing a contest id or either team name are skipped.
func ParseSchedule(body []byte, date time.Time) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	schedule := doc.Find("table.schedule")
	if schedule.Length() == 0 {
		return nil, fmt.Errorf("%w: missing schedule table", ErrMalformedDocument)
	}

	var candidates []Candidate
	schedule.Find("tr.contest-row").Each(func(i int, row *goquery.Selection) {
		id, _ := row.Attr("data-contest-id")
		home := strings.TrimSpace(row.Find("td.home").Text())
		away := strings.TrimSpace(row.Find("td.away").Text())
		if id == "" || home == "" || away == "" {
			return
		}

		candidates = append(candidates, Candidate{
			ID:       id,
			HomeTeam: home,
			AwayTeam: away,
			Date:     date,
		})
	})

	return candidates, nil
}
