package primary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// BaseURL for the primary schedule/result feed.
	BaseURL = "https://site.api.espn.com/apis/site/v2/sports"

	// SportPath selects men's college basketball.
	SportPath = "basketball/mens-college-basketball"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client fetches the primary feed's scoreboard. The feed is the
// authoritative source for game identity; its ids key everything downstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a primary feed client. An empty baseURL uses the default.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// GetGamesByDateRange fetches every game scheduled between start and end,
// inclusive, one scoreboard call per day.
func (c *Client) GetGamesByDateRange(ctx context.Context, start, end time.Time) ([]Game, error) {
	var games []Game
	for _, date := range enumerateDates(start, end) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := c.fetchScoreboard(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("fetching scoreboard for %s: %w", date.Format("2006-01-02"), err)
		}

		parsed, err := ParseScoreboard(data)
		if err != nil {
			return nil, fmt.Errorf("parsing scoreboard for %s: %w", date.Format("2006-01-02"), err)
		}

		c.logger.Debug("fetched scoreboard",
			zap.String("date", date.Format("2006-01-02")),
			zap.Int("games", len(parsed)),
		)
		games = append(games, parsed...)
	}

	return games, nil
}

// fetchScoreboard fetches games for a specific date.
func (c *Client) fetchScoreboard(ctx context.Context, date time.Time) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/%s/scoreboard?dates=%s&limit=500&groups=50",
		c.baseURL, SportPath, date.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting scoreboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoreboard request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	// An HTML error page means the feed is refusing us, not an empty slate.
	if len(body) > 0 && body[0] == '<' {
		return nil, fmt.Errorf("feed returned HTML error page")
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}

func enumerateDates(start, end time.Time) []time.Time {
	if end.Before(start) {
		start, end = end, start
	}

	var dates []time.Time
	current := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	final := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	for !current.After(final) {
		dates = append(dates, current)
		current = current.AddDate(0, 0, 1)
	}

	return dates
}
