package primary

import (
	"fmt"
	"strconv"
	"time"
)

// ParseScoreboard extracts games from a scoreboard response. Individual
// malformed events are skipped; only a structurally empty response is normal.
func ParseScoreboard(scoreboardData map[string]interface{}) ([]Game, error) {
	events := ensureArray(scoreboardData["events"])

	games := make([]Game, 0, len(events))
	for _, eventInterface := range events {
		event, ok := eventInterface.(map[string]interface{})
		if !ok {
			continue
		}

		game, err := parseGameFromEvent(event)
		if err != nil {
			continue
		}
		games = append(games, game)
	}

	return games, nil
}

func parseGameFromEvent(event map[string]interface{}) (Game, error) {
	game := Game{
		Sport: "basketball_ncaam",
		ID:    extractString(event, "id"),
	}
	if game.ID == "" {
		return game, fmt.Errorf("event missing id")
	}

	if dateStr := extractString(event, "date"); dateStr != "" {
		gameTime, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			// The feed sometimes omits seconds.
			gameTime, err = time.Parse("2006-01-02T15:04Z", dateStr)
		}
		if err != nil {
			return game, fmt.Errorf("unparseable date %q: %w", dateStr, err)
		}
		game.Date = gameTime.UTC()
	} else {
		return game, fmt.Errorf("event %s missing date", game.ID)
	}

	game.Season = seasonForDate(game.Date)

	competitions := ensureArray(event["competitions"])
	if len(competitions) == 0 {
		return game, fmt.Errorf("no competitions for event %s", game.ID)
	}

	comp, ok := competitions[0].(map[string]interface{})
	if !ok {
		return game, fmt.Errorf("malformed competition for event %s", game.ID)
	}

	if neutral, ok := comp["neutralSite"].(bool); ok {
		game.NeutralSite = neutral
	}

	status := extractMap(comp, "status")
	statusType := extractMap(status, "type")
	game.Completed, _ = statusType["completed"].(bool)

	competitors := ensureArray(comp["competitors"])
	if len(competitors) < 2 {
		return game, fmt.Errorf("insufficient competitors for event %s", game.ID)
	}

	for _, compInterface := range competitors {
		competitor, ok := compInterface.(map[string]interface{})
		if !ok {
			continue
		}

		team := extractMap(competitor, "team")
		name := extractString(team, "displayName")
		if name == "" {
			name = extractString(team, "shortDisplayName")
		}
		score := parseInt(competitor["score"])

		switch extractString(competitor, "homeAway") {
		case "home":
			game.HomeTeam = name
			game.HomeScore = score
		case "away":
			game.AwayTeam = name
			game.AwayScore = score
		}
	}

	if game.HomeTeam == "" || game.AwayTeam == "" {
		return game, fmt.Errorf("event %s missing team names", game.ID)
	}

	return game, nil
}

// seasonForDate labels a game with its season, e.g. "2024-25". College
// seasons start in November, so anything before August belongs to the season
// that began the previous year.
func seasonForDate(date time.Time) string {
	year := date.Year()
	if date.Month() < time.August {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// ensureArray normalizes the feed's one-or-many fields: a missing value is
// an empty slice, a single object becomes a one-element slice.
func ensureArray(v interface{}) []interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return val
	default:
		return []interface{}{val}
	}
}

func extractString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func extractMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

func parseInt(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case string:
		n, _ := strconv.Atoi(val)
		return n
	case int:
		return val
	default:
		return 0
	}
}
