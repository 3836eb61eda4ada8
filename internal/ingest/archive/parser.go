package archive

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrMalformedDocument is returned when the expected root structure is
// absent. Individual malformed rows inside an otherwise valid document are
// skipped, not fatal.
var ErrMalformedDocument = errors.New("malformed archive document")

// Parser turns an archive play-by-play document into a ParsedGame. Parsing
// is purely structural: no network, no retry, deterministic for identical
// input bytes.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a document parser.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse parses a play-by-play document.
func (p *Parser) Parse(document []byte) (*ParsedGame, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	root := doc.Find("div#contest")
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: missing contest root", ErrMalformedDocument)
	}

	game := &ParsedGame{}

	if err := p.parseMetadata(root, &game.Metadata); err != nil {
		return nil, err
	}
	p.parseStatus(root, &game.Status)

	homeSel := root.Find("div.team.home").First()
	awaySel := root.Find("div.team.away").First()
	if homeSel.Length() == 0 || awaySel.Length() == 0 {
		return nil, fmt.Errorf("%w: missing team sections", ErrMalformedDocument)
	}

	game.Home = p.parseTeam(homeSel)
	game.Away = p.parseTeam(awaySel)
	game.Plays = p.parsePlays(root, game.Metadata.ArchiveID)

	return game, nil
}

func (p *Parser) parseMetadata(root *goquery.Selection, meta *GameMetadata) error {
	metaSel := root.Find("div.contest-meta").First()
	if metaSel.Length() == 0 {
		return fmt.Errorf("%w: missing contest metadata", ErrMalformedDocument)
	}

	meta.ArchiveID, _ = metaSel.Attr("data-contest-id")
	meta.CompetitionID, _ = metaSel.Attr("data-competition-id")
	if meta.ArchiveID == "" {
		return fmt.Errorf("%w: contest metadata missing id", ErrMalformedDocument)
	}

	if dateStr, ok := metaSel.Attr("data-date"); ok {
		if parsed, err := time.Parse("2006-01-02", dateStr); err == nil {
			meta.Date = parsed
		}
	}

	meta.NeutralSite = attrFlag(metaSel, "data-neutral")
	meta.Postseason = attrFlag(metaSel, "data-postseason")
	meta.Venue = strings.TrimSpace(metaSel.Find("span.venue").Text())
	meta.Attendance = parseCount(metaSel.Find("span.attendance").Text())

	if home := root.Find("div.team.home").First(); home.Length() > 0 {
		meta.HomeID, _ = home.Attr("data-team-id")
		meta.HomeName, _ = home.Attr("data-team-name")
	}
	if away := root.Find("div.team.away").First(); away.Length() > 0 {
		meta.AwayID, _ = away.Attr("data-team-id")
		meta.AwayName, _ = away.Attr("data-team-name")
	}

	return nil
}

func (p *Parser) parseStatus(root *goquery.Selection, status *GameStatus) {
	statusSel := root.Find("div.contest-status").First()
	if statusSel.Length() == 0 {
		return
	}

	status.Completed = attrFlag(statusSel, "data-final")
	if period, ok := statusSel.Attr("data-period"); ok {
		status.Period = parseCount(period)
	}
	status.Clock, _ = statusSel.Attr("data-clock")
}

func (p *Parser) parseTeam(teamSel *goquery.Selection) TeamStats {
	stats := TeamStats{}

	totals := teamSel.Find("tr.totals").First()
	totals.Find("td[data-stat]").Each(func(i int, cell *goquery.Selection) {
		stat, _ := cell.Attr("data-stat")
		value := parseCount(cell.Text())

		switch stat {
		case "fgm":
			stats.FieldGoalsMade = value
		case "fga":
			stats.FieldGoalsAttempted = value
		case "3pm":
			stats.ThreePointersMade = value
		case "3pa":
			stats.ThreePointersAttempted = value
		case "ftm":
			stats.FreeThrowsMade = value
		case "fta":
			stats.FreeThrowsAttempted = value
		case "oreb":
			stats.OffensiveRebounds = value
		case "dreb":
			stats.DefensiveRebounds = value
		case "ast":
			stats.Assists = value
		case "stl":
			stats.Steals = value
		case "blk":
			stats.Blocks = value
		case "tov":
			stats.Turnovers = value
		case "pf":
			stats.Fouls = value
		case "pts":
			stats.Points = value
		}
	})

	teamSel.Find("tr.linescore td.period").Each(func(i int, cell *goquery.Selection) {
		stats.PeriodScores = append(stats.PeriodScores, parseCount(cell.Text()))
	})

	teamSel.Find("tr.player").Each(func(i int, row *goquery.Selection) {
		line, ok := parsePlayerLine(row)
		if !ok {
			p.logger.Debug("skipping malformed player row", zap.Int("row", i))
			return
		}
		stats.Players = append(stats.Players, line)
	})

	stats.EffectiveFGPct = effectiveFieldGoalPct(stats.FieldGoalsMade, stats.ThreePointersMade, stats.FieldGoalsAttempted)
	stats.TrueShootingPct = trueShootingPct(stats.Points, stats.FieldGoalsAttempted, stats.FreeThrowsAttempted)
	stats.TurnoverRate = turnoverRate(stats.Turnovers, stats.FieldGoalsAttempted, stats.FreeThrowsAttempted)

	return stats
}

func parsePlayerLine(row *goquery.Selection) (PlayerLine, bool) {
	line := PlayerLine{}

	line.PlayerID, _ = row.Attr("data-player-id")
	line.Name = strings.TrimSpace(row.Find("td.name").Text())
	if line.Name == "" {
		return line, false
	}

	line.Starter = attrFlag(row, "data-starter")

	row.Find("td[data-stat]").Each(func(i int, cell *goquery.Selection) {
		stat, _ := cell.Attr("data-stat")
		value := parseCount(cell.Text())

		switch stat {
		case "min":
			line.Minutes = value
		case "pts":
			line.Points = value
		case "reb":
			line.Rebounds = value
		case "ast":
			line.Assists = value
		case "fgm":
			line.FieldGoalsMade = value
		case "fga":
			line.FieldGoalsAttempted = value
		case "3pm":
			line.ThreePointersMade = value
		case "3pa":
			line.ThreePointersAttempted = value
		case "ftm":
			line.FreeThrowsMade = value
		case "fta":
			line.FreeThrowsAttempted = value
		case "tov":
			line.Turnovers = value
		}
	})

	return line, true
}

// parsePlays extracts the chronological play sequence. Period boundaries are
// preserved via each row's period attribute; a row missing its required
// fields is skipped and logged, never fatal to the document.
func (p *Parser) parsePlays(root *goquery.Selection, archiveID string) []PlayEvent {
	var plays []PlayEvent

	root.Find("table.pbp tr.play").Each(func(i int, row *goquery.Selection) {
		play := PlayEvent{}

		periodStr, ok := row.Attr("data-period")
		if !ok {
			p.logger.Debug("skipping play without period",
				zap.String("contest", archiveID), zap.Int("row", i))
			return
		}
		play.Period = parseCount(periodStr)

		play.Clock = strings.TrimSpace(row.Find("td.clock").Text())
		play.Team = strings.TrimSpace(row.Find("td.team").Text())
		play.Action = strings.TrimSpace(row.Find("td.action").Text())
		if play.Action == "" {
			p.logger.Debug("skipping play without action",
				zap.String("contest", archiveID), zap.Int("row", i))
			return
		}

		if scoreText := strings.TrimSpace(row.Find("td.score").Text()); scoreText != "" {
			if home, away, ok := parseScorePair(scoreText); ok {
				play.HomeScore = home
				play.AwayScore = away
				play.HasScore = true
			}
		}

		// Optional qualifiers: absent cells simply stay empty.
		play.ShotType = strings.TrimSpace(row.Find("td.shot").Text())
		play.AssistBy = strings.TrimSpace(row.Find("td.assist").Text())
		play.FoulType = strings.TrimSpace(row.Find("td.foul").Text())

		plays = append(plays, play)
	})

	return plays
}

// effectiveFieldGoalPct computes (FGM + 0.5*3PM) / FGA, guarding the zero
// denominator so downstream consumers never see NaN.
func effectiveFieldGoalPct(fgm, tpm, fga int) float64 {
	if fga == 0 {
		return 0
	}
	return (float64(fgm) + 0.5*float64(tpm)) / float64(fga)
}

// trueShootingPct computes PTS / (2 * (FGA + 0.44*FTA)).
func trueShootingPct(points, fga, fta int) float64 {
	denom := 2 * (float64(fga) + 0.44*float64(fta))
	if denom == 0 {
		return 0
	}
	return float64(points) / denom
}

// turnoverRate computes TOV / (FGA + 0.44*FTA + TOV).
func turnoverRate(tov, fga, fta int) float64 {
	denom := float64(fga) + 0.44*float64(fta) + float64(tov)
	if denom == 0 {
		return 0
	}
	return float64(tov) / denom
}

func attrFlag(sel *goquery.Selection, attr string) bool {
	v, _ := sel.Attr(attr)
	return v == "1" || strings.EqualFold(v, "true")
}

func parseCount(text string) int {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	n, _ := strconv.Atoi(cleaned)
	return n
}

func parseScorePair(text string) (home, away int, ok bool) {
	parts := strings.SplitN(text, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	home, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	away, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}

	return home, away, true
}
