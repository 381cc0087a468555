package simulator

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// Constants for session fabrication ranges.
const (
	minRosterSize      = 4
	rosterSizeRange    = 6
	minSessionMinutes  = 10
	sessionMinuteRange = 50
	minKills           = 0
	killRange          = 25
	minDeaths          = 0
	deathRange         = 20
	sessionGapMinutes  = 5
)

// Constants for score fabrication ranges.
const (
	maxTeamScore = 20
)

// Fabrication quirk rates, as fractions of fabricated records. The data
// service in the wild is uneven; the simulation reproduces that.
const (
	legacyTimestampRate = 0.25
	missingEndedAtRate  = 0.1
	missingAnalytics    = 0.15
	missingRosterRate   = 0.1
	bareRosterRate      = 0.5
	disagreeRate        = 0.2
)

// mapPool and serverPool feed fabricated session metadata.
var mapPool = []string{
	"dust_canyon", "frozen_keep", "harbor_line", "overgrowth",
	"relay_station", "sandstorm", "terminal_west", "undercity",
}

var serverPool = []string{
	"fra1.play.example.net:27015",
	"fra2.play.example.net:27015",
	"ams1.play.example.net:27015",
	"lon1.play.example.net:27015",
}

var namePool = []string{
	"ripley", "hicks", "vasquez", "bishop", "hudson", "apone",
	"newt", "gorman", "drake", "dietrich", "frost", "ferro",
	"spunkmeyer", "crowe", "wierzbowski", "burke",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, max) using crypto/rand.
func getRandomInt(max int) int {
	if max <= 0 {
		return 0
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// FabricatedSession is one fake game session the upstream service will
// serve. Quirk flags control which retrievals succeed and in what shape.
type FabricatedSession struct {
	Record       model.SessionRecord
	Players      []model.PlayerStatLine
	Analytics    model.AnalyticsSummary
	NoAnalytics  bool
	NoRoster     bool
	WrappedShape bool
}

// FabricatedMatch is one match to drive through the scoring pipeline.
type FabricatedMatch struct {
	ID          string
	Roster      []string
	TrueA       int
	TrueB       int
	Submissions []scorePayload
}

// generateSessions fabricates n sessions with uneven metadata: a share of
// legacy timestamps, missing end times, absent analytics and absent or
// wrapped rosters.
func generateSessions(ctx context.Context, config *Config, stats *Stats) []FabricatedSession {
	logger.Get().Info(ctx, "fabricating sessions", logger.Int("count", config.NumSessions))

	sessions := make([]FabricatedSession, 0, config.NumSessions)
	cursor := time.Now().UTC().Add(-time.Duration(config.NumSessions) * time.Hour)

	for i := 0; i < config.NumSessions; i++ {
		minutes := minSessionMinutes + getRandomInt(sessionMinuteRange)
		start := cursor
		end := start.Add(time.Duration(minutes) * time.Minute)
		cursor = end.Add(sessionGapMinutes * time.Minute)

		rec := model.SessionRecord{
			ID:         fmt.Sprintf("sess-%04d", i+1),
			StartedAt:  formatTimestamp(start),
			ServerAddr: serverPool[getRandomInt(len(serverPool))],
			MapName:    mapPool[getRandomInt(len(mapPool))],
		}
		if getRandomFloat() >= missingEndedAtRate {
			rec.EndedAt = formatTimestamp(end)
		}

		roster := pickRoster()
		players := make([]model.PlayerStatLine, 0, len(roster))
		totalKills, totalDeaths := 0, 0
		for _, name := range roster {
			line := model.PlayerStatLine{
				Name:   name,
				Kills:  minKills + getRandomInt(killRange),
				Deaths: minDeaths + getRandomInt(deathRange),
			}
			totalKills += line.Kills
			totalDeaths += line.Deaths
			players = append(players, line)
		}

		sessions = append(sessions, FabricatedSession{
			Record:  rec,
			Players: players,
			Analytics: model.AnalyticsSummary{
				TotalKills:  totalKills,
				TotalDeaths: totalDeaths,
				PlayerCount: len(players),
				DurationSec: minutes * 60,
			},
			NoAnalytics:  getRandomFloat() < missingAnalytics,
			NoRoster:     getRandomFloat() < missingRosterRate,
			WrappedShape: getRandomFloat() < bareRosterRate,
		})
	}

	stats.SessionsFabricated = len(sessions)
	return sessions
}

// formatTimestamp renders t in one of the formats upstream is known to
// emit: RFC3339, bare local-style, or space-separated legacy.
func formatTimestamp(t time.Time) string {
	switch r := getRandomFloat(); {
	case r < legacyTimestampRate:
		return t.Format("2006-01-02 15:04:05")
	case r < 2*legacyTimestampRate:
		return t.Format("2006-01-02T15:04:05")
	default:
		return t.Format(time.RFC3339)
	}
}

// pickRoster draws a random roster from the name pool without repeats.
func pickRoster() []string {
	size := minRosterSize + getRandomInt(rosterSizeRange)
	perm := make([]string, len(namePool))
	copy(perm, namePool)
	for i := len(perm) - 1; i > 0; i-- {
		j := getRandomInt(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:size]
}

// generateMatches fabricates matches with rosters, a true final score and
// one submission per submitter. Most submitters report the true score; a
// minority disagrees, so some matches resolve only after extra rounds and
// a few never reach quorum.
func generateMatches(ctx context.Context, config *Config, stats *Stats) []FabricatedMatch {
	logger.Get().Info(ctx, "fabricating matches",
		logger.Int("count", config.NumMatches),
		logger.Int("submitters", config.Submitters))

	matches := make([]FabricatedMatch, 0, config.NumMatches)
	for i := 0; i < config.NumMatches; i++ {
		roster := pickRoster()
		trueA := getRandomInt(maxTeamScore + 1)
		trueB := getRandomInt(maxTeamScore + 1)

		subs := make([]scorePayload, 0, config.Submitters)
		for s := 0; s < config.Submitters && s < len(roster); s++ {
			p := scorePayload{Submitter: roster[s], TeamA: trueA, TeamB: trueB}
			if getRandomFloat() < disagreeRate {
				// An off-by-one misreport, the common real-world case.
				p.TeamA = trueA + 1 + getRandomInt(2)
			}
			subs = append(subs, p)
		}

		matches = append(matches, FabricatedMatch{
			ID:          fmt.Sprintf("match-%04d", i+1),
			Roster:      roster,
			TrueA:       trueA,
			TrueB:       trueB,
			Submissions: subs,
		})
	}

	stats.MatchesDriven = len(matches)
	return matches
}
