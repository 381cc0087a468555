// Package aggregate merges per-session records into one combined view.
//
// Build is a pure function of its inputs: the same bundles always produce
// the same AggregateView, so callers may recompute it freely (detail pages,
// summary previews, popovers) instead of re-deriving the merge rules.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/internal/domain/types"
)

// DurationUnknown is rendered when a duration is zero or absent.
const DurationUnknown = "N/A"

// RatioInfinite is rendered when a player has kills but no deaths.
const RatioInfinite = "∞"

// timestampLayouts lists the accepted formats after legacy normalization.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Build merges the fetched bundles into one AggregateView. ids carries the
// resolved order; sessions whose record is absent are skipped but never
// fail the merge. Returns ErrNoUsableSession when nothing usable remains.
func Build(ids []string, bundles map[string]model.SessionBundle) (types.AggregateView, error) {
	var (
		view     types.AggregateView
		earliest *time.Time
		latest   *time.Time
		seenMap  = make(map[string]struct{})
		seenSrv  = make(map[string]struct{})
		totals   = make(map[string]*types.LeaderboardRow)
		order    []string
	)

	for _, id := range ids {
		bundle, ok := bundles[id]
		if !ok || bundle.Record == nil {
			continue
		}
		rec := bundle.Record

		view.SessionCount++
		view.SessionIDs = append(view.SessionIDs, id)

		if t, err := ParseTimestamp(rec.StartedAt); err == nil {
			if earliest == nil || t.Before(*earliest) {
				earliest = &t
			}
		}
		if rec.EndedAt != "" {
			if t, err := ParseTimestamp(rec.EndedAt); err == nil {
				if latest == nil || t.After(*latest) {
					latest = &t
				}
			}
		}

		if rec.MapName != "" {
			if _, dup := seenMap[rec.MapName]; !dup {
				seenMap[rec.MapName] = struct{}{}
				view.Maps = append(view.Maps, rec.MapName)
			}
		}
		if rec.ServerAddr != "" {
			if _, dup := seenSrv[rec.ServerAddr]; !dup {
				seenSrv[rec.ServerAddr] = struct{}{}
				view.Servers = append(view.Servers, rec.ServerAddr)
			}
		}

		for _, line := range bundle.Players {
			row, ok := totals[line.Name]
			if !ok {
				row = &types.LeaderboardRow{Name: line.Name}
				totals[line.Name] = row
				order = append(order, line.Name)
			}
			row.Kills += line.Kills
			row.Deaths += line.Deaths
		}
	}

	if view.SessionCount == 0 {
		return types.AggregateView{}, ErrNoUsableSession
	}

	view.StartedAt = earliest
	view.EndedAt = latest
	if earliest != nil && latest != nil {
		if secs := int64(latest.Sub(*earliest) / time.Second); secs > 0 {
			view.DurationSec = secs
		}
	}
	view.Duration = FormatDuration(view.DurationSec)

	view.Leaderboard = make([]types.LeaderboardRow, 0, len(order))
	for _, name := range order {
		row := totals[name]
		row.KDRatio = KDRatio(row.Kills, row.Deaths)
		view.Leaderboard = append(view.Leaderboard, *row)
	}
	// Stable: ties keep encounter order.
	sort.SliceStable(view.Leaderboard, func(i, j int) bool {
		return view.Leaderboard[i].Kills > view.Leaderboard[j].Kills
	})

	return view, nil
}

// ParseTimestamp accepts the canonical RFC3339 form plus the legacy
// "2006-01-02 15:04:05" form. The legacy separator space becomes "T" and,
// absent a zone offset or UTC marker, the time is taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// FormatDuration renders whole seconds as "1h 2m 5s", omitting leading
// zero-valued units. Zero or negative durations render as DurationUnknown.
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return DurationUnknown
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60

	var parts []string
	if h > 0 {
		parts = append(parts, strconv.FormatInt(h, 10)+"h")
	}
	if h > 0 || m > 0 {
		parts = append(parts, strconv.FormatInt(m, 10)+"m")
	}
	parts = append(parts, strconv.FormatInt(s, 10)+"s")
	return strings.Join(parts, " ")
}

// KDRatio renders a kill/death ratio at two decimals. Deaths of zero with
// any kills is the infinite sentinel; zero kills and zero deaths is "0.00".
func KDRatio(kills, deaths int) string {
	switch {
	case deaths == 0 && kills > 0:
		return RatioInfinite
	case kills == 0 && deaths == 0:
		return "0.00"
	default:
		return strconv.FormatFloat(float64(kills)/float64(deaths), 'f', 2, 64)
	}
}
