package simulator

import (
	"context"
	"fmt"
	"log"
)

// consensusQuorum mirrors the dashboard's agreement threshold.
const consensusQuorum = 2

// verifyResults checks the retrieved verdicts and aggregate views against
// what the fabricated inputs should produce. Warnings are logged rather
// than fatal: submissions land concurrently, so a disagreeing match may
// legitimately settle on either quorate pair.
func verifyResults(ctx context.Context, config *Config, matches []FabricatedMatch, verdicts map[string]ConsensusResponse, tokens []tokenCase, views map[string]AggregateResponse, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(verdicts) == 0 {
		return fmt.Errorf("no verdicts to verify")
	}

	for _, match := range matches {
		verdict, ok := verdicts[match.ID]
		if !ok {
			continue
		}
		if err := verifyVerdict(match, verdict); err != nil {
			stats.VerificationWarnings++
			log.Printf("⚠️  Verdict warning for %s: %v", match.ID, err)
		}
	}

	for _, tc := range tokens {
		view, ok := views[tc.token]
		if !ok {
			continue
		}
		if err := verifyAggregate(tc, view); err != nil {
			stats.VerificationWarnings++
			log.Printf("⚠️  Aggregate warning for %q: %v", tc.token, err)
		}
	}

	if stats.VerificationWarnings == 0 {
		log.Println("✅ Result verification completed with no warnings")
	} else {
		log.Printf("✅ Result verification completed with %d warnings", stats.VerificationWarnings)
	}
	return nil
}

// verifyVerdict checks one verdict against the fabricated submissions.
func verifyVerdict(match FabricatedMatch, verdict ConsensusResponse) error {
	// Count how many submitters reported each (a, b) pair.
	counts := make(map[[2]int]int, len(match.Submissions))
	for _, s := range match.Submissions {
		counts[[2]int{s.TeamA, s.TeamB}]++
	}

	quorate := false
	for _, n := range counts {
		if n >= consensusQuorum {
			quorate = true
			break
		}
	}

	if quorate && !verdict.Reached {
		return fmt.Errorf("expected consensus but verdict is %q with %d submissions",
			verdict.Status, verdict.SubmissionCount)
	}
	if !quorate && verdict.Reached {
		return fmt.Errorf("verdict reached consensus %d-%d without a quorate pair",
			deref(verdict.AgreedA), deref(verdict.AgreedB))
	}

	if verdict.Reached {
		if verdict.AgreedA == nil || verdict.AgreedB == nil {
			return fmt.Errorf("reached verdict is missing agreed scores")
		}
		// The agreed pair must be one that actually hit quorum; with
		// concurrent disagreeing submitters the tie-break order is not ours
		// to predict, so any quorate pair is acceptable.
		if counts[[2]int{*verdict.AgreedA, *verdict.AgreedB}] < consensusQuorum {
			return fmt.Errorf("agreed score %d-%d never reached quorum among fabricated submissions",
				*verdict.AgreedA, *verdict.AgreedB)
		}
	}

	if verdict.SubmissionCount > len(match.Submissions) {
		return fmt.Errorf("verdict counts %d submissions, only %d were sent",
			verdict.SubmissionCount, len(match.Submissions))
	}
	return nil
}

// verifyAggregate checks one aggregate view against the ids its token
// should resolve to.
func verifyAggregate(tc tokenCase, view AggregateResponse) error {
	if view.SessionCount != len(view.SessionIDs) {
		return fmt.Errorf("session_count %d disagrees with %d session ids",
			view.SessionCount, len(view.SessionIDs))
	}

	// Every usable session must come from the token, in resolved order and
	// without duplicates.
	seen := make(map[string]bool, len(view.SessionIDs))
	expected := make(map[string]bool, len(tc.ids))
	for _, id := range tc.ids {
		expected[id] = true
	}
	for _, id := range view.SessionIDs {
		if seen[id] {
			return fmt.Errorf("session %s appears twice in the view", id)
		}
		seen[id] = true
		if !expected[id] {
			return fmt.Errorf("session %s does not belong to the token", id)
		}
	}

	for i := 1; i < len(view.Leaderboard); i++ {
		if view.Leaderboard[i].Kills > view.Leaderboard[i-1].Kills {
			return fmt.Errorf("leaderboard not sorted: row %d has more kills than row %d", i, i-1)
		}
	}

	if view.DurationSec < 0 {
		return fmt.Errorf("negative duration %d", view.DurationSec)
	}
	return nil
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// displayTopMatches shows a sample of resolved verdicts.
func displayTopMatches(ctx context.Context, matches []FabricatedMatch, verdicts map[string]ConsensusResponse, verbose bool) {
	topN := 10
	if len(matches) < topN {
		topN = len(matches)
	}

	log.Printf("🏆 First %d match verdicts:", topN)
	for i := 0; i < topN; i++ {
		match := matches[i]
		verdict, ok := verdicts[match.ID]
		if !ok {
			log.Printf("   %d. %s - no verdict retrieved", i+1, match.ID)
			continue
		}
		if verdict.Reached {
			log.Printf("   %d. %s - %s %d-%d (%d submissions)",
				i+1, match.ID, verdict.Status, deref(verdict.AgreedA), deref(verdict.AgreedB), verdict.SubmissionCount)
		} else {
			log.Printf("   %d. %s - %s (%d submissions, %d players)",
				i+1, match.ID, verdict.Status, verdict.SubmissionCount, verdict.PlayerCount)
		}
	}

	if verbose {
		reached := 0
		for _, v := range verdicts {
			if v.Reached {
				reached++
			}
		}
		log.Printf(`📊 Verdict statistics:
   Retrieved: %d
   Reached: %d
   Unresolved: %d
`, len(verdicts), reached, len(verdicts)-reached)
	}
}
