package simulator

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
)

// tokenCase is one token to resolve plus the ids it should resolve to.
type tokenCase struct {
	token string
	ids   []string
}

// buildTokens turns fabricated session ids into the uneven token shapes
// clients actually send: single ids, plus- and tilde-joined groups,
// space separators, singly and doubly percent-encoded joins, and
// duplicated ids that should collapse.
func buildTokens(sessions []FabricatedSession) []tokenCase {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.Record.ID)
	}

	cases := make([]tokenCase, 0)
	for i := 0; i+3 < len(ids); i += 4 {
		a, b, c := ids[i], ids[i+1], ids[i+2]

		switch i / 4 % 5 {
		case 0:
			cases = append(cases, tokenCase{token: a, ids: []string{a}})
		case 1:
			cases = append(cases, tokenCase{token: a + "+" + b, ids: []string{a, b}})
		case 2:
			cases = append(cases, tokenCase{token: a + "~" + b + "~" + c, ids: []string{a, b, c}})
		case 3:
			// One encoding layer: '+' arrives as %2B, spaces as %20.
			cases = append(cases, tokenCase{
				token: url.PathEscape(a + "+" + b + " " + c),
				ids:   []string{a, b, c},
			})
		case 4:
			// Two encoding layers plus a duplicated id.
			cases = append(cases, tokenCase{
				token: url.PathEscape(url.PathEscape(a + "+" + b + "+" + a)),
				ids:   []string{a, b},
			})
		}
	}
	return cases
}

// retrieveAggregates resolves each token against the dashboard and keeps
// the views for verification.
func retrieveAggregates(ctx context.Context, config *Config, tokens []tokenCase, stats *Stats) (map[string]AggregateResponse, error) {
	log.Printf("🗂️  Retrieving %d aggregate views with %d workers...", len(tokens), config.Workers)

	client := newHTTPClient(config.Timeout)
	views := make(map[string]AggregateResponse, len(tokens))

	var mu sync.Mutex
	var wg sync.WaitGroup
	tokenChan := make(chan tokenCase, config.Workers*WorkerChannelMultiplier)

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tc := range tokenChan {
				select {
				case <-ctx.Done():
					return
				default:
					view, err := fetchAggregate(ctx, client, config.BaseURL, tc.token)
					if err != nil {
						mu.Lock()
						stats.AggregatesFailed++
						mu.Unlock()
						if config.Verbose {
							log.Printf("⚠️  Aggregate retrieval failed for %q: %v", tc.token, err)
						}
						continue
					}
					mu.Lock()
					views[tc.token] = view
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(tokenChan)
		for _, tc := range tokens {
			select {
			case <-ctx.Done():
				return
			case tokenChan <- tc:
			}
		}
	}()

	wg.Wait()

	stats.AggregatesRetrieved = len(views)
	log.Printf("✅ Retrieved %d aggregate views (%d failed)", stats.AggregatesRetrieved, stats.AggregatesFailed)
	return views, nil
}

// fetchAggregate resolves one token into an aggregate view.
func fetchAggregate(ctx context.Context, client *HTTPClient, baseURL, token string) (AggregateResponse, error) {
	var view AggregateResponse

	resp, err := client.Get(ctx, baseURL+"/sessions/"+token)
	if err != nil {
		return view, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return view, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return view, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := unmarshalJSON(body, &view); err != nil {
		return view, fmt.Errorf("failed to parse view: %w", err)
	}
	return view, nil
}
