package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// registerRosters posts each match roster to the dashboard before any
// scores flow, so verdicts report a meaningful player count.
func registerRosters(ctx context.Context, config *Config, matches []FabricatedMatch) error {
	log.Printf("📋 Registering %d rosters...", len(matches))

	client := newHTTPClient(config.Timeout)
	for _, match := range matches {
		url := config.BaseURL + "/matches/" + match.ID + "/roster"
		resp, err := client.Post(ctx, url, rosterPayload{Players: match.Roster})
		if err != nil {
			return fmt.Errorf("failed to register roster for %s: %w", match.ID, err)
		}
		if _, err := readResponseBody(resp); err != nil {
			return fmt.Errorf("failed to read roster response for %s: %w", match.ID, err)
		}
		if resp.StatusCode != StatusNoContent {
			return fmt.Errorf("roster registration for %s failed with status: %d", match.ID, resp.StatusCode)
		}
	}

	log.Printf("✅ Rosters registered")
	return nil
}

// pendingScore pairs a submission with the match it belongs to.
type pendingScore struct {
	matchID string
	payload scorePayload
}

// submitScores submits all fabricated scores concurrently using a worker pool
func submitScores(ctx context.Context, config *Config, matches []FabricatedMatch, stats *Stats) error {
	pending := make([]pendingScore, 0, len(matches)*config.Submitters)
	for _, match := range matches {
		for _, payload := range match.Submissions {
			pending = append(pending, pendingScore{matchID: match.ID, payload: payload})
		}
	}

	log.Printf("📤 Submitting %d scores with %d workers...", len(pending), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Counters for statistics
	var (
		accepted  int64
		rejected  int64
		failed    int64
		submitted int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	scoreChan := make(chan pendingScore, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for score := range scoreChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleScore(ctx, client, config.BaseURL, score)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "accepted":
						atomic.AddInt64(&accepted, 1)
					case "rejected":
						atomic.AddInt64(&rejected, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						acc := atomic.LoadInt64(&accepted)
						rej := atomic.LoadInt64(&rejected)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (accepted: %d, rejected: %d, failed: %d)",
								total, len(pending), acc, rej, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (accepted: %d, rejected: %d, failed: %d)",
								total, len(pending), acc, rej, fail)
						}
					}
				}
			}
		}()
	}

	// Send scores to workers
	go func() {
		defer close(scoreChan)
		for _, score := range pending {
			select {
			case <-ctx.Done():
				return
			case scoreChan <- score:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.ScoresSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ScoresAccepted = int(atomic.LoadInt64(&accepted))
	stats.ScoresRejected = int(atomic.LoadInt64(&rejected))
	stats.ScoresFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Score submission completed:
   Accepted: %d
   Rejected: %d
   Failed: %d
`, stats.ScoresAccepted, stats.ScoresRejected, stats.ScoresFailed)

	return nil
}

// submitSingleScore submits a single score and returns the result
func submitSingleScore(ctx context.Context, client *HTTPClient, baseURL string, score pendingScore) string {
	url := baseURL + "/matches/" + score.matchID + "/scores"
	resp, err := client.Post(ctx, url, score.payload)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Status != "" && ack.Status != "accepted" {
			return "rejected"
		}
		return "accepted"
	case http.StatusTooManyRequests:
		// Queue backpressure; the submission was rolled back.
		return "rejected"
	default:
		return "failed"
	}
}

// retrieveVerdicts fetches the consensus verdict for every match.
func retrieveVerdicts(ctx context.Context, config *Config, matches []FabricatedMatch, stats *Stats) (map[string]ConsensusResponse, error) {
	log.Printf("🔎 Retrieving %d verdicts with %d workers...", len(matches), config.Workers)

	client := newHTTPClient(config.Timeout)
	verdicts := make(map[string]ConsensusResponse, len(matches))

	var mu sync.Mutex
	var wg sync.WaitGroup
	matchChan := make(chan FabricatedMatch, config.Workers*WorkerChannelMultiplier)

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for match := range matchChan {
				select {
				case <-ctx.Done():
					return
				default:
					verdict, err := fetchVerdict(ctx, client, config.BaseURL, match.ID)
					if err != nil {
						if config.Verbose {
							log.Printf("⚠️  Verdict retrieval failed for %s: %v", match.ID, err)
						}
						continue
					}
					mu.Lock()
					verdicts[match.ID] = verdict
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(matchChan)
		for _, match := range matches {
			select {
			case <-ctx.Done():
				return
			case matchChan <- match:
			}
		}
	}()

	wg.Wait()

	stats.VerdictsRetrieved = len(verdicts)
	for _, v := range verdicts {
		if v.Reached {
			stats.VerdictsReached++
		}
	}

	log.Printf("✅ Retrieved %d verdicts (%d reached consensus)", stats.VerdictsRetrieved, stats.VerdictsReached)
	return verdicts, nil
}

// fetchVerdict retrieves the consensus verdict for one match.
func fetchVerdict(ctx context.Context, client *HTTPClient, baseURL, matchID string) (ConsensusResponse, error) {
	var verdict ConsensusResponse

	resp, err := client.Get(ctx, baseURL+"/matches/"+matchID+"/consensus")
	if err != nil {
		return verdict, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return verdict, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return verdict, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := unmarshalJSON(body, &verdict); err != nil {
		return verdict, fmt.Errorf("failed to parse verdict: %w", err)
	}
	return verdict, nil
}
