package priceindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Fetcher pulls daily USD closes from the external price feed (spec §6):
// "HTTP GET on an endpoint returning {"USD": <float>} for a given Unix
// timestamp; queried daily for the full history on bootstrap, then
// forward-only."
type Fetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{BaseURL: baseURL, Client: &http.Client{Timeout: 30 * time.Second}}
}

type priceFeedResponse struct {
	USD float64 `json:"USD"`
}

// FetchDailyPrice requests the close for a single Unix-second timestamp.
func (f *Fetcher) FetchDailyPrice(ctx context.Context, ts time.Time) (float64, error) {
	u, err := url.Parse(f.BaseURL)
	if err != nil {
		return 0, fmt.Errorf("priceindex: parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("ts", strconv.FormatInt(ts.Unix(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("priceindex: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("priceindex: fetch: %w", err)
	}
	defer resp.Body.Close()

	var body priceFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("priceindex: decode response: %w", err)
	}
	if body.USD <= 0 {
		return 0, fmt.Errorf("priceindex: feed returned non-positive price for %s", ts.Format(time.RFC3339))
	}
	return body.USD, nil
}

// BackfillRange fetches one price per day in [from, to], inclusive,
// skipping (not failing) days the feed can't answer — a data-quality gap,
// not an integrity violation (spec §7 taxonomy tier 3).
func (f *Fetcher) BackfillRange(ctx context.Context, from, to time.Time) (map[time.Time]float64, []time.Time) {
	out := make(map[time.Time]float64)
	var missing []time.Time
	for d := toDate(from); !d.After(toDate(to)); d = d.AddDate(0, 0, 1) {
		price, err := f.FetchDailyPrice(ctx, d)
		if err != nil {
			missing = append(missing, d)
			continue
		}
		out[d] = price
	}
	return out, missing
}
