package tradier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xhhuango/json"
)

const (
	DefaultBaseURL = "https://api.tradier.com"
	dateLayout     = "2006-01-02"
)

var (
	ErrNoPriceHistory = errors.New("no price history returned")
	ErrNoExpirations  = errors.New("no option expirations returned")
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse url: %w", err)
	}
	u.RawQuery = query.Encode()

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	r.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.token))
	r.Header.Add("Accept", "application/json")

	resp, err := c.http.Do(r)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	responseData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response data: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s returned %s: %s", path, resp.Status, truncate(responseData, 200))
	}

	if err := json.Unmarshal(responseData, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", path, err)
	}
	return nil
}

func (c *Client) GetQuoteHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (*QuoteHistory, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("start", start.Format(dateLayout))
	q.Set("end", end.Format(dateLayout))
	q.Set("session_filter", "all")

	history := &QuoteHistory{}
	if err := c.get(ctx, "/v1/markets/history", q, history); err != nil {
		return nil, err
	}
	return history, nil
}

// LastClose returns the most recent daily close within the past week.
func (c *Client) LastClose(ctx context.Context, symbol string, now time.Time) (float64, error) {
	history, err := c.GetQuoteHistory(ctx, symbol, now.AddDate(0, 0, -7), now, "daily")
	if err != nil {
		return 0, err
	}
	for i := len(history.History.Day) - 1; i >= 0; i-- {
		if last := history.History.Day[i].Close; last > 0 {
			return last, nil
		}
	}
	return 0, fmt.Errorf("%w for %s", ErrNoPriceHistory, symbol)
}

// GetExpirations returns expiration dates in ascending order.
func (c *Client) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("includeAllRoots", "true")
	q.Set("strikes", "false")
	q.Set("contractSize", "true")
	q.Set("expirationType", "true")

	expirations := &OptionExpirations{}
	if err := c.get(ctx, "/v1/markets/options/expirations", q, expirations); err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(expirations.Expirations.Expiration))
	for _, e := range expirations.Expirations.Expiration {
		dates = append(dates, e.Date)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoExpirations, symbol)
	}
	return dates, nil
}

func (c *Client) GetOptionChain(ctx context.Context, symbol, expiration string) (*OptionChain, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("expiration", expiration)
	q.Set("greeks", "true")

	chain := &OptionChain{}
	if err := c.get(ctx, "/v1/markets/options/chains", q, chain); err != nil {
		return nil, err
	}
	chain.ExpirationDate = expiration
	return chain, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
