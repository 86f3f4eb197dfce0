package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/httpclient"
	"github.com/Vodeneev/oddsmerge/internal/pkg/metrics"
)

type sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

type oddsEvent struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []bookmaker `json:"bookmakers"`
}

type bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []market  `json:"markets"`
}

type market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []outcome `json:"outcomes"`
}

type outcome struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Client talks to the aggregator REST API and tracks the request quota it
// reports.
type Client struct {
	http   *resty.Client
	cfg    config.AggregatorConfig
	logger *slog.Logger

	used      atomic.Int64
	remaining atomic.Int64
}

func NewClient(cfg config.AggregatorConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http:   httpclient.New(cfg.BaseURL, cfg.Timeout).SetHeader("Accept", "application/json"),
		cfg:    cfg,
		logger: logger,
	}
	c.remaining.Store(-1)
	return c
}

// Remaining is the last request quota the API reported, or -1.
func (c *Client) Remaining() int64 { return c.remaining.Load() }

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("apiKey", c.cfg.APIKey).
		SetQueryParams(params).
		SetResult(out)
	resp, err := req.Get(path)
	if err := httpclient.Check(resp, err); err != nil {
		return fmt.Errorf("aggregator %s: %w", path, err)
	}
	c.trackQuota(resp)
	return nil
}

func (c *Client) trackQuota(resp *resty.Response) {
	if v := resp.Header().Get("x-requests-used"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			c.used.Store(int64(n + 0.5))
		}
	}
	v := resp.Header().Get("x-requests-remaining")
	if v == "" {
		return
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	remaining := int64(n + 0.5)
	if c.remaining.Swap(remaining) != remaining {
		c.logger.Info("aggregator quota", "requests_remaining", remaining, "requests_used", c.used.Load())
	}
	metrics.RequestsRemaining.WithLabelValues(Name).Set(float64(remaining))
}

func (c *Client) Sports(ctx context.Context) ([]sport, error) {
	var out []sport
	if err := c.get(ctx, "/sports", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Odds returns the featured markets of every event of a sport starting in
// [from, to].
func (c *Client) Odds(ctx context.Context, sportKey string, from, to time.Time) ([]oddsEvent, error) {
	params := c.marketParams(c.cfg.Markets)
	if !from.IsZero() {
		params["commenceTimeFrom"] = formatTime(from)
	}
	if !to.IsZero() {
		params["commenceTimeTo"] = formatTime(to)
	}
	var out []oddsEvent
	if err := c.get(ctx, "/sports/"+sportKey+"/odds", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EventOdds returns the given markets of one event. Additional markets are
// only available here.
func (c *Client) EventOdds(ctx context.Context, sportKey, eventID string, markets []string) (*oddsEvent, error) {
	var out oddsEvent
	path := "/sports/" + sportKey + "/events/" + eventID + "/odds"
	if err := c.get(ctx, path, c.marketParams(markets), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) marketParams(markets []string) map[string]string {
	return map[string]string{
		"regions":    strings.Join(c.cfg.Regions, ","),
		"markets":    strings.Join(markets, ","),
		"oddsFormat": c.cfg.OddsFormat,
		"dateFormat": "iso",
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
