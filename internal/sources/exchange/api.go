package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/httpclient"
)

const (
	maxCataloguePages = 100
	timeLayout        = "2006-01-02T15:04:05.000Z"
)

type marketFilter struct {
	EventTypeIDs    []string   `json:"eventTypeIds,omitempty"`
	CompetitionIDs  []string   `json:"competitionIds,omitempty"`
	MarketTypeCodes []string   `json:"marketTypeCodes,omitempty"`
	MarketStartTime *timeRange `json:"marketStartTime,omitempty"`
}

type timeRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type catalogueRequest struct {
	Filter           marketFilter `json:"filter"`
	MarketProjection []string     `json:"marketProjection,omitempty"`
	Sort             string       `json:"sort,omitempty"`
	MaxResults       int          `json:"maxResults"`
	Locale           string       `json:"locale,omitempty"`
}

type marketCatalogue struct {
	MarketID     string            `json:"marketId"`
	MarketName   string            `json:"marketName"`
	TotalMatched float64           `json:"totalMatched"`
	Event        *catalogueEvent   `json:"event"`
	Competition  *competition      `json:"competition"`
	Runners      []catalogueRunner `json:"runners"`
}

type catalogueEvent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CountryCode string    `json:"countryCode"`
	Timezone    string    `json:"timezone"`
	OpenDate    time.Time `json:"openDate"`
}

type competition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type competitionResult struct {
	Competition competition `json:"competition"`
	MarketCount int         `json:"marketCount"`
}

type catalogueRunner struct {
	SelectionID  int64   `json:"selectionId"`
	RunnerName   string  `json:"runnerName"`
	Handicap     float64 `json:"handicap"`
	SortPriority int     `json:"sortPriority"`
}

// PriceProjection selects which prices a market book carries.
type PriceProjection struct {
	PriceData             []string               `json:"priceData,omitempty"`
	ExBestOffersOverrides *ExBestOffersOverrides `json:"exBestOffersOverrides,omitempty"`
}

type ExBestOffersOverrides struct {
	BestPricesDepth int `json:"bestPricesDepth,omitempty"`
}

type bookRequest struct {
	MarketIDs       []string         `json:"marketIds"`
	PriceProjection *PriceProjection `json:"priceProjection,omitempty"`
	OrderProjection string           `json:"orderProjection,omitempty"`
	Locale          string           `json:"locale,omitempty"`
}

type marketBook struct {
	MarketID string       `json:"marketId"`
	Status   string       `json:"status"`
	Runners  []bookRunner `json:"runners"`
}

type bookRunner struct {
	SelectionID int64     `json:"selectionId"`
	Handicap    float64   `json:"handicap"`
	Status      string    `json:"status"`
	Ex          *runnerEx `json:"ex"`
}

type runnerEx struct {
	AvailableToBack []priceSize `json:"availableToBack"`
	AvailableToLay  []priceSize `json:"availableToLay"`
}

type priceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type loginResponse struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Client talks to the exchange betting REST API.
type Client struct {
	http   *resty.Client
	login  *resty.Client
	cfg    config.ExchangeConfig
	logger *slog.Logger

	mu      sync.Mutex
	session string
}

func NewClient(cfg config.ExchangeConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http: httpclient.New(cfg.BaseURL, cfg.Timeout).
			SetHeader("X-Application", cfg.AppKey).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json"),
		login: httpclient.New(cfg.LoginURL, cfg.Timeout).
			SetHeader("X-Application", cfg.AppKey).
			SetHeader("Accept", "application/json"),
		cfg:     cfg,
		logger:  logger,
		session: cfg.SessionToken,
	}
}

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != "" {
		return c.session, nil
	}
	if c.cfg.Username == "" {
		return "", errors.New("exchange: no session token and no username configured")
	}

	var out loginResponse
	err := httpclient.Check(c.login.R().
		SetContext(ctx).
		SetFormDataFromValues(url.Values{
			"username": {c.cfg.Username},
			"password": {c.cfg.Password},
		}).
		SetResult(&out).
		Post(""))
	if err != nil {
		return "", fmt.Errorf("exchange login: %w", err)
	}
	if out.Status != "SUCCESS" || out.Token == "" {
		return "", fmt.Errorf("exchange login: status %s: %s", out.Status, out.Error)
	}
	c.session = out.Token
	c.logger.Info("exchange session established")
	return c.session, nil
}

func (c *Client) post(ctx context.Context, operation string, body, out any) error {
	token, err := c.sessionToken(ctx)
	if err != nil {
		return err
	}
	err = httpclient.Check(c.http.R().
		SetContext(ctx).
		SetHeader("X-Authentication", token).
		SetBody(body).
		SetResult(out).
		Post("/" + operation + "/"))
	if err != nil {
		return fmt.Errorf("exchange %s: %w", operation, err)
	}
	return nil
}

// ListCompetitions returns competition name to id for the given event types.
func (c *Client) ListCompetitions(ctx context.Context, eventTypeIDs []string) (map[string]string, error) {
	var out []competitionResult
	req := struct {
		Filter marketFilter `json:"filter"`
		Locale string       `json:"locale,omitempty"`
	}{Filter: marketFilter{EventTypeIDs: eventTypeIDs}, Locale: c.cfg.Locale}
	if err := c.post(ctx, "listCompetitions", req, &out); err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(out))
	for _, r := range out {
		ids[r.Competition.Name] = r.Competition.ID
	}
	return ids, nil
}

// ListAllMarketCatalogue pages through the catalogue by moving the start
// time window forward to the last market seen, until a page brings nothing
// new.
func (c *Client) ListAllMarketCatalogue(ctx context.Context, filter marketFilter, projection []string) ([]marketCatalogue, error) {
	if filter.MarketStartTime == nil {
		filter.MarketStartTime = &timeRange{}
	}
	req := catalogueRequest{
		Filter:           filter,
		MarketProjection: withEventProjection(projection),
		Sort:             "FIRST_TO_START",
		MaxResults:       catalogueMaxResults(projection),
		Locale:           c.cfg.Locale,
	}

	seen := make(map[string]bool)
	var results []marketCatalogue
	for page := 1; page <= maxCataloguePages; page++ {
		var batch []marketCatalogue
		if err := c.post(ctx, "listMarketCatalogue", req, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return results, nil
		}

		fresh := false
		for _, m := range batch {
			if seen[m.MarketID] {
				continue
			}
			seen[m.MarketID] = true
			results = append(results, m)
			fresh = true
		}
		if !fresh {
			return results, nil
		}

		last := batch[len(batch)-1]
		if last.Event == nil {
			return results, nil
		}
		next := *req.Filter.MarketStartTime
		next.From = formatTime(last.Event.OpenDate)
		req.Filter.MarketStartTime = &next
	}
	return nil, fmt.Errorf("exchange listMarketCatalogue: still finding markets after %d pages", maxCataloguePages)
}

// ListMarketBook prices the given markets.
func (c *Client) ListMarketBook(ctx context.Context, marketIDs []string, projection *PriceProjection) ([]marketBook, error) {
	var out []marketBook
	req := bookRequest{
		MarketIDs:       marketIDs,
		PriceProjection: projection,
		OrderProjection: "EXECUTABLE",
		Locale:          c.cfg.Locale,
	}
	if err := c.post(ctx, "listMarketBook", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func withEventProjection(projection []string) []string {
	out := append([]string(nil), projection...)
	for _, p := range out {
		if p == "EVENT" {
			return out
		}
	}
	return append(out, "EVENT")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
