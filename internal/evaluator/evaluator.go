// Package evaluator asks the remote profit evaluator for the best wager
// allocation of a merged event.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/httpclient"
	"github.com/Vodeneev/oddsmerge/internal/pkg/metrics"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// unavailableProfit is what the evaluator answers when it could not compute
// a result this time.
const unavailableProfit = -444

// ErrUnavailable is returned when every attempt got the unavailable answer.
var ErrUnavailable = errors.New("profit evaluator unavailable")

type Evaluator interface {
	// Evaluate sets the event's profit and the wagers of its bets.
	Evaluate(ctx context.Context, e *models.Event) (models.Profit, error)
}

// Disabled reports no opportunity for every event.
type Disabled struct{}

func (Disabled) Evaluate(context.Context, *models.Event) (models.Profit, error) {
	return models.Profit{}, nil
}

type requestBet struct {
	Index      int     `json:"index"`
	BetType    string  `json:"bet_type"`
	Value      string  `json:"value"`
	Odds       float64 `json:"odds"`
	Lay        bool    `json:"lay"`
	Volume     float64 `json:"volume"`
	Bookmaker  string  `json:"bookmaker"`
	Commission float64 `json:"commission"`
	WagerLimit float64 `json:"wager_limit"`
	Wager      float64 `json:"wager"`
}

type request struct {
	StartTime  time.Time           `json:"start_time"`
	Bets       []requestBet        `json:"bets"`
	Bookmakers []*models.Bookmaker `json:"bookmakers"`
}

type response struct {
	Profit []float64 `json:"profit"`
	Bets   []struct {
		Index int     `json:"index"`
		Wager float64 `json:"wager"`
	} `json:"bets"`
}

// HTTPEvaluator posts events to the remote evaluator.
type HTTPEvaluator struct {
	client  *resty.Client
	retries int
	logger  *slog.Logger
}

func NewHTTP(cfg config.EvaluatorConfig, logger *slog.Logger) *HTTPEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	client := httpclient.New(cfg.URL, cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-RapidAPI-Key", cfg.APIKey)
	}
	if cfg.APIHost != "" {
		client.SetHeader("X-RapidAPI-Host", cfg.APIHost)
	}
	return &HTTPEvaluator{
		client:  client,
		retries: max(1, cfg.Retries),
		logger:  logger,
	}
}

// Evaluate retries while the remote answers with the unavailable sentinel
// and applies the returned wagers. The previous wager of each bet is kept.
func (h *HTTPEvaluator) Evaluate(ctx context.Context, e *models.Event) (models.Profit, error) {
	req := buildRequest(e)

	for attempt := 1; attempt <= h.retries; attempt++ {
		resp, err := h.call(ctx, req)
		if err != nil {
			return models.Profit{}, err
		}
		if len(resp.Profit) != 2 {
			return models.Profit{}, fmt.Errorf("profit evaluator: expected 2 profit values, got %d", len(resp.Profit))
		}
		if resp.Profit[0] == unavailableProfit && resp.Profit[1] == unavailableProfit {
			h.logger.Debug("profit evaluator unavailable, retrying", "attempt", attempt)
			continue
		}

		profit := models.Profit{OutcomeA: resp.Profit[0], OutcomeB: resp.Profit[1]}
		for _, w := range resp.Bets {
			if w.Index < 0 || w.Index >= len(e.Bets) {
				return models.Profit{}, fmt.Errorf("profit evaluator: wager for unknown bet %d", w.Index)
			}
			b := e.Bets[w.Index]
			b.PreviousWager = b.Wager
			b.Wager = w.Wager
		}
		e.Profit = profit
		return profit, nil
	}
	return models.Profit{}, ErrUnavailable
}

func (h *HTTPEvaluator) call(ctx context.Context, req request) (*response, error) {
	start := time.Now()
	defer func() { metrics.EvaluatorLatency.Observe(time.Since(start).Seconds()) }()

	var out response
	if err := httpclient.Check(h.client.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("")); err != nil {
		return nil, fmt.Errorf("profit evaluator: %w", err)
	}
	return &out, nil
}

func buildRequest(e *models.Event) request {
	req := request{
		StartTime:  e.StartTime,
		Bets:       make([]requestBet, 0, len(e.Bets)),
		Bookmakers: e.Bookmakers,
	}
	for i, b := range e.Bets {
		rb := requestBet{
			Index:   i,
			BetType: b.Type.String(),
			Value:   b.Value,
			Odds:    b.Odds,
			Lay:     b.Lay,
			Volume:  b.Volume,
			Wager:   b.Wager,
		}
		if b.Bookmaker != nil {
			rb.Bookmaker = b.Bookmaker.Name
			rb.Commission = b.Bookmaker.Commission
			rb.WagerLimit = b.Bookmaker.WagerLimit()
		}
		req.Bets = append(req.Bets, rb)
	}
	return req
}
