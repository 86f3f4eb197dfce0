package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// StreamPublisher appends merged events to a Redis stream, one entry per
// event.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(cfg config.PublisherConfig) (*StreamPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &StreamPublisher{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}, nil
}

func (p *StreamPublisher) Publish(ctx context.Context, runID string, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range events {
			values, err := streamValues(runID, e)
			if err != nil {
				return err
			}
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				MaxLen: p.maxLen,
				Approx: true,
				Values: values,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish %d events to %s: %w", len(events), p.stream, err)
	}
	return nil
}

func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

func streamValues(runID string, e *models.Event) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return map[string]any{
		"run_id":     runID,
		"start_time": e.StartTime.UTC().Format(time.RFC3339),
		"sources":    strings.Join(e.Sources(), ","),
		"bets":       len(e.Bets),
		"profit_a":   e.Profit.OutcomeA,
		"profit_b":   e.Profit.OutcomeB,
		"data":       string(data),
	}, nil
}
