package storage

import (
	"context"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// EventPublisher fans merged events out to downstream consumers.
type EventPublisher interface {
	// Publish sends the events of one resolution run.
	Publish(ctx context.Context, runID string, events []*models.Event) error

	// Close releases the connection
	Close() error
}

// NopPublisher drops everything; used when no publisher is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []*models.Event) error { return nil }
func (NopPublisher) Close() error { return nil }
