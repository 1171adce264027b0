package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// RotationEvent is published when a quota check observes a usage record whose
// period window has already ended. A push subscription delivers it back to the
// rotation endpoint, which resets the record.
type RotationEvent struct {
	UserID    string    `json:"user_id"`
	PeriodEnd time.Time `json:"period_end"`
}

// RotationPublisher emits rotation-due events to a Pub/Sub topic. It
// implements quota.RotationNotifier.
type RotationPublisher struct {
	publisher Publisher
	topic     string
	logger    zerolog.Logger
}

// NewRotationPublisher creates a notifier publishing to the given topic.
func NewRotationPublisher(publisher Publisher, topic string, logger zerolog.Logger) *RotationPublisher {
	return &RotationPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("service", "RotationPublisher").Logger(),
	}
}

// RotationDue publishes the event. Publish failures are logged and dropped;
// the next check on the same stale record will raise the event again.
func (p *RotationPublisher) RotationDue(ctx context.Context, userID string, periodEnd time.Time) {
	payload, err := json.Marshal(RotationEvent{UserID: userID, PeriodEnd: periodEnd})
	if err != nil {
		p.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to marshal rotation event")
		return
	}
	id, err := p.publisher.Publish(ctx, p.topic, payload)
	if err != nil {
		p.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to publish rotation event")
		return
	}
	p.logger.Debug().Str("user_id", userID).Str("message_id", id).Msg("Published rotation-due event")
}
