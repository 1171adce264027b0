package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/config"
	"app/internal/pgmq"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// Run starts the usage aggregator. It drains the usage delta queue and
// applies each delta to Postgres with a single atomic merge-increment.
// Delivery is at-least-once: a crash after apply but before delete re-applies
// the delta, which the additive counter model absorbs as bounded overcount
// rather than data loss.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, usageRepo repository.UsageRepository, cfg *config.Config) error {
	queue := cfg.UsageQueueName
	logger.Info().Str("queue", queue).Msg("Starting usage aggregator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down usage aggregator")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.UsagePollTimeoutSec, cfg.UsagePollMaxMsg)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading usage queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		for _, msg := range msgs {
			// Parse payload
			var payload repository.UsageDeltaMessage
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Failed to unmarshal usage delta; moving to DLQ")
				moveToDLQ(ctx, logger, client, cfg, msg)
				continue
			}
			if payload.UserID == "" {
				logger.Error().Int64("msg_id", msg.ID).Msg("Usage delta missing user_id; moving to DLQ")
				moveToDLQ(ctx, logger, client, cfg, msg)
				continue
			}

			// Apply the delta with retry/backoff
			backoff := time.Duration(cfg.UsageBackoffInitialSec) * time.Second
			var applyErr error
			for attempt := 1; attempt <= cfg.UsageMaxRetries; attempt++ {
				applyErr = usageRepo.MergeIncrement(ctx, payload.UserID, payload.Delta)
				if applyErr == nil {
					break
				}
				logger.Error().Err(applyErr).Int("attempt", attempt).Str("user_id", payload.UserID).Msg("Failed to apply usage delta, retrying")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > time.Duration(cfg.UsageBackoffMaxSec)*time.Second {
					backoff = time.Duration(cfg.UsageBackoffMaxSec) * time.Second
				}
			}
			if applyErr != nil {
				logger.Warn().
					Int("attempts", cfg.UsageMaxRetries).
					Str("user_id", payload.UserID).
					Err(applyErr).
					Msg("Exhausted all apply retries; moving delta to DLQ")
				moveToDLQ(ctx, logger, client, cfg, msg)
				continue
			}

			// Acknowledge message
			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting usage message")
			}
		}
	}
}

// moveToDLQ sends the raw message to the dead-letter queue and acknowledges
// the original so it stops redelivering.
func moveToDLQ(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, cfg *config.Config, msg *pgmq.Message) {
	if err := client.Send(ctx, cfg.UsageDeadLetterQueue, msg.Data); err != nil {
		logger.Error().Err(err).Str("dlq", cfg.UsageDeadLetterQueue).Msg("Failed to send message to dead-letter queue")
		// Leave the original in place; it will redeliver and retry the DLQ move.
		return
	}
	if err := client.Delete(ctx, cfg.UsageQueueName, []int64{msg.ID}); err != nil {
		logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting usage message after DLQ move")
	}
}
