// Package events publishes recognition outcomes for downstream
// consumers (parking sessions, access control, billing).
package events

import (
	"context"

	"github.com/plateflow/plateflow-backend/internal/recognition/pipeline"
	"github.com/plateflow/plateflow-backend/pkg/logger"
	"github.com/plateflow/plateflow-backend/pkg/messaging"
)

// RecognitionEventPublisher publishes plate recognition events.
// Publishing is best-effort: failures are logged and never surfaced to
// the recognition caller.
type RecognitionEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewRecognitionEventPublisher creates a publisher on the recognition
// events exchange.
func NewRecognitionEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*RecognitionEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeRecognitionEvents, "recognition-service", log)
	if err != nil {
		return nil, err
	}

	return &RecognitionEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PlateRecognized publishes a newly surfaced plate.
func (p *RecognitionEventPublisher) PlateRecognized(ctx context.Context, result pipeline.Result) {
	if result.Plate == nil {
		return
	}

	data := messaging.PlateRecognizedEvent{
		ImageHash:       result.ImageHash,
		Plate:           result.Plate.FullText,
		Category:        string(result.Plate.Category),
		Confidence:      result.Plate.Confidence,
		FromCache:       result.FromCache,
		OccurrenceCount: result.OccurrenceCount,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPlateRecognized, data); err != nil {
		p.logger.Error().Err(err).
			Str("image_hash", result.ImageHash).
			Msg("failed to publish plate recognized event")
	}
}

// PlateRejected publishes a terminally failed recognition attempt.
func (p *RecognitionEventPublisher) PlateRejected(ctx context.Context, imageHash, code string) {
	data := messaging.PlateRejectedEvent{
		ImageHash: imageHash,
		Code:      code,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPlateRejected, data); err != nil {
		p.logger.Error().Err(err).
			Str("image_hash", imageHash).
			Msg("failed to publish plate rejected event")
	}
}
