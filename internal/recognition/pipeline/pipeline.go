// Package pipeline composes the quality gate, rate limiter, result
// cache, retry orchestrator and duplicate suppressor into the single
// request path between a captured frame and the external recognizer.
package pipeline

import (
	"context"
	"time"

	"github.com/plateflow/plateflow-backend/internal/recognition/cache"
	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
	"github.com/plateflow/plateflow-backend/internal/recognition/quality"
	"github.com/plateflow/plateflow-backend/internal/recognition/ratelimit"
	"github.com/plateflow/plateflow-backend/internal/recognition/recognizer"
	"github.com/plateflow/plateflow-backend/internal/recognition/retry"
	"github.com/plateflow/plateflow-backend/internal/recognition/suppress"
	"github.com/plateflow/plateflow-backend/pkg/errors"
	"github.com/plateflow/plateflow-backend/pkg/logger"
)

// Mode selects how successful recognitions are surfaced.
type Mode string

const (
	// ModeSingleShot surfaces every successful recognition.
	ModeSingleShot Mode = "single_shot"
	// ModeRealtime suppresses repeats of the same plate within the
	// suppression window during continuous capture.
	ModeRealtime Mode = "realtime"
)

// DefaultRecognizeTimeout bounds a single recognizer attempt.
const DefaultRecognizeTimeout = 5 * time.Second

// Result is the caller-visible outcome of a pipeline request.
// A suppressed realtime duplicate is a success carrying no plate:
// "no new result", not an error.
type Result struct {
	Plate           *domain.PlateResult `json:"plate,omitempty"`
	ImageHash       string              `json:"image_hash"`
	FromCache       bool                `json:"from_cache"`
	Suppressed      bool                `json:"suppressed"`
	OccurrenceCount int                 `json:"occurrence_count,omitempty"`
}

// EventSink publishes recognition outcomes to downstream consumers.
// Implementations must never fail the request; publish errors are
// theirs to log.
type EventSink interface {
	PlateRecognized(ctx context.Context, result Result)
	PlateRejected(ctx context.Context, imageHash, code string)
}

// AuditSink records every pipeline attempt for later review.
type AuditSink interface {
	RecordAttempt(ctx context.Context, attempt domain.RecognitionAttempt)
}

// Config holds the pipeline tunables.
type Config struct {
	Mode             Mode
	RecognizeTimeout time.Duration
	Retry            retry.Config
}

// Deps are the pipeline collaborators, injected explicitly so tests
// can run against fresh instances and a fake recognizer.
type Deps struct {
	Gate       *quality.Gate
	Cache      *cache.Cache
	Limiter    *ratelimit.Limiter
	Suppressor *suppress.Suppressor
	Recognizer recognizer.Recognizer
	Logger     *logger.Logger
	Events     EventSink // optional
	Audit      AuditSink // optional
}

// Pipeline is the request path in front of the external recognizer.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  *logger.Logger
	now  func() time.Time
}

// New creates a pipeline. A zero RecognizeTimeout falls back to the
// default; a zero retry config falls back to the default policy.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.RecognizeTimeout <= 0 {
		cfg.RecognizeTimeout = DefaultRecognizeTimeout
	}
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSingleShot
	}
	return &Pipeline{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.WithComponent("pipeline"),
		now:  time.Now,
	}
}

// Recognize runs one captured frame through the full request path:
// quality gate, cache, admission control, recognizer with retry and
// timeout, cache store, and (in realtime mode) duplicate suppression.
func (p *Pipeline) Recognize(ctx context.Context, img domain.CapturedImage) (*Result, error) {
	start := p.now()

	metrics := quality.ComputeMetrics(img.Img)
	if validationErrs := p.deps.Gate.Validate(img, metrics); len(validationErrs) > 0 {
		return nil, p.rejectInvalid(ctx, img, validationErrs, start)
	}

	imageHash := img.Hash()
	log := p.log.WithImageHash(imageHash)

	if cached, ok := p.deps.Cache.Get(imageHash); ok {
		log.Debug().Msg("recognition served from cache")
		return p.surface(ctx, imageHash, cached, true, start)
	}

	if !p.deps.Limiter.CanAccept() {
		appErr := errors.RateLimited()
		log.Warn().Msg("recognition rejected by rate limiter")
		p.recordAttempt(ctx, imageHash, domain.OutcomeRateLimited, appErr.Code, 0, false, start)
		return nil, appErr
	}

	plate, err := p.callRecognizer(ctx, img)
	if err != nil {
		appErr := toAppError(err)
		log.Error().Err(err).Str("code", appErr.Code).Msg("recognition failed")
		p.recordAttempt(ctx, imageHash, domain.OutcomeFailed, appErr.Code, 0, false, start)
		if p.deps.Events != nil {
			p.deps.Events.PlateRejected(ctx, imageHash, appErr.Code)
		}
		return nil, appErr
	}

	// Concurrent identical frames may both miss the cache and both
	// reach here; last write wins and results are idempotent, so the
	// race is benign.
	p.deps.Cache.Set(imageHash, *plate)

	return p.surface(ctx, imageHash, plate, false, start)
}

// Stats reports the cache and limiter state for observability.
func (p *Pipeline) Stats() (cache.Stats, ratelimit.Stats) {
	return p.deps.Cache.Stats(), p.deps.Limiter.Stats()
}

// callRecognizer holds a limiter slot for the duration of the external
// call. The slot is released on every exit path, including caller
// cancellation, so cancelled requests never leak concurrency slots.
func (p *Pipeline) callRecognizer(ctx context.Context, img domain.CapturedImage) (*domain.PlateResult, error) {
	p.deps.Limiter.Start()
	defer p.deps.Limiter.End()

	return retry.WithRetry(ctx, p.cfg.Retry, func(ctx context.Context) (*domain.PlateResult, error) {
		return retry.WithTimeout(ctx, p.cfg.RecognizeTimeout, func(ctx context.Context) (*domain.PlateResult, error) {
			return p.deps.Recognizer.Recognize(ctx, img.Raw)
		})
	})
}

// surface applies realtime duplicate suppression and emits the final
// result, event and audit record.
func (p *Pipeline) surface(ctx context.Context, imageHash string, plate *domain.PlateResult, fromCache bool, start time.Time) (*Result, error) {
	result := &Result{
		Plate:     plate,
		ImageHash: imageHash,
		FromCache: fromCache,
	}

	if p.cfg.Mode == ModeRealtime {
		obs := p.deps.Suppressor.CheckAndRecord(plate.FullText, p.now())
		result.OccurrenceCount = obs.OccurrenceCount
		if obs.IsDuplicate {
			p.log.WithImageHash(imageHash).Debug().
				Int("occurrence_count", obs.OccurrenceCount).
				Msg("duplicate plate suppressed")
			p.recordAttempt(ctx, imageHash, domain.OutcomeSuppressed, "", plate.Confidence, fromCache, start)
			return &Result{ImageHash: imageHash, FromCache: fromCache, Suppressed: true, OccurrenceCount: obs.OccurrenceCount}, nil
		}
	}

	p.recordAttempt(ctx, imageHash, domain.OutcomeSuccess, "", plate.Confidence, fromCache, start)
	if p.deps.Events != nil {
		p.deps.Events.PlateRecognized(ctx, *result)
	}
	return result, nil
}

// rejectInvalid maps quality gate failures to the caller-facing error.
// The surfaced error carries the first failure; all failures travel in
// the details map.
func (p *Pipeline) rejectInvalid(ctx context.Context, img domain.CapturedImage, validationErrs []domain.ValidationError, start time.Time) error {
	first := validationErrs[0]
	details := make(map[string]string, len(validationErrs))
	for _, ve := range validationErrs {
		details[string(ve.Code)] = ve.Message
	}

	imageHash := img.Hash()
	p.log.WithImageHash(imageHash).Warn().
		Int("failures", len(validationErrs)).
		Str("first_code", string(first.Code)).
		Msg("frame rejected by quality gate")

	appErr := errors.InvalidImage(first.Message, first.Suggestion).WithDetails(details)
	p.recordAttempt(ctx, imageHash, domain.OutcomeValidationFailed, appErr.Code, 0, false, start)
	return appErr
}

func (p *Pipeline) recordAttempt(ctx context.Context, imageHash string, outcome domain.AttemptOutcome, errorCode string, confidence int, fromCache bool, start time.Time) {
	if p.deps.Audit == nil {
		return
	}
	p.deps.Audit.RecordAttempt(ctx, domain.RecognitionAttempt{
		ImageHash:   imageHash,
		Outcome:     outcome,
		ErrorCode:   errorCode,
		Confidence:  confidence,
		FromCache:   fromCache,
		DurationMs:  p.now().Sub(start).Milliseconds(),
		AttemptedAt: start,
	})
}

// toAppError maps recognizer and orchestrator failures onto the
// caller-facing error codes.
func toAppError(err error) *errors.AppError {
	if errors.Is(err, context.Canceled) {
		return errors.RequestCancelled()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout()
	}

	var timeoutErr *retry.TimeoutError
	if errors.As(err, &timeoutErr) {
		return errors.Timeout()
	}

	var recErr *recognizer.Error
	if errors.As(err, &recErr) {
		switch recErr.Kind {
		case recognizer.KindTimeout:
			return errors.Timeout()
		case recognizer.KindAPIConnectionFailed:
			return errors.APIConnectionFailed(recErr)
		default:
			// InvalidResponse, ParseError, NoPlateDetected: the remote
			// answered but no usable plate came back.
			return errors.PlateNotRecognized()
		}
	}

	return errors.APIConnectionFailed(err)
}
