package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/engine"
	"github.com/couchcryptid/disaster-correlation-etl/internal/observability"
	"github.com/couchcryptid/disaster-correlation-etl/internal/source"
)

// SourceHeader names the message header that selects the source adapter.
const SourceHeader = "source"

// RecordValidator checks a finished record before it is published.
type RecordValidator interface {
	Validate(rec domain.FinishedRecord) error
}

// RecordTransformer implements Transformer: the message payload goes through
// the source adapter named by its header, the engine finishes the drafts,
// and every draft becomes either a sink event or a rejection.
type RecordTransformer struct {
	registry      *source.Registry
	defaultSource string
	engine        *engine.Engine
	validator     RecordValidator
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// TransformerOption configures a RecordTransformer.
type TransformerOption func(*RecordTransformer)

// WithDefaultSource sets the adapter used for messages without a source header.
func WithDefaultSource(name string) TransformerOption {
	return func(t *RecordTransformer) { t.defaultSource = name }
}

// WithValidator enables schema validation of finished records.
func WithValidator(v RecordValidator) TransformerOption {
	return func(t *RecordTransformer) { t.validator = v }
}

// WithTransformerClock sets the time source for rejection timestamps.
func WithTransformerClock(c clockwork.Clock) TransformerOption {
	return func(t *RecordTransformer) { t.clock = c }
}

// NewTransformer creates a RecordTransformer.
func NewTransformer(registry *source.Registry, eng *engine.Engine, logger *slog.Logger, metrics *observability.Metrics, opts ...TransformerOption) *RecordTransformer {
	t := &RecordTransformer{
		registry: registry,
		engine:   eng,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RecordTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	name := raw.Headers[SourceHeader]
	if name == "" {
		name = t.defaultSource
	}
	adapter, err := t.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	src := adapter.Name()

	drafts, err := adapter.ProduceRecords(raw.Value)
	if err != nil {
		return nil, err
	}

	res, err := t.engine.FinishAll(ctx, drafts)
	if err != nil {
		return nil, err
	}

	failures := res.Errors
	out := make([]domain.OutputEvent, 0, len(drafts))
	for i, rec := range res.Finished {
		if t.validator != nil {
			if err := t.validator.Validate(rec); err != nil {
				failures = append(failures, &domain.RecordError{
					Index:    res.FinishedIndex[i],
					RecordID: rec.ID,
					Err:      err,
				})
				continue
			}
		}
		ev, err := domain.SerializeFinishedRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
		t.metrics.RecordsFinished.WithLabelValues(src, string(rec.Role.Kind)).Inc()
	}

	for _, recErr := range failures {
		if recErr.Partial {
			t.metrics.PartialRecords.Inc()
			t.logger.Info("record emitted without correlation id",
				"source", src, "record_id", recErr.RecordID, "error", recErr.Err)
			continue
		}

		t.metrics.RecordsRejected.WithLabelValues(src, recErr.Reason()).Inc()
		t.logger.Warn("record rejected",
			"source", src,
			"record_id", recErr.RecordID,
			"index", recErr.Index,
			"reason", recErr.Reason(),
			"error", recErr.Err,
		)

		ev, err := domain.SerializeRejection(recErr, src, rejectedPayload(drafts, recErr.Index), t.clock.Now())
		if err != nil {
			return nil, fmt.Errorf("serialize rejection: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// rejectedPayload is the draft as the adapter produced it, so the reject
// topic shows what the engine was given.
func rejectedPayload(drafts []domain.DraftRecord, index int) []byte {
	if index < 0 || index >= len(drafts) {
		return nil
	}
	data, err := json.Marshal(drafts[index])
	if err != nil {
		return nil
	}
	return data
}
