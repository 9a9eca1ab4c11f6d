package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/engine"
	"github.com/couchcryptid/disaster-correlation-etl/internal/observability"
	"github.com/couchcryptid/disaster-correlation-etl/internal/pipeline"
	"github.com/couchcryptid/disaster-correlation-etl/internal/schema"
	"github.com/couchcryptid/disaster-correlation-etl/internal/source"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

const gdacsValencia = `{
  "type": "Feature",
  "geometry": {"type": "Point", "coordinates": [-0.37, 39.47]},
  "properties": {
    "eventtype": "FL", "eventid": 1102983, "episodeid": 1,
    "name": "Flood in Spain", "iso3": "ESP",
    "fromdate": "2024-10-29T00:00:00",
    "episodealertlevel": "Red", "episodealertscore": 2.5
  }
}`

const glideMixed = `{"glideset": [
  {"event": "FL", "number": "2024-000199", "geocode": "ESP", "year": 2024, "month": 10, "day": 29},
  {"event": "DR", "number": "2024-000050", "geocode": "MAR", "year": 2024, "month": 3, "day": 1}
]}`

var rejectedAt = time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)

type transformerFixture struct {
	transformer *pipeline.RecordTransformer
	metrics     *observability.Metrics
}

func newTransformer(t *testing.T, engineOpts []engine.Option, opts ...pipeline.TransformerOption) transformerFixture {
	t.Helper()
	tbl, err := taxonomy.Default()
	require.NoError(t, err)
	reg, err := source.NewDefaultRegistry(tbl)
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	opts = append([]pipeline.TransformerOption{pipeline.WithTransformerClock(clockwork.NewFakeClockAt(rejectedAt))}, opts...)
	tr := pipeline.NewTransformer(reg, engine.New(tbl, engineOpts...), discardLogger(), metrics, opts...)
	return transformerFixture{transformer: tr, metrics: metrics}
}

func message(src, payload string) domain.RawEvent {
	headers := map[string]string{}
	if src != "" {
		headers[pipeline.SourceHeader] = src
	}
	return domain.RawEvent{Value: []byte(payload), Headers: headers}
}

func split(events []domain.OutputEvent) (sink, rejected []domain.OutputEvent) {
	for _, ev := range events {
		if ev.Rejected {
			rejected = append(rejected, ev)
		} else {
			sink = append(sink, ev)
		}
	}
	return sink, rejected
}

func TestRecordTransformer_GDACS(t *testing.T) {
	validator, err := schema.NewValidator()
	require.NoError(t, err)
	fx := newTransformer(t, nil, pipeline.WithValidator(validator))

	out, err := fx.transformer.Transform(context.Background(), message("gdacs", gdacsValencia))
	require.NoError(t, err)

	sink, rejected := split(out)
	require.Len(t, sink, 2)
	assert.Empty(t, rejected)

	for _, ev := range sink {
		assert.Equal(t, "20241029-ESP-MH0600-1-GCDB", string(ev.Key))
		assert.Equal(t, "gdacs", ev.Headers["source"])
	}
	assert.Equal(t, "event", sink[0].Headers["role"])
	assert.Equal(t, "hazard", sink[1].Headers["role"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(sink[1].Value, &body))
	assert.Equal(t, []any{"MH0600", "FL", "nat-hyd-flo-flo"}, body["monty:hazard_codes"])
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.RecordsFinished.WithLabelValues("gdacs", "hazard")), 0)
}

func TestRecordTransformer_RejectsOnlyFailingRecords(t *testing.T) {
	fx := newTransformer(t, nil)

	out, err := fx.transformer.Transform(context.Background(), message("glide", glideMixed))
	require.NoError(t, err)

	sink, rejected := split(out)
	assert.Len(t, sink, 3)
	require.Len(t, rejected, 1)

	rej := rejected[0]
	assert.Equal(t, "glide-hazard-DR-2024-000050-MAR", string(rej.Key))
	assert.Equal(t, "invalid_hazard_code_set", rej.Headers["reason"])
	assert.Equal(t, "2024-11-01T09:00:00Z", rej.Headers["rejected_at"])

	var body domain.Rejection
	require.NoError(t, json.Unmarshal(rej.Value, &body))
	assert.Equal(t, 3, body.Index)
	assert.Equal(t, "glide", body.Source)
	assert.Contains(t, string(body.Payload), `"hazard_codes":["DR"]`)

	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.RecordsRejected.WithLabelValues("glide", "invalid_hazard_code_set")), 0)
}

func TestRecordTransformer_SourceSelection(t *testing.T) {
	t.Run("default source for messages without header", func(t *testing.T) {
		fx := newTransformer(t, nil, pipeline.WithDefaultSource("gdacs"))
		out, err := fx.transformer.Transform(context.Background(), message("", gdacsValencia))
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("missing header without default", func(t *testing.T) {
		fx := newTransformer(t, nil)
		_, err := fx.transformer.Transform(context.Background(), message("", gdacsValencia))
		require.ErrorIs(t, err, source.ErrUnknownSource)
	})

	t.Run("unknown source", func(t *testing.T) {
		fx := newTransformer(t, nil)
		_, err := fx.transformer.Transform(context.Background(), message("pdc", gdacsValencia))
		require.ErrorIs(t, err, source.ErrUnknownSource)
	})

	t.Run("undecodable payload", func(t *testing.T) {
		fx := newTransformer(t, nil)
		_, err := fx.transformer.Transform(context.Background(), message("glide", "not-json{{{"))
		require.ErrorIs(t, err, source.ErrInvalidPayload)
	})
}

type refuseHazards struct{}

func (refuseHazards) Validate(rec domain.FinishedRecord) error {
	if rec.Role.IsHazard() {
		return domain.ErrSchemaViolation
	}
	return nil
}

func TestRecordTransformer_SchemaViolationsAreRejected(t *testing.T) {
	fx := newTransformer(t, nil, pipeline.WithValidator(refuseHazards{}))

	out, err := fx.transformer.Transform(context.Background(), message("gdacs", gdacsValencia))
	require.NoError(t, err)

	sink, rejected := split(out)
	require.Len(t, sink, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, "schema_violation", rejected[0].Headers["reason"])
	assert.Equal(t, "gdacs-hazard-1102983-1", string(rejected[0].Key))
}

type fixedDrafts []domain.DraftRecord

func (fixedDrafts) Name() string { return "fixed" }

func (f fixedDrafts) ProduceRecords([]byte) ([]domain.DraftRecord, error) { return f, nil }

func TestRecordTransformer_RejectionKeepsBatchIndexForGeneratedIDs(t *testing.T) {
	tbl, err := taxonomy.Default()
	require.NoError(t, err)
	flood := domain.DraftRecord{
		Source:        "fixed",
		HazardCodes:   []string{"FL", "MH0600"},
		CountryCodes:  []string{"ESP"},
		OccurredAt:    time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC),
		EpisodeNumber: 1,
	}
	event, hazard := flood, flood
	event.ID = "fixed-event-1"
	event.Roles = []string{"source", "event"}
	hazard.Roles = []string{"source", "hazard"}

	reg, err := source.NewRegistry(fixedDrafts{event, hazard})
	require.NoError(t, err)
	tr := pipeline.NewTransformer(reg, engine.New(tbl), discardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithValidator(refuseHazards{}))

	out, err := tr.Transform(context.Background(), message("fixed", "{}"))
	require.NoError(t, err)

	sink, rejected := split(out)
	require.Len(t, sink, 1)
	require.Len(t, rejected, 1)
	assert.NotEmpty(t, rejected[0].Key)

	var rej domain.Rejection
	require.NoError(t, json.Unmarshal(rejected[0].Value, &rej))
	assert.Equal(t, 1, rej.Index)
	assert.Equal(t, string(rejected[0].Key), rej.RecordID)
	assert.Contains(t, rej.RecordID, "fixed-hazard-")
	assert.NotEmpty(t, rej.Payload)
}

func TestRecordTransformer_PartialRecords(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(gdacsValencia), &doc))
	doc["properties"].(map[string]any)["iso3"] = ""
	payload, err := json.Marshal(doc)
	require.NoError(t, err)

	fx := newTransformer(t, []engine.Option{engine.WithAllowPartial(true)})
	out, err := fx.transformer.Transform(context.Background(), message("gdacs", string(payload)))
	require.NoError(t, err)

	sink, rejected := split(out)
	assert.Empty(t, rejected)
	require.Len(t, sink, 2)
	assert.Equal(t, "gdacs-event-1102983-1", string(sink[0].Key), "partial records are keyed by record id")
	assert.NotContains(t, sink[0].Headers, "corr_id")
	assert.InDelta(t, 2, testutil.ToFloat64(fx.metrics.PartialRecords), 0)
}

func TestRecordTransformer_CancelledContext(t *testing.T) {
	fx := newTransformer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.transformer.Transform(ctx, message("gdacs", gdacsValencia))
	require.ErrorIs(t, err, context.Canceled)
}
