package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeFinishedRecord(t *testing.T) {
	processed := time.Date(2024, 10, 30, 12, 0, 0, 0, time.UTC)

	t.Run("keyed by correlation id", func(t *testing.T) {
		rec := FinishedRecord{
			ID:            "glide-event-FL-2024-000199-ESP",
			Source:        "glide",
			Role:          eventRole,
			Roles:         eventRole.Markers(),
			CorrelationID: "20241029-ESP-MH0600-1-GCDB",
			EpisodeNumber: 1,
			ProcessedAt:   processed,
		}

		out, err := SerializeFinishedRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, []byte("20241029-ESP-MH0600-1-GCDB"), out.Key)
		assert.False(t, out.Rejected)
		assert.Equal(t, "event", out.Headers["role"])
		assert.Equal(t, "glide", out.Headers["source"])
		assert.Equal(t, "1", out.Headers["episode_number"])
		assert.Equal(t, "20241029-ESP-MH0600-1-GCDB", out.Headers["corr_id"])
		assert.Equal(t, "2024-10-30T12:00:00Z", out.Headers["processed_at"])

		var decoded FinishedRecord
		require.NoError(t, json.Unmarshal(out.Value, &decoded))
		assert.Equal(t, rec.ID, decoded.ID)
		assert.Equal(t, rec.CorrelationID, decoded.CorrelationID)
	})

	t.Run("partial record falls back to record id", func(t *testing.T) {
		rec := FinishedRecord{ID: "emdat-event-2024-0001-ESP", Role: eventRole, ProcessedAt: processed}

		out, err := SerializeFinishedRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, []byte("emdat-event-2024-0001-ESP"), out.Key)
		assert.NotContains(t, out.Headers, "corr_id")
	})
}

func TestSerializeRejection(t *testing.T) {
	at := time.Date(2024, 10, 30, 12, 0, 0, 0, time.UTC)
	recErr := &RecordError{
		Index:    2,
		RecordID: "glide-hazard-DR-2024",
		Err:      fmt.Errorf("%w: hazard record has no structured code", ErrInvalidHazardCodeSet),
	}

	t.Run("with JSON payload", func(t *testing.T) {
		out, err := SerializeRejection(recErr, "glide", []byte(`{"event":"DR"}`), at)
		require.NoError(t, err)
		assert.True(t, out.Rejected)
		assert.Equal(t, []byte("glide-hazard-DR-2024"), out.Key)
		assert.Equal(t, "invalid_hazard_code_set", out.Headers["reason"])
		assert.Equal(t, "2024-10-30T12:00:00Z", out.Headers["rejected_at"])

		var rej Rejection
		require.NoError(t, json.Unmarshal(out.Value, &rej))
		assert.Equal(t, 2, rej.Index)
		assert.Equal(t, "glide", rej.Source)
		assert.JSONEq(t, `{"event":"DR"}`, string(rej.Payload))
	})

	t.Run("non-JSON payload is dropped", func(t *testing.T) {
		out, err := SerializeRejection(recErr, "glide", []byte("not json"), at)
		require.NoError(t, err)

		var rej Rejection
		require.NoError(t, json.Unmarshal(out.Value, &rej))
		assert.Empty(t, rej.Payload)
	})

	t.Run("record without id gets a stable key", func(t *testing.T) {
		anon := &RecordError{Index: 4, Err: ErrInvalidRoleComposition}
		payload := []byte(`{"roles":["response"]}`)

		a, err := SerializeRejection(anon, "emdat", payload, at)
		require.NoError(t, err)
		b, err := SerializeRejection(anon, "emdat", payload, at)
		require.NoError(t, err)
		other, err := SerializeRejection(&RecordError{Index: 5, Err: ErrInvalidRoleComposition}, "emdat", payload, at)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(a.Key), "emdat-rejected-"))
		assert.Equal(t, a.Key, b.Key)
		assert.NotEqual(t, a.Key, other.Key)
	})
}
