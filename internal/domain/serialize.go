package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SerializeFinishedRecord converts a finished record into a sink event keyed
// by its correlation id, falling back to the record id for partial records.
func SerializeFinishedRecord(rec FinishedRecord) (OutputEvent, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("marshal finished record: %w", err)
	}

	key := string(rec.CorrelationID)
	if key == "" {
		key = rec.ID
	}
	headers := map[string]string{
		"role":           string(rec.Role.Kind),
		"source":         rec.Source,
		"episode_number": strconv.Itoa(rec.EpisodeNumber),
		"processed_at":   rec.ProcessedAt.UTC().Format(time.RFC3339),
	}
	if rec.CorrelationID != "" {
		headers["corr_id"] = string(rec.CorrelationID)
	}
	return OutputEvent{Key: []byte(key), Value: data, Headers: headers}, nil
}

// Rejection is the body of a reject-topic event.
type Rejection struct {
	Index    int             `json:"index"`
	RecordID string          `json:"record_id,omitempty"`
	Source   string          `json:"source,omitempty"`
	Reason   string          `json:"reason"`
	Error    string          `json:"error"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// SerializeRejection converts a per-record failure into a reject event. The
// raw payload is attached when it is valid JSON. Records without an id are
// keyed by a hash of source, batch index and payload.
func SerializeRejection(recErr *RecordError, source string, payload []byte, rejectedAt time.Time) (OutputEvent, error) {
	rej := Rejection{
		Index:    recErr.Index,
		RecordID: recErr.RecordID,
		Source:   source,
		Reason:   recErr.Reason(),
		Error:    recErr.Err.Error(),
	}
	if json.Valid(payload) {
		rej.Payload = payload
	}

	data, err := json.Marshal(rej)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("marshal rejection: %w", err)
	}
	key := recErr.RecordID
	if key == "" {
		key = GenerateID(strings.TrimPrefix(source+"-rejected", "-"), strconv.Itoa(recErr.Index), string(payload))
	}
	return OutputEvent{
		Key:   []byte(key),
		Value: data,
		Headers: map[string]string{
			"reason":      rej.Reason,
			"source":      source,
			"rejected_at": rejectedAt.UTC().Format(time.RFC3339),
		},
		Rejected: true,
	}, nil
}
