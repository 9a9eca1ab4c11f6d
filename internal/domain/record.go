package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink or reject topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
	// Rejected routes the event to the reject topic.
	Rejected bool
}

// HazardDetail describes the physical hazard of a hazard record.
type HazardDetail struct {
	// Cluster is the database key of the hazard cluster. Filled from the
	// hazard codes when the source leaves it empty.
	Cluster       string       `json:"cluster"`
	SeverityValue *float64     `json:"severity_value,omitempty"`
	SeverityUnit  string       `json:"severity_unit,omitempty"`
	SeverityLabel string       `json:"severity_label,omitempty"`
	EstimateType  EstimateType `json:"estimate_type,omitempty"`
}

// Validate checks the closed enums of the detail.
func (d HazardDetail) Validate() error {
	if d.EstimateType != "" && !d.EstimateType.IsValid() {
		return fmt.Errorf("%w: hazard detail estimate type %q", ErrInvalidDraftRecord, d.EstimateType)
	}
	return nil
}

// ImpactDetail quantifies the effect of an impact record.
type ImpactDetail struct {
	Category     ImpactCategory `json:"category"`
	Type         ImpactType     `json:"type"`
	Value        float64        `json:"value"`
	Unit         string         `json:"unit,omitempty"`
	EstimateType EstimateType   `json:"estimate_type,omitempty"`
}

// Validate checks the closed enums of the detail.
func (d ImpactDetail) Validate() error {
	if !d.Category.IsValid() {
		return fmt.Errorf("%w: impact category %q", ErrInvalidDraftRecord, d.Category)
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("%w: impact type %q", ErrInvalidDraftRecord, d.Type)
	}
	if d.EstimateType != "" && !d.EstimateType.IsValid() {
		return fmt.Errorf("%w: impact detail estimate type %q", ErrInvalidDraftRecord, d.EstimateType)
	}
	return nil
}

// DraftRecord is what a source adapter hands to the engine: role markers and
// raw hazard indicators that still have to be validated and resolved.
type DraftRecord struct {
	ID            string          `json:"id"`
	Title         string          `json:"title,omitempty"`
	Description   string          `json:"description,omitempty"`
	Source        string          `json:"source,omitempty"`
	Roles         []string        `json:"roles"`
	HazardCodes   []string        `json:"hazard_codes"`
	CountryCodes  []string        `json:"country_codes"`
	OccurredAt    time.Time       `json:"datetime"`
	EpisodeNumber int             `json:"episode_number"`
	Geometry      json.RawMessage `json:"geometry,omitempty"`
	Properties    map[string]any  `json:"properties,omitempty"`
	HazardDetail  *HazardDetail   `json:"hazard_detail,omitempty"`
	ImpactDetail  *ImpactDetail   `json:"impact_detail,omitempty"`
}

// Validate checks the parts of a draft that do not depend on the taxonomy:
// the occurrence time must be set, details must match the role and carry
// valid enums, and impact records need an impact detail.
func (d DraftRecord) Validate(role Role) error {
	if d.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurrence time is missing", ErrInvalidDraftRecord)
	}
	if d.HazardDetail != nil {
		if !role.IsHazard() {
			return fmt.Errorf("%w: hazard detail on %s record", ErrInvalidDraftRecord, role.Kind)
		}
		if err := d.HazardDetail.Validate(); err != nil {
			return err
		}
	}
	if d.ImpactDetail != nil {
		if !role.IsImpact() {
			return fmt.Errorf("%w: impact detail on %s record", ErrInvalidDraftRecord, role.Kind)
		}
		if err := d.ImpactDetail.Validate(); err != nil {
			return err
		}
	}
	if role.IsImpact() && d.ImpactDetail == nil {
		return fmt.Errorf("%w: impact record without impact detail", ErrInvalidDraftRecord)
	}
	if d.EpisodeNumber < 0 {
		return fmt.Errorf("%w: negative episode number %d", ErrInvalidDraftRecord, d.EpisodeNumber)
	}
	return nil
}

// FinishedRecord is a DraftRecord after role classification, hazard code
// normalization, correlation and keyword derivation. Property names are the
// catalog extension's and are stable.
type FinishedRecord struct {
	ID            string          `json:"id"`
	Title         string          `json:"title,omitempty"`
	Description   string          `json:"description,omitempty"`
	Source        string          `json:"source,omitempty"`
	Role          Role            `json:"-"`
	Roles         []string        `json:"roles"`
	HazardCodes   HazardCodeSet   `json:"monty:hazard_codes"`
	CountryCodes  []string        `json:"monty:country_codes"`
	CorrelationID CorrelationKey  `json:"monty:corr_id,omitempty"`
	EpisodeNumber int             `json:"monty:episode_number"`
	OccurredAt    time.Time       `json:"datetime"`
	Keywords      []string        `json:"keywords"`
	Geometry      json.RawMessage `json:"geometry,omitempty"`
	Properties    map[string]any  `json:"properties,omitempty"`
	HazardDetail  *HazardDetail   `json:"monty:hazard_detail,omitempty"`
	ImpactDetail  *ImpactDetail   `json:"monty:impact_detail,omitempty"`
	ProcessedAt   time.Time       `json:"processed_at"`
}

// GenerateID returns a deterministic id for records whose source carries
// none: prefix plus the first 8 bytes of the SHA-256 of the joined parts.
func GenerateID(prefix string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	short := hex.EncodeToString(hash[:8])
	if prefix == "" {
		return short
	}
	return prefix + "-" + short
}

// CleanCountries upper-cases and trims country codes, dropping empties and
// duplicates while keeping first-appearance order.
func CleanCountries(countries []string) []string {
	out := make([]string, 0, len(countries))
	seen := make(map[string]bool, len(countries))
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
