package source

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

const gdacsSeverityUnit = "GDACS Alert Score"

// GDACS maps Global Disaster Alert and Coordination System event features
// (a single GeoJSON Feature or a FeatureCollection) to an event and a hazard
// record per feature.
type GDACS struct {
	table *taxonomy.Table
}

func NewGDACS(table *taxonomy.Table) *GDACS {
	return &GDACS{table: table}
}

func (*GDACS) Name() string { return "gdacs" }

type gdacsFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties gdacsProperties `json:"properties"`
	Features   []gdacsFeature  `json:"features"`
}

type gdacsProperties struct {
	EventType         string   `json:"eventtype"`
	EventID           int64    `json:"eventid"`
	EpisodeID         int      `json:"episodeid"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	ISO3              string   `json:"iso3"`
	Country           string   `json:"country"`
	FromDate          string   `json:"fromdate"`
	ToDate            string   `json:"todate"`
	AlertLevel        string   `json:"alertlevel"`
	EpisodeAlertLevel string   `json:"episodealertlevel"`
	EpisodeAlertScore *float64 `json:"episodealertscore"`
}

func (g *GDACS) ProduceRecords(payload []byte) ([]domain.DraftRecord, error) {
	var doc gdacsFeature
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: gdacs: %w", ErrInvalidPayload, err)
	}

	features := []gdacsFeature{doc}
	if doc.Type == "FeatureCollection" {
		features = doc.Features
	}

	records := make([]domain.DraftRecord, 0, 2*len(features))
	for _, f := range features {
		records = append(records, g.records(f)...)
	}
	return records, nil
}

func (g *GDACS) records(f gdacsFeature) []domain.DraftRecord {
	p := f.Properties
	episode := p.EpisodeID
	if episode == 0 {
		episode = 1
	}
	suffix := strconv.FormatInt(p.EventID, 10) + "-" + strconv.Itoa(episode)

	// An unparseable date is left zero so the engine reports the record
	// instead of the adapter dropping it.
	occurred, _ := parseSourceTime(p.FromDate)

	props := map[string]any{"alertlevel": p.AlertLevel}
	if end, err := parseSourceTime(p.ToDate); err == nil {
		props["end_datetime"] = end
	}
	if p.Country != "" {
		props["country"] = p.Country
	}

	event := domain.DraftRecord{
		ID:            "gdacs-event-" + suffix,
		Title:         p.Name,
		Description:   p.Description,
		Source:        g.Name(),
		Roles:         eventRoles,
		HazardCodes:   crosswalk(g.table, p.EventType),
		CountryCodes:  []string{p.ISO3},
		OccurredAt:    occurred,
		EpisodeNumber: episode,
		Geometry:      f.Geometry,
		Properties:    props,
	}

	hazard := event
	hazard.ID = "gdacs-hazard-" + suffix
	hazard.Roles = hazardRoles
	hazard.HazardDetail = &domain.HazardDetail{
		SeverityValue: p.EpisodeAlertScore,
		SeverityUnit:  gdacsSeverityUnit,
		SeverityLabel: p.EpisodeAlertLevel,
		EstimateType:  domain.EstimatePrimary,
	}

	return []domain.DraftRecord{event, hazard}
}
