package source

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

// GLIDE maps GLobal IDEntifier number registry entries to event, hazard and
// impact records. GLIDE has no episodes; every entry is episode 1.
type GLIDE struct {
	table *taxonomy.Table
}

func NewGLIDE(table *taxonomy.Table) *GLIDE {
	return &GLIDE{table: table}
}

func (*GLIDE) Name() string { return "glide" }

type glideDocument struct {
	GlideSet []glideEntry `json:"glideset"`
}

type glideEntry struct {
	Event     string   `json:"event"`
	Number    string   `json:"number"`
	Geocode   string   `json:"geocode"`
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Day       int      `json:"day"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Title     string   `json:"title"`
	Comments  string   `json:"comments"`
	Magnitude string   `json:"magnitude"`
	Source    string   `json:"source"`
	DocID     int64    `json:"docid"`
	Status    string   `json:"status"`
	Killed    int      `json:"killed"`
	Injured   int      `json:"injured"`
	Affected  int      `json:"affected"`
	Homeless  int      `json:"homeless"`
}

var glideImpacts = []struct {
	name string
	typ  domain.ImpactType
	get  func(glideEntry) int
}{
	{"killed", domain.ImpactDeaths, func(e glideEntry) int { return e.Killed }},
	{"injured", domain.ImpactInjured, func(e glideEntry) int { return e.Injured }},
	{"affected", domain.ImpactTotalAffected, func(e glideEntry) int { return e.Affected }},
	{"homeless", domain.ImpactHomeless, func(e glideEntry) int { return e.Homeless }},
}

func (g *GLIDE) ProduceRecords(payload []byte) ([]domain.DraftRecord, error) {
	var doc glideDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: glide: %w", ErrInvalidPayload, err)
	}
	if len(doc.GlideSet) == 0 {
		return nil, fmt.Errorf("%w: glide: empty glideset", ErrInvalidPayload)
	}

	var records []domain.DraftRecord
	for _, e := range doc.GlideSet {
		records = append(records, g.records(e)...)
	}
	return records, nil
}

func (g *GLIDE) records(e glideEntry) []domain.DraftRecord {
	glideID := strings.Join([]string{e.Event, e.Number, e.Geocode}, "-")

	var occurred time.Time
	if e.Year > 0 && e.Month >= 1 && e.Month <= 12 && e.Day >= 1 && e.Day <= 31 {
		occurred = time.Date(e.Year, time.Month(e.Month), e.Day, 0, 0, 0, 0, time.UTC)
	}

	title := e.Title
	if title == "" {
		title = glideID
	}

	event := domain.DraftRecord{
		ID:            "glide-event-" + glideID,
		Title:         title,
		Description:   e.Comments,
		Source:        g.Name(),
		Roles:         eventRoles,
		HazardCodes:   crosswalk(g.table, e.Event),
		CountryCodes:  []string{e.Geocode},
		OccurredAt:    occurred,
		EpisodeNumber: 1,
		Geometry:      pointGeometry(e.Latitude, e.Longitude),
		Properties: map[string]any{
			"glide":     e.Event + "-" + e.Number,
			"magnitude": e.Magnitude,
			"reporter":  e.Source,
			"docid":     e.DocID,
			"status":    e.Status,
		},
	}

	hazard := event
	hazard.ID = "glide-hazard-" + glideID
	hazard.Roles = hazardRoles
	hazard.HazardDetail = &domain.HazardDetail{EstimateType: domain.EstimatePrimary}

	records := []domain.DraftRecord{event, hazard}
	for _, imp := range glideImpacts {
		v := imp.get(e)
		if v <= 0 {
			continue
		}
		r := event
		r.ID = "glide-impact-" + glideID + "-" + imp.name
		r.Title = title + " - " + imp.name
		r.Roles = impactRoles
		r.ImpactDetail = &domain.ImpactDetail{
			Category:     domain.CategoryAllPeople,
			Type:         imp.typ,
			Value:        float64(v),
			Unit:         "count",
			EstimateType: domain.EstimatePrimary,
		}
		records = append(records, r)
	}
	return records
}
