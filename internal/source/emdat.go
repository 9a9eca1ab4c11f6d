package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

// EMDAT maps rows of the Emergency Events Database public export (a JSON
// array of objects keyed by the spreadsheet column names) to event, hazard
// and impact records. EM-DAT has no episodes; every row is episode 1.
type EMDAT struct {
	table *taxonomy.Table
}

func NewEMDAT(table *taxonomy.Table) *EMDAT {
	return &EMDAT{table: table}
}

func (*EMDAT) Name() string { return "emdat" }

type emdatRow map[string]any

func (r emdatRow) str(col string) string {
	switch v := r[col].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (r emdatRow) num(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (r emdatRow) numPtr(col string) *float64 {
	if v, ok := r.num(col); ok {
		return &v
	}
	return nil
}

var emdatImpacts = []struct {
	column   string
	slug     string
	category domain.ImpactCategory
	typ      domain.ImpactType
	unit     string
	scale    float64
}{
	{"Total Deaths", "total-deaths", domain.CategoryAllPeople, domain.ImpactDeaths, "count", 1},
	{"No. Injured", "no-injured", domain.CategoryAllPeople, domain.ImpactInjured, "count", 1},
	{"No. Affected", "no-affected", domain.CategoryAllPeople, domain.ImpactDirectlyAffected, "count", 1},
	{"No. Homeless", "no-homeless", domain.CategoryAllPeople, domain.ImpactHomeless, "count", 1},
	{"Total Affected", "total-affected", domain.CategoryAllPeople, domain.ImpactTotalAffected, "count", 1},
	{"Total Damages ('000 US$)", "total-damages", domain.CategoryGlobalCurrency, domain.ImpactLossCost, "usd", 1000},
}

func (m *EMDAT) ProduceRecords(payload []byte) ([]domain.DraftRecord, error) {
	var rows []emdatRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("%w: emdat: %w", ErrInvalidPayload, err)
	}

	var records []domain.DraftRecord
	for _, row := range rows {
		records = append(records, m.records(row)...)
	}
	return records, nil
}

func (m *EMDAT) records(row emdatRow) []domain.DraftRecord {
	disNo := row.str("DisNo.")
	var countries []string
	if iso := row.str("ISO"); iso != "" {
		countries = []string{iso}
	}

	event := domain.DraftRecord{
		ID:            "emdat-event-" + disNo,
		Title:         emdatTitle(row),
		Source:        m.Name(),
		Roles:         eventRoles,
		HazardCodes:   crosswalk(m.table, row.str("Classification Key")),
		CountryCodes:  countries,
		OccurredAt:    emdatStart(row),
		EpisodeNumber: 1,
		Geometry:      pointGeometry(row.numPtr("Latitude"), row.numPtr("Longitude")),
		Properties: map[string]any{
			"disno":            disNo,
			"disaster_type":    row.str("Disaster Type"),
			"disaster_subtype": row.str("Disaster Subtype"),
		},
	}

	hazard := event
	hazard.ID = "emdat-hazard-" + disNo
	hazard.Roles = hazardRoles
	unit := row.str("Magnitude Scale")
	if unit == "" {
		unit = "emdat"
	}
	hazard.HazardDetail = &domain.HazardDetail{
		SeverityValue: row.numPtr("Magnitude"),
		SeverityUnit:  unit,
		EstimateType:  domain.EstimatePrimary,
	}

	records := []domain.DraftRecord{event, hazard}
	for _, imp := range emdatImpacts {
		v, ok := row.num(imp.column)
		if !ok || v <= 0 {
			continue
		}
		r := event
		r.ID = "emdat-impact-" + disNo + "-" + imp.slug
		r.Title = event.Title + " - " + imp.column
		r.Roles = impactRoles
		r.ImpactDetail = &domain.ImpactDetail{
			Category:     imp.category,
			Type:         imp.typ,
			Value:        v * imp.scale,
			Unit:         imp.unit,
			EstimateType: domain.EstimatePrimary,
		}
		records = append(records, r)
	}
	return records
}

func emdatTitle(row emdatRow) string {
	if name := row.str("Event Name"); name != "" {
		return name
	}
	var parts []string
	typ, sub := row.str("Disaster Type"), row.str("Disaster Subtype")
	if typ != "" {
		parts = append(parts, typ)
		if sub != "" && sub != typ {
			parts = append(parts, "("+sub+")")
		}
	}
	if country := row.str("Country"); country != "" {
		parts = append(parts, "in "+country)
	}
	return strings.Join(parts, " ")
}

// emdatStart builds the start date. Missing month or day default to 1; a
// missing year leaves the time zero.
func emdatStart(row emdatRow) time.Time {
	year, ok := row.num("Start Year")
	if !ok {
		return time.Time{}
	}
	month, day := 1.0, 1.0
	if v, ok := row.num("Start Month"); ok && v >= 1 && v <= 12 {
		month = v
	}
	if v, ok := row.num("Start Day"); ok && v >= 1 && v <= 31 {
		day = v
	}
	return time.Date(int(year), time.Month(int(month)), int(day), 0, 0, 0, 0, time.UTC)
}
