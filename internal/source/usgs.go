package source

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

// usgsHazardCode is the previous-version structured code USGS earthquake
// records are filed under. The table migrates it to the current code.
const usgsHazardCode = "GH0004"

// USGS maps USGS earthquake GeoJSON to event, hazard and impact records.
//
// The payload is a single Feature, a FeatureCollection, or an envelope
// {"event": <Feature>, "losses": <PAGER losses>}. The GeoJSON feeds carry no
// country, so country codes come from the PAGER losses and records without
// them cannot be correlated. Impact records are emitted per country for
// non-zero PAGER fatality and economic loss estimates.
type USGS struct {
	table *taxonomy.Table
}

func NewUSGS(table *taxonomy.Table) *USGS {
	return &USGS{table: table}
}

func (*USGS) Name() string { return "usgs" }

type usgsFeature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   struct {
		Coordinates []float64 `json:"coordinates"` // lon, lat, depth
	} `json:"geometry"`
	Features []usgsFeature `json:"features"`
}

type usgsProperties struct {
	Mag     *float64 `json:"mag"`
	MagType string   `json:"magType"`
	Place   string   `json:"place"`
	Time    int64    `json:"time"` // unix millis
	Title   string   `json:"title"`
	Status  string   `json:"status"`
	Alert   string   `json:"alert"`
	Tsunami int      `json:"tsunami"`
	Felt    *int     `json:"felt"`
}

type pagerLosses struct {
	EmpiricalFatality *struct {
		CountryFatalities []pagerCountry `json:"country_fatalities"`
	} `json:"empirical_fatality"`
	EmpiricalEconomic *struct {
		CountryDollars []pagerCountry `json:"country_dollars"`
	} `json:"empirical_economic"`
}

type pagerCountry struct {
	CountryCode string  `json:"country_code"`
	Fatalities  float64 `json:"fatalities"`
	USDollars   float64 `json:"us_dollars"`
}

type usgsPayload struct {
	usgsFeature
	Event  *usgsFeature `json:"event"`
	Losses *pagerLosses `json:"losses"`
}

func (u *USGS) ProduceRecords(payload []byte) ([]domain.DraftRecord, error) {
	var doc usgsPayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: usgs: %w", ErrInvalidPayload, err)
	}

	var features []usgsFeature
	switch {
	case doc.Event != nil:
		features = []usgsFeature{*doc.Event}
	case doc.Type == "FeatureCollection":
		features = doc.Features
	case doc.Type == "Feature":
		features = []usgsFeature{doc.usgsFeature}
	default:
		return nil, fmt.Errorf("%w: usgs: no earthquake feature in payload", ErrInvalidPayload)
	}

	records := make([]domain.DraftRecord, 0, 2*len(features))
	for _, f := range features {
		records = append(records, u.records(f, doc.Losses)...)
	}
	return records, nil
}

func (u *USGS) records(f usgsFeature, losses *pagerLosses) []domain.DraftRecord {
	p := f.Properties

	var occurred time.Time
	if p.Time > 0 {
		occurred = time.UnixMilli(p.Time).UTC()
	}

	var geometry json.RawMessage
	props := map[string]any{
		"magnitude_type": p.MagType,
		"status":         p.Status,
		"tsunami":        p.Tsunami == 1,
	}
	if c := f.Geometry.Coordinates; len(c) >= 2 {
		geometry = pointGeometry(&c[1], &c[0])
		if len(c) >= 3 {
			props["depth_km"] = c[2]
		}
	}
	if p.Mag != nil {
		props["magnitude"] = *p.Mag
	}
	if p.Felt != nil {
		props["felt"] = *p.Felt
	}
	if p.Alert != "" {
		props["pager_alert"] = p.Alert
	}

	// Features without an id leave record ids to the engine.
	id := func(role, suffix string) string {
		if f.ID == "" {
			return ""
		}
		return "usgs-" + role + "-" + f.ID + suffix
	}

	event := domain.DraftRecord{
		ID:            id("event", ""),
		Title:         p.Title,
		Description:   p.Place,
		Source:        u.Name(),
		Roles:         eventRoles,
		HazardCodes:   crosswalk(u.table, usgsHazardCode),
		CountryCodes:  pagerCountries(losses),
		OccurredAt:    occurred,
		EpisodeNumber: 1,
		Geometry:      geometry,
		Properties:    props,
	}

	hazard := event
	hazard.ID = id("hazard", "")
	hazard.Roles = hazardRoles
	hazard.HazardDetail = &domain.HazardDetail{
		SeverityValue: p.Mag,
		SeverityUnit:  p.MagType,
		EstimateType:  domain.EstimatePrimary,
	}

	records := []domain.DraftRecord{event, hazard}
	if losses == nil {
		return records
	}

	impact := func(kind, country string, value float64, category domain.ImpactCategory, typ domain.ImpactType, unit, prefix string) {
		cc := iso3(country)
		if value <= 0 || cc == "" {
			return
		}
		r := event
		r.ID = id("impact", "-"+kind+"-"+cc)
		r.Title = prefix + " for " + p.Title
		r.Roles = impactRoles
		r.CountryCodes = []string{cc}
		r.ImpactDetail = &domain.ImpactDetail{
			Category:     category,
			Type:         typ,
			Value:        value,
			Unit:         unit,
			EstimateType: domain.EstimateModelled,
		}
		records = append(records, r)
	}
	if losses.EmpiricalFatality != nil {
		for _, c := range losses.EmpiricalFatality.CountryFatalities {
			impact("fatalities", c.CountryCode, c.Fatalities, domain.CategoryAllPeople, domain.ImpactDeaths, "count", "Estimated Fatalities")
		}
	}
	if losses.EmpiricalEconomic != nil {
		for _, c := range losses.EmpiricalEconomic.CountryDollars {
			impact("economic", c.CountryCode, c.USDollars, domain.CategoryBuildings, domain.ImpactLossCost, "usd", "Estimated Economic Losses")
		}
	}
	return records
}

// pagerCountries lists the alpha-3 codes of the countries with a non-zero
// PAGER estimate, in report order.
func pagerCountries(losses *pagerLosses) []string {
	if losses == nil {
		return nil
	}
	var out []string
	add := func(code string, value float64) {
		if cc := iso3(code); cc != "" && value > 0 {
			out = append(out, cc)
		}
	}
	if losses.EmpiricalFatality != nil {
		for _, c := range losses.EmpiricalFatality.CountryFatalities {
			add(c.CountryCode, c.Fatalities)
		}
	}
	if losses.EmpiricalEconomic != nil {
		for _, c := range losses.EmpiricalEconomic.CountryDollars {
			add(c.CountryCode, c.USDollars)
		}
	}
	return domain.CleanCountries(out)
}
