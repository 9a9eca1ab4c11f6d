package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/engine"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

const valenciaKey = domain.CorrelationKey("20241029-ESP-MH0600-1-GCDB")

func testTable(t *testing.T) *taxonomy.Table {
	t.Helper()
	tbl, err := taxonomy.Default()
	require.NoError(t, err)
	return tbl
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func recordIDs(records []domain.DraftRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func TestRegistry(t *testing.T) {
	reg, err := NewDefaultRegistry(testTable(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"emdat", "gdacs", "glide", "usgs"}, reg.Names())

	a, err := reg.Lookup(" GDACS ")
	require.NoError(t, err)
	assert.Equal(t, "gdacs", a.Name())

	_, err = reg.Lookup("pdc")
	require.ErrorIs(t, err, ErrUnknownSource)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	tbl := testTable(t)
	_, err := NewRegistry(NewGDACS(tbl), NewGDACS(tbl))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestCrosswalk(t *testing.T) {
	tbl := testTable(t)

	tests := []struct {
		code string
		want []string
	}{
		{"FL", []string{"FL", "MH0600", "nat-hyd-flo-flo"}},
		{"nat-hyd-flo-riv", []string{"nat-hyd-flo-riv", "MH0604", "FL"}},
		{"MH0057", []string{"MH0057", "MH0300", "TC", "nat-met-sto-tro"}},
		{"GH0100", []string{"GH0100", "EQ", "nat-geo-ear-gro"}},
		{"DR", []string{"DR"}},
		{"EP", []string{"EP"}},
		{"mix-mix-mix-mix", []string{"mix-mix-mix-mix"}},
		{"nat-geo-env-slr", []string{"nat-geo-env-slr"}},
		{"GH0004", []string{"GH0004", "GH0104", "EQ"}},
		{"XX", []string{"XX"}},
		{" ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, crosswalk(tbl, tt.code))
		})
	}
}

func TestParseSourceTime(t *testing.T) {
	want := time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-10-29T00:00:00", "2024-10-29T00:00:00Z", "2024-10-29T02:00:00+02:00", "2024-10-29", "2024-10-29 00:00:00"} {
		got, err := parseSourceTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}
	_, err := parseSourceTime("29/10/2024")
	require.Error(t, err)
}

func TestGDACS_ProduceRecords(t *testing.T) {
	records, err := NewGDACS(testTable(t)).ProduceRecords(loadFixture(t, "gdacs_valencia.json"))
	require.NoError(t, err)

	require.Equal(t, []string{"gdacs-event-1102983-1", "gdacs-hazard-1102983-1"}, recordIDs(records))

	event, hazard := records[0], records[1]
	assert.Equal(t, []string{"source", "event"}, event.Roles)
	assert.Equal(t, []string{"FL", "MH0600", "nat-hyd-flo-flo"}, event.HazardCodes)
	assert.Equal(t, []string{"ESP"}, event.CountryCodes)
	assert.Equal(t, time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC), event.OccurredAt)
	assert.Equal(t, 1, event.EpisodeNumber)
	assert.Equal(t, "Flood in Spain", event.Title)
	assert.JSONEq(t, `{"type":"Point","coordinates":[-0.37,39.47]}`, string(event.Geometry))
	assert.Nil(t, event.HazardDetail)

	assert.Equal(t, []string{"source", "hazard"}, hazard.Roles)
	require.NotNil(t, hazard.HazardDetail)
	assert.Equal(t, "Red", hazard.HazardDetail.SeverityLabel)
	require.NotNil(t, hazard.HazardDetail.SeverityValue)
	assert.InDelta(t, 2.5, *hazard.HazardDetail.SeverityValue, 1e-9)
	assert.Equal(t, domain.EstimatePrimary, hazard.HazardDetail.EstimateType)
}

func TestGDACS_FeatureCollectionAndDefaults(t *testing.T) {
	payload := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":null,"properties":{"eventtype":"TC","eventid":1000001,"iso3":"PHL","fromdate":"2024-11-11T00:00:00"}},
		{"type":"Feature","geometry":null,"properties":{"eventtype":"EQ","eventid":1000002,"episodeid":3,"iso3":"TUR","fromdate":"2023-02-06T01:17:00"}}
	]}`)

	records, err := NewGDACS(testTable(t)).ProduceRecords(payload)
	require.NoError(t, err)

	want := []string{"gdacs-event-1000001-1", "gdacs-hazard-1000001-1", "gdacs-event-1000002-3", "gdacs-hazard-1000002-3"}
	assert.Equal(t, want, recordIDs(records))
	assert.Equal(t, 1, records[0].EpisodeNumber, "missing episode defaults to 1")
	assert.Equal(t, 3, records[2].EpisodeNumber)
}

func TestGDACS_InvalidPayload(t *testing.T) {
	_, err := NewGDACS(testTable(t)).ProduceRecords([]byte(`{"type":`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestGLIDE_ProduceRecords(t *testing.T) {
	records, err := NewGLIDE(testTable(t)).ProduceRecords(loadFixture(t, "glide_events.json"))
	require.NoError(t, err)

	want := []string{
		"glide-event-FL-2024-000199-ESP",
		"glide-hazard-FL-2024-000199-ESP",
		"glide-impact-FL-2024-000199-ESP-killed",
		"glide-event-DR-2024-000050-MAR",
		"glide-hazard-DR-2024-000050-MAR",
	}
	if diff := cmp.Diff(want, recordIDs(records)); diff != "" {
		t.Fatalf("record ids mismatch (-want +got):\n%s", diff)
	}

	flood := records[0]
	assert.Equal(t, "FL-2024-000199-ESP", flood.Title)
	assert.Equal(t, time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC), flood.OccurredAt)
	assert.JSONEq(t, `{"type":"Point","coordinates":[-0.37,39.47]}`, string(flood.Geometry))

	killed := records[2]
	require.NotNil(t, killed.ImpactDetail)
	assert.Equal(t, domain.ImpactDeaths, killed.ImpactDetail.Type)
	assert.InDelta(t, 224.0, killed.ImpactDetail.Value, 1e-9)

	assert.Equal(t, []string{"DR"}, records[3].HazardCodes, "ambiguous legacy codes are passed on alone")
}

func TestGLIDE_EmptySet(t *testing.T) {
	_, err := NewGLIDE(testTable(t)).ProduceRecords([]byte(`{"glideset":[]}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestEMDAT_ProduceRecords(t *testing.T) {
	records, err := NewEMDAT(testTable(t)).ProduceRecords(loadFixture(t, "emdat_rows.json"))
	require.NoError(t, err)

	want := []string{
		"emdat-event-2024-0796-ESP",
		"emdat-hazard-2024-0796-ESP",
		"emdat-impact-2024-0796-ESP-total-deaths",
		"emdat-impact-2024-0796-ESP-no-affected",
		"emdat-impact-2024-0796-ESP-total-affected",
		"emdat-impact-2024-0796-ESP-total-damages",
		"emdat-event-2023-0088-TUR",
		"emdat-hazard-2023-0088-TUR",
	}
	if diff := cmp.Diff(want, recordIDs(records)); diff != "" {
		t.Fatalf("record ids mismatch (-want +got):\n%s", diff)
	}

	flood := records[0]
	assert.Equal(t, "Flood (Flood (General)) in Spain", flood.Title)
	assert.Equal(t, []string{"nat-hyd-flo-flo", "MH0600", "FL"}, flood.HazardCodes)
	assert.Nil(t, flood.Geometry)

	damages := records[5]
	assert.Equal(t, domain.CategoryGlobalCurrency, damages.ImpactDetail.Category)
	assert.Equal(t, domain.ImpactLossCost, damages.ImpactDetail.Type)
	assert.InDelta(t, 11e9, damages.ImpactDetail.Value, 1)

	quake := records[6]
	assert.Equal(t, "Kahramanmaras", quake.Title)
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), quake.OccurredAt, "missing day defaults to 1")
	assert.Equal(t, []string{"nat-geo-ear-gro", "GH0100", "EQ"}, quake.HazardCodes)
	assert.Equal(t, "Richter", records[7].HazardDetail.SeverityUnit)
}

func TestEMDAT_InvalidPayload(t *testing.T) {
	_, err := NewEMDAT(testTable(t)).ProduceRecords([]byte(`{"DisNo.":"x"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestEMDAT_SharedDatabaseKeyIsNotPinned(t *testing.T) {
	tbl := testTable(t)
	payload := []byte(`[{"DisNo.":"2022-0001-BGD","Classification Key":"nat-geo-env-slr","ISO":"BGD",
		"Disaster Type":"Sea level rise","Start Year":2022,"Start Month":6,"Start Day":1}]`)

	drafts, err := NewEMDAT(tbl).ProduceRecords(payload)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, []string{"nat-geo-env-slr"}, drafts[1].HazardCodes)

	res, err := engine.New(tbl).FinishAll(context.Background(), drafts)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "emdat-hazard-2022-0001-BGD", res.Errors[0].RecordID)
	require.ErrorIs(t, res.Errors[0], domain.ErrInvalidHazardCodeSet)

	require.Len(t, res.Finished, 1)
	assert.Equal(t, domain.CorrelationKey("20220601-BGD-nat-geo-env-slr-1-GCDB"), res.Finished[0].CorrelationID)
}

func TestUSGS_ProduceRecords(t *testing.T) {
	records, err := NewUSGS(testTable(t)).ProduceRecords(loadFixture(t, "usgs_kahramanmaras.json"))
	require.NoError(t, err)

	want := []string{
		"usgs-event-us6000jllz",
		"usgs-hazard-us6000jllz",
		"usgs-impact-us6000jllz-fatalities-TUR",
		"usgs-impact-us6000jllz-fatalities-SYR",
		"usgs-impact-us6000jllz-economic-TUR",
	}
	if diff := cmp.Diff(want, recordIDs(records)); diff != "" {
		t.Fatalf("record ids mismatch (-want +got):\n%s", diff)
	}

	event := records[0]
	assert.Equal(t, []string{"GH0004", "GH0104", "EQ"}, event.HazardCodes)
	assert.Equal(t, []string{"TUR", "SYR"}, event.CountryCodes)
	assert.Equal(t, time.Date(2023, 2, 6, 1, 17, 34, 0, time.UTC), event.OccurredAt)
	assert.Equal(t, 1, event.EpisodeNumber)
	assert.Equal(t, "26 km ENE of Nurdagi, Turkey", event.Description)
	assert.JSONEq(t, `{"type":"Point","coordinates":[37.0143,37.2256]}`, string(event.Geometry))
	assert.Equal(t, true, event.Properties["tsunami"])

	hazard := records[1]
	require.NotNil(t, hazard.HazardDetail)
	assert.Equal(t, "mww", hazard.HazardDetail.SeverityUnit)
	assert.InDelta(t, 7.8, *hazard.HazardDetail.SeverityValue, 1e-9)

	syria := records[3]
	assert.Equal(t, []string{"SYR"}, syria.CountryCodes)
	assert.Equal(t, domain.ImpactDeaths, syria.ImpactDetail.Type)
	assert.Equal(t, domain.EstimateModelled, syria.ImpactDetail.EstimateType)
	assert.InDelta(t, 8476.0, syria.ImpactDetail.Value, 1e-9)

	economic := records[4]
	assert.Equal(t, domain.CategoryBuildings, economic.ImpactDetail.Category)
	assert.Equal(t, domain.ImpactLossCost, economic.ImpactDetail.Type)
}

func TestUSGS_FeedForms(t *testing.T) {
	adapter := NewUSGS(testTable(t))

	t.Run("feature collection", func(t *testing.T) {
		records, err := adapter.ProduceRecords([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","id":"a1","properties":{"mag":5.1,"time":1675646254000},"geometry":{"coordinates":[37,37,10]}},
			{"type":"Feature","id":"b2","properties":{"mag":4.2,"time":1675646254000},"geometry":{"coordinates":[38,38]}}
		]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"usgs-event-a1", "usgs-hazard-a1", "usgs-event-b2", "usgs-hazard-b2"}, recordIDs(records))
		assert.Empty(t, records[0].CountryCodes, "feeds without PAGER losses carry no country")
	})

	t.Run("single feature without id", func(t *testing.T) {
		records, err := adapter.ProduceRecords([]byte(`{"type":"Feature","properties":{"mag":5.1,"time":1675646254000}}`))
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Empty(t, records[0].ID)
		assert.Nil(t, records[0].Geometry)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := adapter.ProduceRecords([]byte(`{"features":[]}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
		_, err = adapter.ProduceRecords([]byte(`[`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})
}

// USGS files earthquakes under a previous-version code; the engine migrates
// it and the hazard lands in the same cluster as a GDACS earthquake.
func TestUSGS_MigratesAndSharesClusterWithGDACS(t *testing.T) {
	tbl := testTable(t)
	eng := engine.New(tbl)

	drafts, err := NewUSGS(tbl).ProduceRecords(loadFixture(t, "usgs_kahramanmaras.json"))
	require.NoError(t, err)
	res, err := eng.FinishAll(context.Background(), drafts)
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	usgsHazard := res.Finished[1]
	assert.Equal(t, []string{"GH0104", "EQ"}, usgsHazard.HazardCodes.Codes())
	assert.Equal(t, domain.CorrelationKey("20230206-SYR_TUR-GH0104-1-GCDB"), usgsHazard.CorrelationID)

	gdacsDrafts, err := NewGDACS(tbl).ProduceRecords([]byte(`{"type":"Feature","properties":{
		"eventtype":"EQ","eventid":1000002,"episodeid":1,"iso3":"TUR","fromdate":"2023-02-06T01:17:00"}}`))
	require.NoError(t, err)
	gdacsHazard, err := eng.Finish(gdacsDrafts[1])
	require.NoError(t, err)

	assert.Equal(t, "nat-geo-ear-gro", usgsHazard.HazardDetail.Cluster)
	assert.Equal(t, gdacsHazard.HazardDetail.Cluster, usgsHazard.HazardDetail.Cluster)
	assert.Contains(t, gdacsHazard.HazardCodes.Codes(), "EQ")
}

// The same flood reported by three sources lands in one correlation cluster.
func TestSourcesConvergeOnOneKey(t *testing.T) {
	tbl := testTable(t)
	eng := engine.New(tbl)

	fixtures := []struct {
		adapter Adapter
		file    string
	}{
		{NewGDACS(tbl), "gdacs_valencia.json"},
		{NewGLIDE(tbl), "glide_events.json"},
		{NewEMDAT(tbl), "emdat_rows.json"},
	}

	for _, fx := range fixtures {
		t.Run(fx.adapter.Name(), func(t *testing.T) {
			drafts, err := fx.adapter.ProduceRecords(loadFixture(t, fx.file))
			require.NoError(t, err)

			res, err := eng.FinishAll(context.Background(), drafts)
			require.NoError(t, err)

			var keys []domain.CorrelationKey
			for _, rec := range res.Finished {
				if rec.Role.IsEvent() && rec.CountryCodes[0] == "ESP" {
					keys = append(keys, rec.CorrelationID)
				}
			}
			assert.Equal(t, []domain.CorrelationKey{valenciaKey}, keys)
		})
	}
}

func TestGLIDE_AmbiguousDroughtRejectsOnlyTheHazardRecord(t *testing.T) {
	tbl := testTable(t)
	drafts, err := NewGLIDE(tbl).ProduceRecords(loadFixture(t, "glide_events.json"))
	require.NoError(t, err)

	res, err := engine.New(tbl).FinishAll(context.Background(), drafts)
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "glide-hazard-DR-2024-000050-MAR", res.Errors[0].RecordID)
	require.ErrorIs(t, res.Errors[0], domain.ErrInvalidHazardCodeSet)

	require.Len(t, res.Finished, 4)
	drought := res.Finished[3]
	assert.Equal(t, "glide-event-DR-2024-000050-MAR", drought.ID)
	assert.Equal(t, domain.CorrelationKey("20240301-MAR-DR-1-GCDB"), drought.CorrelationID)
}
