package pipeline

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedominance/internal/model"
)

type fakeSource struct {
	observations []model.Observation
	err          error
	queries      []model.Query
}

func (s *fakeSource) Name() string {
	return "fake"
}

func (s *fakeSource) Fetch(ctx context.Context, query model.Query) ([]model.Observation, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.observations, nil
}

func obs(area, counterpart, period string, value float64) model.Observation {
	return model.Observation{
		Dataset:       "DOT",
		Indicator:     "TMG_CIF_USD",
		ReportingArea: area,
		Counterpart:   counterpart,
		Period:        period,
		Value:         value,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPivotFirstValueWins(t *testing.T) {
	rows := Pivot([]model.Observation{
		obs("DE", "CN", "2021-01", 10),
		obs("DE", "US", "2021-01", 20),
		obs("DE", "CN", "2021-01", 99),
		obs("FR", "CN", "2021-01", 5),
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "DE", rows[0].Area)
	assert.Equal(t, map[string]float64{"CN": 10, "US": 20}, rows[0].Values)
	assert.Equal(t, "FR", rows[1].Area)
}

func TestReshapeSortsByAreaAndPeriod(t *testing.T) {
	records, err := Reshape([]model.Observation{
		obs("FR", "CN", "2021-02", 1),
		obs("DE", "CN", "2021-02", 1),
		obs("FR", "CN", "2021-01", 1),
		obs("DE", "CN", "2020-12", 1),
	})
	require.NoError(t, err)

	var keys []string
	for _, record := range records {
		keys = append(keys, record.Area+" "+record.Period)
	}
	assert.Equal(t, []string{"DE 2020-12", "DE 2021-02", "FR 2021-01", "FR 2021-02"}, keys)
}

func TestReshapeDerivesRecordFields(t *testing.T) {
	records, err := Reshape([]model.Observation{
		obs("DE", "CN", "2021-03", 30),
		obs("DE", "B0", "2021-03", 45),
		obs("DE", "US", "2021-03", 25),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "2021-03", record.Period)
	assert.Equal(t, "2021", record.Year)
	assert.Equal(t, "03", record.Month)
	assert.Equal(t, "DE", record.Area)
	require.NotNil(t, record.ISO3)
	assert.Equal(t, "DEU", *record.ISO3)
	assert.Equal(t, "Germany", record.Country)
	require.NotNil(t, record.Partner)
	assert.Equal(t, "European Union", *record.Partner)
	assert.Equal(t, 45.0, *record.Share)
	assert.Equal(t, 45.0, *record.Amount)
	assert.Equal(t, "#ffff99", record.Color)
	assert.Nil(t, record.Change)
}

func TestReshapeUnmappedAreaKeepsRawCode(t *testing.T) {
	records, err := Reshape([]model.Observation{
		obs("1C_ALL", "US", "2021-01", 8),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Nil(t, records[0].ISO3)
	assert.Equal(t, "1C_ALL", records[0].Country)
	assert.Equal(t, "United States", *records[0].Partner)
}

func TestReshapeUntrackedOnlyRowIsUnresolved(t *testing.T) {
	records, err := Reshape([]model.Observation{
		obs("DE", "JP", "2021-01", 8),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Nil(t, records[0].Partner)
	assert.Nil(t, records[0].Share)
	assert.Nil(t, records[0].Amount)
	assert.Equal(t, "#cccccc", records[0].Color)
}

func TestReshapeTrailingChange(t *testing.T) {
	records, err := Reshape([]model.Observation{
		obs("DE", "US", "2021-02", 75),
		obs("DE", "US", "2021-01", 50),
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Nil(t, records[0].Change)
	require.NotNil(t, records[1].Change)
	assert.Equal(t, 50.0, *records[1].Change)
}

func TestReshapeMalformedPeriod(t *testing.T) {
	for _, period := range []string{"2021", "2021-01-01", "-01", "2021-", "2021M01"} {
		_, err := Reshape([]model.Observation{obs("DE", "US", period, 1)})
		require.Error(t, err, period)
		assert.True(t, errors.Is(err, ErrMalformedPeriod), period)
	}
}

func TestReshapeEmpty(t *testing.T) {
	records, err := Reshape(nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPipelineRunPassesQueryToSource(t *testing.T) {
	source := &fakeSource{observations: []model.Observation{obs("DE", "CN", "2021-01", 3)}}
	query := model.Query{Dataset: "DOT", Indicator: "TMG_CIF_USD", StartPeriod: "2000"}

	records, err := New(source, quietLogger()).Run(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	require.Len(t, source.queries, 1)
	assert.Equal(t, query, source.queries[0])
}

func TestPipelineRunFetchErrorIsFatal(t *testing.T) {
	boom := errors.New("connection refused")
	source := &fakeSource{err: boom}

	records, err := New(source, quietLogger()).Run(context.Background(), model.Query{})
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Contains(t, err.Error(), "fetch from fake")
}

func TestSummarize(t *testing.T) {
	records, err := Reshape([]model.Observation{
		obs("DE", "CN", "2021-01", 3),
		obs("DE", "JP", "2021-02", 3),
		obs("B0", "US", "2021-01", 3),
	})
	require.NoError(t, err)

	summary := Summarize(records)
	assert.Equal(t, Summary{Records: 3, Areas: 2, Unresolved: 1, UnmappedAreas: 1}, summary)
}
