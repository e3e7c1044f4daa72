package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedominance/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func observation(area, counterpart, period string, value float64) model.Observation {
	return model.Observation{
		Dataset:       "DOT",
		Indicator:     "TMG_CIF_USD",
		ReportingArea: area,
		Counterpart:   counterpart,
		Period:        period,
		Value:         value,
	}
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestUpsertReplacesValue(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertObservations(ctx, []model.Observation{observation("DE", "CN", "2021-01", 10)}))
	require.NoError(t, st.UpsertObservations(ctx, []model.Observation{observation("DE", "CN", "2021-01", 12.5)}))
	require.NoError(t, st.UpsertObservations(ctx, nil))

	observations, err := st.Fetch(ctx, model.Query{})
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, 12.5, observations[0].Value)
}

func TestFetchFiltersAndOrders(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertObservations(ctx, []model.Observation{
		observation("FR", "US", "2005-01", 1),
		observation("DE", "US", "2005-12", 2),
		observation("DE", "CN", "2005-12", 3),
		observation("DE", "JP", "2005-12", 4),
		observation("DE", "CN", "2006-01", 5),
		observation("DE", "CN", "1999-12", 6),
		{Dataset: "DOT", Indicator: "TXG_FOB_USD", ReportingArea: "DE", Counterpart: "CN", Period: "2005-06", Value: 7},
	}))

	tests := []struct {
		name  string
		query model.Query
		want  []float64
	}{
		{
			name:  "everything",
			query: model.Query{},
			want:  []float64{6, 7, 3, 4, 2, 5, 1},
		},
		{
			name: "dot imports for tracked partners",
			query: model.Query{
				Dataset:      "DOT",
				Indicator:    "TMG_CIF_USD",
				Counterparts: []string{"B0", "CN", "US"},
				StartPeriod:  "2000",
				EndPeriod:    "2005",
			},
			want: []float64{3, 2, 1},
		},
		{
			name: "single area with month bounds",
			query: model.Query{
				Indicator:      "TMG_CIF_USD",
				ReportingAreas: []string{"DE"},
				StartPeriod:    "2005-12",
				EndPeriod:      "2006-01",
			},
			want: []float64{3, 4, 2, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observations, err := st.Fetch(ctx, tt.query)
			require.NoError(t, err)
			got := make([]float64, 0, len(observations))
			for _, observation := range observations {
				got = append(got, observation.Value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchRoundTripsFields(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	want := observation("JP", "B0", "2020-07", 8104.25)
	require.NoError(t, st.UpsertObservations(ctx, []model.Observation{want}))

	observations, err := st.Fetch(ctx, model.Query{Dataset: "DOT"})
	require.NoError(t, err)
	assert.Equal(t, []model.Observation{want}, observations)
	assert.Equal(t, "sqlite", st.Name())
}
