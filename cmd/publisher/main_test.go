package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedominance/internal/config"
	"tradedominance/internal/model"
	"tradedominance/internal/store/sqlite"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Source:   sourceSQLite,
		DBPath:   filepath.Join(dir, "archive.db"),
		Output:   filepath.Join(dir, "data.json"),
		Workbook: filepath.Join(dir, "data.xlsx"),
		Query: config.QueryConfig{
			Dataset:      "DOT",
			Frequency:    "M",
			Indicator:    "TMG_CIF_USD",
			Counterparts: []string{"B0", "CN", "US"},
			Start:        "2000",
		},
	}
}

func seed(t *testing.T, path string, observations []model.Observation) {
	t.Helper()
	st, err := sqlite.New(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.UpsertObservations(context.Background(), observations))
}

func TestBuildFromArchive(t *testing.T) {
	cfg := testConfig(t)
	observation := func(area, counterpart, period string, value float64) model.Observation {
		return model.Observation{Dataset: "DOT", Indicator: "TMG_CIF_USD", ReportingArea: area, Counterpart: counterpart, Period: period, Value: value}
	}
	seed(t, cfg.DBPath, []model.Observation{
		observation("DE", "CN", "2021-01", 30),
		observation("DE", "B0", "2021-01", 45),
		observation("DE", "US", "2021-01", 25),
		observation("DE", "B0", "2021-02", 90),
		observation("B0", "US", "2021-01", 12),
	})

	require.NoError(t, build(context.Background(), cfg, quietLogger()))

	raw, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 2)

	assert.Equal(t, "DEU", rows[0]["ISO3"])
	assert.Equal(t, "European Union", rows[0]["Import Partner"])
	assert.Equal(t, 45.0, rows[0]["Percent"])
	assert.Equal(t, "#ffff99", rows[0]["color_key"])
	assert.Nil(t, rows[0]["PercentChange"])
	assert.Equal(t, 100.0, rows[1]["PercentChange"])

	_, err = os.Stat(cfg.Workbook)
	assert.NoError(t, err)
}

func TestBuildEmptyArchiveWritesEmptyArray(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workbook = ""

	require.NoError(t, build(context.Background(), cfg, quietLogger()))

	raw, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}

func TestBuildMalformedPeriodWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg.DBPath, []model.Observation{
		{Dataset: "DOT", Indicator: "TMG_CIF_USD", ReportingArea: "DE", Counterpart: "CN", Period: "2021Q1", Value: 1},
	})

	require.Error(t, build(context.Background(), cfg, quietLogger()))
	_, err := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		dbPath  string
		want    string
		wantErr bool
	}{
		{name: "imf", source: "IMF", want: "imf"},
		{name: "sqlite", source: "sqlite", dbPath: "archive.db", want: "sqlite"},
		{name: "sqlite without db", source: "sqlite", wantErr: true},
		{name: "unknown", source: "comtrade", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Source: tt.source}
			if tt.dbPath != "" {
				cfg.DBPath = filepath.Join(t.TempDir(), tt.dbPath)
			}
			source, closeSource, err := openSource(cfg, quietLogger())
			defer closeSource()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, source.Name())
		})
	}
}

func TestBuildWorkbookFailureWritesNoJSON(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg.DBPath, []model.Observation{
		{Dataset: "DOT", Indicator: "TMG_CIF_USD", ReportingArea: "DE", Counterpart: "CN", Period: "2021-01", Value: 1},
	})
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.Workbook = filepath.Join(blocker, "data.xlsx")

	require.Error(t, build(context.Background(), cfg, quietLogger()))
	_, err := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(err))
}
