package imf

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"tradedominance/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dimension IDs shared by both response formats.
const (
	dimRefArea     = "REF_AREA"
	dimCounterpart = "COUNTERPART_AREA"
	dimIndicator   = "INDICATOR"
	dimTimePeriod  = "TIME_PERIOD"
)

// oneOrMany decodes either a single JSON object or an array of them. The
// IMF compact format collapses one-element lists into a bare object.
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*m = items
		return nil
	}
	var item T
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return err
	}
	*m = oneOrMany[T]{item}
	return nil
}

type compactResponse struct {
	CompactData struct {
		DataSet struct {
			Series oneOrMany[compactSeries] `json:"Series"`
		} `json:"DataSet"`
	} `json:"CompactData"`
}

type compactSeries struct {
	RefArea     string                `json:"@REF_AREA"`
	Counterpart string                `json:"@COUNTERPART_AREA"`
	Indicator   string                `json:"@INDICATOR"`
	Obs         oneOrMany[compactObs] `json:"Obs"`
}

type compactObs struct {
	TimePeriod string `json:"@TIME_PERIOD"`
	Value      any    `json:"@OBS_VALUE"`
}

func parseCompact(body []byte) ([]model.Observation, error) {
	var response compactResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "imf: compact payload")
	}

	observations := make([]model.Observation, 0)
	for _, series := range response.CompactData.DataSet.Series {
		area := strings.TrimSpace(series.RefArea)
		counterpart := strings.TrimSpace(series.Counterpart)
		if area == "" || counterpart == "" {
			continue
		}
		for _, obs := range series.Obs {
			period := strings.TrimSpace(obs.TimePeriod)
			value, ok := parseValue(obs.Value)
			if period == "" || !ok {
				continue
			}
			observations = append(observations, model.Observation{
				Indicator:     strings.TrimSpace(series.Indicator),
				ReportingArea: area,
				Counterpart:   counterpart,
				Period:        period,
				Value:         value,
			})
		}
	}
	return observations, nil
}

type sdmxResponse struct {
	Data      *sdmxData     `json:"data"`
	DataSets  []sdmxDataSet `json:"dataSets"`
	Structure sdmxStructure `json:"structure"`
}

type sdmxData struct {
	DataSets   []sdmxDataSet   `json:"dataSets"`
	Structure  *sdmxStructure  `json:"structure"`
	Structures []sdmxStructure `json:"structures"`
}

type sdmxDataSet struct {
	Series       map[string]sdmxSeries `json:"series"`
	Observations map[string][]any      `json:"observations"`
}

type sdmxSeries struct {
	Observations map[string][]any `json:"observations"`
}

type sdmxStructure struct {
	Dimensions sdmxDimensions `json:"dimensions"`
}

type sdmxDimensions struct {
	Series      []sdmxDimension `json:"series"`
	Observation []sdmxDimension `json:"observation"`
}

type sdmxDimension struct {
	ID     string      `json:"id"`
	Values []sdmxValue `json:"values"`
}

type sdmxValue struct {
	ID string `json:"id"`
}

// parseSDMXJSON accepts both series-keyed datasets and flat datasets whose
// observation keys span every dimension. The 1.0 layout keeps dataSets at
// the top level, 2.0 nests them under "data".
func parseSDMXJSON(body []byte) ([]model.Observation, error) {
	var response sdmxResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "imf: sdmx-json payload")
	}

	dataSets := response.DataSets
	structure := response.Structure
	if response.Data != nil {
		dataSets = response.Data.DataSets
		switch {
		case response.Data.Structure != nil:
			structure = *response.Data.Structure
		case len(response.Data.Structures) > 0:
			structure = response.Data.Structures[0]
		}
	}
	if len(dataSets) == 0 {
		return nil, errors.New("imf: missing dataset")
	}
	if len(structure.Dimensions.Observation) == 0 {
		return nil, errors.New("imf: missing observation dimension")
	}

	seriesDims := structure.Dimensions.Series
	obsDims := structure.Dimensions.Observation

	observations := make([]model.Observation, 0)
	dataSet := dataSets[0]
	for _, seriesKey := range sortedKeys(dataSet.Series) {
		series := dataSet.Series[seriesKey]
		seriesValues, ok := resolveKey(seriesKey, seriesDims)
		if !ok {
			continue
		}
		for _, obsKey := range sortedKeys(series.Observations) {
			obsValue := series.Observations[obsKey]
			dims, ok := resolveKey(obsKey, obsDims)
			if !ok {
				continue
			}
			for id, value := range seriesValues {
				dims[id] = value
			}
			if observation, ok := observationFrom(dims, obsValue); ok {
				observations = append(observations, observation)
			}
		}
	}
	for _, obsKey := range sortedKeys(dataSet.Observations) {
		obsValue := dataSet.Observations[obsKey]
		dims, ok := resolveKey(obsKey, obsDims)
		if !ok {
			continue
		}
		if observation, ok := observationFrom(dims, obsValue); ok {
			observations = append(observations, observation)
		}
	}
	return observations, nil
}

func observationFrom(dims map[string]string, values []any) (model.Observation, bool) {
	area := dims[dimRefArea]
	counterpart := dims[dimCounterpart]
	period := dims[dimTimePeriod]
	if area == "" || counterpart == "" || period == "" || len(values) == 0 {
		return model.Observation{}, false
	}
	value, ok := parseValue(values[0])
	if !ok {
		return model.Observation{}, false
	}
	return model.Observation{
		Indicator:     dims[dimIndicator],
		ReportingArea: area,
		Counterpart:   counterpart,
		Period:        period,
		Value:         value,
	}, true
}

// sortedKeys gives a stable iteration order so that duplicate observations
// resolve the same way on every run.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// resolveKey turns a positional key such as "0:3:1" into dimension values.
func resolveKey(key string, dims []sdmxDimension) (map[string]string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != len(dims) {
		return nil, false
	}
	values := make(map[string]string, len(dims))
	for i, part := range parts {
		index, err := strconv.Atoi(part)
		if err != nil || index < 0 || index >= len(dims[i].Values) {
			return nil, false
		}
		values[dims[i].ID] = dims[i].Values[index].ID
	}
	return values, true
}

func parseValue(raw any) (float64, bool) {
	var value float64
	switch typed := raw.(type) {
	case float64:
		value = typed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	default:
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
