package pipeline

import (
	"math"

	"tradedominance/internal/model"
)

// WideRow holds every counterpart value reported by one area for one period.
type WideRow struct {
	Area   string
	Period string
	Values map[string]float64
}

type rowKey struct {
	area   string
	period string
}

// Pivot groups observations by (area, period). The first value seen for a
// counterpart wins and later duplicates are dropped. NaN values are skipped,
// so a group made only of NaN values produces no row. Rows keep the order in
// which their group first appeared.
func Pivot(observations []model.Observation) []WideRow {
	index := make(map[rowKey]int)
	rows := make([]WideRow, 0)
	for _, observation := range observations {
		if math.IsNaN(observation.Value) {
			continue
		}
		key := rowKey{area: observation.ReportingArea, period: observation.Period}
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, WideRow{
				Area:   observation.ReportingArea,
				Period: observation.Period,
				Values: make(map[string]float64),
			})
		}
		if _, exists := rows[i].Values[observation.Counterpart]; exists {
			continue
		}
		rows[i].Values[observation.Counterpart] = observation.Value
	}
	return rows
}
