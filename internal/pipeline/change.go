package pipeline

// applyTrailingChange fills Change for records already sorted by (Area,
// Period): each area is scanned in order, carrying the previous amount.
func applyTrailingChange(records []Record) {
	for start := 0; start < len(records); {
		end := start + 1
		for end < len(records) && records[end].Area == records[start].Area {
			end++
		}

		var previous *float64
		for i := start; i < end; i++ {
			records[i].Change = percentChange(previous, records[i].Amount)
			previous = records[i].Amount
		}
		start = end
	}
}

func percentChange(previous, current *float64) *float64 {
	if previous == nil || current == nil || *previous == 0 {
		return nil
	}
	return roundedPtr((*current - *previous) / *previous * 100)
}
