package model

// Observation is one SDMX fact: the value of Indicator reported by ReportingArea
// against Counterpart for Period ("YYYY-MM").
type Observation struct {
	Dataset       string
	Indicator     string
	ReportingArea string
	Counterpart   string
	Period        string
	Value         float64
}

// Query describes one fetch from a data source.
type Query struct {
	Dataset        string
	Frequency      string
	Indicator      string
	ReportingAreas []string
	Counterparts   []string
	StartPeriod    string
	EndPeriod      string
}
