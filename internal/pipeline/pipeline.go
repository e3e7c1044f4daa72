package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"tradedominance/internal/codes"
	"tradedominance/internal/model"
	"tradedominance/internal/providers"
)

// ErrMalformedPeriod is returned when a period is not "YEAR-MONTH".
var ErrMalformedPeriod = errors.New("pipeline: malformed period")

// Record is one exported (reporting area, period) row. Nil fields are
// serialized as JSON null.
type Record struct {
	Period  string   `json:"TIME_PERIOD"`
	Year    string   `json:"Year"`
	Month   string   `json:"Month"`
	Area    string   `json:"REF_AREA"`
	ISO3    *string  `json:"ISO3"`
	Country string   `json:"CountryName"`
	Partner *string  `json:"Import Partner"`
	Share   *float64 `json:"Percent"`
	Amount  *float64 `json:"Amount (USD Millions)"`
	Color   string   `json:"color_key"`
	Change  *float64 `json:"PercentChange"`
}

type Pipeline struct {
	source providers.Source
	log    logrus.FieldLogger
}

func New(source providers.Source, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{source: source, log: log}
}

// Run fetches the observations for query and reshapes them. Fetch failures
// and malformed periods abort the run.
func (p *Pipeline) Run(ctx context.Context, query model.Query) ([]Record, error) {
	if p.source == nil {
		return nil, errors.New("pipeline: source is required")
	}

	observations, err := p.source.Fetch(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch from %s", p.source.Name())
	}
	p.log.WithFields(logrus.Fields{
		"source":       p.source.Name(),
		"observations": len(observations),
	}).Info("fetched observations")

	records, err := Reshape(observations)
	if err != nil {
		return nil, err
	}

	summary := Summarize(records)
	p.log.WithFields(logrus.Fields{
		"records":        summary.Records,
		"areas":          summary.Areas,
		"unresolved":     summary.Unresolved,
		"unmapped_areas": summary.UnmappedAreas,
	}).Info("reshaped observations")
	return records, nil
}

// Reshape pivots observations into one record per (area, period), sorted by
// area then period, with the trailing percent change filled in.
func Reshape(observations []model.Observation) ([]Record, error) {
	rows := Pivot(observations)
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record, err := deriveRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Area != records[j].Area {
			return records[i].Area < records[j].Area
		}
		return records[i].Period < records[j].Period
	})
	applyTrailingChange(records)
	return records, nil
}

func deriveRecord(row WideRow) (Record, error) {
	year, month, err := splitPeriod(row.Period)
	if err != nil {
		return Record{}, errors.Wrapf(err, "reporting area %s", row.Area)
	}

	dominance := Resolve(row.Values)
	category := codes.CategoryFor(dominance.Partner)
	bucket := Bin(dominance.Share)

	record := Record{
		Period:  row.Period,
		Year:    year,
		Month:   month,
		Area:    row.Area,
		Country: row.Area,
		Share:   dominance.Share,
		Amount:  dominance.Amount,
		Color:   codes.Color(category, bucket),
	}
	if iso3, ok := codes.ISO3(row.Area); ok {
		record.ISO3 = &iso3
		if name, ok := codes.CountryName(iso3); ok {
			record.Country = name
		}
	}
	if label, ok := codes.PartnerLabel(dominance.Partner); ok {
		record.Partner = &label
	}
	return record, nil
}

func splitPeriod(period string) (string, string, error) {
	parts := strings.Split(period, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Wrapf(ErrMalformedPeriod, "%q", period)
	}
	return parts[0], parts[1], nil
}

// Summary counts the row-local fallbacks taken while reshaping.
type Summary struct {
	Records       int
	Areas         int
	Unresolved    int
	UnmappedAreas int
}

func Summarize(records []Record) Summary {
	areas := make(map[string]struct{})
	summary := Summary{Records: len(records)}
	for _, record := range records {
		areas[record.Area] = struct{}{}
		if record.Partner == nil {
			summary.Unresolved++
		}
		if record.ISO3 == nil {
			summary.UnmappedAreas++
		}
	}
	summary.Areas = len(areas)
	return summary
}
