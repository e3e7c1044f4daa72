package export

import (
	"os"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"tradedominance/internal/pipeline"
)

const workbookSheet = "Records"

var workbookHeader = []interface{}{
	"TIME_PERIOD", "Year", "Month", "REF_AREA", "ISO3", "CountryName",
	"Import Partner", "Percent", "Amount (USD Millions)", "color_key", "PercentChange",
}

// WriteWorkbook writes records to a single-sheet xlsx file with the same
// columns as the JSON export. Missing values are left as empty cells.
func WriteWorkbook(path string, records []pipeline.Record) error {
	output, err := stageWorkbook(path, records)
	if err != nil {
		return err
	}
	defer output.discard()
	return output.commit()
}

func stageWorkbook(path string, records []pipeline.Record) (*staged, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", workbookSheet); err != nil {
		return nil, errors.Wrap(err, "rename sheet")
	}
	if err := f.SetSheetRow(workbookSheet, "A1", &workbookHeader); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			record.Period,
			record.Year,
			record.Month,
			record.Area,
			stringOrNil(record.ISO3),
			record.Country,
			stringOrNil(record.Partner),
			floatOrNil(record.Share),
			floatOrNil(record.Amount),
			record.Color,
			floatOrNil(record.Change),
		}
		if err := f.SetSheetRow(workbookSheet, cell, &row); err != nil {
			return nil, errors.Wrapf(err, "write row %d", i+2)
		}
	}
	if err := f.SetPanes(workbookSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, errors.Wrap(err, "freeze header")
	}

	return stage(path, func(file *os.File) error {
		return f.Write(file)
	})
}

func stringOrNil(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func floatOrNil(value *float64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
