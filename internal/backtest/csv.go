package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"spp-forecast/internal/model"
)

// WriteRowsCSV writes rows to a new file at path.
func WriteRowsCSV(path string, rows []model.BacktestIntervalRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeRowsCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeRowsCSV writes a header and one line per row. Missing values are
// empty cells.
func EncodeRowsCSV(out io.Writer, rows []model.BacktestIntervalRow) error {
	w := csv.NewWriter(out)

	header := []string{
		"slot",
		"ts",
		"forecast_4w",
		"forecast_8w",
		"actual",
		"err_4w",
		"err_8w",
		"abs_err_4w",
		"abs_err_8w",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Slot),
			r.TS,
			fmtFloat(r.Forecast4w),
			fmtFloat(r.Forecast8w),
			fmtFloat(r.Actual),
			fmtFloat(r.Err4w),
			fmtFloat(r.Err8w),
			fmtFloat(r.AbsErr4w),
			fmtFloat(r.AbsErr8w),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x *float64) string {
	if x == nil {
		return ""
	}
	return strconv.FormatFloat(*x, 'f', 2, 64)
}
