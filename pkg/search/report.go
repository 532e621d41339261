package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/gocarina/gocsv"
)

// ReportRow one line of the training report csv
type ReportRow struct {
	Section string  `csv:"section"`
	Name    string  `csv:"name"`
	Value   float64 `csv:"value"`
}

func buildReport(in *Input, out *Output) []ReportRow {
	rows := make([]ReportRow, 0, len(out.Metrics)+len(out.Artifact.Features)+2)
	names := make([]string, 0, len(out.Metrics))
	for name := range out.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, ReportRow{Section: "metric", Name: name, Value: out.Metrics[name]})
	}
	rows = append(rows,
		ReportRow{Section: "data", Name: "train_rows", Value: float64(out.Features.TrainRows)},
		ReportRow{Section: "data", Name: "test_rows", Value: float64(out.Features.TestRows)},
		ReportRow{Section: "config", Name: "time_budget", Value: float64(in.Config.TimeBudget)},
	)
	if lr := out.Artifact.Regression; lr != nil {
		for j, f := range out.Artifact.Features {
			rows = append(rows, ReportRow{Section: "coefficient", Name: f.Name, Value: lr.Coefficients[j]})
		}
	}
	return rows
}

// EncodeReport training report as csv
func EncodeReport(rows []ReportRow) ([]byte, error) {
	return gocsv.MarshalBytes(&rows)
}

func DecodeReport(body []byte) ([]ReportRow, error) {
	var rows []ReportRow
	if err := gocsv.UnmarshalBytes(body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ProfileRow one column of the exploratory data report
type ProfileRow struct {
	Column   string  `csv:"column"`
	Type     string  `csv:"type"`
	Missing  int     `csv:"missing"`
	Distinct int     `csv:"distinct"`
	Mean     float64 `csv:"mean"`
	Min      float64 `csv:"min"`
	Max      float64 `csv:"max"`
}

// Profile per column summary of a csv dataset, types are inferred when nil
func Profile(dataset []byte, types map[string]string) ([]ProfileRow, error) {
	rows, err := readRows(dataset)
	if err != nil {
		return nil, err
	}
	columns := columnsOf(dataset)
	if len(types) == 0 {
		types = InferColumnTypes(columns, rows)
	}
	profile := make([]ProfileRow, 0, len(columns))
	for _, column := range columns {
		p := ProfileRow{Column: column, Type: types[column], Distinct: len(distinct(rows, column))}
		n := 0
		for _, row := range rows {
			v := strings.TrimSpace(row[column])
			if v == "" {
				p.Missing++
				continue
			}
			if p.Type != job.ColumnNumeric {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			if n == 0 || f < p.Min {
				p.Min = f
			}
			if n == 0 || f > p.Max {
				p.Max = f
			}
			p.Mean += f
			n++
		}
		if n > 0 {
			p.Mean /= float64(n)
		}
		profile = append(profile, p)
	}
	return profile, nil
}

func EncodeProfile(rows []ProfileRow) ([]byte, error) {
	return gocsv.MarshalBytes(&rows)
}
