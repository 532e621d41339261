package search

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/gocarina/gocsv"
)

// InferColumnTypes numeric when every non empty value parses as a float
func InferColumnTypes(columns []string, rows []map[string]string) map[string]string {
	types := make(map[string]string, len(columns))
	for _, column := range columns {
		types[column] = job.ColumnNumeric
		seen := false
		for _, row := range rows {
			v := strings.TrimSpace(row[column])
			if v == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				types[column] = job.ColumnCategorical
				break
			}
		}
		if !seen {
			types[column] = job.ColumnCategorical
		}
	}
	return types
}

// table the parsed csv with encoded features
type table struct {
	features []job.Feature
	x        [][]float64
	raw      []map[string]string
}

func readRows(body []byte) ([]map[string]string, error) {
	rows, err := gocsv.CSVToMaps(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse dataset csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	return rows, nil
}

// columnsOf header order is lost by CSVToMaps, the first line keeps it
func columnsOf(body []byte) []string {
	line := body
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		line = body[:i]
	}
	parts := strings.Split(strings.TrimRight(string(line), "\r"), ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		columns = append(columns, strings.Trim(strings.TrimSpace(p), `"`))
	}
	return columns
}

// buildTable encode every feature column, numeric missing values take the column mean
func buildTable(columns []string, types map[string]string, target string, rows []map[string]string) *table {
	t := &table{raw: rows}
	for _, column := range columns {
		if column == target || column == "" {
			continue
		}
		f := job.Feature{Name: column, Type: types[column]}
		if f.Type == "" {
			f.Type = job.ColumnCategorical
		}
		if f.Type == job.ColumnCategorical {
			f.Categories = distinct(rows, column)
		}
		t.features = append(t.features, f)
	}
	t.x = make([][]float64, len(rows))
	for i := range rows {
		t.x[i] = make([]float64, len(t.features))
	}
	for j, f := range t.features {
		if f.Type == job.ColumnCategorical {
			index := make(map[string]int, len(f.Categories))
			for k, c := range f.Categories {
				index[c] = k
			}
			for i, row := range rows {
				if k, ok := index[strings.TrimSpace(row[f.Name])]; ok {
					t.x[i][j] = float64(k)
				} else {
					t.x[i][j] = -1
				}
			}
			continue
		}
		sum, n := 0.0, 0
		missing := make([]int, 0)
		for i, row := range rows {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[f.Name]), 64)
			if err != nil {
				missing = append(missing, i)
				continue
			}
			t.x[i][j] = v
			sum += v
			n++
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		for _, i := range missing {
			t.x[i][j] = mean
		}
	}
	return t
}

func distinct(rows []map[string]string, column string) []string {
	set := make(map[string]struct{})
	for _, row := range rows {
		if v := strings.TrimSpace(row[column]); v != "" {
			set[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// split every fifth row is held out, tiny datasets evaluate on the training rows
func split(n int) (train, test []int) {
	for i := 0; i < n; i++ {
		if n >= 5 && i%5 == 4 {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	if len(test) == 0 {
		test = train
	}
	return train, test
}

func pick(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for k, i := range idx {
		out[k] = x[i]
	}
	return out
}

// Description what confirming an uploaded dataset records about it
type Description struct {
	Columns     []string
	Rows        int64
	ColumnTypes map[string]string
}

// Describe header, row count and column types inferred from the first sampleRows rows
func Describe(body []byte, sampleRows int) (*Description, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("parse dataset header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	d := &Description{Columns: header}
	sample := make([]map[string]string, 0, sampleRows)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse dataset row %d: %w", d.Rows+2, err)
		}
		d.Rows++
		if len(sample) < sampleRows {
			row := make(map[string]string, len(header))
			for i, column := range header {
				if i < len(record) {
					row[column] = record[i]
				}
			}
			sample = append(sample, row)
		}
	}
	if d.Rows == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	d.ColumnTypes = InferColumnTypes(header, sample)
	return d, nil
}
