package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadTableCSV reads a wide price table: a header row of symbols followed by
// one row per observation. Empty cells are read as missing, which marks the
// column misaligned. A leading "index" or empty header column is skipped.
func ReadTableCSV(r io.Reader) (*PriceTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("market: empty price table")
	}
	if err != nil {
		return nil, fmt.Errorf("market: read header: %w", err)
	}

	skip := 0
	if len(header) > 0 {
		h := strings.ToLower(strings.TrimSpace(header[0]))
		if h == "" || h == "index" {
			skip = 1
		}
	}
	columns := make([]string, 0, len(header)-skip)
	for _, h := range header[skip:] {
		columns = append(columns, strings.TrimSpace(h))
	}

	series := make(map[string]PriceSeries, len(columns))
	for _, c := range columns {
		series[c] = nil
	}

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("market: line %d: %w", line, err)
		}
		if len(row) == 0 {
			continue
		}
		for i, c := range columns {
			v := math.NaN()
			if j := i + skip; j < len(row) {
				cell := strings.TrimSpace(row[j])
				if cell != "" {
					v, err = strconv.ParseFloat(cell, 64)
					if err != nil {
						return nil, fmt.Errorf("market: line %d column %q: bad price %q: %w", line, c, cell, err)
					}
				}
			}
			series[c] = append(series[c], v)
		}
	}

	return NewPriceTable(columns, series)
}

// WriteTableCSV writes t in the layout ReadTableCSV accepts.
func WriteTableCSV(w io.Writer, t *PriceTable) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for k := 0; k < t.Len(); k++ {
		for i, c := range cols {
			s := t.series[c]
			if k >= len(s) || math.IsNaN(s[k]) {
				row[i] = ""
				continue
			}
			row[i] = strconv.FormatFloat(s[k], 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PriceSource supplies the price table for a run. It is called once per run.
type PriceSource interface {
	LoadPriceTable(ctx context.Context) (*PriceTable, error)
}

// CSVSource loads a wide price table from a file.
type CSVSource struct {
	Path string
}

func (s CSVSource) LoadPriceTable(ctx context.Context) (*PriceTable, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("market: csv source: path is required")
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTableCSV(f)
}

// StaticSource serves an already loaded table.
type StaticSource struct {
	Table *PriceTable
}

func (s StaticSource) LoadPriceTable(ctx context.Context) (*PriceTable, error) {
	if s.Table == nil {
		return nil, fmt.Errorf("market: static source: table is nil")
	}
	return s.Table, nil
}
