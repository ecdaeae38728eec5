// journal/csv.go
package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/pairtrader/market"
)

// CSV writes the backtest report (pairs,returns) and the cointegrated pair
// list as two files. Either path may be empty to skip that file.
type CSV struct {
	results *csv.Writer
	pairs   *csv.Writer
	rf, pf  *os.File
}

var (
	resultsHeader = []string{"pairs", "returns"}
	pairsHeader   = []string{"symbol_a", "symbol_b", "statistic", "p_value"}
)

func NewCSV(resultsPath, pairsPath string) (*CSV, error) {
	j := &CSV{}
	var err error
	if resultsPath != "" {
		if j.rf, j.results, err = create(resultsPath, resultsHeader); err != nil {
			return nil, err
		}
	}
	if pairsPath != "" {
		if j.pf, j.pairs, err = create(pairsPath, pairsHeader); err != nil {
			if j.rf != nil {
				_ = j.rf.Close()
			}
			return nil, err
		}
	}
	return j, nil
}

func create(path string, header []string) (*os.File, *csv.Writer, error) {
	fp, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	w := csv.NewWriter(fp)
	if err := w.Write(header); err != nil {
		_ = fp.Close()
		return nil, nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = fp.Close()
		return nil, nil, err
	}
	return fp, w, nil
}

func (j *CSV) RecordResult(r ResultRecord) error {
	if j.results == nil {
		return nil
	}
	if err := j.results.Write([]string{r.Pair.String(), f(r.PnL)}); err != nil {
		return err
	}
	j.results.Flush()
	return j.results.Error()
}

func (j *CSV) RecordPair(s ScreenRecord) error {
	if j.pairs == nil {
		return nil
	}
	err := j.pairs.Write([]string{
		s.Pair.A,
		s.Pair.B,
		strconv.FormatFloat(s.Statistic, 'g', -1, 64),
		strconv.FormatFloat(s.PValue, 'g', -1, 64),
	})
	if err != nil {
		return err
	}
	j.pairs.Flush()
	return j.pairs.Error()
}

func (j *CSV) Close() error {
	for _, w := range []*csv.Writer{j.results, j.pairs} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, fp := range []*os.File{j.rf, j.pf} {
		if fp == nil {
			continue
		}
		if err := fp.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ReadPairsCSV reads a pair list written by RecordPair. Only the first two
// columns are required, so a hand written "A,B" list works too.
func ReadPairsCSV(r io.Reader) ([]market.Pair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []market.Pair
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("journal: pairs line %d: %w", line, err)
		}
		if line == 1 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), pairsHeader[0]) {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("journal: pairs line %d: want at least 2 columns, got %d", line, len(row))
		}
		p, err := market.NewPair(row[0], row[1])
		if err != nil {
			return nil, fmt.Errorf("journal: pairs line %d: %w", line, err)
		}
		out = append(out, p)
	}
}

// LoadPairsCSV reads a pair list file.
func LoadPairsCSV(path string) ([]market.Pair, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadPairsCSV(fp)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
