// Package snapshot reads published dataset files into bars. Source files are
// delimited text with a header row, but neither the delimiter nor the column
// names are stable across exports, so reading goes through an ordered list of
// candidate configurations instead of a single fixed schema.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"xau-data/internal/faults"
	"xau-data/internal/model"
)

// Candidate delimiters, tried in order. Historical exports used ';', newer
// ones ','. A parse that collapses to a single column means the delimiter
// did not match and the next candidate is tried.
var delimiters = []rune{';', ','}

// Candidate names for the timestamp column, tried in order.
var timeColumns = []string{"Date", "Open time"}

// StrictLayout is the terminal-export timestamp encoding, tried before any
// general-purpose layout.
const StrictLayout = "2006.01.02 15:04"

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Read parses the snapshot file at path into bars, in file order (the merger
// owns sorting). A missing file yields faults.ErrNoSnapshot. A file whose
// header matches no candidate configuration yields a SchemaError; a row with
// an unparseable timestamp or price yields a ParseError.
func Read(path string) ([]model.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, faults.ErrNoSnapshot)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	records, err := sniff(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	bars, err := decode(records)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return bars, nil
}

// sniff tries each candidate delimiter until one yields a multi-column frame.
func sniff(data []byte) ([][]string, error) {
	var header []string
	for _, delim := range delimiters {
		r := csv.NewReader(bytes.NewReader(data))
		r.Comma = delim
		r.TrimLeadingSpace = true
		records, err := r.ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}
		header = records[0]
		if len(header) > 1 {
			return records, nil
		}
	}
	return nil, &faults.SchemaError{Want: timeColumns, Have: header}
}

// decode maps the header to column indexes and converts every data row.
func decode(records [][]string) ([]model.Bar, error) {
	header := records[0]
	timeIdx := -1
	for _, name := range timeColumns {
		if i := columnIndex(header, name); i >= 0 {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, &faults.SchemaError{Want: timeColumns, Have: header}
	}

	idx := make(map[string]int, 5)
	for _, name := range []string{"Open", "High", "Low", "Close", "Volume"} {
		i := columnIndex(header, name)
		if i < 0 {
			return nil, &faults.SchemaError{Want: []string{name}, Have: header}
		}
		idx[name] = i
	}

	bars := make([]model.Bar, 0, len(records)-1)
	for _, rec := range records[1:] {
		ts, err := ParseTime(rec[timeIdx])
		if err != nil {
			return nil, err
		}
		b := model.Bar{Time: ts}
		for name, ptr := range map[string]*float64{
			"Open": &b.Open, "High": &b.High, "Low": &b.Low,
			"Close": &b.Close, "Volume": &b.Volume,
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[name]]), 64)
			if err != nil {
				return nil, &faults.ParseError{Field: name, Value: rec[idx[name]], Err: err}
			}
			*ptr = v
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// ParseTime parses one timestamp value: strict terminal-export layout first,
// then the general fallback layouts. Both failing is a ParseError.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(StrictLayout, s); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range fallbackLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &faults.ParseError{Field: "timestamp", Value: s, Err: lastErr}
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
