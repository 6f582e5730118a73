// Package export writes locked assignments as flat records for downstream
// tabular tooling, and reads them back as commitments.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/kilianp07/forestplan/core/model"
)

// Header is the CSV column order. It is stable.
var Header = []string{"block", "machine", "day", "shift", "quantity"}

// Record is one exported assignment.
type Record struct {
	Block    string  `json:"block"`
	Machine  string  `json:"machine"`
	Day      int     `json:"day"`
	Shift    int     `json:"shift"`
	Quantity float64 `json:"quantity"`
}

// Records converts assignments, ordered by day, shift, machine then block.
func Records(as []model.Assignment) []Record {
	out := make([]Record, len(as))
	for i, a := range as {
		out[i] = Record{Block: a.Block, Machine: a.Machine, Day: a.Day, Shift: a.Shift, Quantity: a.Quantity}
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		switch {
		case a.Day != b.Day:
			return a.Day - b.Day
		case a.Shift != b.Shift:
			return a.Shift - b.Shift
		case a.Machine != b.Machine:
			return compare(a.Machine, b.Machine)
		default:
			return compare(a.Block, b.Block)
		}
	})
	return out
}

func compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// WriteJSON writes the assignments to w as a JSON array.
func WriteJSON(w io.Writer, as []model.Assignment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Records(as))
}

// WriteCSV writes the assignments to w as CSV with Header.
func WriteCSV(w io.Writer, as []model.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range Records(as) {
		rec := []string{
			r.Block,
			r.Machine,
			strconv.Itoa(r.Day),
			strconv.Itoa(r.Shift),
			strconv.FormatFloat(r.Quantity, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses records written by WriteCSV into assignments. Hours are
// left at zero; the schedule recomputes them when the assignments are fixed.
func ReadCSV(r io.Reader) ([]model.Assignment, error) {
	cr := csv.NewReader(r)
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !slices.Equal(head, Header) {
		return nil, fmt.Errorf("unexpected header %v, want %v", head, Header)
	}
	var out []model.Assignment
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		a := model.Assignment{Block: rec[0], Machine: rec[1]}
		if a.Day, err = strconv.Atoi(rec[2]); err != nil {
			return nil, fmt.Errorf("line %d: day: %w", line, err)
		}
		if a.Shift, err = strconv.Atoi(rec[3]); err != nil {
			return nil, fmt.Errorf("line %d: shift: %w", line, err)
		}
		if a.Quantity, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		out = append(out, a)
	}
}
