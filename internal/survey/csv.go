package survey

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Required CSV columns.
const (
	ColumnSTN = "STN"
	ColumnE   = "E"
	ColumnN   = "N"
)

// ReadCSV parses a station table with a header row containing STN, E and N.
// Column order is free and extra columns are ignored.
func ReadCSV(r io.Reader) ([]Station, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	cols := [3]int{}
	for i, name := range []string{ColumnSTN, ColumnE, ColumnN} {
		c, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[i] = c
	}

	var out []Station
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if blankRecord(rec) {
			continue
		}
		st, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, st)
	}
	if len(out) == 0 {
		return nil, ErrEmptyTable
	}
	return out, nil
}

func parseRecord(rec []string, cols [3]int) (Station, error) {
	field := func(c int, name string) (string, error) {
		if c >= len(rec) {
			return "", fmt.Errorf("%w: %s is missing", ErrInvalidValue, name)
		}
		return strings.TrimSpace(rec[c]), nil
	}

	raw, err := field(cols[0], ColumnSTN)
	if err != nil {
		return Station{}, err
	}
	id, err := parseID(raw)
	if err != nil {
		return Station{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, ColumnSTN, raw)
	}
	var coords [2]float64
	for i, name := range []string{ColumnE, ColumnN} {
		raw, err := field(cols[i+1], name)
		if err != nil {
			return Station{}, err
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Station{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, raw)
		}
		coords[i] = f
	}
	return Station{ID: id, E: coords[0], N: coords[1]}, nil
}

// maxStationID bounds station ids whether written as integers or floats.
const maxStationID = math.MaxInt32

// parseID accepts integers and integral floats such as "3.0".
func parseID(s string) (int, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > maxStationID || n < -maxStationID {
			return 0, fmt.Errorf("out of range: %q", s)
		}
		return int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxStationID {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// CSVSource reads stations from an in-memory CSV document.
type CSVSource struct {
	Data []byte
}

func (s CSVSource) Stations(_ context.Context) ([]Station, error) {
	return ReadCSV(bytes.NewReader(s.Data))
}

// FileSource reads stations from a CSV file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) Stations(_ context.Context) ([]Station, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open station table: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
