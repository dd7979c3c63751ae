package survey

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Square(t *testing.T) {
	in := "STN,E,N\n1,0,0\n2,0,10\n3,10,10\n4,10,0\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Station{
		{ID: 1, E: 0, N: 0},
		{ID: 2, E: 0, N: 10},
		{ID: 3, E: 10, N: 10},
		{ID: 4, E: 10, N: 0},
	}, got)
}

func TestReadCSV_ColumnOrderAndExtras(t *testing.T) {
	in := "\ufeffN, E ,REMARK,STN\n100.5,200.25,peg,7\n101,201,,8.0\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Station{ID: 7, E: 200.25, N: 100.5}, got[0])
	assert.Equal(t, Station{ID: 8, E: 201, N: 101}, got[1])
}

func TestReadCSV_SkipsBlankRows(t *testing.T) {
	in := "STN,E,N\n1,0,0\n,,\n2,1,1\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		msg     string
	}{
		{"empty input", "", ErrEmptyTable, ""},
		{"header only", "STN,E,N\n", ErrEmptyTable, ""},
		{"missing N", "STN,E\n1,2\n", ErrMissingColumn, "N"},
		{"lowercase header", "stn,e,n\n1,2,3\n", ErrMissingColumn, "STN"},
		{"non-numeric easting", "STN,E,N\n1,abc,3\n", ErrInvalidValue, "row 2"},
		{"fractional id", "STN,E,N\n1.5,1,3\n", ErrInvalidValue, "STN"},
		{"short row", "STN,E,N\n1,2,3\n2,4\n", ErrInvalidValue, "row 3"},
		{"NaN northing", "STN,E,N\n1,2,NaN\n", ErrInvalidValue, "N="},
		{"id too large", "STN,E,N\n3000000000,1,3\n", ErrInvalidValue, "STN"},
		{"float id too large", "STN,E,N\n3000000000.0,1,3\n", ErrInvalidValue, "STN"},
		{"id too small", "STN,E,N\n-3000000000,1,3\n", ErrInvalidValue, "STN"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data ukur.csv")
	require.NoError(t, os.WriteFile(path, []byte("STN,E,N\n1,0,0\n2,0,5\n3,5,0\n"), 0o644))

	got, err := FileSource{Path: path}.Stations(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")}.Stations(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCSVSource(t *testing.T) {
	got, err := CSVSource{Data: []byte("STN,E,N\n1,0,0\n")}.Stations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Station{{ID: 1}}, got)
}

func TestParseID_Bounds(t *testing.T) {
	for _, in := range []string{"2147483647", "2147483647.0", "-2147483647"} {
		_, err := parseID(in)
		assert.NoError(t, err, in)
	}
	for _, in := range []string{"2147483648", "2147483648.0", "9223372036854775807"} {
		_, err := parseID(in)
		assert.Error(t, err, in)
	}
}
