package dataio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadDataset(t *testing.T) {
	path := writeTempCSV(t, `variable,unit,area,source,time,value
CO2,Gg,COL,A,2000-01-01,1.5
CO2,Gg,COL,A,2001-01-01,2.5
CO2,Gg,COL,B,2000-01-01,9
CO2,Gg,COL,B,2002-01-01,11
`)

	ds, err := ReadDataset(path, nil)
	require.NoError(t, err)
	require.Len(t, ds.Series, 2)

	// the time index is the union of all observed timestamps
	times := ds.Times()
	require.Len(t, times, 3)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), times[0])
	assert.Equal(t, time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC), times[2])

	a := ds.Series[0]
	assert.Equal(t, "CO2", a.Name)
	assert.Equal(t, "Gg", a.Unit)
	assert.Equal(t, map[string]string{"area": "COL", "source": "A"}, a.Coords)
	assert.Equal(t, 1.5, a.Values[0])
	assert.Equal(t, 2.5, a.Values[1])
	assert.True(t, math.IsNaN(a.Values[2]), "unobserved slots are missing")

	b := ds.Series[1]
	assert.Equal(t, 9.0, b.Values[0])
	assert.True(t, math.IsNaN(b.Values[1]))
	assert.Equal(t, 11.0, b.Values[2])
}

func TestReadDatasetEmptyValueIsMissing(t *testing.T) {
	path := writeTempCSV(t, `variable,unit,area,time,value
CO2,Gg,COL,2000-01-01,1
CO2,Gg,COL,2001-01-01,
`)

	ds, err := ReadDataset(path, nil)
	require.NoError(t, err)
	require.Len(t, ds.Series, 1)
	assert.True(t, math.IsNaN(ds.Series[0].Values[1]))
}

func TestReadDatasetHandlesBOM(t *testing.T) {
	path := writeTempCSV(t, "\ufeffvariable,unit,area,time,value\nCO2,Gg,COL,2000-01-01,1\n")

	ds, err := ReadDataset(path, nil)
	require.NoError(t, err)
	require.Len(t, ds.Series, 1)
	assert.Equal(t, "CO2", ds.Series[0].Name)
}

func TestReadDatasetErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing required column",
			content: "variable,unit,area,time\nCO2,Gg,COL,2000-01-01\n",
		},
		{
			name:    "bad time",
			content: "variable,unit,area,time,value\nCO2,Gg,COL,last tuesday,1\n",
		},
		{
			name:    "bad value",
			content: "variable,unit,area,time,value\nCO2,Gg,COL,2000-01-01,abc\n",
		},
		{
			name:    "conflicting units",
			content: "variable,unit,area,time,value\nCO2,Gg,COL,2000-01-01,1\nCO2,kt,COL,2001-01-01,2\n",
		},
		{
			name:    "no data rows",
			content: "variable,unit,area,time,value\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempCSV(t, tt.content)
			_, err := ReadDataset(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestReadDatasetMissingFile(t *testing.T) {
	_, err := ReadDataset(filepath.Join(t.TempDir(), "does-not-exist.csv"), nil)
	assert.Error(t, err)
}

func TestReadDatasetDuplicateKeepsFirst(t *testing.T) {
	path := writeTempCSV(t, `variable,unit,area,time,value
CO2,Gg,COL,2000-01-01,1
CO2,Gg,COL,2000-01-01,99
`)

	ds, err := ReadDataset(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ds.Series[0].Values[0])
}
