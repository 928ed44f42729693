package gefs

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseASCIIVector(t *testing.T) {
	text := "time, [3]\n739123.0, 739123.25, 739123.5\n"
	values, err := parseASCIIVector(text)
	require.NoError(t, err)
	assert.Equal(t, []float64{739123.0, 739123.25, 739123.5}, values)
}

func TestParseASCIIVectorShortResponse(t *testing.T) {
	_, err := parseASCIIVector("time only header\n")
	assert.Error(t, err)
}

func TestParseMemberTimeMatrix(t *testing.T) {
	text := `tmp2m, [2][3][1][1]
[0][0], 295.5
[0][1], 296.25
[0][2], 297.0
[1][0], 294.0
[1][2], 9.999e20
`
	matrix, err := parseMemberTimeMatrix(text)
	require.NoError(t, err)
	require.Len(t, matrix, 2)
	require.Len(t, matrix[0], 3)

	assert.Equal(t, 295.5, matrix[0][0])
	assert.Equal(t, 297.0, matrix[0][2])
	assert.Equal(t, 294.0, matrix[1][0])
	assert.True(t, math.IsNaN(matrix[1][1]), "missing cell stays NaN")
	assert.Equal(t, 9.999e20, matrix[1][2])
	assert.False(t, validValue(matrix[1][2]))
}

func TestParseMemberTimeMatrixEmpty(t *testing.T) {
	_, err := parseMemberTimeMatrix("")
	assert.Error(t, err)

	_, err = parseMemberTimeMatrix("no dims header\n")
	assert.Error(t, err)
}

func TestFindPrecipVariable(t *testing.T) {
	dds := `Dataset {
    Float32 apcpsfc[ens = 31][time = 65][lat = 361][lon = 720];
    Float32 tmp2m[ens = 31][time = 65][lat = 361][lon = 720];
} gefs;`
	name, err := findPrecipVariable(dds)
	require.NoError(t, err)
	assert.Equal(t, "apcpsfc", name)
}

func TestFindPrecipVariableFallback(t *testing.T) {
	dds := "Float32 totalprecipitation[ens = 31][time = 65];\n"
	name, err := findPrecipVariable(dds)
	require.NoError(t, err)
	assert.Equal(t, "totalprecipitation", name)

	_, err = findPrecipVariable("Float32 tmp2m[ens = 31];\n")
	assert.Error(t, err)
}

func TestOrdinalDayToUTC(t *testing.T) {
	// 2026-08-25 is ordinal day 739853 in the proleptic Gregorian calendar.
	got := ordinalDayToUTC(739853.5)
	want := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	assert.True(t, got.Equal(want), "got %s", got)
}

func TestIsCumulativeMatrix(t *testing.T) {
	cumulative := [][]float64{{0, 1.5, 1.5, 3.0}, {0, 0.2, 9.999e20, 0.4}}
	assert.True(t, isCumulativeMatrix(cumulative))

	interval := [][]float64{{0, 1.5, 0.2, 3.0}}
	assert.False(t, isCumulativeMatrix(interval))
}

func TestLastFirstValid(t *testing.T) {
	row := []float64{9.999e20, 1.0, 2.0, math.NaN()}

	v, ok := lastValid(row)
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = firstValid(row)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = lastValid([]float64{math.NaN()})
	assert.False(t, ok)
}
