package gefs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const fillValue = 9.999e20

var (
	numberRe    = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)
	indexRe     = regexp.MustCompile(`\[(\d+)\]`)
	matrixRowRe = regexp.MustCompile(`^\s*((?:\[\d+\])+)\s*,\s*([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)\s*$`)
	ddsVarRe    = regexp.MustCompile(`^\s*\w+\s+([A-Za-z0-9_]+)\s*\[`)
)

// parseASCIIVector reads a one-dimensional OPeNDAP ASCII response: a header
// line followed by comma-separated values.
func parseASCIIVector(text string) ([]float64, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("gefs: short ascii vector response (%d lines)", len(lines))
	}
	blob := strings.Join(lines[1:], " ")
	tokens := numberRe.FindAllString(blob, -1)
	out := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("gefs: parse vector value %q: %w", tok, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseMemberTimeMatrix reads a [member][time][lat][lon] ASCII response whose
// lat/lon axes are single points, yielding one value per (member, time) cell.
// Cells absent from the response stay NaN.
func parseMemberTimeMatrix(text string) ([][]float64, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("gefs: empty opendap response")
	}

	dims := parseIndices(lines[0])
	if len(dims) < 2 {
		return nil, fmt.Errorf("gefs: no matrix dimensions in response header %q", strings.TrimSpace(lines[0]))
	}
	members, steps := dims[0], dims[1]

	matrix := make([][]float64, members)
	for i := range matrix {
		matrix[i] = make([]float64, steps)
		for j := range matrix[i] {
			matrix[i][j] = math.NaN()
		}
	}

	for _, line := range lines[1:] {
		m := matrixRowRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		idx := parseIndices(m[1])
		if len(idx) < 2 || idx[0] >= members || idx[1] >= steps {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		matrix[idx[0]][idx[1]] = v
	}
	return matrix, nil
}

// parseDDSVariableNames lists the gridded variables declared in a DDS body.
func parseDDSVariableNames(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		if m := ddsVarRe.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// findPrecipVariable picks the accumulated-precipitation variable out of a
// dataset's DDS. NOMADS has renamed it between apcpsfc and apcp over time.
func findPrecipVariable(ddsText string) (string, error) {
	names := parseDDSVariableNames(ddsText)
	if len(names) == 0 {
		return "", fmt.Errorf("gefs: no variables parsed from dataset dds")
	}
	lower := make(map[string]string, len(names))
	for _, n := range names {
		lower[strings.ToLower(n)] = n
	}
	for _, preferred := range []string{"apcpsfc", "apcp"} {
		if n, ok := lower[preferred]; ok {
			return n, nil
		}
	}
	for _, n := range names {
		l := strings.ToLower(n)
		if strings.Contains(l, "apcp") || strings.Contains(l, "precip") {
			return n, nil
		}
	}
	return "", fmt.Errorf("gefs: no precipitation variable in dataset dds")
}

// ordinalDayToUTC converts the dataset time axis, days since year 1, to UTC.
func ordinalDayToUTC(value float64) time.Time {
	whole := math.Floor(value)
	frac := value - whole
	base := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(whole)-1)
	return base.Add(time.Duration(frac * 24 * float64(time.Hour)))
}

func parseIndices(s string) []int {
	matches := indexRe.FindAllStringSubmatch(s, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func validValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v < fillValue/10
}

func isCumulativeMatrix(matrix [][]float64) bool {
	for _, row := range matrix {
		prev := math.NaN()
		for _, v := range row {
			if !validValue(v) {
				continue
			}
			if !math.IsNaN(prev) && v+1e-6 < prev {
				return false
			}
			prev = v
		}
	}
	return true
}

func lastValid(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if validValue(values[i]) {
			return values[i], true
		}
	}
	return 0, false
}

func firstValid(values []float64) (float64, bool) {
	for _, v := range values {
		if validValue(v) {
			return v, true
		}
	}
	return 0, false
}
