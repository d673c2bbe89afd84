package geo

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Site tables arrive as CSV or XLSX exports with inconsistent headers and
// locale formatting. The loaders here normalize them into a clean PointSet:
// coordinate columns are detected from the header (English or Arabic), values
// are stripped of quotes and comma decimal separators, and rows with missing,
// non-numeric, or zero-zero coordinates are dropped before they can reach the
// engine.

// columnLayout records which columns of a table hold which fields.
// A value of -1 means the column is absent.
type columnLayout struct {
	lat, lng, name, group int
}

// detectColumns finds the coordinate, name, and group columns in a header
// row. Latitude matches "lat" or the Arabic خط العرض; longitude matches
// "lon"/"lng" or خط الطول; the grouping column matches office/zone headers.
// The name column falls back to the first column that holds none of the
// other roles.
func detectColumns(header []string) (columnLayout, error) {
	layout := columnLayout{lat: -1, lng: -1, name: -1, group: -1}

	for i, col := range header {
		lower := strings.ToLower(strings.TrimSpace(col))
		switch {
		case layout.lat == -1 && (strings.Contains(lower, "lat") || strings.Contains(col, "خط العرض")):
			layout.lat = i
		case layout.lng == -1 && (strings.Contains(lower, "lon") || strings.Contains(lower, "lng") || strings.Contains(col, "خط الطول")):
			layout.lng = i
		case layout.group == -1 && (strings.Contains(lower, "office") || strings.Contains(lower, "group") || strings.Contains(lower, "zone") ||
			strings.Contains(col, "مكتب التعليم") || strings.Contains(col, "الزون")):
			layout.group = i
		case layout.name == -1 && (strings.Contains(lower, "name") || strings.Contains(col, "اسم")):
			layout.name = i
		}
	}

	if layout.lat == -1 || layout.lng == -1 {
		return layout, fmt.Errorf("could not identify latitude and longitude columns in header %v", header)
	}

	if layout.name == -1 {
		for i := range header {
			if i != layout.lat && i != layout.lng && i != layout.group {
				layout.name = i
				break
			}
		}
	}

	return layout, nil
}

// parseCoord cleans and parses a coordinate cell: quotes are stripped and a
// comma decimal separator is normalized to a dot.
func parseCoord(val string) (float64, error) {
	val = strings.ReplaceAll(val, `"`, "")
	val = strings.TrimSpace(val)
	val = strings.ReplaceAll(val, ",", ".")
	if val == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	return strconv.ParseFloat(val, 64)
}

// standardizeGroupName normalizes a grouping value the way the upstream data
// uses education-office names: trailing gender suffixes are removed and
// whitespace is trimmed, so "X - بنين" and "X - بنات" collapse to "X".
func standardizeGroupName(name string) string {
	name = strings.TrimSpace(name)
	for _, suffix := range []string{"بنين", "بنات"} {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), "-"))
			break
		}
	}
	return name
}

// pointsFromRows converts raw table rows (header first) into a PointSet,
// skipping rows whose coordinates cannot be parsed or are the zero-zero
// missing-value marker. Point IDs are assigned from position in the cleaned
// set so they index the returned collection directly.
func pointsFromRows(rows [][]string) (PointSet, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("table has no rows")
	}

	layout, err := detectColumns(rows[0])
	if err != nil {
		return nil, err
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var points PointSet
	for _, row := range rows[1:] {
		lat, err1 := parseCoord(cell(row, layout.lat))
		lng, err2 := parseCoord(cell(row, layout.lng))
		if err1 != nil || err2 != nil {
			continue
		}
		if lat == 0 && lng == 0 {
			continue
		}

		points = append(points, Point{
			ID:        len(points),
			Latitude:  lat,
			Longitude: lng,
			Name:      strings.TrimSpace(cell(row, layout.name)),
			Group:     standardizeGroupName(cell(row, layout.group)),
		})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no rows with valid coordinates found")
	}
	return points, nil
}

// ParsePointsCSV reads a site table in CSV form from r.
func ParsePointsCSV(r io.Reader) (PointSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated, cells default to empty
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return pointsFromRows(rows)
}

// LoadPointsCSV reads a site table from a CSV file.
func LoadPointsCSV(path string) (PointSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	points, err := ParsePointsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return points, nil
}

// LoadPointsXLSX reads a site table from the first sheet of an XLSX file.
func LoadPointsXLSX(path string) (PointSet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}

	points, err := pointsFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return points, nil
}

// WriteDistancesCSV writes a per-point distance table for a computed center,
// the downloadable companion to the map view.
func WriteDistancesCSV(w io.Writer, result *CenterResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"label", "distance_km", "metric"}); err != nil {
		return err
	}
	for _, d := range result.Distances {
		record := []string{
			d.Label,
			strconv.FormatFloat(d.Distance, 'f', 2, 64),
			string(result.Metric),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
