package geo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectColumns_EnglishHeaders(t *testing.T) {
	layout, err := detectColumns([]string{"name", "latitude", "longitude", "office"})
	if err != nil {
		t.Fatalf("detectColumns() error = %v", err)
	}
	if layout.name != 0 || layout.lat != 1 || layout.lng != 2 || layout.group != 3 {
		t.Errorf("layout = %+v, want name=0 lat=1 lng=2 group=3", layout)
	}
}

func TestDetectColumns_ArabicHeaders(t *testing.T) {
	layout, err := detectColumns([]string{"اسم المدرسة", "خط العرض", "خط الطول", "مكتب التعليم"})
	if err != nil {
		t.Fatalf("detectColumns() error = %v", err)
	}
	if layout.name != 0 || layout.lat != 1 || layout.lng != 2 || layout.group != 3 {
		t.Errorf("layout = %+v, want name=0 lat=1 lng=2 group=3", layout)
	}
}

func TestDetectColumns_MissingCoordinates(t *testing.T) {
	_, err := detectColumns([]string{"name", "address", "city"})
	if err == nil {
		t.Error("detectColumns() should fail without coordinate columns")
	}
}

func TestDetectColumns_NameFallback(t *testing.T) {
	// No explicit name header: the first column holding no other role is used.
	layout, err := detectColumns([]string{"school", "lat", "lng"})
	if err != nil {
		t.Fatalf("detectColumns() error = %v", err)
	}
	if layout.name != 0 {
		t.Errorf("name fallback = %d, want 0", layout.name)
	}
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"24.7136", 24.7136, false},
		{"24,7136", 24.7136, false}, // comma decimal separator
		{`"24.7136"`, 24.7136, false},
		{"  24.7136  ", 24.7136, false},
		{"-46.5", -46.5, false},
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCoord(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseCoord(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCoord(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCoord(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStandardizeGroupName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"الشمال - بنين", "الشمال"},
		{"الشمال - بنات", "الشمال"},
		{"الشمال", "الشمال"},
		{"  الوسط بنين", "الوسط"},
		{"North Office", "North Office"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := standardizeGroupName(tt.input); got != tt.want {
			t.Errorf("standardizeGroupName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParsePointsCSV(t *testing.T) {
	csv := `name,latitude,longitude,office
School A,24.7136,46.6753,North - بنين
School B,"24,8000","46,9000",North - بنات
School C,0,0,North
School D,bad,46.5,North
School E,25.1,47.2,South
`

	points, err := ParsePointsCSV(strings.NewReader(csv))
	require.NoError(t, err)

	// C has zero-zero coordinates and D an unparseable latitude; both dropped.
	require.Len(t, points, 3)

	assert.Equal(t, "School A", points[0].Name)
	assert.Equal(t, 24.7136, points[0].Latitude)
	assert.Equal(t, 46.6753, points[0].Longitude)

	// Comma decimals and quotes normalized.
	assert.Equal(t, 24.8, points[1].Latitude)
	assert.Equal(t, 46.9, points[1].Longitude)

	// Gender suffixes collapse to one group.
	assert.Equal(t, "North", points[0].Group)
	assert.Equal(t, "North", points[1].Group)
	assert.Equal(t, "South", points[2].Group)

	// IDs index the cleaned set.
	for i, p := range points {
		assert.Equal(t, i, p.ID)
	}
}

func TestParsePointsCSV_RaggedRows(t *testing.T) {
	csv := `name,lat,lng
Short row,24.5
Full row,24.6,46.6
`
	points, err := ParsePointsCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "Full row", points[0].Name)
}

func TestParsePointsCSV_NoValidRows(t *testing.T) {
	csv := `name,lat,lng
A,0,0
B,bad,worse
`
	_, err := ParsePointsCSV(strings.NewReader(csv))
	assert.Error(t, err)
}

func TestParsePointsCSV_EmptyInput(t *testing.T) {
	_, err := ParsePointsCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadPointsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.csv")
	content := "name,latitude,longitude\nA,24.5,46.5\nB,24.6,46.6\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	points, err := LoadPointsCSV(path)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestLoadPointsCSV_MissingFile(t *testing.T) {
	_, err := LoadPointsCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestLoadPointsXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"name", "latitude", "longitude", "office"},
		{"School A", 24.7136, 46.6753, "North"},
		{"School B", 25.1, 47.2, "South"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	points, err := LoadPointsXLSX(path)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "School A", points[0].Name)
	assert.Equal(t, "North", points[0].Group)
}

func TestLoadPointsXLSX_MissingFile(t *testing.T) {
	_, err := LoadPointsXLSX(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}

func TestWriteDistancesCSV(t *testing.T) {
	result := &CenterResult{
		Metric: MetricManhattan,
		Distances: []PointDistance{
			{ID: 0, Label: "A", Distance: 1.234},
			{ID: 1, Label: "B", Distance: 5.678},
		},
	}

	var sb strings.Builder
	require.NoError(t, WriteDistancesCSV(&sb, result))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "label,distance_km,metric", lines[0])
	assert.Equal(t, "A,1.23,manhattan", lines[1])
	assert.Equal(t, "B,5.68,manhattan", lines[2])
}
