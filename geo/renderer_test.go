package geo

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func renderTestPoints() PointSet {
	return PointSet{
		{ID: 0, Name: "a", Group: "north", Latitude: 24.50, Longitude: 46.50},
		{ID: 1, Name: "b", Group: "north", Latitude: 24.60, Longitude: 46.60},
		{ID: 2, Name: "c", Group: "south", Latitude: 24.10, Longitude: 46.20},
		{ID: 3, Name: "d", Group: "south", Latitude: 24.20, Longitude: 46.10},
	}
}

func renderTestCenters(t *testing.T, points PointSet) map[string]*CenterResult {
	t.Helper()
	centers := make(map[string]*CenterResult)
	for _, group := range points.Groups() {
		result, err := OptimalLocation(points.ByGroup(group), MetricManhattan)
		if err != nil {
			t.Fatalf("OptimalLocation(%s) error = %v", group, err)
		}
		centers[group] = result
	}
	return centers
}

func TestNewMapRenderer_Defaults(t *testing.T) {
	points := renderTestPoints()
	renderer := NewMapRenderer(points, renderTestCenters(t, points), MetricManhattan)

	if renderer.Width != 1200 {
		t.Errorf("Width = %d, want 1200", renderer.Width)
	}
	if renderer.Padding != 40 {
		t.Errorf("Padding = %d, want 40", renderer.Padding)
	}

	// Each group gets a palette color, assigned in sorted group order.
	if _, ok := renderer.Colors["north"]; !ok {
		t.Error("north group should have a color assigned")
	}
	if _, ok := renderer.Colors["south"]; !ok {
		t.Error("south group should have a color assigned")
	}
	if renderer.Colors["north"] == renderer.Colors["south"] {
		t.Error("groups should get distinct palette colors")
	}
}

func TestMapRenderer_Render(t *testing.T) {
	points := renderTestPoints()
	renderer := NewMapRenderer(points, renderTestCenters(t, points), MetricManhattan)

	img := renderer.Render()
	if img == nil {
		t.Fatal("Render() returned nil")
	}

	bounds := img.Bounds()
	if bounds.Dx() != renderer.Width {
		t.Errorf("Image width = %d, want %d", bounds.Dx(), renderer.Width)
	}
	if bounds.Dy() <= 0 {
		t.Errorf("Image height = %d, want > 0", bounds.Dy())
	}

	// Rendering draws site markers, so the image cannot be uniform background.
	background := img.RGBAAt(0, 0)
	uniform := true
	for y := bounds.Min.Y; y < bounds.Max.Y && uniform; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.RGBAAt(x, y) != background {
				uniform = false
				break
			}
		}
	}
	if uniform {
		t.Error("Render() produced a uniform image, expected site markers")
	}
}

func TestMapRenderer_RenderSinglePoint(t *testing.T) {
	points := PointSet{{ID: 0, Latitude: 24.5, Longitude: 46.5}}
	renderer := NewMapRenderer(points, nil, MetricHaversine)

	// A single point has a degenerate bounding box; rendering must not panic
	// or divide by zero.
	img := renderer.Render()
	if img == nil {
		t.Fatal("Render() returned nil for single point")
	}
}

func TestMapRenderer_SavePNG(t *testing.T) {
	points := renderTestPoints()
	renderer := NewMapRenderer(points, renderTestCenters(t, points), MetricManhattan)

	path := filepath.Join(t.TempDir(), "map.png")
	if err := renderer.SavePNG(path); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Error("SavePNG() wrote an empty file")
	}

	// PNG signature check on the first bytes.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(data) < 8 || data[0] != 0x89 || string(data[1:4]) != "PNG" {
		t.Error("output does not start with a PNG signature")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input string
		want  color.NRGBA
	}{
		{"#ff0000", color.NRGBA{255, 0, 0, 255}},
		{"00ff00", color.NRGBA{0, 255, 0, 255}},
		{"#2a6fdb", color.NRGBA{0x2a, 0x6f, 0xdb, 255}},
		{"", color.NRGBA{255, 0, 0, 255}},       // default red
		{"nothex", color.NRGBA{255, 0, 0, 255}}, // default red
	}

	for _, tt := range tests {
		if got := parseHexColor(tt.input); got != tt.want {
			t.Errorf("parseHexColor(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDefaultGroupColors_Distinct(t *testing.T) {
	palette := DefaultGroupColors()
	if len(palette) < 6 {
		t.Fatalf("palette has %d entries, want at least 6", len(palette))
	}

	seen := make(map[color.NRGBA]bool)
	for _, gc := range palette {
		if seen[gc.Site] {
			t.Errorf("duplicate site color %v in palette", gc.Site)
		}
		seen[gc.Site] = true
	}
}
