package geo

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// GroupColor defines the color for a group's map elements
type GroupColor struct {
	Site   color.NRGBA
	Center color.NRGBA
	Circle color.NRGBA
}

// DefaultGroupColors returns distinct colors for up to 6 groups
func DefaultGroupColors() []GroupColor {
	return []GroupColor{
		{ // Blue
			Site:   color.NRGBA{100, 149, 237, 255}, // Cornflower blue
			Center: color.NRGBA{0, 0, 139, 255},     // Dark blue
			Circle: color.NRGBA{100, 149, 237, 60},
		},
		{ // Red
			Site:   color.NRGBA{255, 99, 71, 255}, // Tomato
			Center: color.NRGBA{139, 0, 0, 255},   // Dark red
			Circle: color.NRGBA{255, 99, 71, 60},
		},
		{ // Green
			Site:   color.NRGBA{144, 238, 144, 255}, // Light green
			Center: color.NRGBA{0, 100, 0, 255},     // Dark green
			Circle: color.NRGBA{144, 238, 144, 60},
		},
		{ // Gold
			Site:   color.NRGBA{255, 215, 0, 255},  // Gold
			Center: color.NRGBA{184, 134, 11, 255}, // Dark goldenrod
			Circle: color.NRGBA{255, 215, 0, 60},
		},
		{ // Purple
			Site:   color.NRGBA{186, 85, 211, 255}, // Medium orchid
			Center: color.NRGBA{75, 0, 130, 255},   // Indigo
			Circle: color.NRGBA{186, 85, 211, 60},
		},
		{ // Teal
			Site:   color.NRGBA{64, 224, 208, 255}, // Turquoise
			Center: color.NRGBA{0, 128, 128, 255},  // Teal
			Circle: color.NRGBA{64, 224, 208, 60},
		},
	}
}

// MapRenderer renders site points and computed centers into a single image
// using an equirectangular projection centered on the data.
type MapRenderer struct {
	Points  PointSet
	Centers map[string]*CenterResult // keyed by group, "" for the ungrouped set
	Metric  Metric
	Colors  map[string]GroupColor
	Width   int // Target image width in pixels
	Padding int // Padding around the image
	Labels  bool
}

// NewMapRenderer creates a renderer with default settings, assigning group
// colors in sorted group order so output is deterministic.
func NewMapRenderer(points PointSet, centers map[string]*CenterResult, metric Metric) *MapRenderer {
	palette := DefaultGroupColors()
	colorMap := make(map[string]GroupColor)

	groups := points.Groups()
	if len(groups) == 0 {
		groups = []string{""}
	}
	for i, g := range groups {
		colorMap[g] = palette[i%len(palette)]
	}
	colorMap[""] = palette[0]

	return &MapRenderer{
		Points:  points,
		Centers: centers,
		Metric:  metric,
		Colors:  colorMap,
		Width:   1200,
		Padding: 40,
		Labels:  true,
	}
}

// groupColor returns the color assigned to a group, falling back to the
// first palette entry.
func (r *MapRenderer) groupColor(group string) GroupColor {
	if gc, ok := r.Colors[group]; ok {
		return gc
	}
	return DefaultGroupColors()[0]
}

// bounds computes the lat/lng bounding box of all points and centers.
func (r *MapRenderer) bounds() (minLat, minLng, maxLat, maxLng float64) {
	minLat, minLng = math.MaxFloat64, math.MaxFloat64
	maxLat, maxLng = -math.MaxFloat64, -math.MaxFloat64

	expand := func(lat, lng float64) {
		if lat < minLat {
			minLat = lat
		}
		if lat > maxLat {
			maxLat = lat
		}
		if lng < minLng {
			minLng = lng
		}
		if lng > maxLng {
			maxLng = lng
		}
	}

	for _, p := range r.Points {
		expand(p.Latitude, p.Longitude)
	}
	for _, c := range r.Centers {
		if c != nil {
			expand(c.CenterLat, c.CenterLng)
		}
	}
	return
}

// Render creates the map image
func (r *MapRenderer) Render() *image.RGBA {
	minLat, minLng, maxLat, maxLng := r.bounds()

	if len(r.Points) == 0 && len(r.Centers) == 0 {
		img := image.NewRGBA(image.Rect(0, 0, 2*r.Padding+1, 2*r.Padding+1))
		fillBackground(img)
		return img
	}

	// Equirectangular projection: longitude is compressed by cos of the
	// mid latitude so east-west distances keep their proportions
	midLat := (minLat + maxLat) / 2
	lngScale := math.Cos(toRadians(midLat))

	spanX := (maxLng - minLng) * lngScale
	spanY := maxLat - minLat
	if spanX == 0 {
		spanX = 0.01
	}
	if spanY == 0 {
		spanY = 0.01
	}

	width := r.Width
	scale := float64(width-2*r.Padding) / spanX
	height := int(spanY*scale) + 2*r.Padding
	if height > 4000 {
		scale *= float64(4000-2*r.Padding) / (spanY * scale)
		height = 4000
		width = int(spanX*scale) + 2*r.Padding
	}
	if height <= 0 {
		height = 2*r.Padding + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillBackground(img)

	// Helper to convert lat/lng to image coords. Image Y grows downward
	// while latitude grows northward, so Y is flipped.
	toImage := func(lat, lng float64) (int, int) {
		x := int((lng-minLng)*lngScale*scale) + r.Padding
		y := height - r.Padding - int((lat-minLat)*scale)
		return x, y
	}

	// First pass: coverage circles (semi-transparent)
	for _, group := range sortedCenterKeys(r.Centers) {
		c := r.Centers[group]
		if c == nil {
			continue
		}
		groupPoints := r.Points
		if group != "" {
			groupPoints = r.Points.ByGroup(group)
		}
		radius := DisplayRadius(groupPoints, c.CenterLat, c.CenterLng, r.Metric)
		if radius <= 0 {
			continue
		}
		gc := r.groupColor(group)
		cx, cy := toImage(c.CenterLat, c.CenterLng)
		// Kilometers to pixels via degrees latitude
		rPx := int(radius / kmPerDegreeLat * scale)
		drawCircleOutline(img, cx, cy, rPx, gc.Circle)
	}

	// Second pass: site discs
	for _, p := range r.Points {
		gc := r.groupColor(p.Group)
		ix, iy := toImage(p.Latitude, p.Longitude)
		drawDisc(img, ix, iy, 4, gc.Site)
	}

	// Third pass: center crosses on top
	for _, group := range sortedCenterKeys(r.Centers) {
		c := r.Centers[group]
		if c == nil {
			continue
		}
		gc := r.groupColor(group)
		cx, cy := toImage(c.CenterLat, c.CenterLng)
		drawCross(img, cx, cy, 8, gc.Center)
	}

	if r.Labels {
		r.drawLegend(img)
	}

	return img
}

// SavePNG renders the map and writes it to a file
func (r *MapRenderer) SavePNG(path string) error {
	img := r.Render()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return png.Encode(f, img)
}

// drawLegend adds a legend with group labels to the image
func (r *MapRenderer) drawLegend(img *image.RGBA) {
	groups := r.Points.Groups()
	if len(groups) == 0 {
		return
	}
	sort.Strings(groups)

	// Legend in top-left corner
	y := 15
	for _, g := range groups {
		gc := r.groupColor(g)

		// Draw color swatch (12x12 square)
		for dy := 0; dy < 12; dy++ {
			for dx := 0; dx < 12; dx++ {
				img.Set(10+dx, y+dy-6, gc.Site)
			}
		}

		label := g
		if label == "" {
			label = "sites"
		}
		drawText(img, 28, y, label, color.RGBA{0, 0, 0, 255})

		y += 18
	}
}

func fillBackground(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, color.RGBA{240, 240, 240, 255})
		}
	}
}

// drawDisc draws a filled circle
func drawDisc(img *image.RGBA, cx, cy, radius int, c color.NRGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawCircleOutline draws a circle outline 2 pixels thick
func drawCircleOutline(img *image.RGBA, cx, cy, radius int, c color.NRGBA) {
	if radius <= 0 {
		return
	}
	for dy := -radius - 1; dy <= radius+1; dy++ {
		for dx := -radius - 1; dx <= radius+1; dx++ {
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist <= float64(radius)+1 && dist >= float64(radius)-1 {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawCross draws an X-shaped marker
func drawCross(img *image.RGBA, cx, cy, size int, c color.NRGBA) {
	for d := -size; d <= size; d++ {
		for t := -1; t <= 1; t++ {
			points := [][2]int{
				{cx + d + t, cy + d},
				{cx + d + t, cy - d},
			}
			for _, p := range points {
				x, y := p[0], p[1]
				if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// parseHexColor parses a hex color string like "#FF6B6B" to color.NRGBA
func parseHexColor(hex string) color.NRGBA {
	// Default to red if parsing fails
	defaultColor := color.NRGBA{255, 0, 0, 255}

	if len(hex) == 0 {
		return defaultColor
	}

	// Remove # prefix if present
	if hex[0] == '#' {
		hex = hex[1:]
	}

	if len(hex) != 6 {
		return defaultColor
	}

	var r, g, b uint8
	_, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	if err != nil {
		return defaultColor
	}

	return color.NRGBA{r, g, b, 255}
}
