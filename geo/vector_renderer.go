package geo

import (
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha
// This is needed for the canvas library which expects premultiplied RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorMapRenderer renders site points and centers as vector graphics.
// Canvas coordinates are kilometers relative to the south-west corner of the
// data bounds, so output dimensions scale with the geographic extent.
type VectorMapRenderer struct {
	Points     PointSet
	Centers    map[string]*CenterResult
	Metric     Metric
	Colors     map[string]GroupColor
	Padding    float64           // Padding in kilometers
	Resolution canvas.Resolution // Resolution for PNG output (default: 300 DPI)
}

// NewVectorMapRenderer creates a vector renderer with default settings
func NewVectorMapRenderer(points PointSet, centers map[string]*CenterResult, metric Metric) *VectorMapRenderer {
	palette := DefaultGroupColors()
	colorMap := make(map[string]GroupColor)

	groups := points.Groups()
	for i, g := range groups {
		colorMap[g] = palette[i%len(palette)]
	}
	colorMap[""] = palette[0]

	return &VectorMapRenderer{
		Points:     points,
		Centers:    centers,
		Metric:     metric,
		Colors:     colorMap,
		Padding:    10.0, // 10km padding
		Resolution: canvas.DPI(300),
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

func (r *VectorMapRenderer) groupColor(group string) GroupColor {
	if gc, ok := r.Colors[group]; ok {
		return gc
	}
	return DefaultGroupColors()[0]
}

// worldBounds computes the lat/lng bounding box plus the projection scale.
func (r *VectorMapRenderer) worldBounds() (minLat, minLng, maxLat, maxLng, lngScale float64) {
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

	if minLat > maxLat {
		minLat, maxLat, minLng, maxLng = 0, 0, 0, 0
	}
	lngScale = math.Cos(toRadians((minLat + maxLat) / 2))
	return
}

// RenderToSVG writes the map as an SVG to the provided writer
func (r *VectorMapRenderer) RenderToSVG(w io.Writer) error {
	minLat, minLng, maxLat, maxLng, lngScale := r.worldBounds()

	width := (maxLng-minLng)*kmPerDegreeLat*lngScale + 2*r.Padding
	height := (maxLat-minLat)*kmPerDegreeLat + 2*r.Padding

	svgRenderer := svg.New(w, width, height, nil)

	r.renderToCanvas(svgRenderer, minLat, minLng, lngScale, width, height)

	if err := svgRenderer.Close(); err != nil {
		return err
	}

	return nil
}

// RenderToPNG writes the map as a PNG to the provided writer
func (r *VectorMapRenderer) RenderToPNG(w io.Writer) error {
	minLat, minLng, maxLat, maxLng, lngScale := r.worldBounds()

	width := (maxLng-minLng)*kmPerDegreeLat*lngScale + 2*r.Padding
	height := (maxLat-minLat)*kmPerDegreeLat + 2*r.Padding

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)

	r.renderToCanvas(rast, minLat, minLng, lngScale, width, height)

	// Rasterizer implements draw.Image, which embeds image.Image
	return png.Encode(w, rast)
}

// renderToCanvas renders the map to a canvas renderer (shared logic for SVG and PNG)
func (r *VectorMapRenderer) renderToCanvas(renderer canvasRenderer, minLat, minLng, lngScale, width, height float64) {
	// Draw white background
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	// Projects lat/lng to canvas kilometers. Canvas Y grows upward, same as
	// latitude, so no flip is needed.
	toCanvas := func(lat, lng float64) (float64, float64) {
		cx := (lng-minLng)*kmPerDegreeLat*lngScale + r.Padding
		cy := (lat-minLat)*kmPerDegreeLat + r.Padding
		return cx, cy
	}

	// Coverage circles first, underneath everything else
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
		circleStyle := canvas.DefaultStyle
		circleStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(gc.Circle)}
		circleStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(gc.Center)}
		circleStyle.StrokeWidth = 0.5

		cx, cy := toCanvas(c.CenterLat, c.CenterLng)
		circlePath := canvas.Circle(radius)
		circlePath = circlePath.Translate(cx, cy)
		renderer.RenderPath(circlePath, circleStyle, canvas.Identity)
	}

	// Site markers
	for _, p := range r.Points {
		gc := r.groupColor(p.Group)
		siteStyle := canvas.DefaultStyle
		siteStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(gc.Site)}
		siteStyle.Stroke = canvas.Paint{Color: canvas.Black}
		siteStyle.StrokeWidth = 0.2

		cx, cy := toCanvas(p.Latitude, p.Longitude)
		sitePath := canvas.Circle(1.2)
		sitePath = sitePath.Translate(cx, cy)
		renderer.RenderPath(sitePath, siteStyle, canvas.Identity)
	}

	// Center crosses on top
	for _, group := range sortedCenterKeys(r.Centers) {
		c := r.Centers[group]
		if c == nil {
			continue
		}
		gc := r.groupColor(group)
		crossStyle := canvas.DefaultStyle
		crossStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		crossStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(gc.Center)}
		crossStyle.StrokeWidth = 0.8

		cx, cy := toCanvas(c.CenterLat, c.CenterLng)
		arm := 3.0
		crossPath := &canvas.Path{}
		crossPath.MoveTo(cx-arm, cy-arm)
		crossPath.LineTo(cx+arm, cy+arm)
		crossPath.MoveTo(cx-arm, cy+arm)
		crossPath.LineTo(cx+arm, cy-arm)
		renderer.RenderPath(crossPath, crossStyle, canvas.Identity)
	}
}
