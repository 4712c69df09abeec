package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/bioconnect/internal/tui/styles"
)

// Point represents a geographic point to plot.
type Point struct {
	Lat float64
	Lng float64
	// Highlight draws the point in the favorite color.
	Highlight bool
}

// MapView renders operators as a Braille scatter plot, with an optional
// origin marker and search-radius ring.
type MapView struct {
	width    int
	height   int
	points   []Point
	ring     []Point
	origin   *Point
	selected int // index of selected point, -1 if none
	// Viewport bounds
	minLat, maxLat float64
	minLng, maxLng float64
	// Base bounds (for zoom reference)
	basMinLat, basMaxLat float64
	basMinLng, basMaxLng float64
	zoomLevel            float64 // 1.0 = no zoom, >1 = zoomed in
	panLat, panLng       float64 // pan offset in degrees
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:     width,
		height:    height,
		selected:  -1,
		zoomLevel: 1.0,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *MapView) SetPoints(points []Point) {
	m.points = points
}

// SetRing sets the closed outline drawn under the points.
func (m *MapView) SetRing(points []Point) {
	m.ring = points
}

func (m *MapView) SetOrigin(p *Point) {
	m.origin = p
}

func (m *MapView) SetSelected(idx int) {
	m.selected = idx
}

// SetBounds sets the base viewport, padded by 5%.
func (m *MapView) SetBounds(b orb.Bound) {
	m.basMinLat = b.Min.Lat()
	m.basMaxLat = b.Max.Lat()
	m.basMinLng = b.Min.Lon()
	m.basMaxLng = b.Max.Lon()

	latPad := (m.basMaxLat - m.basMinLat) * 0.05
	lngPad := (m.basMaxLng - m.basMinLng) * 0.05
	if latPad == 0 {
		latPad = 0.01
	}
	if lngPad == 0 {
		lngPad = 0.01
	}
	m.basMinLat -= latPad
	m.basMaxLat += latPad
	m.basMinLng -= lngPad
	m.basMaxLng += lngPad
	m.applyZoom()
}

func (m *MapView) ZoomIn() {
	m.zoomLevel *= 1.5
	if m.zoomLevel > 20 {
		m.zoomLevel = 20
	}
	m.applyZoom()
}

func (m *MapView) ZoomOut() {
	m.zoomLevel /= 1.5
	if m.zoomLevel < 0.5 {
		m.zoomLevel = 0.5
	}
	m.applyZoom()
}

func (m *MapView) ZoomReset() {
	m.zoomLevel = 1.0
	m.panLat = 0
	m.panLng = 0
	m.applyZoom()
}

func (m *MapView) Pan(dLat, dLng float64) {
	latRange := m.basMaxLat - m.basMinLat
	lngRange := m.basMaxLng - m.basMinLng
	m.panLat += dLat * latRange * 0.1 / m.zoomLevel
	m.panLng += dLng * lngRange * 0.1 / m.zoomLevel
	m.applyZoom()
}

func (m *MapView) applyZoom() {
	centerLat := (m.basMinLat+m.basMaxLat)/2 + m.panLat
	centerLng := (m.basMinLng+m.basMaxLng)/2 + m.panLng
	halfLat := (m.basMaxLat - m.basMinLat) / 2 / m.zoomLevel
	halfLng := (m.basMaxLng - m.basMinLng) / 2 / m.zoomLevel
	m.minLat = centerLat - halfLat
	m.maxLat = centerLat + halfLat
	m.minLng = centerLng - halfLng
	m.maxLng = centerLng + halfLng
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

type layer int

const (
	layerRing layer = iota
	layerPoint
	layerFavorite
	layerSelected
	layerOrigin
	layerCount
)

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	latRange := m.maxLat - m.minLat
	lngRange := m.maxLng - m.minLng
	if latRange == 0 || lngRange == 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows)
	}

	// 1° of longitude shrinks with latitude; braille dots are roughly square on screen.
	avgLat := (m.minLat + m.maxLat) / 2
	cosLat := math.Cos(avgLat * math.Pi / 180)
	geoAspect := lngRange * cosLat / latRange
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = int(float64(dotH) * geoAspect)
		if effectiveW < 4 {
			effectiveW = 4
		}
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = int(float64(dotW) / geoAspect)
		if effectiveH < 4 {
			effectiveH = 4
		}
		offsetY = (dotH - effectiveH) / 2
	}

	var grids [layerCount][][]bool
	for l := range grids {
		grids[l] = make([][]bool, dotH)
		for i := range grids[l] {
			grids[l][i] = make([]bool, dotW)
		}
	}

	toDot := func(lat, lng float64) (int, int) {
		x := offsetX + int((lng-m.minLng)/lngRange*float64(effectiveW-1))
		y := offsetY + int((m.maxLat-lat)/latRange*float64(effectiveH-1))
		return x, y
	}
	plot := func(l layer, lat, lng float64) {
		x, y := toDot(lat, lng)
		if x >= 0 && x < dotW && y >= 0 && y < dotH {
			grids[l][y][x] = true
		}
	}

	for i := range m.ring {
		x0, y0 := toDot(m.ring[i].Lat, m.ring[i].Lng)
		next := (i + 1) % len(m.ring)
		x1, y1 := toDot(m.ring[next].Lat, m.ring[next].Lng)
		drawLine(grids[layerRing], x0, y0, x1, y1, dotW, dotH)
	}

	for i, p := range m.points {
		switch {
		case i == m.selected:
			plot(layerSelected, p.Lat, p.Lng)
		case p.Highlight:
			plot(layerFavorite, p.Lat, p.Lng)
		default:
			plot(layerPoint, p.Lat, p.Lng)
		}
	}
	if m.origin != nil {
		plot(layerOrigin, m.origin.Lat, m.origin.Lng)
	}

	// Higher layers win when a cell holds several.
	layerStyles := [layerCount]lipgloss.Style{
		layerRing:     lipgloss.NewStyle().Foreground(styles.Muted),
		layerPoint:    lipgloss.NewStyle().Foreground(styles.Success),
		layerFavorite: lipgloss.NewStyle().Foreground(styles.Accent),
		layerSelected: lipgloss.NewStyle().Foreground(styles.Link).Bold(true),
		layerOrigin:   lipgloss.NewStyle().Foreground(styles.Error).Bold(true),
	}

	dotPositions := [8][2]int{
		{0, 0}, {1, 0}, {2, 0}, {0, 1},
		{1, 1}, {2, 1}, {3, 0}, {3, 1},
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var vals [layerCount]rune
			for l := range vals {
				vals[l] = 0x2800
			}
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if dy >= dotH || dx >= dotW {
					continue
				}
				for l := range grids {
					if grids[l][dy][dx] {
						vals[l] |= brailleDots[dot]
					}
				}
			}

			drawn := false
			for l := layerCount - 1; l >= 0; l-- {
				if vals[l] != 0x2800 {
					sb.WriteString(layerStyles[l].Render(string(vals[l])))
					drawn = true
					break
				}
			}
			if !drawn {
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && x0 < maxW && y0 >= 0 && y0 < maxH {
			grid[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
