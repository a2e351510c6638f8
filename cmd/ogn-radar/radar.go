package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal characters are roughly 2:1 (height:width), so X distances
// are scaled by this factor to make circles look round.
const aspectRatio = 0.5

// radarSize returns the scope grid dimensions for the current terminal
// size, reserving room for the info panel and the footer.
func (m model) radarSize() (int, int) {
	w := m.width - 40
	if w < 60 {
		w = 60
	}
	h := m.height - 5
	if h < 24 {
		h = 24
	}
	return w, h
}

// radarToScreen converts a plotted aircraft to grid X/Y relative to the
// scope center. Returns -1,-1 outside the scope radius or the grid.
func (m model) radarToScreen(ac aircraftView) (int, int) {
	if ac.distanceKm > m.radiusKm {
		return -1, -1
	}

	w, h := m.radarSize()
	centerX := (w - 2) / 2
	centerY := h / 2
	scale := m.screenScale(w, h)

	// Bearing 0° is north, which is up, which is negative Y.
	bearingRad := ac.bearing * math.Pi / 180.0
	screenDist := ac.distanceKm * scale
	dx := int(screenDist * math.Sin(bearingRad) / aspectRatio)
	dy := -int(screenDist * math.Cos(bearingRad))

	x := centerX + dx
	y := centerY + dy
	if x < 0 || x >= w-2 || y < 0 || y >= h {
		return -1, -1
	}
	return x, y
}

// screenScale returns grid cells per kilometer, fitting the scope
// radius into the smaller grid dimension.
func (m model) screenScale(w, h int) float64 {
	maxY := float64(h/2 - 2)
	maxX := float64(w/2-2) * aspectRatio
	max := maxY
	if maxX < maxY {
		max = maxX
	}
	return max / m.radiusKm
}

// renderRadar draws the scope: range rings, cardinal points, aircraft
// symbols and velocity vectors.
func (m model) renderRadar() string {
	w, h := m.radarSize()
	centerX := (w - 2) / 2
	centerY := h / 2
	scale := m.screenScale(w, h)

	grid := make([][]rune, h)
	for i := range grid {
		grid[i] = make([]rune, w-2)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	// Range rings at a readable interval for the current radius.
	ringInterval := ringIntervalKm(m.radiusKm)
	for dist := ringInterval; dist < m.radiusKm; dist += ringInterval {
		drawCircle(grid, centerX, centerY, int(dist*scale), '·')

		label := fmt.Sprintf("%.0f", dist)
		labelY := centerY - int(dist*scale)
		labelX := centerX - len(label)/2
		if labelY >= 0 && labelY < h && labelX >= 0 {
			for j, ch := range label {
				if labelX+j < w-2 {
					grid[labelY][labelX+j] = ch
				}
			}
		}
	}

	// Cardinal directions at the scope edge.
	maxR := m.radiusKm * scale
	if centerY-int(maxR) >= 0 {
		grid[centerY-int(maxR)][centerX] = 'N'
	}
	if centerY+int(maxR) < h {
		grid[centerY+int(maxR)][centerX] = 'S'
	}
	if e := centerX + int(maxR/aspectRatio); e < w-2 {
		grid[centerY][e] = 'E'
	}
	if ww := centerX - int(maxR/aspectRatio); ww >= 0 {
		grid[centerY][ww] = 'W'
	}

	grid[centerY][centerX] = '+'

	for i, ac := range m.aircraft {
		x, y := m.radarToScreen(ac)
		if x < 0 || y < 0 {
			continue
		}

		symbol := typeGlyph(ac.view.AircraftType)
		if ac.predicted {
			symbol = '◌'
		}
		if i == m.selected {
			symbol = '●'
		}
		grid[y][x] = symbol

		if ac.view.Course != nil && ac.view.Speed != nil && *ac.view.Speed > 20 {
			drawVector(grid, x, y, *ac.view.Course, *ac.view.Speed)
		}
	}

	// Label the selected aircraft next to its symbol.
	if m.selected < len(m.aircraft) {
		if x, y := m.radarToScreen(m.aircraft[m.selected]); x >= 0 {
			label := m.aircraft[m.selected].view.Address
			for j, ch := range label {
				if x+2+j < w-2 && (grid[y][x+2+j] == ' ' || grid[y][x+2+j] == '·') {
					grid[y][x+2+j] = ch
				}
			}
		}
	}

	var radar strings.Builder
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	radar.WriteString(borderStyle.Render("┌" + strings.Repeat("─", w-2) + "┐"))
	radar.WriteString("\n")
	for y := 0; y < h; y++ {
		radar.WriteString(borderStyle.Render("│"))
		for x := 0; x < w-2; x++ {
			char := grid[y][x]
			switch char {
			case '+':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true).Render(string(char)))
			case '●':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true).Render(string(char)))
			case '○', '^', '✈', 'x', 'o', 'O', 'u', '#':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Render(string(char)))
			case '◌':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("68")).Render(string(char)))
			case 'N', 'E', 'S', 'W':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true).Render(string(char)))
			case '·':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render(string(char)))
			case '→', '-':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render(string(char)))
			default:
				radar.WriteRune(char)
			}
		}
		radar.WriteString(borderStyle.Render("│"))
		radar.WriteString("\n")
	}
	radar.WriteString(borderStyle.Render("└" + strings.Repeat("─", w-2) + "┘"))

	return radar.String()
}

// typeGlyph maps an aircraft category to its scope symbol.
func typeGlyph(aircraftType string) rune {
	switch aircraftType {
	case "glider", "hang glider", "paraglider":
		return '^'
	case "tow plane", "drop plane", "piston aircraft", "jet":
		return '✈'
	case "helicopter":
		return 'x'
	case "parachute":
		return 'o'
	case "balloon", "airship":
		return 'O'
	case "uav":
		return 'u'
	case "static obstacle":
		return '#'
	default:
		return '○'
	}
}

// ringIntervalKm picks a ring spacing that yields 2 to 5 rings.
func ringIntervalKm(radiusKm float64) float64 {
	for _, interval := range []float64{1, 2, 5, 10, 25, 50, 100, 250} {
		if radiusKm/interval <= 5 {
			return interval
		}
	}
	return 500
}

// drawCircle draws a ring using Bresenham's circle algorithm with
// aspect correction on the X coordinates.
func drawCircle(grid [][]rune, cx, cy, radius int, char rune) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		xScaled := int(float64(x) / aspectRatio)
		yScaled := int(float64(y) / aspectRatio)

		setPixel(grid, cx+xScaled, cy+y, char)
		setPixel(grid, cx+yScaled, cy+x, char)
		setPixel(grid, cx-yScaled, cy+x, char)
		setPixel(grid, cx-xScaled, cy+y, char)
		setPixel(grid, cx-xScaled, cy-y, char)
		setPixel(grid, cx-yScaled, cy-x, char)
		setPixel(grid, cx+yScaled, cy-x, char)
		setPixel(grid, cx+xScaled, cy-y, char)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// setPixel writes a grid cell, overwriting only blank space or rings.
func setPixel(grid [][]rune, x, y int, char rune) {
	if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0]) {
		if grid[y][x] == ' ' || grid[y][x] == '·' {
			grid[y][x] = char
		}
	}
}

// drawVector draws a short velocity vector from an aircraft symbol,
// length proportional to ground speed.
func drawVector(grid [][]rune, x, y int, courseDeg, speedKmh float64) {
	length := int(speedKmh/100.0) + 1
	if length > 4 {
		length = 4
	}

	courseRad := courseDeg * math.Pi / 180.0
	for i := 1; i <= length; i++ {
		dx := int(float64(i) * math.Sin(courseRad) / aspectRatio)
		dy := -int(float64(i) * math.Cos(courseRad))

		nx, ny := x+dx, y+dy
		if ny >= 0 && ny < len(grid) && nx >= 0 && nx < len(grid[0]) {
			if grid[ny][nx] == ' ' || grid[ny][nx] == '·' {
				if i == length {
					grid[ny][nx] = '→'
				} else {
					grid[ny][nx] = '-'
				}
			}
		}
	}
}

// renderInfo renders the side panel: scope settings, feed status and
// the nearest aircraft.
func (m model) renderInfo() string {
	var info strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	selStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)

	info.WriteString(headerStyle.Render("SCOPE"))
	info.WriteString("\n")
	info.WriteString(fmt.Sprintf("Center: %.4f°, %.4f°\n", m.center.Latitude, m.center.Longitude))
	info.WriteString(fmt.Sprintf("Radius: %.0f km\n", m.radiusKm))
	info.WriteString(fmt.Sprintf("Aircraft: %d in range\n", len(m.aircraft)))
	info.WriteString("\n")

	if m.status != nil {
		info.WriteString(headerStyle.Render("FEED"))
		info.WriteString("\n")
		info.WriteString(fmt.Sprintf("State: %s\n", m.status.TransportState))
		info.WriteString(fmt.Sprintf("Tracked: %d\n", m.status.TrackedCount))
		info.WriteString(fmt.Sprintf("Stored: %d\n", m.status.Ingest.Stored))
		info.WriteString("\n")
	}

	info.WriteString(headerStyle.Render("NEAREST"))
	info.WriteString("\n")
	max := len(m.aircraft)
	if max > 12 {
		max = 12
	}
	for i := 0; i < max; i++ {
		ac := m.aircraft[i]
		line := fmt.Sprintf("%-10s %5.1f km %3.0f°", ac.view.Address, ac.distanceKm, ac.bearing)
		if ac.view.Altitude != nil {
			line += fmt.Sprintf(" %5.0fm", *ac.view.Altitude)
		}
		if i == m.selected {
			info.WriteString(selStyle.Render("▸ " + line))
		} else {
			info.WriteString(dimStyle.Render("  " + line))
		}
		info.WriteString("\n")
	}

	if m.selected < len(m.aircraft) {
		ac := m.aircraft[m.selected]
		info.WriteString("\n")
		info.WriteString(headerStyle.Render("SELECTED"))
		info.WriteString("\n")
		info.WriteString(fmt.Sprintf("%s (%s)\n", ac.view.Address, ac.view.AircraftType))
		if ac.view.Speed != nil {
			info.WriteString(fmt.Sprintf("Speed: %.0f km/h\n", *ac.view.Speed))
		}
		if ac.view.VerticalSpeed != nil {
			info.WriteString(fmt.Sprintf("Climb: %+.1f m/s\n", *ac.view.VerticalSpeed))
		}
		if ac.view.Course != nil {
			info.WriteString(fmt.Sprintf("Course: %.0f°\n", *ac.view.Course))
		}
		info.WriteString(fmt.Sprintf("Age: %.0fs", ac.view.AgeSeconds))
		if ac.predicted {
			info.WriteString(" (predicted)")
		}
		info.WriteString("\n")
		info.WriteString(fmt.Sprintf("Via: %s\n", ac.view.Receiver))
	}

	return info.String()
}
