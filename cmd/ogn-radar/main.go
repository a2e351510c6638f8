// OGN Scope radar client. Polls the daemon's HTTP API and renders the
// aircraft around a fixed center on a terminal radar scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/ogn-scope/pkg/apiclient"
	"github.com/unklstewy/ogn-scope/pkg/config"
	"github.com/unklstewy/ogn-scope/pkg/coordinates"
	"github.com/unklstewy/ogn-scope/pkg/tracking"
)

const (
	minRadiusKm = 5.0
	maxRadiusKm = 500.0

	// Reports older than this are dead-reckoned forward before plotting.
	deadReckonAfter = 5 * time.Second
)

type aircraftView struct {
	view apiclient.AircraftView

	// pos is the plotted position, dead-reckoned forward when the
	// report is older than deadReckonAfter
	pos        coordinates.Geographic
	distanceKm float64
	bearing    float64
	predicted  bool
}

type model struct {
	client   *apiclient.Client
	center   coordinates.Geographic
	radiusKm float64
	interval time.Duration

	aircraft []aircraftView
	status   *apiclient.Status
	selected int
	paused   bool
	err      error

	width  int
	height int
}

func defaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.json"
}

type tickMsg time.Time

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.aircraft)-1 {
				m.selected++
			}
		case "+", "=":
			if m.radiusKm < maxRadiusKm {
				m.radiusKm *= 1.5
				if m.radiusKm > maxRadiusKm {
					m.radiusKm = maxRadiusKm
				}
			}
		case "-", "_":
			if m.radiusKm > minRadiusKm {
				m.radiusKm /= 1.5
				if m.radiusKm < minRadiusKm {
					m.radiusKm = minRadiusKm
				}
			}
		case "p", " ":
			m.paused = !m.paused
		}

	case tickMsg:
		if !m.paused {
			m.refresh()
		}
		return m, m.tick()
	}

	return m, nil
}

// refresh polls the daemon and rebuilds the plotted aircraft list,
// nearest first.
func (m *model) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	views, err := m.client.Near(ctx, m.center.Latitude, m.center.Longitude, m.radiusKm)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil

	if status, err := m.client.Status(ctx); err == nil {
		m.status = status
	}

	now := time.Now().UTC()
	m.aircraft = make([]aircraftView, 0, len(views))
	for _, v := range views {
		pos := coordinates.Geographic{
			Latitude:  v.Position.Latitude,
			Longitude: v.Position.Longitude,
		}
		if v.Altitude != nil {
			pos.Altitude = *v.Altitude
		}

		predicted := false
		if age := now.Sub(v.Time()); age > deadReckonAfter {
			pred := tracking.Predict(tracking.Point{
				Position:  pos,
				Time:      v.Time(),
				SpeedKmh:  v.Speed,
				CourseDeg: v.Course,
				ClimbMps:  v.VerticalSpeed,
			}, now)
			if pred.Confidence > 0 {
				pos = pred.Position
				predicted = true
			}
		}

		m.aircraft = append(m.aircraft, aircraftView{
			view:       v,
			pos:        pos,
			distanceKm: coordinates.DistanceKm(m.center, pos),
			bearing:    coordinates.Bearing(m.center, pos),
			predicted:  predicted,
		})
	}

	sort.Slice(m.aircraft, func(i, j int) bool {
		return m.aircraft[i].distanceKm < m.aircraft[j].distanceKm
	})
	if m.selected >= len(m.aircraft) {
		m.selected = len(m.aircraft) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	title := "OGN SCOPE RADAR"
	if m.paused {
		title += " [PAUSED]"
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		s.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n")
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderRadar(), " ", m.renderInfo()))
	s.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	s.WriteString(helpStyle.Render("↑/↓: Select  +/-: Radius  P: Pause  Q: Quit"))

	return s.String()
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path to configuration file")
	baseURL := flag.String("url", "", "Daemon base URL (overrides config)")
	lat := flag.Float64("lat", 0, "Scope center latitude (overrides config)")
	lon := flag.Float64("lon", 0, "Scope center longitude (overrides config)")
	radius := flag.Float64("radius", 0, "Scope radius in km (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *baseURL != "" {
		cfg.Radar.BaseURL = *baseURL
	}
	if *lat != 0 || *lon != 0 {
		cfg.Radar.Latitude = *lat
		cfg.Radar.Longitude = *lon
	}
	if *radius > 0 {
		cfg.Radar.RadiusKm = *radius
	}

	client := apiclient.NewClient(apiclient.Config{BaseURL: cfg.Radar.BaseURL})

	m := model{
		client: client,
		center: coordinates.Geographic{
			Latitude:  cfg.Radar.Latitude,
			Longitude: cfg.Radar.Longitude,
		},
		radiusKm: cfg.Radar.RadiusKm,
		interval: time.Duration(cfg.Radar.IntervalSeconds) * time.Second,
	}
	if m.interval <= 0 {
		m.interval = 2 * time.Second
	}
	m.refresh()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
