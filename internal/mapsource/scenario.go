package mapsource

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"navd/internal/costmap"
	"navd/internal/geo"
)

// Scenario describes an environment: an occupancy grid, the frames known to
// the transform tree, and the robot's starting pose. Loaded from YAML.
type Scenario struct {
	Frame      string  `yaml:"frame"`
	Resolution float64 `yaml:"resolution"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Origin     struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
	} `yaml:"origin"`
	Thresholds struct {
		Lower uint8 `yaml:"lower"`
		Upper uint8 `yaml:"upper"`
	} `yaml:"thresholds"`
	Obstacles []Rect          `yaml:"obstacles"`
	Frames    map[string]Pose `yaml:"frames"`
	Start     Pose            `yaml:"start"`
}

type Rect struct {
	X0 float64 `yaml:"x0"`
	Y0 float64 `yaml:"y0"`
	X1 float64 `yaml:"x1"`
	Y1 float64 `yaml:"y1"`
}

type Pose struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"`
}

func (p Pose) Geo() geo.Pose {
	return geo.Pose{X: p.X, Y: p.Y, Heading: p.Heading}
}

const occupiedValue uint8 = 254

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (s *Scenario) validate() error {
	if s.Frame == "" {
		return fmt.Errorf("missing frame")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("grid dimensions %dx%d", s.Width, s.Height)
	}
	if s.Resolution <= 0 {
		return fmt.Errorf("resolution %v", s.Resolution)
	}
	return nil
}

// Grid rasterizes the scenario into a fresh occupancy grid. Each call
// returns an independent buffer.
func (s *Scenario) Grid() *costmap.Grid {
	g := costmap.New(s.Frame, s.Width, s.Height, s.Resolution, s.Origin.X, s.Origin.Y)
	if s.Thresholds.Upper > 0 {
		g.SetThresholds(s.Thresholds.Lower, s.Thresholds.Upper)
	}
	for _, r := range s.Obstacles {
		g.FillRect(r.X0, r.Y0, r.X1, r.Y1, occupiedValue)
	}
	return g
}
