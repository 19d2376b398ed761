// Package scenario loads map and population descriptions and seeds a World
// from them.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/region"
	world "apocalypse.sim/internal/sim/world"
)

//go:embed scenario.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("scenario.schema.json", schemaJSON)

var (
	ErrSchema       = errors.New("scenario: schema violation")
	ErrUnknownPlace = errors.New("scenario: unknown place")
)

type Scenario struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Density is the fallback density of places that set none.
	Density        float64 `yaml:"density"`
	InfectedChance float64 `yaml:"infected_chance"`
	// OutbreakPlace names the place zombies start in; empty means the first
	// place.
	OutbreakPlace string `yaml:"outbreak_place"`
	PatientZero   bool   `yaml:"patient_zero"`

	Places []PlaceSpec  `yaml:"places"`
	Roads  []RoadSpec   `yaml:"roads"`
	Doors  [][2]int     `yaml:"doors"`
	Agents []AgentGroup `yaml:"agents"`

	GeoJSON *GeoJSONSpec `yaml:"geojson"`

	// dir resolves relative file references.
	dir string
}

type PlaceSpec struct {
	Name    string       `yaml:"name"`
	Polygon [][2]float64 `yaml:"polygon"`
	Density *float64     `yaml:"density"`
	Color   string       `yaml:"color"`
}

type RoadSpec struct {
	Name      string       `yaml:"name"`
	Polygon   [][2]float64 `yaml:"polygon"`
	Direction [2]int       `yaml:"direction"`
	Speed     int          `yaml:"speed"`
}

type AgentGroup struct {
	Kind      string   `yaml:"kind"`
	Positions [][2]int `yaml:"positions"`
}

type GeoJSONSpec struct {
	File            string  `yaml:"file"`
	NameProperty    string  `yaml:"name_property"`
	DensityProperty string  `yaml:"density_property"`
	MinArea         float64 `yaml:"min_area"`
}

// Parse validates raw YAML against the scenario schema and decodes it.
func Parse(raw []byte) (Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Scenario{}, fmt.Errorf("scenario.yaml: %w", err)
	}
	if err := validate(doc); err != nil {
		return Scenario{}, err
	}
	s := Scenario{Density: 0.1, InfectedChance: 0.05}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Scenario{}, fmt.Errorf("scenario.yaml: %w", err)
	}
	return s, nil
}

// validate runs the schema over a YAML document. The document goes through
// JSON first so the validator sees json.Number values.
func validate(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// Load reads and parses a scenario file. File references inside it are
// resolved against its directory.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	s, err := Parse(raw)
	if err != nil {
		return Scenario{}, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Apply copies the grid size and the evacuation switch into cfg.
func (s Scenario) Apply(cfg *world.Config) {
	cfg.Width = s.Width
	cfg.Height = s.Height
	cfg.Evacuation = len(s.Doors) > 0
}

// Layout builds the regions: listed places, then imported GeoJSON places,
// then roads.
func (s Scenario) Layout() (*region.Layout, error) {
	l := &region.Layout{}
	for _, p := range s.Places {
		d := s.Density
		if p.Density != nil {
			d = *p.Density
		}
		pl := region.NewPlace(p.Name, p.Polygon, d)
		pl.Color = p.Color
		l.Places = append(l.Places, pl)
	}
	if s.GeoJSON != nil {
		path := s.GeoJSON.File
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		places, err := ImportGeoJSON(raw, s.Width, s.Height, *s.GeoJSON, s.Density)
		if err != nil {
			return nil, err
		}
		l.Places = append(l.Places, places...)
	}
	for _, r := range s.Roads {
		l.Roads = append(l.Roads, region.NewRoad(r.Name, r.Polygon, grid.Pos{X: r.Direction[0], Y: r.Direction[1]}, r.Speed))
	}
	return l, nil
}

func (s Scenario) outbreak(l *region.Layout) (*region.Place, error) {
	if s.OutbreakPlace == "" {
		if len(l.Places) == 0 {
			return nil, nil
		}
		return l.Places[0], nil
	}
	p, ok := l.PlaceByName(s.OutbreakPlace)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlace, s.OutbreakPlace)
	}
	return p, nil
}
