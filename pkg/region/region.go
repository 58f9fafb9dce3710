// Package region maps customer states to macro-regions.
//
// The mapping is a read-only reference table derived with the latitude/longitude bucket rules
// of Classify. The built-in table classifies the capital of each of the 27 Brazilian
// federative units; Build rebuilds it out-of-band from geolocation centroids.
package region

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"rfm-segments/pkg/models"

	"gopkg.in/yaml.v3"
)

// Latitude/longitude cut points of the bucket rules.
const (
	southBelowLat      = -25.0
	northeastAboveLat  = -15.0
	northAboveLat      = -5.0
	southeastEastOfLng = -50.0
)

// Classify applies the bucket rules to a centroid. Every finite latitude falls into exactly
// one bucket:
//
//	lat < -25                        South
//	-25 <= lat <= -15, lng > -50     Southeast
//	-25 <= lat <= -15, lng <= -50    Center-West
//	-15 < lat <= -5                  Northeast
//	lat > -5                         North
func Classify(lat, lng float64) models.Region {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return models.RegionUnclassified
	}
	switch {
	case lat < southBelowLat:
		return models.RegionSouth
	case lat <= northeastAboveLat:
		if lng > southeastEastOfLng {
			return models.RegionSoutheast
		}
		return models.RegionCenterWest
	case lat <= northAboveLat:
		return models.RegionNortheast
	default:
		return models.RegionNorth
	}
}

// Table is a state -> region lookup. The zero value is an empty table.
type Table struct {
	states map[string]models.Region
}

// Lookup returns the region of state, or Unclassified when the state is unknown.
func (t *Table) Lookup(state string) models.Region {
	if t == nil || t.states == nil {
		return models.RegionUnclassified
	}
	if r, ok := t.states[normalize(state)]; ok {
		return r
	}
	return models.RegionUnclassified
}

// Len returns the number of states in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.states)
}

// States returns the known states in sorted order.
func (t *Table) States() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.states))
	for s := range t.states {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Build derives a table from geolocation centroids.
func Build(centroids []models.StateCentroid) *Table {
	t := &Table{states: make(map[string]models.Region, len(centroids))}
	for _, c := range centroids {
		state := normalize(c.State)
		if state == "" {
			continue
		}
		t.states[state] = Classify(c.Lat, c.Lng)
	}
	return t
}

// New builds a table from an explicit mapping. It fails when a region label is not one of
// the five macro-regions.
func New(mapping map[string]models.Region) (*Table, error) {
	t := &Table{states: make(map[string]models.Region, len(mapping))}
	for state, r := range mapping {
		if !known(r) {
			return nil, fmt.Errorf("state %s: unknown region %q", state, r)
		}
		key := normalize(state)
		if prev, dup := t.states[key]; dup && prev != r {
			return nil, fmt.Errorf("state %s mapped to both %s and %s", key, prev, r)
		}
		t.states[key] = r
	}
	return t, nil
}

// Default returns the built-in table: Capitals classified with Classify.
func Default() *Table {
	return Build(Capitals)
}

type fileFormat struct {
	States map[string]models.Region `yaml:"states"`
}

// Load reads a YAML reference table. A missing path yields the built-in table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading region table %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing region table %s: %w", path, err)
	}
	if len(f.States) == 0 {
		return nil, fmt.Errorf("region table %s has no states", path)
	}
	return New(f.States)
}

// Save writes the table as YAML.
func (t *Table) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fileFormat{States: t.states}); err != nil {
		return fmt.Errorf("encoding region table: %w", err)
	}
	return enc.Close()
}

func normalize(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func known(r models.Region) bool {
	switch r {
	case models.RegionNorth, models.RegionNortheast, models.RegionCenterWest,
		models.RegionSoutheast, models.RegionSouth:
		return true
	}
	return false
}

// Capitals holds the coordinates of the capital of every Brazilian federative unit.
var Capitals = []models.StateCentroid{
	{State: "AC", Lat: -9.97, Lng: -67.81},
	{State: "AL", Lat: -9.67, Lng: -35.74},
	{State: "AM", Lat: -3.12, Lng: -60.02},
	{State: "AP", Lat: 0.03, Lng: -51.07},
	{State: "BA", Lat: -12.97, Lng: -38.50},
	{State: "CE", Lat: -3.73, Lng: -38.52},
	{State: "DF", Lat: -15.79, Lng: -47.88},
	{State: "ES", Lat: -20.32, Lng: -40.34},
	{State: "GO", Lat: -16.68, Lng: -49.25},
	{State: "MA", Lat: -2.53, Lng: -44.30},
	{State: "MG", Lat: -19.92, Lng: -43.94},
	{State: "MS", Lat: -20.44, Lng: -54.65},
	{State: "MT", Lat: -15.60, Lng: -56.10},
	{State: "PA", Lat: -1.46, Lng: -48.50},
	{State: "PB", Lat: -7.12, Lng: -34.86},
	{State: "PE", Lat: -8.05, Lng: -34.88},
	{State: "PI", Lat: -5.09, Lng: -42.80},
	{State: "PR", Lat: -25.43, Lng: -49.27},
	{State: "RJ", Lat: -22.91, Lng: -43.17},
	{State: "RN", Lat: -5.79, Lng: -35.21},
	{State: "RO", Lat: -8.76, Lng: -63.90},
	{State: "RR", Lat: 2.82, Lng: -60.67},
	{State: "RS", Lat: -30.03, Lng: -51.23},
	{State: "SC", Lat: -27.60, Lng: -48.55},
	{State: "SE", Lat: -10.91, Lng: -37.07},
	{State: "SP", Lat: -23.55, Lng: -46.63},
	{State: "TO", Lat: -10.18, Lng: -48.33},
}
