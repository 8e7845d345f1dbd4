// Package track holds the circuit catalog and turns a circuit's waypoint
// loop into road surface marks and barrier bodies.
package track

import (
	"errors"
	"fmt"
	"math"
)

// DefaultWidth is the road width of every built-in circuit.
const DefaultWidth = 6.0

// DefaultID is the circuit used when none, or an unknown one, is requested.
const DefaultID = "monaco"

// ErrInvalidTrack is wrapped by Track.Validate failures.
var ErrInvalidTrack = errors.New("invalid track")

// Waypoint is a point on the ground plane.
type Waypoint struct {
	X, Z float64
}

// Info is the descriptive metadata shown by the track selector.
type Info struct {
	Country     string
	LengthKM    float64
	Corners     int
	Difficulty  string
	Description string
}

// Track is a named closed loop of waypoints.
type Track struct {
	ID        string
	Name      string
	Width     float64
	Waypoints []Waypoint
	Info      Info
}

// Validate checks width, waypoint count and coordinates.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTrack)
	}
	if math.IsNaN(t.Width) || math.IsInf(t.Width, 0) || t.Width <= 0 {
		return fmt.Errorf("%w: %s: width %v", ErrInvalidTrack, t.ID, t.Width)
	}
	if len(t.Waypoints) < 2 {
		return fmt.Errorf("%w: %s: %d waypoints", ErrInvalidTrack, t.ID, len(t.Waypoints))
	}
	for i, wp := range t.Waypoints {
		if !finite(wp.X) || !finite(wp.Z) {
			return fmt.Errorf("%w: %s: waypoint %d is not finite", ErrInvalidTrack, t.ID, i)
		}
	}
	return nil
}

// IsClosed reports whether the loop ends where it starts.
func (t Track) IsClosed() bool {
	n := len(t.Waypoints)
	return n >= 2 && t.Waypoints[0] == t.Waypoints[n-1]
}

func (t Track) clone() Track {
	t.Waypoints = append([]Waypoint(nil), t.Waypoints...)
	return t
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Catalog is an immutable registry of circuits in display order.
type Catalog struct {
	order     []string
	tracks    map[string]Track
	defaultID string
}

// NewCatalog builds a catalog. defaultID must name one of tracks.
func NewCatalog(defaultID string, tracks ...Track) (*Catalog, error) {
	c := &Catalog{
		tracks:    make(map[string]Track, len(tracks)),
		defaultID: defaultID,
	}
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.tracks[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTrack, t.ID)
		}
		c.order = append(c.order, t.ID)
		c.tracks[t.ID] = t.clone()
	}
	if _, ok := c.tracks[defaultID]; !ok {
		return nil, fmt.Errorf("%w: default %q not in catalog", ErrInvalidTrack, defaultID)
	}
	return c, nil
}

// IDs returns the circuit identifiers in display order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// DefaultID returns the fallback circuit identifier.
func (c *Catalog) DefaultID() string {
	return c.defaultID
}

// Lookup returns the circuit with the given id.
func (c *Catalog) Lookup(id string) (Track, bool) {
	t, ok := c.tracks[id]
	if !ok {
		return Track{}, false
	}
	return t.clone(), true
}

// Resolve returns the circuit with the given id, or the default circuit with
// ok set to false when id is unknown.
func (c *Catalog) Resolve(id string) (t Track, ok bool) {
	if t, ok := c.Lookup(id); ok {
		return t, true
	}
	t, _ = c.Lookup(c.defaultID)
	return t, false
}

// Next returns the id following id in display order, wrapping around.
// Unknown ids yield the first circuit.
func (c *Catalog) Next(id string) string {
	for i, candidate := range c.order {
		if candidate == id {
			return c.order[(i+1)%len(c.order)]
		}
	}
	return c.order[0]
}

func points(coords ...[2]float64) []Waypoint {
	wps := make([]Waypoint, len(coords))
	for i, p := range coords {
		wps[i] = Waypoint{X: p[0], Z: p[1]}
	}
	return wps
}

var builtIn = []Track{
	{
		ID:    "monaco",
		Name:  "Monaco Grand Prix Circuit",
		Width: DefaultWidth,
		Waypoints: points(
			[2]float64{0, 0}, [2]float64{10, 5}, [2]float64{20, 15}, [2]float64{25, 30},
			[2]float64{20, 45}, [2]float64{10, 50}, [2]float64{0, 45}, [2]float64{-10, 35},
			[2]float64{-15, 20}, [2]float64{-10, 5}, [2]float64{0, 0},
		),
		Info: Info{
			Country:     "Monaco",
			LengthKM:    3.337,
			Corners:     19,
			Difficulty:  "Expert",
			Description: "Tight street circuit through Monte Carlo with slow corners and elevation changes.",
		},
	},
	{
		ID:    "silverstone",
		Name:  "Silverstone Circuit",
		Width: DefaultWidth,
		Waypoints: points(
			[2]float64{0, 0}, [2]float64{15, 10}, [2]float64{30, 20}, [2]float64{40, 35},
			[2]float64{35, 50}, [2]float64{20, 55}, [2]float64{5, 50}, [2]float64{-10, 40},
			[2]float64{-15, 25}, [2]float64{-10, 10}, [2]float64{0, 0},
		),
		Info: Info{
			Country:     "United Kingdom",
			LengthKM:    5.891,
			Corners:     18,
			Difficulty:  "Intermediate",
			Description: "Former airfield circuit known for fast, flowing corners.",
		},
	},
	{
		ID:    "nurburgring",
		Name:  "Nürburgring Nordschleife",
		Width: DefaultWidth,
		Waypoints: points(
			[2]float64{0, 0}, [2]float64{20, 15}, [2]float64{35, 25}, [2]float64{45, 40},
			[2]float64{40, 60}, [2]float64{25, 70}, [2]float64{5, 75}, [2]float64{-15, 65},
			[2]float64{-25, 45}, [2]float64{-30, 25}, [2]float64{-20, 5}, [2]float64{0, 0},
		),
		Info: Info{
			Country:     "Germany",
			LengthKM:    20.832,
			Corners:     154,
			Difficulty:  "Extreme",
			Description: "The Green Hell: the longest and most demanding circuit in the calendar.",
		},
	},
}

var builtInCatalog = mustCatalog(DefaultID, builtIn...)

func mustCatalog(defaultID string, tracks ...Track) *Catalog {
	c, err := NewCatalog(defaultID, tracks...)
	if err != nil {
		panic(err)
	}
	return c
}

// BuiltIn returns the fixed catalog of circuits shipped with the simulator.
func BuiltIn() *Catalog {
	return builtInCatalog
}
