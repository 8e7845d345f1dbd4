package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-drivesim/pkg/physics"
)

// Elevations keep the road layers above the terrain and apart from each other.
const (
	SurfaceElevation    = 0.02
	CenterLineElevation = 0.03
	StartLineElevation  = 0.04
	BarrierElevation    = 0.5
)

// Mark and barrier dimensions.
const (
	CenterLineWidth  = 0.2
	StartLineDepth   = 2.0
	BarrierThickness = 0.3
	BarrierHeight    = 0.8
)

// MinSegmentLength is the shortest waypoint gap that yields a segment.
const MinSegmentLength = 1e-9

// Segment is the strip between two consecutive waypoints.
type Segment struct {
	Index   int
	From    Waypoint
	To      Waypoint
	Center  mgl64.Vec3
	Length  float64
	Heading float64
}

// MarkKind names a flat road layer.
type MarkKind int

const (
	MarkSurface MarkKind = iota
	MarkCenterLine
	// MarkStartLine sits on the first waypoint and is turned to the first
	// segment's heading, so it crosses the road on every track. It is a plain
	// quad; renderers choose their own pattern for it.
	MarkStartLine
)

func (k MarkKind) String() string {
	switch k {
	case MarkSurface:
		return "surface"
	case MarkCenterLine:
		return "center_line"
	case MarkStartLine:
		return "start_line"
	default:
		return "unknown"
	}
}

// Mark is a flat rectangle lying on the ground, Width across and Length
// along Heading.
type Mark struct {
	Kind     MarkKind
	Segment  int
	Position mgl64.Vec3
	Heading  float64
	Width    float64
	Length   float64
}

// Side is the side of the road a barrier bounds.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Barrier is a static wall running alongside one segment.
type Barrier struct {
	Segment  int
	Side     Side
	Position mgl64.Vec3
	Heading  float64
	// Size is thickness, height and length.
	Size     mgl64.Vec3
	Material physics.Material
}

// StaticBody converts the barrier to a physics body description.
func (b Barrier) StaticBody() physics.StaticBody {
	return physics.StaticBody{
		Kind:     physics.ShapeBox,
		Position: b.Position,
		Yaw:      b.Heading,
		Size:     b.Size,
		Material: b.Material,
	}
}

// Geometry is everything derived from one circuit.
type Geometry struct {
	TrackID     string
	Name        string
	Width       float64
	Segments    []Segment
	Surfaces    []Mark
	CenterLines []Mark
	Barriers    []Barrier
	StartLine   *Mark
	// Skipped lists the indices of waypoint pairs too close to form a segment.
	Skipped []int
}

// Segments splits the waypoint loop into segments. Pairs shorter than
// MinSegmentLength, or with non-finite coordinates, are reported in skipped.
func Segments(waypoints []Waypoint) (segments []Segment, skipped []int) {
	for i := 0; i+1 < len(waypoints); i++ {
		from, to := waypoints[i], waypoints[i+1]
		dx, dz := to.X-from.X, to.Z-from.Z
		length := math.Hypot(dx, dz)
		if !finite(length) || length < MinSegmentLength {
			skipped = append(skipped, i)
			continue
		}
		segments = append(segments, Segment{
			Index:   i,
			From:    from,
			To:      to,
			Center:  mgl64.Vec3{(from.X + to.X) / 2, 0, (from.Z + to.Z) / 2},
			Length:  length,
			Heading: math.Atan2(dx, dz),
		})
	}
	return segments, skipped
}

// Generate derives road marks and barriers for t. It never produces a
// non-finite transform.
func Generate(t Track) *Geometry {
	segments, skipped := Segments(t.Waypoints)
	g := &Geometry{
		TrackID:     t.ID,
		Name:        t.Name,
		Width:       t.Width,
		Segments:    segments,
		Surfaces:    make([]Mark, 0, len(segments)),
		CenterLines: make([]Mark, 0, len(segments)),
		Barriers:    make([]Barrier, 0, 2*len(segments)),
		Skipped:     skipped,
	}

	half := t.Width / 2
	for _, s := range segments {
		g.Surfaces = append(g.Surfaces, Mark{
			Kind:     MarkSurface,
			Segment:  s.Index,
			Position: s.Center.Add(mgl64.Vec3{0, SurfaceElevation, 0}),
			Heading:  s.Heading,
			Width:    t.Width,
			Length:   s.Length,
		})
		g.CenterLines = append(g.CenterLines, Mark{
			Kind:     MarkCenterLine,
			Segment:  s.Index,
			Position: s.Center.Add(mgl64.Vec3{0, CenterLineElevation, 0}),
			Heading:  s.Heading,
			Width:    CenterLineWidth,
			Length:   s.Length,
		})

		offset := physics.Right(s.Heading).Mul(half)
		lift := mgl64.Vec3{0, BarrierElevation, 0}
		size := mgl64.Vec3{BarrierThickness, BarrierHeight, s.Length}
		g.Barriers = append(g.Barriers,
			Barrier{
				Segment:  s.Index,
				Side:     SideLeft,
				Position: s.Center.Sub(offset).Add(lift),
				Heading:  s.Heading,
				Size:     size,
				Material: physics.BarrierMaterial,
			},
			Barrier{
				Segment:  s.Index,
				Side:     SideRight,
				Position: s.Center.Add(offset).Add(lift),
				Heading:  s.Heading,
				Size:     size,
				Material: physics.BarrierMaterial,
			},
		)
	}

	if len(segments) > 0 {
		first := segments[0]
		start := t.Waypoints[0]
		g.StartLine = &Mark{
			Kind:     MarkStartLine,
			Segment:  first.Index,
			Position: mgl64.Vec3{start.X, StartLineElevation, start.Z},
			Heading:  first.Heading,
			Width:    t.Width,
			Length:   StartLineDepth,
		}
	}

	return g
}

// Start returns the first waypoint and the heading of the first segment,
// the pose a vehicle is placed at on this circuit.
func (g *Geometry) Start() (Waypoint, float64) {
	if g.StartLine == nil {
		return Waypoint{}, 0
	}
	p := g.StartLine.Position
	return Waypoint{X: p.X(), Z: p.Z()}, g.StartLine.Heading
}

// Bounds returns the ground-plane extent covered by the barriers.
func (g *Geometry) Bounds() (min, max Waypoint) {
	if len(g.Barriers) == 0 {
		return Waypoint{}, Waypoint{}
	}
	min = Waypoint{X: math.Inf(1), Z: math.Inf(1)}
	max = Waypoint{X: math.Inf(-1), Z: math.Inf(-1)}
	for _, b := range g.Barriers {
		min.X = math.Min(min.X, b.Position.X())
		min.Z = math.Min(min.Z, b.Position.Z())
		max.X = math.Max(max.X, b.Position.X())
		max.Z = math.Max(max.Z, b.Position.Z())
	}
	return min, max
}
