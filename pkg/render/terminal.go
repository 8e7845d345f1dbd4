package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/opd-ai/go-drivesim/pkg/engine"
	"github.com/opd-ai/go-drivesim/pkg/physics"
	"github.com/opd-ai/go-drivesim/pkg/track"
	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// Terminal glyphs.
const (
	GlyphBarrier    = '#'
	GlyphCenterLine = '.'
	GlyphStartLine  = '='
	GlyphCamera     = 'c'
)

// TerminalRenderer draws a top-down ASCII view of the circuit. Forward (+z)
// is up and +x is to the left, matching the chase camera's view.
type TerminalRenderer struct {
	out    io.Writer
	width  int
	height int
	buffer [][]rune
	scale  float64
	center track.Waypoint
	follow bool
	ansi   bool
	hud    string
}

// NewTerminalRenderer creates a renderer writing to out. scale is world
// metres per character cell.
func NewTerminalRenderer(out io.Writer, width, height int, scale float64) *TerminalRenderer {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}
	if scale <= 0 {
		scale = 1
	}

	r := &TerminalRenderer{
		out:    out,
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
		ansi:   true,
	}
	r.Clear()
	return r
}

// SetCenter pins the view to a world position and stops following.
func (r *TerminalRenderer) SetCenter(x, z float64) {
	r.center = track.Waypoint{X: x, Z: z}
	r.follow = false
}

// SetFollow makes the view track the vehicle instead of the circuit.
func (r *TerminalRenderer) SetFollow(follow bool) {
	r.follow = follow
}

// SetANSI toggles the clear-screen escape written before each frame.
func (r *TerminalRenderer) SetANSI(enabled bool) {
	r.ansi = enabled
}

// worldToScreen converts ground-plane coordinates to a character cell.
func (r *TerminalRenderer) worldToScreen(x, z float64) (int, int) {
	screenX := math.Floor(-(x-r.center.X)/r.scale + float64(r.width)/2)
	screenY := math.Floor(-(z-r.center.Z)/r.scale + float64(r.height)/2)
	return int(screenX), int(screenY)
}

func (r *TerminalRenderer) plot(x, z float64, glyph rune) {
	sx, sy := r.worldToScreen(x, z)
	if sx >= 0 && sx < r.width && sy >= 0 && sy < r.height {
		r.buffer[sy][sx] = glyph
	}
}

// line plots glyph along a length centred on (x, z) in direction heading.
func (r *TerminalRenderer) line(x, z, heading, length float64, glyph rune) {
	dir := physics.Forward(heading)
	n := int(math.Ceil(length/(r.scale/2))) + 1
	for i := 0; i < n; i++ {
		t := -length/2 + length*float64(i)/float64(max(n-1, 1))
		r.plot(x+dir.X()*t, z+dir.Z()*t, glyph)
	}
}

// Clear implements Renderer.
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
	r.hud = ""
}

// RenderTrack implements Renderer.
func (r *TerminalRenderer) RenderTrack(geometry *track.Geometry) {
	if geometry == nil {
		return
	}
	if !r.follow {
		lo, hi := geometry.Bounds()
		r.center = track.Waypoint{X: (lo.X + hi.X) / 2, Z: (lo.Z + hi.Z) / 2}
	}

	for _, m := range geometry.CenterLines {
		r.line(m.Position.X(), m.Position.Z(), m.Heading, m.Length, GlyphCenterLine)
	}
	for _, b := range geometry.Barriers {
		r.line(b.Position.X(), b.Position.Z(), b.Heading, b.Size.Z(), GlyphBarrier)
	}
	if s := geometry.StartLine; s != nil {
		// The start line runs across the track.
		r.line(s.Position.X(), s.Position.Z(), s.Heading+math.Pi/2, s.Width, GlyphStartLine)
	}
}

// RenderCamera implements Renderer.
func (r *TerminalRenderer) RenderCamera(camera vehicle.Camera) {
	r.plot(camera.Position.X(), camera.Position.Z(), GlyphCamera)
}

// RenderVehicle implements Renderer.
func (r *TerminalRenderer) RenderVehicle(state physics.VehicleState) {
	if !state.IsFinite() {
		return
	}
	if r.follow {
		r.center = track.Waypoint{X: state.Position.X(), Z: state.Position.Z()}
	}
	r.plot(state.Position.X(), state.Position.Z(), vehicleGlyph(state.Yaw))
}

// vehicleGlyph returns an arrow for the on-screen direction of yaw.
func vehicleGlyph(yaw float64) rune {
	f := physics.Forward(yaw)
	// Screen axes: x mirrored, z pointing up.
	dx, dy := -f.X(), -f.Z()
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return '>'
		}
		return '<'
	}
	if dy > 0 {
		return 'v'
	}
	return '^'
}

// RenderHUD implements Renderer.
func (r *TerminalRenderer) RenderHUD(t engine.Telemetry) {
	r.hud = FormatHUD(t)
}

// FormatHUD renders telemetry as a single status line.
func FormatHUD(t engine.Telemetry) string {
	name := t.TrackName
	if name == "" {
		name = t.TrackID
	}
	return fmt.Sprintf("%s | %5.1f km/h | heading %4.0f | %s", name, t.SpeedKMH, t.HeadingDeg, t.Direction)
}

// Present implements Renderer.
func (r *TerminalRenderer) Present() error {
	var b strings.Builder
	if r.ansi {
		b.WriteString("\033[H\033[2J")
	}

	border := "+" + strings.Repeat("-", r.width) + "+\n"
	b.WriteString(border)
	for y := range r.buffer {
		b.WriteByte('|')
		b.WriteString(string(r.buffer[y]))
		b.WriteString("|\n")
	}
	b.WriteString(border)
	if r.hud != "" {
		b.WriteString(r.hud)
		b.WriteByte('\n')
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}
