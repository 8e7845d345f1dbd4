// Package input tracks which drive actions are held. Key callbacks write to a
// Sampler from any goroutine; the simulation reads one snapshot per tick.
package input

import (
	"strings"
	"sync"

	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// Action is a logical drive action.
type Action int

const (
	Forward Action = iota
	Backward
	Left
	Right
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// ParseAction maps an action name to its Action.
func ParseAction(name string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "forward":
		return Forward, true
	case "backward":
		return Backward, true
	case "left":
		return Left, true
	case "right":
		return Right, true
	default:
		return 0, false
	}
}

// DefaultBindings maps key names to actions. Key names are matched
// case-insensitively.
var DefaultBindings = map[string]Action{
	"w":          Forward,
	"arrowup":    Forward,
	"up":         Forward,
	"s":          Backward,
	"arrowdown":  Backward,
	"down":       Backward,
	"a":          Left,
	"arrowleft":  Left,
	"left":       Left,
	"d":          Right,
	"arrowright": Right,
	"right":      Right,
}

// Sampler records held keys and exposes the resulting actions as a snapshot.
// Keys, polled buttons and scripted input are kept apart and OR-ed, so one
// writer never clears another's actions. It is safe for concurrent use.
type Sampler struct {
	mu       sync.Mutex
	bindings map[string]Action
	pressed  map[string]bool
	buttons  [4]bool
	scripted [4]bool
}

// NewSampler creates a sampler with the given bindings, or DefaultBindings
// when bindings is nil.
func NewSampler(bindings map[string]Action) *Sampler {
	if bindings == nil {
		bindings = DefaultBindings
	}
	normalized := make(map[string]Action, len(bindings))
	for key, action := range bindings {
		normalized[normalize(key)] = action
	}
	return &Sampler{
		bindings: normalized,
		pressed:  make(map[string]bool),
	}
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Press marks key as held. It reports whether the key is bound.
func (s *Sampler) Press(key string) bool {
	return s.setKey(key, true)
}

// Release marks key as released. It reports whether the key is bound.
func (s *Sampler) Release(key string) bool {
	return s.setKey(key, false)
}

func (s *Sampler) setKey(key string, down bool) bool {
	key = normalize(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bindings[key]; !ok {
		return false
	}
	if down {
		s.pressed[key] = true
	} else {
		delete(s.pressed, key)
	}
	return true
}

// Set holds or releases an action directly, independent of keys. Windowed
// front ends that poll button state use this.
func (s *Sampler) Set(action Action, held bool) {
	if action < Forward || action > Right {
		return
	}
	s.mu.Lock()
	s.buttons[action] = held
	s.mu.Unlock()
}

// Apply replaces the scripted actions with state. Keys and polled buttons
// are left alone.
func (s *Sampler) Apply(state vehicle.InputState) {
	s.mu.Lock()
	s.scripted = [4]bool{state.Forward, state.Backward, state.Left, state.Right}
	s.mu.Unlock()
}

// ReleaseAll clears every key and action.
func (s *Sampler) ReleaseAll() {
	s.mu.Lock()
	s.pressed = make(map[string]bool)
	s.buttons = [4]bool{}
	s.scripted = [4]bool{}
	s.mu.Unlock()
}

// Snapshot returns the held actions.
func (s *Sampler) Snapshot() vehicle.InputState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var held [4]bool
	for i := range held {
		held[i] = s.buttons[i] || s.scripted[i]
	}
	for key := range s.pressed {
		held[s.bindings[key]] = true
	}
	return vehicle.InputState{
		Forward:  held[Forward],
		Backward: held[Backward],
		Left:     held[Left],
		Right:    held[Right],
	}
}

var _ vehicle.InputSource = (*Sampler)(nil)
