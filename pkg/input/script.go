package input

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// ErrInvalidScript is wrapped by ParseScript failures.
var ErrInvalidScript = errors.New("invalid input script")

// Step holds a set of actions for a duration.
type Step struct {
	State    vehicle.InputState
	Duration time.Duration
}

// Script is a timed sequence of held actions used for headless runs.
type Script []Step

// ParseScript parses a comma separated list of "actions:duration" steps,
// where actions is "idle" or a "+" joined list of action names, for example
// "forward:2s,forward+left:1.5s,idle:500ms".
func ParseScript(text string) (Script, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var script Script
	for i, raw := range strings.Split(text, ",") {
		actions, dur, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if !ok {
			return nil, fmt.Errorf("%w: step %d %q: missing duration", ErrInvalidScript, i, raw)
		}
		d, err := time.ParseDuration(strings.TrimSpace(dur))
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidScript, i, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%w: step %d: duration must be positive", ErrInvalidScript, i)
		}

		var state vehicle.InputState
		for _, name := range strings.Split(actions, "+") {
			name = strings.TrimSpace(name)
			if strings.EqualFold(name, "idle") {
				continue
			}
			action, ok := ParseAction(name)
			if !ok {
				return nil, fmt.Errorf("%w: step %d: unknown action %q", ErrInvalidScript, i, name)
			}
			switch action {
			case Forward:
				state.Forward = true
			case Backward:
				state.Backward = true
			case Left:
				state.Left = true
			case Right:
				state.Right = true
			}
		}
		script = append(script, Step{State: state, Duration: d})
	}
	return script, nil
}

// Total returns the script's length.
func (s Script) Total() time.Duration {
	var total time.Duration
	for _, step := range s {
		total += step.Duration
	}
	return total
}

// At returns the actions held at elapsed time into the script. Past the end
// nothing is held.
func (s Script) At(elapsed time.Duration) vehicle.InputState {
	if elapsed < 0 {
		return vehicle.InputState{}
	}
	for _, step := range s {
		if elapsed < step.Duration {
			return step.State
		}
		elapsed -= step.Duration
	}
	return vehicle.InputState{}
}

// Play applies each step to sampler in real time. It releases the scripted
// actions and returns when the script ends or ctx is done.
func (s Script) Play(ctx context.Context, sampler *Sampler) error {
	defer sampler.Apply(vehicle.InputState{})

	for _, step := range s {
		sampler.Apply(step.State)
		timer := time.NewTimer(step.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
