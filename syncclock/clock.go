package syncclock

import (
	"sync"
)

// PositionSource reports how far the audio has actually progressed, in
// seconds, and whether it is still delivering. The encoder's progress feed
// implements this; wall-clock time never does.
type PositionSource interface {
	Position() (seconds float64, active bool)
}

// State is the clock's lifecycle phase.
type State int

const (
	// Idle: no audio attached yet.
	Idle State = iota
	// Armed: audio loaded, playback not started.
	Armed
	// Running: playback started, the clock is ticking.
	Running
	// Stopped: playback ended or was halted.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Clock is the single source of truth for "now" inside the render loop.
// Elapsed time is derived from the audio's actual playback position, so
// decode latency or buffering can never drift captions away from speech.
type Clock struct {
	mu       sync.RWMutex
	state    State
	source   PositionSource
	duration float64 // planned duration in seconds
	last     float64 // most recent position observed
	early    bool    // audio ended before the planned duration
}

// New returns an idle clock.
func New() *Clock {
	return &Clock{}
}

// Arm attaches the audio source and planned duration. Valid only when Idle.
func (c *Clock) Arm(source PositionSource, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return
	}
	c.source = source
	c.duration = duration
	c.state = Armed
}

// Start moves the clock to Running. Valid only when Armed.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Armed {
		c.state = Running
	}
}

// Now reads the audio position. While Running it also advances the state:
// the clock stops itself when the source goes inactive or the planned
// duration is reached. After stopping, Now keeps returning the final
// position.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running {
		return c.last
	}

	pos, active := c.source.Position()
	if pos > c.last {
		c.last = pos
	}

	switch {
	case c.last >= c.duration:
		c.last = c.duration
		c.state = Stopped
	case !active:
		// audio ended before the planned duration; stop at its actual end
		c.state = Stopped
		c.early = c.last < c.duration
	}
	return c.last
}

// Stop halts the clock explicitly.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running || c.state == Armed {
		if c.state == Running && c.last < c.duration {
			c.early = true
		}
		c.state = Stopped
	}
}

// State returns the current lifecycle phase.
func (c *Clock) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// EndedEarly reports whether playback stopped before the planned duration.
func (c *Clock) EndedEarly() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.early
}

// Elapsed returns the last observed position without advancing state.
func (c *Clock) Elapsed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}
