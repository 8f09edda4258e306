package indicator

import (
	"fmt"
	"sync"
	"time"
)

// Kind selects how the indicator output is driven.
type Kind int

const (
	KindOff Kind = iota
	KindSolid
	KindBlink
)

// Mode is the target indicator behaviour. Period is only meaningful for
// KindBlink.
type Mode struct {
	Kind   Kind
	Period time.Duration
}

var (
	// Off drives the output low.
	Off = Mode{Kind: KindOff}
	// Solid drives the output high.
	Solid = Mode{Kind: KindSolid}
)

// Blink toggles the output every period.
func Blink(period time.Duration) Mode {
	return Mode{Kind: KindBlink, Period: period}
}

func (m Mode) String() string {
	switch m.Kind {
	case KindOff:
		return "off"
	case KindSolid:
		return "solid"
	case KindBlink:
		return fmt.Sprintf("blink(%s)", m.Period)
	default:
		return fmt.Sprintf("Mode(%d)", m.Kind)
	}
}

// Output is the physical signal (an LED, a GPIO line). Set must not block.
type Output interface {
	Set(on bool)
}

// Indicator drives an Output from a Mode. All timing comes from the now
// values passed to Tick; nothing in here sleeps.
type Indicator struct {
	out Output

	mu         sync.Mutex
	mode       Mode
	level      bool
	driven     bool
	armed      bool
	lastToggle time.Time
	toggles    int
}

// New returns an indicator in the Off mode. The output is not touched until
// the first SetMode or Tick.
func New(out Output) *Indicator {
	return &Indicator{out: out, mode: Off}
}

// SetMode changes the target mode. Setting the mode already in effect is a
// no-op, so a blink keeps its phase. Solid and Off take effect immediately;
// a new blink turns the output on and starts its phase at the next Tick.
func (i *Indicator) SetMode(m Mode) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if m == i.mode && i.driven {
		return
	}
	i.mode = m

	switch m.Kind {
	case KindSolid:
		i.drive(true)
	case KindBlink:
		i.armed = false
		i.drive(true)
	default:
		i.drive(false)
	}
}

// Mode returns the current target mode.
func (i *Indicator) Mode() Mode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode
}

// Level returns the last level written to the output.
func (i *Indicator) Level() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.level
}

// Toggles returns the number of blink edges produced so far.
func (i *Indicator) Toggles() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.toggles
}

// Tick advances the indicator to now. In blink mode the output toggles when
// at least one period has elapsed since the previous toggle. In solid and off
// modes the output is held at its fixed level. Tick always returns at once.
func (i *Indicator) Tick(now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.mode.Kind {
	case KindBlink:
		if !i.armed {
			i.armed = true
			i.lastToggle = now
			i.drive(i.level)
			return
		}
		if i.mode.Period > 0 && now.Sub(i.lastToggle) >= i.mode.Period {
			i.lastToggle = now
			i.toggles++
			i.drive(!i.level)
		}
	case KindSolid:
		i.drive(true)
	default:
		i.drive(false)
	}
}

// drive writes level to the output only when it differs from what was last
// written.
func (i *Indicator) drive(level bool) {
	if i.driven && i.level == level {
		return
	}
	i.level = level
	i.driven = true
	i.out.Set(level)
}
