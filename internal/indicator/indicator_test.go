package indicator

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const period = 500 * time.Millisecond

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBlinkTogglesOnEveryPeriodSpacedTick(t *testing.T) {
	out := &RecordingOutput{}
	ind := New(out)
	ind.SetMode(Blink(period))

	now := epoch
	ind.Tick(now)
	level := ind.Level()

	for i := 1; i <= 10; i++ {
		now = now.Add(period)
		ind.Tick(now)
		if ind.Level() == level {
			t.Fatalf("tick %d at period spacing did not toggle", i)
		}
		level = ind.Level()
	}

	if got := ind.Toggles(); got != 10 {
		t.Errorf("Toggles() = %d, want 10", got)
	}
}

func TestBlinkHalfPeriodTickNeverToggles(t *testing.T) {
	out := &RecordingOutput{}
	ind := New(out)
	ind.SetMode(Blink(period))

	now := epoch
	ind.Tick(now)

	// Every tick that lands half a period after an edge must hold the level.
	for i := 0; i < 10; i++ {
		before := ind.Level()
		now = now.Add(period / 2)
		ind.Tick(now)
		if ind.Level() != before {
			t.Fatalf("tick half a period after an edge toggled (iteration %d)", i)
		}
		now = now.Add(period / 2)
		ind.Tick(now)
	}
}

func TestBlinkShortTicksDoNotToggle(t *testing.T) {
	ind := New(&RecordingOutput{})
	ind.SetMode(Blink(period))

	now := epoch
	ind.Tick(now)
	start := ind.Level()

	for i := 0; i < 49; i++ {
		now = now.Add(10 * time.Millisecond)
		ind.Tick(now)
	}
	if ind.Level() != start || ind.Toggles() != 0 {
		t.Fatalf("ticks within one period toggled the output")
	}

	now = now.Add(10 * time.Millisecond)
	ind.Tick(now)
	if ind.Level() == start {
		t.Error("tick at exactly one period should toggle")
	}
}

func TestFixedModes(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want bool
	}{
		{"solid", Solid, true},
		{"off", Off, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &RecordingOutput{}
			ind := New(out)
			ind.SetMode(tt.mode)

			if got, ok := out.Last(); !ok || got != tt.want {
				t.Fatalf("SetMode(%v) drove %v (written=%v), want %v", tt.mode, got, ok, tt.want)
			}

			now := epoch
			for i := 0; i < 20; i++ {
				now = now.Add(period)
				ind.Tick(now)
				if ind.Level() != tt.want {
					t.Fatalf("Tick changed a fixed level at iteration %d", i)
				}
			}
			if len(out.Levels()) != 1 {
				t.Errorf("fixed mode rewrote the output %d times", len(out.Levels()))
			}
			if ind.Toggles() != 0 {
				t.Error("fixed mode should not count toggles")
			}
		})
	}
}

func TestSetModeIsIdempotent(t *testing.T) {
	out := &RecordingOutput{}
	ind := New(out)
	ind.SetMode(Blink(period))

	now := epoch
	ind.Tick(now)
	now = now.Add(period)
	ind.Tick(now)
	phase := ind.Level()

	// Re-setting the same blink must not restart the phase.
	ind.SetMode(Blink(period))
	now = now.Add(period)
	ind.Tick(now)
	if ind.Level() == phase {
		t.Error("re-setting the same blink mode reset its phase")
	}

	writes := len(out.Levels())
	ind.SetMode(Solid)
	ind.SetMode(Solid)
	ind.SetMode(Solid)
	if got := len(out.Levels()); got > writes+1 {
		t.Errorf("repeated SetMode(Solid) wrote %d times, want at most 1", got-writes)
	}
}

func TestBlinkStartsOn(t *testing.T) {
	out := &RecordingOutput{}
	ind := New(out)
	ind.SetMode(Off)
	ind.SetMode(Blink(period))

	if got, _ := out.Last(); !got {
		t.Error("entering blink should drive the output on")
	}
}

func TestLeavingBlinkStopsToggling(t *testing.T) {
	ind := New(&RecordingOutput{})
	ind.SetMode(Blink(period))

	now := epoch
	for i := 0; i < 4; i++ {
		ind.Tick(now)
		now = now.Add(period)
	}

	ind.SetMode(Off)
	toggles := ind.Toggles()
	for i := 0; i < 4; i++ {
		ind.Tick(now)
		now = now.Add(period)
	}
	if ind.Level() || ind.Toggles() != toggles {
		t.Error("output kept blinking after switching to Off")
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{Off, "off"},
		{Solid, "solid"},
		{Blink(period), "blink(500ms)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSysfsLED(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "status")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "brightness"), []byte("0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "max_brightness"), []byte("255\n"), 0644); err != nil {
		t.Fatal(err)
	}

	led, err := OpenSysfsLED(root, "status")
	if err != nil {
		t.Fatalf("OpenSysfsLED() error = %v", err)
	}

	led.Set(true)
	if got, _ := os.ReadFile(led.Path()); string(got) != "255" {
		t.Errorf("brightness after Set(true) = %q, want 255", got)
	}
	led.Set(false)
	if got, _ := os.ReadFile(led.Path()); string(got) != "0" {
		t.Errorf("brightness after Set(false) = %q, want 0", got)
	}
}

func TestOpenSysfsLEDMissing(t *testing.T) {
	if _, err := OpenSysfsLED(t.TempDir(), "nope"); err == nil {
		t.Error("OpenSysfsLED() should fail for a missing LED")
	}
	if _, err := OpenSysfsLED("", ""); err == nil {
		t.Error("OpenSysfsLED() should require a name")
	}
}
