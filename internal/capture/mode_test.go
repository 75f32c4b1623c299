package capture

import "testing"

func TestSensitivityFor(t *testing.T) {
	tests := []struct {
		mode Mode
		want Sensitivity
	}{
		{ModeScreen, Sensitivity{Pointer: true, Shadow: false, Delay: true}},
		{ModeWindow, Sensitivity{Pointer: true, Shadow: true, Delay: true}},
		{ModeSelection, Sensitivity{}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := SensitivityFor(tt.mode); got != tt.want {
				t.Fatalf("SensitivityFor(%v) = %+v, want %+v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestEffectiveClearsInsensitiveOptions(t *testing.T) {
	all := Options{IncludePointer: true, WindowShadow: true, DelaySeconds: 3}

	if got := Effective(ModeWindow, all); got != all {
		t.Fatalf("window should keep every option, got %+v", got)
	}
	if got := Effective(ModeScreen, all); got.WindowShadow || !got.IncludePointer || got.DelaySeconds != 3 {
		t.Fatalf("screen should drop only the shadow, got %+v", got)
	}
	if got := Effective(ModeSelection, all); got != (Options{}) {
		t.Fatalf("selection should drop every option, got %+v", got)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"screen":    ModeScreen,
		"Desktop":   ModeScreen,
		"window":    ModeWindow,
		"selection": ModeSelection,
		" area ":    ModeSelection,
	} {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseMode("everything"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestModeTextRoundTrip(t *testing.T) {
	for _, m := range Modes {
		text, err := m.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", m, err)
		}
		var back Mode
		if err := back.UnmarshalText(text); err != nil || back != m {
			t.Fatalf("UnmarshalText(%s) = %v, %v", text, back, err)
		}
	}
	if _, err := Mode(7).MarshalText(); err == nil {
		t.Fatal("expected error marshalling an invalid mode")
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{DelaySeconds: -1}).Validate(); err == nil {
		t.Fatal("negative delay should be rejected")
	}
	if err := (Options{DelaySeconds: 0}).Validate(); err != nil {
		t.Fatalf("zero delay rejected: %v", err)
	}
}

func TestRectWithin(t *testing.T) {
	screen := Rect{Width: 1920, Height: 1080}
	if !(Rect{X: 10, Y: 10, Width: 100, Height: 100}).Within(screen) {
		t.Fatal("inner rect should be within the screen")
	}
	if (Rect{X: 1900, Y: 10, Width: 100, Height: 100}).Within(screen) {
		t.Fatal("rect crossing the right edge should not be within the screen")
	}
	if !(Rect{Width: 0, Height: 5}).Empty() {
		t.Fatal("zero width rect should be empty")
	}
}
