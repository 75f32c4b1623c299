package capture

// Sensitivity records which options apply to the active mode.
type Sensitivity struct {
	Pointer bool `json:"pointer"`
	Shadow  bool `json:"shadow"`
	Delay   bool `json:"delay"`
}

// SensitivityFor derives option sensitivity from a mode:
// selection disables everything, screen disables the shadow and
// window enables all three.
func SensitivityFor(m Mode) Sensitivity {
	switch m {
	case ModeWindow:
		return Sensitivity{Pointer: true, Shadow: true, Delay: true}
	case ModeSelection:
		return Sensitivity{}
	default:
		return Sensitivity{Pointer: true, Delay: true}
	}
}

// Effective returns opts with every option the mode does not honour
// cleared, which is what gets sent to the provider.
func Effective(m Mode, opts Options) Options {
	s := SensitivityFor(m)
	out := Options{}
	if s.Pointer {
		out.IncludePointer = opts.IncludePointer
	}
	if s.Shadow {
		out.WindowShadow = opts.WindowShadow
	}
	if s.Delay && opts.DelaySeconds > 0 {
		out.DelaySeconds = opts.DelaySeconds
	}
	return out
}
