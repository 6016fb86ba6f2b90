package tween

// ScreenFadeCap is the accumulator value at which the overlay is fully opaque.
const ScreenFadeCap = 0x1FE0

// DirtyOverlay is the dirty bit raised while the overlay is still fading in.
const DirtyOverlay = 0x2

// Fullscreen overlay geometry, centred on the origin.
const (
	ScreenHalfWidth  = 320
	ScreenHalfHeight = 224
	// FullscreenPacket is the render packet id used for the overlay.
	FullscreenPacket = 0x1007
)

// ScreenFade is the fullscreen fade-to-colour overlay.
type ScreenFade struct {
	Acc   uint16
	Rate  uint16
	Base  uint32
	Hold  int16
	Done  bool
	Dirty uint32
}

// Start resets the overlay to transparent with the given rate, hold and base colour.
func (s *ScreenFade) Start(rate uint16, hold int16, base uint32) {
	*s = ScreenFade{Rate: rate, Hold: hold, Base: base & 0x00FFFFFF}
}

// Step advances the overlay by one tick and returns the ARGB colour to submit.
// Done is cleared on every call and set once the cap is reached and the hold
// time has run out.
func (s *ScreenFade) Step(tick uint32) uint32 {
	s.Done = false
	if int16(s.Acc) < ScreenFadeCap {
		next := uint32(s.Acc) + uint32(s.Rate)*tick
		s.Acc = uint16(next)
		if int32(int16(uint16(next))) > ScreenFadeCap {
			s.Acc = ScreenFadeCap
		}
		s.Dirty |= DirtyOverlay
	} else if s.Hold < 1 {
		s.Done = true
	} else {
		s.Hold -= int16(tick)
	}
	return s.ARGB()
}

// Alpha returns the overlay alpha byte.
func (s *ScreenFade) Alpha() uint8 {
	return uint8(s.Acc >> 5)
}

// ARGB returns the base colour with the current alpha in the top byte.
func (s *ScreenFade) ARGB() uint32 {
	return s.Base + uint32(s.Alpha())<<24
}
