package tween

// Timer is the Q5 accumulator behind timed interpolation.
type Timer struct {
	Acc int32
}

// Advance calls update with the elapsed whole frames while the accumulator is
// below duration frames, then adds tick. It reports true once the duration has
// elapsed, and rewinds the accumulator so the next interpolation starts at zero.
func (t *Timer) Advance(duration int32, tick uint32, update func(frames int32)) bool {
	if t.Acc < duration<<5 {
		if update != nil {
			update(t.Acc / 32)
		}
		t.Acc += int32(tick)
		return false
	}
	t.Acc = 0
	return true
}

// Reset rewinds the accumulator.
func (t *Timer) Reset() { t.Acc = 0 }
