package tween

import (
	"fmt"
	"image/color"
)

// DefaultTracks is the number of colour fade tracks.
const DefaultTracks = 8

// FadeTrack blends colour A into colour B over Total frames.
type FadeTrack struct {
	Acc   int32
	Total int32
	A     [3]uint8
	B     [3]uint8
	Out   [3]uint8
}

// Color returns the current blended output as an opaque colour.
func (f FadeTrack) Color() color.RGBA {
	return color.RGBA{R: f.Out[0], G: f.Out[1], B: f.Out[2], A: 0xFF}
}

// FadeTracks is the fade track table.
type FadeTracks struct {
	tracks []FadeTrack
}

// NewFadeTracks returns n idle tracks.
func NewFadeTracks(n int) *FadeTracks {
	if n <= 0 {
		n = DefaultTracks
	}
	return &FadeTracks{tracks: make([]FadeTrack, n)}
}

// Len returns the number of tracks.
func (f *FadeTracks) Len() int { return len(f.tracks) }

// Get returns track i.
func (f *FadeTracks) Get(i uint32) (FadeTrack, error) {
	if i >= uint32(len(f.tracks)) {
		return FadeTrack{}, fmt.Errorf("%w: fade track %d", ErrIndex, i)
	}
	return f.tracks[i], nil
}

// Start resets track i to blend a into b over total frames.
func (f *FadeTracks) Start(i uint32, total int32, a, b [3]uint8) error {
	if i >= uint32(len(f.tracks)) {
		return fmt.Errorf("%w: fade track %d", ErrIndex, i)
	}
	f.tracks[i] = FadeTrack{Total: total, A: a, B: b, Out: a}
	return nil
}

// Step blends track i at the current accumulator, then advances it by tick.
// It reports true once the accumulator has passed Total frames.
// A zero Total is an unrecoverable state and returns ErrZeroTotal.
func (f *FadeTracks) Step(i uint32, tick uint32) (bool, error) {
	if i >= uint32(len(f.tracks)) {
		return false, fmt.Errorf("%w: fade track %d", ErrIndex, i)
	}
	tr := &f.tracks[i]
	n := tr.Total
	if n == 0 {
		return false, fmt.Errorf("%w: track %d", ErrZeroTotal, i)
	}
	// Go's integer division already truncates toward zero.
	q := tr.Acc / 32
	wa, wb := n-q, q
	for c := 0; c < 3; c++ {
		tr.Out[c] = uint8((int32(tr.A[c])*wa + int32(tr.B[c])*wb) / n)
	}
	tr.Acc += int32(tick)
	return n<<5 < tr.Acc, nil
}
