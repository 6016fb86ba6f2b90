package vm

import "github.com/zurustar/scriptcore/pkg/flags"

// Flags that force the derived mode.
const (
	FlagModeA   = 0x50C
	FlagModeB   = 0x50D
	FlagModeC   = 0x50E
	FlagModeAux = 0x50F
)

// Derived mode values.
const (
	DerivedMode    = 0x0C
	DerivedVariant = 10
)

// DeriveMode returns the mode forced by the flag cluster 0x50C-0x50E, or cur
// unchanged. A derived mode replaces the state bits with StateModeDerived.
// ok reports whether the mode was derived.
func DeriveMode(f *flags.Store, cur ModeState) (ModeState, bool) {
	if !f.AnySet(FlagModeA, FlagModeB, FlagModeC) {
		return cur, false
	}
	return ModeState{
		Mode:    DerivedMode,
		Variant: DerivedVariant,
		State:   StateModeDerived,
		Aux:     f.Test(FlagModeAux),
	}, true
}
