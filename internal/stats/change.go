package stats

// Change is what an item update detected. It is either a SingleDelta or a
// SubModeDeltas.
type Change interface {
	isChange()
}

// SingleDelta is one old→new transition.
type SingleDelta struct {
	Old string
	New string
}

func (SingleDelta) isChange() {}

// SubMode indexes SubModeDeltas.
type SubMode int

const (
	SubSolo SubMode = iota
	SubFlex
	SubTwistedTreeline
	numSubModes
)

func (m SubMode) Label() string {
	switch m {
	case SubSolo:
		return "SOLO/DUO"
	case SubFlex:
		return "FLEX"
	case SubTwistedTreeline:
		return "3V3"
	default:
		return "UNKNOWN"
	}
}

// SubModeDeltas holds one optional delta per sub-mode; nil slots did not change.
type SubModeDeltas [numSubModes]*SingleDelta

func (SubModeDeltas) isChange() {}

// Present returns the non-nil slots in sub-mode order.
func (d SubModeDeltas) Present() []ModeDelta {
	var out []ModeDelta
	for i, sd := range d {
		if sd != nil {
			out = append(out, ModeDelta{Mode: SubMode(i), Delta: *sd})
		}
	}
	return out
}

type ModeDelta struct {
	Mode  SubMode
	Delta SingleDelta
}

// IsEmpty reports whether c carries nothing to notify about.
func IsEmpty(c Change) bool {
	switch v := c.(type) {
	case nil:
		return true
	case SingleDelta:
		return false
	case *SingleDelta:
		return v == nil
	case SubModeDeltas:
		return len(v.Present()) == 0
	case *SubModeDeltas:
		return v == nil || len(v.Present()) == 0
	default:
		return false
	}
}
