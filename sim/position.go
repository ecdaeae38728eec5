package sim

import "fmt"

// State is the exposure of a pair position.
type State int8

const (
	Flat        State = 0
	ShortSpread State = -1 // short leg A, long leg B
	LongSpread  State = 1  // long leg A, short leg B
)

func (s State) String() string {
	switch s {
	case Flat:
		return "flat"
	case ShortSpread:
		return "short-spread"
	case LongSpread:
		return "long-spread"
	default:
		return fmt.Sprintf("state(%d)", int8(s))
	}
}

// Position is the mutable state of one pair during a simulation. Entry
// prices are running averages: every fill moves them halfway to the fill
// price, starting from 0, so the first fill is half weighted.
type Position struct {
	State  State
	Level  float64 // 0, or the signed entry threshold of the open side
	EntryA float64
	EntryB float64
	PnL    float64 // unscaled sum of closed leg returns

	openIndex int
	fills     int
}

// fill averages a new fill into the entry prices and moves to st.
func (p *Position) fill(st State, level float64, k int, a, b float64) {
	if p.State == Flat {
		p.openIndex = k
		p.fills = 0
	}
	p.EntryA = (a + p.EntryA) / 2
	p.EntryB = (b + p.EntryB) / 2
	p.State = st
	p.Level = level
	p.fills++
}

// close realizes the open position at prices a, b and returns the trade.
func (p *Position) close(k int, a, b float64, forced bool) Trade {
	var ret float64
	switch p.State {
	case ShortSpread:
		ret = legReturn(b, p.EntryB) - legReturn(a, p.EntryA)
	case LongSpread:
		ret = legReturn(a, p.EntryA) - legReturn(b, p.EntryB)
	}

	tr := Trade{
		Side:       p.State,
		OpenIndex:  p.openIndex,
		CloseIndex: k,
		Fills:      p.fills,
		EntryA:     p.EntryA,
		EntryB:     p.EntryB,
		ExitA:      a,
		ExitB:      b,
		Return:     ret,
		Forced:     forced,
	}

	p.PnL += ret
	p.State = Flat
	p.Level = 0
	p.EntryA = 0
	p.EntryB = 0
	p.fills = 0
	return tr
}

// legReturn is the simple return from entry to cur. A zero entry carries no
// signal and returns 0.
func legReturn(cur, entry float64) float64 {
	if entry == 0 {
		return 0
	}
	return (cur - entry) / entry
}
