// Package strategy derives directional intents from moving-average ordering.
package strategy

// Side is a directional intent: +1 long, -1 short, 0 none.
type Side int8

const (
	None  Side = 0
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return "none"
}

// Params selects the moving-average combination and the entry filters.
// One parameterized generator replaces the per-variant copies of the rule.
type Params struct {
	EnableLong  bool
	EnableShort bool

	FastWindow int
	MidWindow  int
	SlowWindow int // 0 disables the slow leg of the ordering rule

	// Distance filter: when re-entering the same direction, the reference
	// close must clear the fast MA by this fraction (e.g. 0.015 = 1.5%).
	DistanceFilter bool
	LongDistance   float64
	ShortDistance  float64

	// Consecutive-entry limit per direction. Zero means unlimited.
	StreakFilter bool
	MaxLongRun   int
	MaxShortRun  int
}

// Ref is the previous bar's view: its close and moving averages. The slow MA
// is only meaningful when Params.SlowWindow is set.
type Ref struct {
	Close float64
	Fast  float64
	Mid   float64
	Slow  float64
}

// Streak tracks the last acted-upon side and how many entries in a row went
// that way. It only advances when an order is actually placed.
type Streak struct {
	LastSide Side
	Count    int
}

// Mark records a placed entry.
func (s *Streak) Mark(side Side) {
	if side == s.LastSide {
		s.Count++
		return
	}
	s.LastSide = side
	s.Count = 1
}

type Generator struct {
	p Params
}

func New(p Params) *Generator {
	return &Generator{p: p}
}

// Evaluate returns the surviving intent for ref, or None. The base ordering
// rule runs first, then the distance filter, then the streak filter; each may
// null the intent. Evaluate does not mutate streak.
func (g *Generator) Evaluate(ref Ref, streak Streak) Side {
	intent := g.baseIntent(ref)
	if intent == None {
		return None
	}

	if g.p.DistanceFilter && intent == streak.LastSide {
		switch intent {
		case Long:
			if ref.Close <= ref.Fast*(1+g.p.LongDistance) {
				return None
			}
		case Short:
			if ref.Close >= ref.Fast*(1-g.p.ShortDistance) {
				return None
			}
		}
	}

	if g.p.StreakFilter && intent == streak.LastSide {
		max := g.p.MaxLongRun
		if intent == Short {
			max = g.p.MaxShortRun
		}
		if max > 0 && streak.Count >= max {
			return None
		}
	}

	return intent
}

// baseIntent applies the ordering rule: long when close > fast > mid
// (> slow when configured), short when the chain inverts.
func (g *Generator) baseIntent(ref Ref) Side {
	useSlow := g.p.SlowWindow > 0

	if g.p.EnableLong &&
		ref.Close > ref.Fast && ref.Fast > ref.Mid &&
		(!useSlow || ref.Mid > ref.Slow) {
		return Long
	}

	if g.p.EnableShort &&
		ref.Close < ref.Fast && ref.Fast < ref.Mid &&
		(!useSlow || ref.Mid < ref.Slow) {
		return Short
	}

	return None
}
