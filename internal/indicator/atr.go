package indicator

import "math"

// atrAcc is the incremental ATR(period) accumulator (spec §4.1): the
// arithmetic mean of the last period true ranges. Wilder smoothing is
// an acceptable alternative per the spec; this implementation takes
// the plain mean, matching the window type's O(1) running sum.
type atrAcc struct {
	w         *window
	prevClose float64
	hasPrev   bool
}

func newATRAcc(period int) *atrAcc {
	return &atrAcc{w: newWindow(period)}
}

func (a *atrAcc) update(high, low, close float64) (value float64, ready bool) {
	var tr float64
	if !a.hasPrev {
		tr = high - low
	} else {
		tr = math.Max(high-low, math.Max(math.Abs(high-a.prevClose), math.Abs(low-a.prevClose)))
	}
	a.prevClose = close
	a.hasPrev = true

	a.w.push(tr)
	if !a.w.full() {
		return 0, false
	}
	return a.w.mean(), true
}
