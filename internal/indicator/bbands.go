package indicator

import "math"

// bbAcc is the incremental Bollinger Bands(period, k) accumulator
// (spec §4.1). The std-dev pass over the window is a naive O(period)
// recomputation each bar, explicitly permitted since period is
// bounded (default 20).
type bbAcc struct {
	period int
	k      float64
	w      *window
}

func newBBAcc(period int, k float64) *bbAcc {
	return &bbAcc{period: period, k: k, w: newWindow(period)}
}

func (a *bbAcc) update(close float64) (upper, middle, lower float64, ready bool) {
	a.w.push(close)
	if !a.w.full() {
		return 0, 0, 0, false
	}
	middle = a.w.mean()
	var sumSq float64
	for _, v := range a.w.values() {
		d := v - middle
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(a.period))
	return middle + a.k*std, middle, middle - a.k*std, true
}
