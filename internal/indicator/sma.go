package indicator

// smaAcc is the incremental SMA(period) accumulator (spec §4.1): a
// running-sum window over closes, absent until the window fills.
type smaAcc struct {
	w *window
}

func newSMAAcc(period int) *smaAcc {
	return &smaAcc{w: newWindow(period)}
}

func (a *smaAcc) update(close float64) (value float64, ready bool) {
	a.w.push(close)
	if !a.w.full() {
		return 0, false
	}
	return a.w.mean(), true
}

// RecomputeSMA computes SMA(period) over closes from scratch. Used to
// check the incremental accumulator against a full recompute (spec §8
// invariant 1); production code should always prefer the incremental
// path.
func RecomputeSMA(closes []float64, period int) (value float64, ready bool) {
	if len(closes) < period || period <= 0 {
		return 0, false
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), true
}
