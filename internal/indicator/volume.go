package indicator

// volAcc is the incremental volume_avg(period) accumulator (spec
// §4.1): a running SMA over volume, with volume_ratio derived as the
// current bar's volume over that average.
type volAcc struct {
	w *window
}

func newVolAcc(period int) *volAcc {
	return &volAcc{w: newWindow(period)}
}

func (a *volAcc) update(volume float64) (avg, ratio float64, ready bool) {
	a.w.push(volume)
	if !a.w.full() {
		return 0, 0, false
	}
	avg = a.w.mean()
	if avg == 0 {
		return avg, 0, true
	}
	return avg, volume / avg, true
}
