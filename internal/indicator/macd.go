package indicator

// macdAcc is the incremental MACD accumulator (spec §4.1): the
// difference of a fast and slow EMA, smoothed again by a signal EMA
// over the MACD series itself.
type macdAcc struct {
	fast   *emaAcc
	slow   *emaAcc
	signal *emaAcc
}

func newMACDAcc() *macdAcc {
	return &macdAcc{
		fast:   newEMAAcc(12),
		slow:   newEMAAcc(26),
		signal: newEMAAcc(9),
	}
}

func (a *macdAcc) update(close float64) (macd float64, macdReady bool, signal float64, hist float64, signalReady bool) {
	fastV, fastReady := a.fast.update(close)
	slowV, slowReady := a.slow.update(close)
	if !fastReady || !slowReady {
		return 0, false, 0, 0, false
	}
	macd = fastV - slowV
	macdReady = true

	sigV, sigReady := a.signal.update(macd)
	if !sigReady {
		return macd, true, 0, 0, false
	}
	return macd, true, sigV, macd - sigV, true
}
