package indicator

// rsiAcc is the incremental Wilder RSI(period) accumulator (spec
// §4.1). Seeding sums gains/losses over the first period+1 closes;
// thereafter avg_gain/avg_loss are updated with Wilder's recurrence.
type rsiAcc struct {
	period int

	prevClose float64
	hasPrev   bool

	seeded    bool
	seedGain  float64
	seedLoss  float64
	seedCount int

	avgGain float64
	avgLoss float64
}

func newRSIAcc(period int) *rsiAcc {
	return &rsiAcc{period: period}
}

func (a *rsiAcc) update(close float64) (value float64, ready bool) {
	if !a.hasPrev {
		a.prevClose = close
		a.hasPrev = true
		return 0, false
	}

	change := close - a.prevClose
	a.prevClose = close

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if !a.seeded {
		a.seedGain += gain
		a.seedLoss += loss
		a.seedCount++
		if a.seedCount < a.period {
			return 0, false
		}
		a.avgGain = a.seedGain / float64(a.period)
		a.avgLoss = a.seedLoss / float64(a.period)
		a.seeded = true
	} else {
		p := float64(a.period)
		a.avgGain = (a.avgGain*(p-1) + gain) / p
		a.avgLoss = (a.avgLoss*(p-1) + loss) / p
	}
	return a.value(), true
}

func (a *rsiAcc) value() float64 {
	switch {
	case a.avgGain == 0 && a.avgLoss == 0:
		return 50 // flat price, no directional information
	case a.avgLoss == 0:
		return 100
	default:
		rs := a.avgGain / a.avgLoss
		return 100 - 100/(1+rs)
	}
}

// RecomputeRSI computes Wilder RSI(period) over the full closes series
// from scratch, seeding and smoothing exactly as rsiAcc does. Used by
// the incremental-vs-recompute equivalence check (spec §8 invariant 1).
func RecomputeRSI(closes []float64, period int) (value float64, ready bool) {
	if len(closes) < period+1 || period <= 0 {
		return 0, false
	}
	acc := newRSIAcc(period)
	var last float64
	for _, c := range closes {
		v, ok := acc.update(c)
		if ok {
			last, ready = v, true
		}
	}
	return last, ready
}
