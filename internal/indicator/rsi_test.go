package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSIAcc_InsufficientHistory(t *testing.T) {
	acc := newRSIAcc(5)
	for _, p := range []float64{10, 11, 12, 13} {
		_, ready := acc.update(p)
		assert.False(t, ready)
	}
}

func TestRSIAcc_AllIncreasingPricesHits100(t *testing.T) {
	acc := newRSIAcc(3)
	prices := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	var last float64
	var ready bool
	for _, p := range prices {
		last, ready = acc.update(p)
	}
	assert.True(t, ready)
	assert.InDelta(t, 100, last, 0.0001)
}

func TestRSIAcc_AllDecreasingPricesHits0(t *testing.T) {
	acc := newRSIAcc(3)
	prices := []float64{20, 19, 18, 17, 16, 15, 14, 13, 12, 11}
	var last float64
	for _, p := range prices {
		last, _ = acc.update(p)
	}
	assert.InDelta(t, 0, last, 0.0001)
}

func TestRSIAcc_FlatPricesIsNeutral(t *testing.T) {
	acc := newRSIAcc(3)
	prices := []float64{10, 10, 10, 10, 10, 10, 10, 10}
	var last float64
	for _, p := range prices {
		last, _ = acc.update(p)
	}
	assert.InDelta(t, 50, last, 0.0001)
}

func TestRSIAcc_MatchesBasicTable(t *testing.T) {
	prices := []float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 14, 13, 12, 11, 12}
	expectedFromSeedOnward := []float64{
		40.00, 52.00, 61.60, 69.28, 75.42, 80.34, 64.27, 51.42, 41.13, 52.91,
	}
	acc := newRSIAcc(5)
	var got []float64
	for _, p := range prices {
		v, ready := acc.update(p)
		if ready {
			got = append(got, v)
		}
	}
	assert.Equal(t, len(expectedFromSeedOnward), len(got))
	for i := range expectedFromSeedOnward {
		assert.InDelta(t, expectedFromSeedOnward[i], got[i], 0.01)
	}
}

func TestRSIAcc_MatchesRecomputeFromScratch(t *testing.T) {
	prices := []float64{10, 100, 5, 200, 1, 300, 2, 400, 3, 500, 4, 600}
	acc := newRSIAcc(3)
	for i, p := range prices {
		incremental, ready := acc.update(p)
		if !ready {
			continue
		}
		recomputed, ok := RecomputeRSI(prices[:i+1], 3)
		assert.True(t, ok)
		assert.InDelta(t, recomputed, incremental, 1e-9)
	}
}
