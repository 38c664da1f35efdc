package flowmetrics

import "testing"

func TestWAUCInvalidPixelsExcluded(t *testing.T) {

	m := newTestMetrics(t, DefaultFlowMetricsParams())

	// one perfectly accurate valid pixel, the rest invalid with huge error
	epe := [][]float64{{0, 50, 50, 50}}
	valid := [][]float64{{1, 0, 0, 0}}

	got := m.computeTotalWAUC(epe, valid)

	if !almostEqual(got, 100, 1e-4) {
		t.Errorf("expected wauc 100 for the single valid accurate pixel, got %v", got)
	}
}

func TestWAUCThresholdWeighting(t *testing.T) {

	m := newTestMetrics(t, DefaultFlowMetricsParams())

	// an error of 2.5px clears thresholds 50..100, the upper half of the
	// linearly decaying weights: sum_{i=51..100} (1 - (i-1)/100) over a
	// total weight of 50.5
	epe := [][]float64{{2.5}}
	valid := [][]float64{{1}}

	wi := 0.0

	for i := 50; i <= 100; i++ {
		wi += 1 - float64(i-1)/100.0
	}

	want := 100 * wi / 50.5

	got := m.computeTotalWAUC(epe, valid)

	if !almostEqual(got, want, 1e-4) {
		t.Errorf("expected wauc %v, got %v", want, got)
	}
}

func TestWAUCEMAMode(t *testing.T) {

	p := DefaultFlowMetricsParams()
	p.AverageMode = AverageEMA

	m := newTestMetrics(t, p)

	// two perfect samples reduce by mean in ema mode
	epe := [][]float64{{0, 0}, {0, 0}}
	valid := [][]float64{{1, 1}, {1, 1}}

	got := m.computeTotalWAUC(epe, valid)

	if !almostEqual(got, 100, 1e-4) {
		t.Errorf("expected mean wauc 100, got %v", got)
	}
}
