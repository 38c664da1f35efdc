package flowmetrics

import (
	"testing"
)

// makeMask builds a (1, 1, h, w) probability mask from 0/1 values
func makeMask(h, w int, values []float32) *Tensor {

	t := NewTensor(1, 1, h, w)
	copy(t.Data, values)
	return t
}

func TestF1MacroPerfectMatch(t *testing.T) {

	m := newTestMetrics(t, DefaultFlowMetricsParams())

	mask := makeMask(2, 2, []float32{1, 0, 1, 0})

	scores, err := m.f1Score(mask, mask.Clone())

	if err != nil {
		t.Fatalf("f1Score failed: %v", err)
	}

	if !almostEqual(scores[0], 1, 1e-5) {
		t.Errorf("perfect match: expected f1 1, got %v", scores[0])
	}
}

func TestF1MacroInverted(t *testing.T) {

	m := newTestMetrics(t, DefaultFlowMetricsParams())

	pred := makeMask(2, 2, []float32{0, 1, 0, 1})
	target := makeMask(2, 2, []float32{1, 0, 1, 0})

	scores, err := m.f1Score(pred, target)

	if err != nil {
		t.Fatalf("f1Score failed: %v", err)
	}

	if !almostEqual(scores[0], 0, 1e-5) {
		t.Errorf("inverted prediction: expected f1 0, got %v", scores[0])
	}
}

func TestF1Binary(t *testing.T) {

	p := DefaultFlowMetricsParams()
	p.F1Mode = F1Binary

	m := newTestMetrics(t, p)

	// one of two target positives predicted, no false positive
	// predictions: precision 1, recall 0.5, f1 = 2/3
	pred := makeMask(2, 2, []float32{1, 0, 0, 0})
	target := makeMask(2, 2, []float32{1, 1, 0, 0})

	scores, err := m.f1Score(pred, target)

	if err != nil {
		t.Fatalf("f1Score failed: %v", err)
	}

	if !almostEqual(scores[0], 2.0/3.0, 1e-5) {
		t.Errorf("expected binary f1 2/3, got %v", scores[0])
	}
}

func TestF1Weighted(t *testing.T) {

	p := DefaultFlowMetricsParams()
	p.F1Mode = F1Weighted

	m := newTestMetrics(t, p)

	// positive class f1 = 2/3 as above, negative class: preds {0,1,1,1},
	// targets {0,0,1,1}: tp 2, one disagreement each way, f1 = 0.8.
	// weights: 2 positives and 2 negatives of 4 pixels, 0.5 each
	pred := makeMask(2, 2, []float32{1, 0, 0, 0})
	target := makeMask(2, 2, []float32{1, 1, 0, 0})

	scores, err := m.f1Score(pred, target)

	if err != nil {
		t.Fatalf("f1Score failed: %v", err)
	}

	want := 0.5*(2.0/3.0) + 0.5*0.8

	if !almostEqual(scores[0], want, 1e-5) {
		t.Errorf("expected weighted f1 %v, got %v", want, scores[0])
	}
}

func TestF1ShapeMismatch(t *testing.T) {

	m := newTestMetrics(t, DefaultFlowMetricsParams())

	pred := makeMask(2, 2, []float32{1, 0, 0, 0})
	target := NewTensor(1, 1, 4, 4)

	if _, err := m.f1Score(pred, target); err == nil {
		t.Error("expected shape mismatch error, got nil")
	}
}

func TestOcclusionF1ThroughUpdate(t *testing.T) {

	m := newTestMetrics(t, DefaultFlowMetricsParams())

	flow := makeFlow(1, 2, 2, 1, 1)
	occ := makeMask(2, 2, []float32{1, 0, 1, 0})

	err := m.Update(
		map[string]*Tensor{KeyFlows: flow, KeyOccs: occ.Clone()},
		map[string]*Tensor{KeyFlows: flow.Clone(), KeyOccs: occ},
	)

	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, ok := m.Compute()["occ_f1"]

	if !ok {
		t.Fatal("occ_f1 missing from results")
	}

	if !almostEqual(got, 1, 1e-5) {
		t.Errorf("occ_f1: expected 1 for matching masks, got %v", got)
	}
}

func TestMotionBoundaryF1ThroughUpdate(t *testing.T) {

	m := newTestMetrics(t, DefaultFlowMetricsParams())

	flow := makeFlow(1, 2, 2, 1, 1)
	mb := makeMask(2, 2, []float32{0, 1, 0, 1})

	err := m.Update(
		map[string]*Tensor{KeyFlows: flow, KeyMbs: mb.Clone()},
		map[string]*Tensor{KeyFlows: flow.Clone(), KeyMbs: mb},
	)

	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, ok := m.Compute()["mb_f1"]

	if !ok {
		t.Fatal("mb_f1 missing from results")
	}

	if !almostEqual(got, 1, 1e-5) {
		t.Errorf("mb_f1: expected 1 for matching masks, got %v", got)
	}
}

func TestConfidenceF1ThroughUpdate(t *testing.T) {

	// binary mode: the all positive confidence mask leaves the negative
	// class empty, which macro mode would score as zero
	p := DefaultFlowMetricsParams()
	p.F1Mode = F1Binary

	m := newTestMetrics(t, p)

	// perfect flow means the derived confidence target is exp(0) = 1
	// everywhere, a confident prediction scores a perfect f1
	flow := makeFlow(1, 2, 2, 1, 1)
	conf := makeMask(2, 2, []float32{1, 1, 1, 1})

	err := m.Update(
		map[string]*Tensor{KeyFlows: flow, KeyConfs: conf},
		map[string]*Tensor{KeyFlows: flow.Clone()},
	)

	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, ok := m.Compute()["conf_f1"]

	if !ok {
		t.Fatal("conf_f1 missing from results")
	}

	if !almostEqual(got, 1, 1e-5) {
		t.Errorf("conf_f1: expected 1, got %v", got)
	}
}
