package flowmetrics

import (
	"testing"
)

// floatsEqual compares slices of float32
func floatsEqual(a, b []float32, epsilon float32) bool {

	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if diff := a[i] - b[i]; diff > epsilon || diff < -epsilon {
			return false
		}
	}

	return true
}

func TestInterpolateBilinearAlignedCorners(t *testing.T) {

	src, err := TensorFromData([]float32{
		0, 1,
		2, 3,
	}, 1, 1, 2, 2)

	if err != nil {
		t.Fatalf("TensorFromData failed: %v", err)
	}

	out := interpolateBilinear(src, 3, 3)

	// aligned corners: the source corner values map exactly onto the
	// destination corners
	expected := []float32{
		0, 0.5, 1,
		1, 1.5, 2,
		2, 2.5, 3,
	}

	if !floatsEqual(out.Data, expected, 1e-6) {
		t.Errorf("expected %v, got %v", expected, out.Data)
	}
}

func TestInterpolateBilinearIdentity(t *testing.T) {

	src, err := TensorFromData([]float32{1, 2, 3, 4}, 1, 1, 2, 2)

	if err != nil {
		t.Fatalf("TensorFromData failed: %v", err)
	}

	out := interpolateBilinear(src, 2, 2)

	if !floatsEqual(out.Data, src.Data, 0) {
		t.Errorf("same size resize changed data: %v", out.Data)
	}
}

func TestResizePredictionScalesFlow(t *testing.T) {

	// constant (1, 2) flow field at 2x2
	flow := makeFlow(1, 2, 2, 1, 2)

	out, err := resizePrediction("flows", flow, 4, 8)

	if err != nil {
		t.Fatalf("resizePrediction failed: %v", err)
	}

	if out.Height() != 4 || out.Width() != 8 {
		t.Fatalf("expected 4x8 output, got shape %v", out.Shape)
	}

	hw := 4 * 8

	// x components scale by 8/2, y components by 4/2
	for i := 0; i < hw; i++ {

		if out.Data[i] != 4 {
			t.Fatalf("x component %d: expected 4, got %v", i, out.Data[i])
		}

		if out.Data[hw+i] != 4 {
			t.Fatalf("y component %d: expected 4, got %v", i, out.Data[hw+i])
		}
	}
}

func TestResizePredictionNonFlowUnscaled(t *testing.T) {

	// occlusion masks resize without magnitude scaling
	mask := NewTensor(1, 1, 2, 2)
	mask.Fill(0.5)

	out, err := resizePrediction("occs", mask, 4, 4)

	if err != nil {
		t.Fatalf("resizePrediction failed: %v", err)
	}

	for i, v := range out.Data {
		if v != 0.5 {
			t.Fatalf("pixel %d: expected 0.5, got %v", i, v)
		}
	}
}

func TestResizePredictionKeepsRank(t *testing.T) {

	// a rank 5 prediction keeps its layout, only the spatial size changes
	pred := NewTensor(2, 3, 2, 4, 4)

	out, err := resizePrediction("flows", pred, 8, 8)

	if err != nil {
		t.Fatalf("resizePrediction failed: %v", err)
	}

	expected := []int{2, 3, 2, 8, 8}

	for i, s := range expected {
		if out.Dim(i) != s {
			t.Fatalf("expected shape %v, got %v", expected, out.Shape)
		}
	}
}
