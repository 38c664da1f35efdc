package flowmetrics

import "testing"

func TestTensorFromFloat16(t *testing.T) {

	// 1.0, -2.0, 0.5, 0.0 as little-endian float16 bits
	raw := []byte{
		0x00, 0x3C,
		0x00, 0xC0,
		0x00, 0x38,
		0x00, 0x00,
	}

	got, err := TensorFromFloat16(raw, 2, 2)

	if err != nil {
		t.Fatalf("TensorFromFloat16 failed: %v", err)
	}

	expected := []float32{1, -2, 0.5, 0}

	if !floatsEqual(got.Data, expected, 0) {
		t.Errorf("expected %v, got %v", expected, got.Data)
	}
}

func TestTensorFromFloat16BadLength(t *testing.T) {

	if _, err := TensorFromFloat16([]byte{0x00, 0x3C}, 2, 2); err == nil {
		t.Error("expected error for short buffer, got nil")
	}

	if _, err := TensorFromFloat16([]byte{0x00}, 1); err == nil {
		t.Error("expected error for odd length buffer, got nil")
	}
}
