package flowmetrics

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestFloRoundTrip(t *testing.T) {

	flow := NewTensor(2, 3, 4)

	for i := range flow.Data {
		flow.Data[i] = float32(i)*0.25 - 1
	}

	file := filepath.Join(t.TempDir(), "flow.flo")

	if err := WriteFlo(file, flow); err != nil {
		t.Fatalf("WriteFlo failed: %v", err)
	}

	got, err := ReadFlo(file)

	if err != nil {
		t.Fatalf("ReadFlo failed: %v", err)
	}

	if got.Height() != 3 || got.Width() != 4 {
		t.Fatalf("expected 3x4 flow, got shape %v", got.Shape)
	}

	if !floatsEqual(got.Data, flow.Data, 0) {
		t.Errorf("flow data changed in round trip: %v vs %v", got.Data, flow.Data)
	}
}

func TestDecodeFloBadMagic(t *testing.T) {

	data := make([]byte, 12)

	if _, err := DecodeFlo(bytes.NewReader(data)); err == nil {
		t.Error("expected error for bad magic, got nil")
	}
}

func TestWriteFloBadShape(t *testing.T) {

	file := filepath.Join(t.TempDir(), "flow.flo")

	if err := WriteFlo(file, NewTensor(3, 4, 4)); err == nil {
		t.Error("expected error for non flow tensor shape, got nil")
	}
}

func TestKITTIRoundTrip(t *testing.T) {

	flow := NewTensor(2, 3, 4)

	for i := range flow.Data {
		flow.Data[i] = float32(i)*0.5 - 2
	}

	valid := NewTensor(3, 4)

	for i := range valid.Data {
		if i%2 == 0 {
			valid.Data[i] = 1
		}
	}

	file := filepath.Join(t.TempDir(), "flow.png")

	if err := WriteFlowKITTI(file, flow, valid); err != nil {
		t.Fatalf("WriteFlowKITTI failed: %v", err)
	}

	gotFlow, gotValid, err := ReadFlowKITTI(file)

	if err != nil {
		t.Fatalf("ReadFlowKITTI failed: %v", err)
	}

	// KITTI quantizes flow to 1/64 px
	if !floatsEqual(gotFlow.Data, flow.Data, 1.0/64.0) {
		t.Errorf("flow data changed in round trip: %v vs %v", gotFlow.Data, flow.Data)
	}

	if !floatsEqual(gotValid.Data, valid.Data, 0) {
		t.Errorf("validity mask changed in round trip: %v vs %v",
			gotValid.Data, valid.Data)
	}
}
