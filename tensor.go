package flowmetrics

import (
	"fmt"
)

// Tensor is a dense float32 tensor in row-major order.  Batched image-like
// data uses NCHW layout (batch, channel, height, width), matching the
// output buffers produced by model inference runtimes
type Tensor struct {
	// Data is the flat row-major buffer
	Data []float32
	// Shape are the tensor dimensions, outermost first
	Shape []int
}

// NewTensor creates a zero filled tensor of the given shape
func NewTensor(shape ...int) *Tensor {

	size := 1

	for _, s := range shape {
		size *= s
	}

	return &Tensor{
		Data:  make([]float32, size),
		Shape: append([]int(nil), shape...),
	}
}

// TensorFromData wraps an existing float32 buffer as a tensor of the given
// shape.  The buffer is not copied
func TensorFromData(data []float32, shape ...int) (*Tensor, error) {

	size := 1

	for _, s := range shape {
		size *= s
	}

	if len(data) != size {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, size)
	}

	return &Tensor{
		Data:  data,
		Shape: append([]int(nil), shape...),
	}, nil
}

// Clone returns a deep copy of the tensor
func (t *Tensor) Clone() *Tensor {

	c := &Tensor{
		Data:  make([]float32, len(t.Data)),
		Shape: append([]int(nil), t.Shape...),
	}

	copy(c.Data, t.Data)
	return c
}

// Rank returns the number of tensor dimensions
func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// Dim returns the size of dimension i
func (t *Tensor) Dim(i int) int {
	return t.Shape[i]
}

// Numel returns the total number of elements
func (t *Tensor) Numel() int {
	return len(t.Data)
}

// Height returns the second to last dimension size
func (t *Tensor) Height() int {
	return t.Shape[len(t.Shape)-2]
}

// Width returns the last dimension size
func (t *Tensor) Width() int {
	return t.Shape[len(t.Shape)-1]
}

// Fill sets every element to the given value
func (t *Tensor) Fill(v float32) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// reshape replaces the tensor shape in place.  The element count must be
// unchanged
func (t *Tensor) reshape(shape ...int) *Tensor {

	size := 1

	for _, s := range shape {
		size *= s
	}

	if size != len(t.Data) {
		// reshape is internal, a mismatch is a programming error
		panic(fmt.Sprintf("cannot reshape %v to %v", t.Shape, shape))
	}

	return &Tensor{
		Data:  t.Data,
		Shape: append([]int(nil), shape...),
	}
}

// Ones returns a tensor of the given shape filled with 1
func Ones(shape ...int) *Tensor {
	t := NewTensor(shape...)
	t.Fill(1)
	return t
}
