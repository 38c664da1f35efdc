package flowmetrics

import "fmt"

// Batch concatenates per sample (C, H, W) tensors into a single batched
// (N, C, H, W) tensor for feeding the accumulator one batch at a time
type Batch struct {
	tensor *Tensor
	// size of the batch
	size int
	// width is the sample tensor width
	width int
	// height is the sample tensor height
	height int
	// channels is the sample tensor number of channels
	channels int
	// cnt is a counter for how many samples have been added with Add()
	cnt int
	// sampleSize stores a samples size made up from its elements
	sampleSize int
}

// NewBatch creates a batch of concatenated sample tensors for the given
// sample shape and batch size
func NewBatch(batchSize, channels, height, width int) *Batch {

	return &Batch{
		size:       batchSize,
		height:     height,
		width:      width,
		channels:   channels,
		tensor:     NewTensor(batchSize, channels, height, width),
		cnt:        0,
		sampleSize: channels * height * width,
	}
}

// Add a sample tensor to the batch
func (b *Batch) Add(sample *Tensor) error {

	// check if batch is full
	if b.cnt >= b.size {
		return fmt.Errorf("batch full")
	}

	res := b.addAt(b.cnt, sample)

	if res != nil {
		return res
	}

	// increment sample counter
	b.cnt++
	return nil
}

// AddAt adds a sample tensor to the batch at the specific index location
func (b *Batch) AddAt(idx int, sample *Tensor) error {

	if idx < 0 || idx >= b.size {
		return fmt.Errorf("index %d out of range [0-%d)", idx, b.size)
	}

	return b.addAt(idx, sample)
}

// addAt adds a sample tensor to the specified index location
func (b *Batch) addAt(idx int, sample *Tensor) error {

	// validate sample dimensions
	if sample.Rank() != 3 || sample.Dim(0) != b.channels ||
		sample.Dim(1) != b.height || sample.Dim(2) != b.width {
		return fmt.Errorf("sample shape %v does not match batch shape (%d, %d, %d)",
			sample.Shape, b.channels, b.height, b.width)
	}

	offset := idx * b.sampleSize
	copy(b.tensor.Data[offset:], sample.Data)

	return nil
}

// Tensor returns the concatenated batch tensor
func (b *Batch) Tensor() *Tensor {
	return b.tensor
}

// Clear the batch so it can be reused again
func (b *Batch) Clear() {
	// just reset the counter, the underlying tensor will be overwritten
	// when Add() is called with new samples
	b.cnt = 0
}
