package flowmetrics

import "fmt"

// Layout identifies the recognised input tensor layouts.  Tensors handed to
// the accumulator may arrive in any of these and are normalized to
// LayoutNCHW (or LayoutHypothesis for multi-hypothesis groundtruth) before
// any arithmetic
type Layout int

const (
	// LayoutHW is a single unbatched single channel image (H, W)
	LayoutHW Layout = iota
	// LayoutCHW is either a single multi channel image (C, H, W) or a
	// batch of single channel images (N, H, W).  Which one is determined
	// by comparing the leading dimension against the reference batch size
	LayoutCHW
	// LayoutNCHW is the canonical batched channel-first layout
	LayoutNCHW
	// LayoutHypothesis is a 5-D tensor whose two leading dimensions
	// collapse into one batch dimension, e.g. (N, K, C, H, W) groundtruth
	// carrying K hypotheses per sample
	LayoutHypothesis
	// LayoutFrame is a 6-D tensor whose two leading dimensions collapse,
	// leaving a hypothesis dimension in place, e.g. (N, T, K, C, H, W)
	LayoutFrame
)

// LayoutOf classifies a tensor by rank
func LayoutOf(t *Tensor) (Layout, error) {

	switch t.Rank() {
	case 2:
		return LayoutHW, nil
	case 3:
		return LayoutCHW, nil
	case 4:
		return LayoutNCHW, nil
	case 5:
		return LayoutHypothesis, nil
	case 6:
		return LayoutFrame, nil
	}

	return 0, fmt.Errorf("unsupported tensor rank %d (shape %v)", t.Rank(), t.Shape)
}

// BatchSize derives the reference batch size from the groundtruth flow
// tensor shape
func BatchSize(flow *Tensor) int {

	switch {
	case flow.Rank() < 4:
		return 1
	case flow.Rank() == 4:
		return flow.Dim(0)
	case flow.Rank() == 5:
		return flow.Dim(0) * flow.Dim(1)
	default:
		return flow.Dim(0)
	}
}

// FixShape normalizes a tensor to the canonical batched channel-first
// layout.  5-D input collapses its two leading dimensions into one batch
// dimension, 6-D input does the same but retains its hypothesis dimension,
// producing a 5-D result.  The reference batchSize disambiguates whether a
// 3-D tensor is (N, H, W) or (C, H, W)
func FixShape(t *Tensor, batchSize int) (*Tensor, error) {

	layout, err := LayoutOf(t)

	if err != nil {
		return nil, err
	}

	switch layout {
	case LayoutHW:
		return t.reshape(1, 1, t.Dim(0), t.Dim(1)), nil

	case LayoutCHW:
		if t.Dim(0) == batchSize {
			return t.reshape(t.Dim(0), 1, t.Dim(1), t.Dim(2)), nil
		}
		return t.reshape(1, t.Dim(0), t.Dim(1), t.Dim(2)), nil

	case LayoutNCHW:
		return t, nil

	case LayoutHypothesis:
		return t.reshape(t.Dim(0)*t.Dim(1), t.Dim(2), t.Dim(3), t.Dim(4)), nil

	default: // LayoutFrame
		return t.reshape(t.Dim(0)*t.Dim(1), t.Dim(2), t.Dim(3), t.Dim(4), t.Dim(5)), nil
	}
}

// toBCHW flattens all leading dimensions of a tensor into a single batch
// dimension so spatial operations can treat it as (B, C, H, W).  The
// original shape is returned for restoring afterwards
func toBCHW(t *Tensor) (*Tensor, []int, error) {

	orig := append([]int(nil), t.Shape...)

	switch t.Rank() {
	case 2:
		return t.reshape(1, 1, t.Dim(0), t.Dim(1)), orig, nil
	case 3:
		return t.reshape(1, t.Dim(0), t.Dim(1), t.Dim(2)), orig, nil
	case 4:
		return t, orig, nil
	}

	if t.Rank() < 2 {
		return nil, nil, fmt.Errorf("unsupported tensor rank %d (shape %v)", t.Rank(), t.Shape)
	}

	batch := 1

	for _, s := range t.Shape[:t.Rank()-3] {
		batch *= s
	}

	return t.reshape(batch, t.Dim(t.Rank()-3), t.Dim(t.Rank()-2), t.Dim(t.Rank()-1)),
		orig, nil
}
