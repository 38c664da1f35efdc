package flowmetrics

import "fmt"

// f1Eps is the machine epsilon of the float32 tensor data, used to guard
// divisions when a class has no pixels
const f1Eps = 1.1920929e-07

// f1Score computes a per sample F1 score between a predicted and target
// probability mask according to the configured aggregation mode.  Channels
// are averaged into the per sample value
func (m *FlowMetrics) f1Score(pred, target *Tensor) ([]float64, error) {

	f1Pos, err := singleF1Score(pred, target, false)

	if err != nil {
		return nil, err
	}

	if m.Params.F1Mode == F1Binary {
		return channelMean(f1Pos), nil
	}

	// negative class score from inverting both prediction and target
	f1Neg, err := singleF1Score(pred, target, true)

	if err != nil {
		return nil, err
	}

	if m.Params.F1Mode == F1Macro {

		out := make([][]float64, len(f1Pos))

		for b := range f1Pos {
			out[b] = make([]float64, len(f1Pos[b]))

			for c := range f1Pos[b] {
				out[b][c] = (f1Pos[b][c] + f1Neg[b][c]) / 2.0
			}
		}

		return channelMean(out), nil
	}

	// weighted mode: classes weighted by their share of target pixels
	batch := target.Dim(0)
	channels := target.Dim(1)
	hw := target.Height() * target.Width()

	out := make([][]float64, batch)

	for b := 0; b < batch; b++ {

		out[b] = make([]float64, channels)

		for c := 0; c < channels; c++ {

			plane := target.Data[(b*channels+c)*hw : (b*channels+c)*hw+hw]
			nPos := 0

			for _, v := range plane {
				if v > 0.5 {
					nPos++
				}
			}

			wPos := float64(nPos) / float64(hw)
			wNeg := float64(hw-nPos) / float64(hw)

			out[b][c] = wPos*f1Pos[b][c] + wNeg*f1Neg[b][c]
		}
	}

	return channelMean(out), nil
}

// singleF1Score computes the positive class F1 per sample and channel over
// the flattened spatial dims.  invert flips both prediction and target to
// score the negative class
func singleF1Score(pred, target *Tensor, invert bool) ([][]float64, error) {

	if pred.Rank() != 4 || target.Rank() != 4 {
		return nil, fmt.Errorf("f1 expects rank 4 tensors, got %v and %v",
			pred.Shape, target.Shape)
	}

	batch := pred.Dim(0)
	channels := pred.Dim(1)
	hw := pred.Height() * pred.Width()

	if target.Dim(0) != batch || target.Dim(1) != channels ||
		target.Height()*target.Width() != hw {
		return nil, fmt.Errorf("f1 shape mismatch: pred %v, target %v",
			pred.Shape, target.Shape)
	}

	out := make([][]float64, batch)

	for b := 0; b < batch; b++ {

		out[b] = make([]float64, channels)

		for c := 0; c < channels; c++ {

			predPlane := pred.Data[(b*channels+c)*hw : (b*channels+c)*hw+hw]
			targetPlane := target.Data[(b*channels+c)*hw : (b*channels+c)*hw+hw]

			tp, fp, fn := 0.0, 0.0, 0.0

			for i := 0; i < hw; i++ {

				p := predPlane[i] > 0.5
				t := targetPlane[i] > 0.5

				if invert {
					p = !p
					t = !t
				}

				// fp and fn are swapped relative to the textbook labels,
				// precision and recall swap with them so the resulting F1
				// is identical
				switch {
				case p && t:
					tp++
				case !p && t:
					fp++
				case p && !t:
					fn++
				}
			}

			precision := tp / (tp + fp + f1Eps)
			recall := tp / (tp + fn + f1Eps)

			out[b][c] = 2 * precision * recall / (precision + recall + f1Eps)
		}
	}

	return out, nil
}

// channelMean collapses per sample per channel scores into per sample
// scores
func channelMean(scores [][]float64) []float64 {

	out := make([]float64, len(scores))

	for b := range scores {

		sum := 0.0

		for _, v := range scores[b] {
			sum += v
		}

		if len(scores[b]) > 0 {
			out[b] = sum / float64(len(scores[b]))
		}
	}

	return out
}
