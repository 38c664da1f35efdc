package flowmetrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// waucBuckets is the number of error threshold buckets, with thresholds
// delta_i = i/20 px and linearly decaying weights w_i = 1 - (i-1)/100.
// Fine thresholds carry more weight than coarse ones
const waucBuckets = 100

// waucInvalidSentinel pushes invalid pixels above every threshold
const waucInvalidSentinel = 100.0

var waucWeights []float64

func init() {
	waucWeights = make([]float64, waucBuckets)

	for i := 1; i <= waucBuckets; i++ {
		waucWeights[i-1] = 1 - float64(i-1)/100.0
	}
}

// computeTotalWAUC reduces a per pixel endpoint error field to the weighted
// area under curve score: per sample, the weighted count of pixels under
// each threshold normalized by the valid pixel count, scaled to 0-100.
// The batch reduces by sum in epoch_mean mode and by mean in ema mode
func (m *FlowMetrics) computeTotalWAUC(epe, valid [][]float64) float64 {

	sumWi := floats.Sum(waucWeights)
	total := 0.0

	for b := range epe {

		n := floats.Sum(valid[b])

		// bucket pixels by the first threshold their error clears, a
		// prefix sum then yields the per threshold counts
		counts := make([]float64, waucBuckets+1)

		for i, e := range epe[b] {

			if valid[b][i] < 0.5 {
				e = waucInvalidSentinel
			}

			if e > float64(waucBuckets)/20.0 {
				continue
			}

			idx := int(math.Ceil(e * 20.0))
			if idx < 1 {
				idx = 1
			}

			counts[idx]++
		}

		wauc := 0.0
		cum := 0.0

		for i := 1; i <= waucBuckets; i++ {
			cum += counts[i]
			wauc += waucWeights[i-1] * cum
		}

		total += 100.0 * wauc / (n*sumWi + 1e-8)
	}

	if m.Params.AverageMode == AverageEMA && len(epe) > 0 {
		total /= float64(len(epe))
	}

	return total
}
