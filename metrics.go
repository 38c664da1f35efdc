package flowmetrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// AverageMode selects how running statistics are averaged over time
type AverageMode string

const (
	// AverageEpochMean accumulates batch sums and divides by the total
	// sample count.  Running values stay plain sums so replicas can be
	// combined by summation before the final division
	AverageEpochMean AverageMode = "epoch_mean"
	// AverageEMA keeps an exponential moving average favouring recent
	// batches
	AverageEMA AverageMode = "ema"
)

// F1Mode selects how the F1 score of the mask estimations is aggregated
type F1Mode string

const (
	// F1Binary scores the positive class only
	F1Binary F1Mode = "binary"
	// F1Macro averages the positive and negative class scores equally
	F1Macro F1Mode = "macro"
	// F1Weighted averages the class scores weighted by their pixel counts
	F1Weighted F1Mode = "weighted"
)

// StatKey identifies a tracked statistic
type StatKey string

const (
	StatEPE       StatKey = "epe"
	StatEPEOcc    StatKey = "epe_occ"
	StatEPENonOcc StatKey = "epe_non_occ"

	StatPx1       StatKey = "px1"
	StatPx1Occ    StatKey = "px1_occ"
	StatPx1NonOcc StatKey = "px1_non_occ"

	StatPx3       StatKey = "px3"
	StatPx3Occ    StatKey = "px3_occ"
	StatPx3NonOcc StatKey = "px3_non_occ"

	StatPx5       StatKey = "px5"
	StatPx5Occ    StatKey = "px5_occ"
	StatPx5NonOcc StatKey = "px5_non_occ"

	StatFlAll       StatKey = "flall"
	StatFlAllOcc    StatKey = "flall_occ"
	StatFlAllNonOcc StatKey = "flall_non_occ"

	StatWAUC       StatKey = "wauc"
	StatWAUCOcc    StatKey = "wauc_occ"
	StatWAUCNonOcc StatKey = "wauc_non_occ"

	StatOccF1  StatKey = "occ_f1"
	StatMbF1   StatKey = "mb_f1"
	StatConfF1 StatKey = "conf_f1"
)

// statKeyOrder is the stable reporting order of all tracked statistics
var statKeyOrder = []StatKey{
	StatEPE, StatEPEOcc, StatEPENonOcc,
	StatPx1, StatPx1Occ, StatPx1NonOcc,
	StatPx3, StatPx3Occ, StatPx3NonOcc,
	StatPx5, StatPx5Occ, StatPx5NonOcc,
	StatFlAll, StatFlAllOcc, StatFlAllNonOcc,
	StatWAUC, StatWAUCOcc, StatWAUCNonOcc,
	StatOccF1, StatMbF1, StatConfF1,
}

// Prediction and target map keys recognised by Update
const (
	KeyFlows  = "flows"
	KeyValids = "valids"
	KeyOccs   = "occs"
	KeyMbs    = "mbs"
	KeyConfs  = "confs"
)

// FlowMetricsParams defines the accumulator configuration
type FlowMetricsParams struct {
	// AverageMode is how the final metric is averaged over update steps
	AverageMode AverageMode
	// EMADecay is the decay applied when AverageMode is AverageEMA
	EMADecay float64
	// F1Mode is how F1 scores of the mask estimations are aggregated
	F1Mode F1Mode
	// Prefix is attached to every metric name in the computed results
	Prefix string
	// InterpolatePredToTargetSize bilinearly resizes predictions to the
	// groundtruth spatial size before scoring, rescaling flow vector
	// magnitudes with the resize ratio
	InterpolatePredToTargetSize bool
}

// DefaultFlowMetricsParams returns the accumulator configuration with
// defaults of:
//   - Average Mode: epoch_mean
//   - EMA Decay: 0.99
//   - F1 Mode: macro
func DefaultFlowMetricsParams() FlowMetricsParams {
	return FlowMetricsParams{
		AverageMode: AverageEpochMean,
		EMADecay:    0.99,
		F1Mode:      F1Macro,
	}
}

// FlowMetrics is a stateful accumulator for optical flow accuracy
// statistics.  It is fed one batch at a time through Update and produces
// averaged metrics through Compute.  A single instance is not safe for
// concurrent use, replicate it across workers and combine with Merge
type FlowMetrics struct {
	// Params are the accumulator configuration parameters
	Params FlowMetricsParams

	// emaMaxCount is the step count beyond which the EMA bias correction
	// is treated as negligible
	emaMaxCount int

	// sums holds one running value per tracked statistic
	sums map[StatKey]float64
	// active is the monotonically growing set of statistics touched by at
	// least one update
	active map[StatKey]bool

	// sampleCount is the total number of samples consumed
	sampleCount float64
	// stepCount is the total number of Update calls
	stepCount float64
}

// NewFlowMetrics returns an accumulator for the given configuration.  The
// average mode must be one of the recognised values
func NewFlowMetrics(p FlowMetricsParams) (*FlowMetrics, error) {

	if p.AverageMode != AverageEpochMean && p.AverageMode != AverageEMA {
		return nil, fmt.Errorf("unknown average mode %q", p.AverageMode)
	}

	m := &FlowMetrics{
		Params:      p,
		emaMaxCount: 100,
		sums:        make(map[StatKey]float64, len(statKeyOrder)),
		active:      make(map[StatKey]bool, len(statKeyOrder)),
	}

	if p.EMADecay < 1 {
		if c := int(1.0 / (1.0 - p.EMADecay)); c < m.emaMaxCount {
			m.emaMaxCount = c
		}
	}

	return m, nil
}

// pendingStat is one statistic value computed from the current batch,
// staged so all running state mutates together at the end of Update
type pendingStat struct {
	key StatKey
	val float64
}

// Update consumes one batch of predictions and groundtruth and folds its
// statistics into the running state.  preds requires the "flows" key and
// may carry "occs", "mbs" and "confs".  targets requires "flows" and may
// carry "valids", "occs" and "mbs"
func (m *FlowMetrics) Update(preds, targets map[string]*Tensor) error {

	targetFlow := targets[KeyFlows]

	if targetFlow == nil {
		return fmt.Errorf("targets missing required %q key", KeyFlows)
	}

	if preds[KeyFlows] == nil {
		return fmt.Errorf("predictions missing required %q key", KeyFlows)
	}

	prevWeight, nextWeight := 1.0, 1.0

	if m.Params.AverageMode == AverageEMA {
		prevWeight = m.Params.EMADecay
		nextWeight = 1.0 - m.Params.EMADecay
	}

	metricPreds := preds

	if m.Params.InterpolatePredToTargetSize {

		dstH := targetFlow.Height()
		dstW := targetFlow.Width()

		metricPreds = make(map[string]*Tensor, len(preds))

		for k, v := range preds {

			if v == nil {
				continue
			}

			r, err := resizePrediction(k, v, dstH, dstW)

			if err != nil {
				return fmt.Errorf("resizing prediction %q: %w", k, err)
			}

			metricPreds[k] = r
		}
	}

	batchSize := BatchSize(targetFlow)

	flowPred, err := FixShape(metricPreds[KeyFlows], batchSize)

	if err != nil {
		return fmt.Errorf("prediction flow: %w", err)
	}

	flowTarget, err := FixShape(targetFlow, batchSize)

	if err != nil {
		return fmt.Errorf("target flow: %w", err)
	}

	batch := flowPred.Dim(0)
	height := flowTarget.Height()
	width := flowTarget.Width()

	if flowPred.Height() != height || flowPred.Width() != width {
		return fmt.Errorf("prediction size %dx%d does not match target %dx%d",
			flowPred.Width(), flowPred.Height(), width, height)
	}

	if flowTarget.Dim(0) != batch {
		return fmt.Errorf("prediction batch %d does not match target batch %d",
			batch, flowTarget.Dim(0))
	}

	// validity mask defaults to all valid, only its first channel is used
	var valid [][]float64

	if vt := targets[KeyValids]; vt != nil {

		valid4, err := FixShape(vt, batchSize)

		if err != nil {
			return fmt.Errorf("validity mask: %w", err)
		}

		valid, err = channelPlanes(valid4, 0, batch, height, width)

		if err != nil {
			return fmt.Errorf("validity mask: %w", err)
		}

	} else {
		valid = make([][]float64, batch)

		for b := range valid {
			valid[b] = make([]float64, height*width)

			for i := range valid[b] {
				valid[b][i] = 1
			}
		}
	}

	var occTarget *Tensor

	if ot := targets[KeyOccs]; ot != nil {

		occTarget, err = FixShape(ot, batchSize)

		if err != nil {
			return fmt.Errorf("occlusion target: %w", err)
		}
	}

	epe, targetNorm := endpointError(flowPred, flowTarget)

	hw := height * width
	px1Mask := make([][]float64, batch)
	px3Mask := make([][]float64, batch)
	px5Mask := make([][]float64, batch)
	flallMask := make([][]float64, batch)

	for b := 0; b < batch; b++ {

		px1Mask[b] = make([]float64, hw)
		px3Mask[b] = make([]float64, hw)
		px5Mask[b] = make([]float64, hw)
		flallMask[b] = make([]float64, hw)

		for i, e := range epe[b] {

			if e < 1 {
				px1Mask[b][i] = 1
			}

			if e < 3 {
				px3Mask[b][i] = 1
			}

			if e < 5 {
				px5Mask[b][i] = 1
			}

			// bad pixel: error above 3px and above 5% of the groundtruth
			// flow magnitude, scaled to a percentage
			if e > 3 && e > 0.05*targetNorm[b][i] {
				flallMask[b][i] = 100
			}
		}
	}

	var updates []pendingStat

	add := func(k StatKey, v float64) {
		updates = append(updates, pendingStat{key: k, val: v})
	}

	add(StatEPE, m.computeTotal(epe, valid))
	add(StatPx1, m.computeTotal(px1Mask, valid))
	add(StatPx3, m.computeTotal(px3Mask, valid))
	add(StatPx5, m.computeTotal(px5Mask, valid))
	add(StatFlAll, m.computeTotal(flallMask, valid))
	add(StatWAUC, m.computeTotalWAUC(epe, valid))

	if occTarget != nil {

		occ, err := channelPlanes(occTarget, 0, batch, height, width)

		if err != nil {
			return fmt.Errorf("occlusion target: %w", err)
		}

		// soft split of the validity mask, the raw occlusion value scales
		// the mask rather than a thresholded version of it
		validOcc := make([][]float64, batch)
		validNonOcc := make([][]float64, batch)

		for b := 0; b < batch; b++ {

			validOcc[b] = make([]float64, hw)
			validNonOcc[b] = make([]float64, hw)

			for i := range valid[b] {
				validOcc[b][i] = occ[b][i] * valid[b][i]
				validNonOcc[b][i] = (1 - occ[b][i]) * valid[b][i]
			}
		}

		add(StatEPEOcc, m.computeTotal(epe, validOcc))
		add(StatEPENonOcc, m.computeTotal(epe, validNonOcc))
		add(StatPx1Occ, m.computeTotal(px1Mask, validOcc))
		add(StatPx1NonOcc, m.computeTotal(px1Mask, validNonOcc))
		add(StatPx3Occ, m.computeTotal(px3Mask, validOcc))
		add(StatPx3NonOcc, m.computeTotal(px3Mask, validNonOcc))
		add(StatPx5Occ, m.computeTotal(px5Mask, validOcc))
		add(StatPx5NonOcc, m.computeTotal(px5Mask, validNonOcc))
		add(StatFlAllOcc, m.computeTotal(flallMask, validOcc))
		add(StatFlAllNonOcc, m.computeTotal(flallMask, validNonOcc))
		add(StatWAUCOcc, m.computeTotalWAUC(epe, validOcc))
		add(StatWAUCNonOcc, m.computeTotalWAUC(epe, validNonOcc))

		if op := metricPreds[KeyOccs]; op != nil {

			occPred, err := FixShape(op, batchSize)

			if err != nil {
				return fmt.Errorf("occlusion prediction: %w", err)
			}

			occF1, err := m.f1Score(occPred, occTarget)

			if err != nil {
				return fmt.Errorf("occlusion f1: %w", err)
			}

			add(StatOccF1, m.computeTotalScalar(occF1, valid))
		}
	}

	if mp, mt := metricPreds[KeyMbs], targets[KeyMbs]; mp != nil && mt != nil {

		mbPred, err := FixShape(mp, batchSize)

		if err != nil {
			return fmt.Errorf("motion boundary prediction: %w", err)
		}

		mbTarget, err := FixShape(mt, batchSize)

		if err != nil {
			return fmt.Errorf("motion boundary target: %w", err)
		}

		mbF1, err := m.f1Score(mbPred, mbTarget)

		if err != nil {
			return fmt.Errorf("motion boundary f1: %w", err)
		}

		add(StatMbF1, m.computeTotalScalar(mbF1, valid))
	}

	if cp := metricPreds[KeyConfs]; cp != nil {

		confPred, err := FixShape(cp, batchSize)

		if err != nil {
			return fmt.Errorf("confidence prediction: %w", err)
		}

		// the confidence label is inferred from the flow error itself, a
		// Gaussian of the squared endpoint error
		confTarget := NewTensor(batch, 1, height, width)

		for b := 0; b < batch; b++ {
			for i, e := range epe[b] {
				confTarget.Data[b*hw+i] = float32(math.Exp(-e * e))
			}
		}

		confF1, err := m.f1Score(confPred, confTarget)

		if err != nil {
			return fmt.Errorf("confidence f1: %w", err)
		}

		add(StatConfF1, m.computeTotalScalar(confF1, valid))
	}

	// all running state mutates together, never partially
	for _, u := range updates {
		m.sums[u.key] = prevWeight*m.sums[u.key] + nextWeight*u.val
		m.active[u.key] = true
	}

	m.sampleCount += float64(batchSize)
	m.stepCount++

	return nil
}

// endpointError computes the per pixel Euclidean distance between predicted
// and groundtruth flow along with the groundtruth magnitude.  A rank 5
// target carries multiple hypotheses per sample, the error is measured
// against whichever hypothesis is closest and the magnitude is taken from
// that hypothesis
func endpointError(flowPred, flowTarget *Tensor) (epe, targetNorm [][]float64) {

	batch := flowPred.Dim(0)
	channels := flowPred.Dim(1)
	hw := flowPred.Height() * flowPred.Width()

	epe = make([][]float64, batch)
	targetNorm = make([][]float64, batch)

	if flowTarget.Rank() == 5 {

		hyps := flowTarget.Dim(1)

		for b := 0; b < batch; b++ {

			epe[b] = make([]float64, hw)
			targetNorm[b] = make([]float64, hw)

			for i := 0; i < hw; i++ {

				best := math.Inf(1)
				bestNorm := 0.0

				for k := 0; k < hyps; k++ {

					errSq := 0.0
					normSq := 0.0

					for c := 0; c < channels; c++ {
						p := float64(flowPred.Data[(b*channels+c)*hw+i])
						t := float64(flowTarget.Data[((b*hyps+k)*channels+c)*hw+i])
						d := p - t
						errSq += d * d
						normSq += t * t
					}

					if e := math.Sqrt(errSq); e < best {
						best = e
						bestNorm = math.Sqrt(normSq)
					}
				}

				epe[b][i] = best
				targetNorm[b][i] = bestNorm
			}
		}

		return epe, targetNorm
	}

	for b := 0; b < batch; b++ {

		epe[b] = make([]float64, hw)
		targetNorm[b] = make([]float64, hw)

		for i := 0; i < hw; i++ {

			errSq := 0.0
			normSq := 0.0

			for c := 0; c < channels; c++ {
				p := float64(flowPred.Data[(b*channels+c)*hw+i])
				t := float64(flowTarget.Data[(b*channels+c)*hw+i])
				d := p - t
				errSq += d * d
				normSq += t * t
			}

			epe[b][i] = math.Sqrt(errSq)
			targetNorm[b][i] = math.Sqrt(normSq)
		}
	}

	return epe, targetNorm
}

// channelPlanes extracts one channel of a (B, C, H, W) tensor as per sample
// float64 planes
func channelPlanes(t *Tensor, channel, batch, height, width int) ([][]float64, error) {

	if t.Rank() != 4 {
		return nil, fmt.Errorf("expected rank 4 tensor, got shape %v", t.Shape)
	}

	if t.Dim(0) != batch || t.Height() != height || t.Width() != width {
		return nil, fmt.Errorf("tensor shape %v does not match batch %d size %dx%d",
			t.Shape, batch, width, height)
	}

	channels := t.Dim(1)
	hw := height * width
	out := make([][]float64, batch)

	for b := 0; b < batch; b++ {

		out[b] = make([]float64, hw)
		plane := t.Data[(b*channels+channel)*hw:]

		for i := 0; i < hw; i++ {
			out[b][i] = float64(plane[i])
		}
	}

	return out, nil
}

// computeTotal reduces a per pixel statistic to a single batch value: a
// weighted spatial mean per sample with the valid pixel count clamped at a
// minimum of 1, then summed across the batch in epoch_mean mode or averaged
// in ema mode
func (m *FlowMetrics) computeTotal(values, valid [][]float64) float64 {

	total := 0.0

	for b := range values {

		validSum := floats.Sum(valid[b])

		den := validSum
		if den < 1 {
			den = 1
		}

		total += floats.Dot(values[b], valid[b]) / den
	}

	if m.Params.AverageMode == AverageEMA && len(values) > 0 {
		total /= float64(len(values))
	}

	return total
}

// computeTotalScalar reduces a per sample scalar statistic, such as an F1
// score, with the same weighting rule as computeTotal applied to a field
// that is constant over the sample
func (m *FlowMetrics) computeTotalScalar(perSample []float64, valid [][]float64) float64 {

	total := 0.0

	for b, v := range perSample {

		validSum := floats.Sum(valid[b])

		den := validSum
		if den < 1 {
			den = 1
		}

		total += v * validSum / den
	}

	if m.Params.AverageMode == AverageEMA && len(perSample) > 0 {
		total /= float64(len(perSample))
	}

	return total
}

// CalculateMetrics derives the averaged metrics from the running state
// without mutating it.  Only statistics touched by at least one Update are
// reported, and once active a statistic stays reported on later calls
func (m *FlowMetrics) CalculateMetrics() map[string]float64 {

	divider := 1.0

	if m.Params.AverageMode == AverageEpochMean {
		divider = m.sampleCount
	} else if m.stepCount < float64(m.emaMaxCount) {
		divider -= math.Pow(m.Params.EMADecay, m.stepCount)
	}

	metrics := make(map[string]float64, len(m.active))

	for _, k := range statKeyOrder {
		if m.active[k] {
			metrics[m.Params.Prefix+string(k)] = m.sums[k] / divider
		}
	}

	return metrics
}

// Compute is an alias of CalculateMetrics kept for frameworks whose metric
// interface names it compute
func (m *FlowMetrics) Compute() map[string]float64 {
	return m.CalculateMetrics()
}

// Merge folds the running state of another replica into this accumulator
// by summation, the reduction applied across worker processes during
// distributed evaluation.  Both replicas must share the same configuration
func (m *FlowMetrics) Merge(other *FlowMetrics) error {

	if m.Params.AverageMode != other.Params.AverageMode {
		return fmt.Errorf("cannot merge accumulators with average modes %q and %q",
			m.Params.AverageMode, other.Params.AverageMode)
	}

	for _, k := range statKeyOrder {
		if other.active[k] {
			m.sums[k] += other.sums[k]
			m.active[k] = true
		}
	}

	m.sampleCount += other.sampleCount
	m.stepCount += other.stepCount

	return nil
}

// Reset zeroes all running state.  Owned by the evaluation framework
// between epochs, Update and Compute never reset internally
func (m *FlowMetrics) Reset() {

	for k := range m.sums {
		delete(m.sums, k)
	}

	for k := range m.active {
		delete(m.active, k)
	}

	m.sampleCount = 0
	m.stepCount = 0
}
