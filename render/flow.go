package render

import (
	"fmt"
	"math"

	flowmetrics "github.com/optflow/go-flowmetrics"
	"gocv.io/x/gocv"
)

// FlowToColor renders a (2, H, W) flow tensor as a color image using the
// Middlebury color wheel, hue encodes flow direction and saturation encodes
// magnitude.  maxFlow sets the magnitude that saturates the color, pass 0
// to normalize by the largest magnitude in the field
func FlowToColor(flow *flowmetrics.Tensor, maxFlow float64) (gocv.Mat, error) {

	if flow.Rank() != 3 || flow.Dim(0) != 2 {
		return gocv.Mat{}, fmt.Errorf("expected (2, H, W) flow tensor, got shape %v",
			flow.Shape)
	}

	h := flow.Height()
	w := flow.Width()
	hw := h * w

	if maxFlow <= 0 {
		for i := 0; i < hw; i++ {
			u := float64(flow.Data[i])
			v := float64(flow.Data[hw+i])

			if rad := math.Sqrt(u*u + v*v); rad > maxFlow {
				maxFlow = rad
			}
		}
	}

	// guard constant zero flow fields
	if maxFlow <= 0 {
		maxFlow = 1
	}

	ncols := len(colorWheel)

	// gocv Mats are BGR byte order
	buf := make([]byte, hw*3)

	for i := 0; i < hw; i++ {

		u := float64(flow.Data[i]) / maxFlow
		v := float64(flow.Data[hw+i]) / maxFlow

		rad := math.Sqrt(u*u + v*v)
		angle := math.Atan2(-v, -u) / math.Pi

		fk := (angle + 1) / 2 * float64(ncols-1)
		k0 := int(fk) % ncols
		k1 := (k0 + 1) % ncols
		f := fk - float64(k0)

		for c := 0; c < 3; c++ {

			col := ((1-f)*colorWheel[k0][c] + f*colorWheel[k1][c]) / 255.0

			if rad <= 1 {
				// saturate towards white as magnitude drops
				col = 1 - rad*(1-col)
			} else {
				// out of range magnitudes are dimmed
				col *= 0.75
			}

			// channel order RGB -> BGR
			buf[i*3+(2-c)] = byte(255 * col)
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, buf)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error creating flow color mat: %w", err)
	}

	return mat, nil
}
