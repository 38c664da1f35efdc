package render

import (
	"fmt"
	"image/color"
	"math"

	flowmetrics "github.com/optflow/go-flowmetrics"
	"gocv.io/x/gocv"
)

// GrayscaleMap is used to not apply coloring to the output error map, but
// to leave it as grayscale
const GrayscaleMap = gocv.ColormapTypes(9999)

// EPEHeatMap renders the per pixel endpoint error between a predicted and
// groundtruth (2, H, W) flow tensor as a colored heat map
func EPEHeatMap(pred, target *flowmetrics.Tensor, colormap gocv.ColormapTypes,
	dest *gocv.Mat) error {

	if pred.Rank() != 3 || pred.Dim(0) != 2 {
		return fmt.Errorf("expected (2, H, W) flow tensor, got shape %v", pred.Shape)
	}

	if len(pred.Data) != len(target.Data) || pred.Height() != target.Height() ||
		pred.Width() != target.Width() {
		return fmt.Errorf("prediction shape %v does not match target %v",
			pred.Shape, target.Shape)
	}

	h := pred.Height()
	w := pred.Width()
	hw := h * w

	epe := make([]float32, hw)

	for i := 0; i < hw; i++ {
		du := float64(pred.Data[i] - target.Data[i])
		dv := float64(pred.Data[hw+i] - target.Data[hw+i])
		epe[i] = float32(math.Sqrt(du*du + dv*dv))
	}

	u8 := errorToU8(epe, h, w)

	u8Mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, u8)

	if err != nil {
		return fmt.Errorf("error creating error map mat: %w", err)
	}

	defer u8Mat.Close()

	if colormap == GrayscaleMap {
		// no coloring
		u8Mat.CopyTo(dest)

	} else {
		// apply colormap
		gocv.ApplyColorMap(u8Mat, dest, colormap)
	}

	return nil
}

// errorToU8 converts a float32 error map into an 8-bit visualization image
// by normalizing the error values to [0,255] using the min/max over the
// whole map.
//
// Output layout is row-major grayscale: out[y*w + x]
func errorToU8(errMap []float32, h, w int) []byte {

	total := h * w
	out := make([]byte, total)

	// find min/max error ignoring NaN/Inf values
	minV := float32(math.Inf(1))
	maxV := float32(math.Inf(-1))

	for _, v := range errMap {

		if !isFinite32(v) {
			continue
		}

		if v < minV {
			minV = v
		}

		if v > maxV {
			maxV = v
		}
	}

	// guard against all-invalid maps or a constant map (max==min)
	den := maxV - minV
	if !isFinite32(minV) || !isFinite32(maxV) || den <= 0 {
		return out
	}

	for i, v := range errMap {

		if !isFinite32(v) {
			continue
		}

		norm := (v - minV) / den

		if norm < 0 {
			norm = 0
		} else if norm > 1 {
			norm = 1
		}

		out[i] = byte(255 * norm)
	}

	return out
}

// MaskOverlay blends a solid color over the pixels where the given (H, W)
// probability mask exceeds 0.5, used to visualize occlusion and validity
// masks on top of a rendered flow field
func MaskOverlay(img *gocv.Mat, mask *flowmetrics.Tensor, clr color.RGBA, alpha float32) error {

	width := img.Cols()
	height := img.Rows()

	if mask.Rank() != 2 || mask.Dim(0) != height || mask.Dim(1) != width {
		return fmt.Errorf("mask shape %v does not match image %dx%d",
			mask.Shape, width, height)
	}

	// manipulating pixels one at a time through gocv is too slow over CGO,
	// so work on a byte copy and write it back in one go
	imgData := img.ToBytes()

	for j := 0; j < height; j++ {
		for k := 0; k < width; k++ {

			idx := j*width + k

			if mask.Data[idx] <= 0.5 {
				continue
			}

			pixelPos := j*width*3 + k*3

			b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

			imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(clr.B)*alpha)
			imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(clr.G)*alpha)
			imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(clr.R)*alpha)
		}
	}

	tmpImg, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)

	if err != nil {
		return fmt.Errorf("error creating overlay mat: %w", err)
	}

	defer tmpImg.Close()
	tmpImg.CopyTo(img)

	return nil
}

func isFinite32(f float32) bool {
	f64 := float64(f)
	return !math.IsNaN(f64) && !math.IsInf(f64, 0)
}
