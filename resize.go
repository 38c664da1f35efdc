package flowmetrics

import "strings"

// interpolateBilinear resizes a (B, C, H, W) tensor to the given spatial
// size using bilinear sampling with aligned corners, matching the
// interpolation the flow models themselves use when rescaling predictions
func interpolateBilinear(t *Tensor, dstH, dstW int) *Tensor {

	batch := t.Dim(0)
	channels := t.Dim(1)
	srcH := t.Dim(2)
	srcW := t.Dim(3)

	if srcH == dstH && srcW == dstW {
		return t
	}

	out := NewTensor(batch, channels, dstH, dstW)

	// aligned corners: the first and last source pixels map exactly onto
	// the first and last destination pixels
	scaleY := float32(0)
	if dstH > 1 {
		scaleY = float32(srcH-1) / float32(dstH-1)
	}

	scaleX := float32(0)
	if dstW > 1 {
		scaleX = float32(srcW-1) / float32(dstW-1)
	}

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {

			src := t.Data[(b*channels+c)*srcH*srcW:]
			dst := out.Data[(b*channels+c)*dstH*dstW:]

			for y := 0; y < dstH; y++ {

				sy := float32(y) * scaleY
				y0 := int(sy)
				y1 := y0

				if y0 < srcH-1 {
					y1 = y0 + 1
				}

				fy := sy - float32(y0)

				for x := 0; x < dstW; x++ {

					sx := float32(x) * scaleX
					x0 := int(sx)
					x1 := x0

					if x0 < srcW-1 {
						x1 = x0 + 1
					}

					fx := sx - float32(x0)

					top := src[y0*srcW+x0]*(1-fx) + src[y0*srcW+x1]*fx
					bottom := src[y1*srcW+x0]*(1-fx) + src[y1*srcW+x1]*fx

					dst[y*dstW+x] = top*(1-fy) + bottom*fy
				}
			}
		}
	}

	return out
}

// resizePrediction interpolates a prediction tensor of any recognised
// layout to the target spatial size.  When the prediction key names a flow
// field the x and y vector components are rescaled by the resize ratio
// along each axis, since flow vectors are displacements in pixel units
func resizePrediction(key string, t *Tensor, dstH, dstW int) (*Tensor, error) {

	bchw, origShape, err := toBCHW(t)

	if err != nil {
		return nil, err
	}

	srcH := bchw.Dim(2)
	srcW := bchw.Dim(3)

	if srcH == dstH && srcW == dstW {
		return t, nil
	}

	resized := interpolateBilinear(bchw, dstH, dstW)

	if strings.Contains(key, "flow") && resized.Dim(1) >= 2 {

		scaleX := float32(dstW) / float32(srcW)
		scaleY := float32(dstH) / float32(srcH)

		batch := resized.Dim(0)
		channels := resized.Dim(1)
		plane := dstH * dstW

		for b := 0; b < batch; b++ {
			xPlane := resized.Data[(b*channels+0)*plane : (b*channels+0)*plane+plane]
			yPlane := resized.Data[(b*channels+1)*plane : (b*channels+1)*plane+plane]

			for i := range xPlane {
				xPlane[i] *= scaleX
			}

			for i := range yPlane {
				yPlane[i] *= scaleY
			}
		}
	}

	// restore the original rank with the new spatial size
	newShape := append([]int(nil), origShape...)
	newShape[len(newShape)-2] = dstH
	newShape[len(newShape)-1] = dstW

	return resized.reshape(newShape...), nil
}
