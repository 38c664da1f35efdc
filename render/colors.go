package render

import "image/color"

var (
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	Red   = color.RGBA{R: 255, G: 56, B: 56, A: 255}
	Green = color.RGBA{R: 72, G: 249, B: 10, A: 255}
	Blue  = color.RGBA{R: 0, G: 24, B: 236, A: 255}
)

// colorWheel is the Middlebury flow color wheel, a circular palette of
// smoothly blended hues used to map flow direction to color
var colorWheel [][3]float64

// segment sizes of the color wheel transitions
const (
	wheelRY = 15
	wheelYG = 6
	wheelGC = 4
	wheelCB = 11
	wheelBM = 13
	wheelMR = 6
)

func init() {

	ncols := wheelRY + wheelYG + wheelGC + wheelCB + wheelBM + wheelMR
	colorWheel = make([][3]float64, ncols)

	col := 0

	// RY
	for i := 0; i < wheelRY; i++ {
		colorWheel[col] = [3]float64{255, 255 * float64(i) / wheelRY, 0}
		col++
	}

	// YG
	for i := 0; i < wheelYG; i++ {
		colorWheel[col] = [3]float64{255 - 255*float64(i)/wheelYG, 255, 0}
		col++
	}

	// GC
	for i := 0; i < wheelGC; i++ {
		colorWheel[col] = [3]float64{0, 255, 255 * float64(i) / wheelGC}
		col++
	}

	// CB
	for i := 0; i < wheelCB; i++ {
		colorWheel[col] = [3]float64{0, 255 - 255*float64(i)/wheelCB, 255}
		col++
	}

	// BM
	for i := 0; i < wheelBM; i++ {
		colorWheel[col] = [3]float64{255 * float64(i) / wheelBM, 0, 255}
		col++
	}

	// MR
	for i := 0; i < wheelMR; i++ {
		colorWheel[col] = [3]float64{255, 0, 255 - 255*float64(i)/wheelMR}
		col++
	}
}
