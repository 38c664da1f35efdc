package render

import (
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
	}
}

// MetricLabel renders a metric value as a text label in the top left corner
// of the image, drawn over a solid background box so it stays readable on
// top of the flow coloring
func MetricLabel(img *gocv.Mat, text string, font Font, background color.RGBA) {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	box := image.Rect(0, 0,
		textSize.X+font.LeftPad+font.RightPad,
		textSize.Y+font.TopPad+font.BottomPad)

	gocv.Rectangle(img, box, background, -1)

	textPos := image.Pt(font.LeftPad, textSize.Y+font.TopPad)

	gocv.PutTextWithParams(img, text, textPos,
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)
}
