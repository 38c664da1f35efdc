/*
Example code showing how to evaluate a predicted optical flow field against
groundtruth and render the flow coloring and endpoint error heat map.
*/
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"sort"

	flowmetrics "github.com/optflow/go-flowmetrics"
	"github.com/optflow/go-flowmetrics/render"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// Size of TTF font used for the heading label
	TTFFontSize = 20
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	predFile := flag.String("p", "../data/frame_0001-pred.flo", "Predicted flow .flo file")
	gtFile := flag.String("g", "../data/frame_0001-gt.flo", "Groundtruth flow .flo file")
	flowOut := flag.String("o", "../data/frame_0001-flow.jpg", "Output JPG file of flow visualization")
	epeOut := flag.String("e", "../data/frame_0001-epe.jpg", "Output JPG file of endpoint error heat map")
	ttfFont := flag.String("f", "", "Optional TTF font file for the heading label")

	flag.Parse()

	pred, err := flowmetrics.ReadFlo(*predFile)

	if err != nil {
		log.Fatal("Error reading predicted flow: ", err)
	}

	gt, err := flowmetrics.ReadFlo(*gtFile)

	if err != nil {
		log.Fatal("Error reading groundtruth flow: ", err)
	}

	// create metrics accumulator
	m, err := flowmetrics.NewFlowMetrics(flowmetrics.DefaultFlowMetricsParams())

	if err != nil {
		log.Fatal("Error creating metrics accumulator: ", err)
	}

	err = m.Update(
		map[string]*flowmetrics.Tensor{flowmetrics.KeyFlows: pred},
		map[string]*flowmetrics.Tensor{flowmetrics.KeyFlows: gt},
	)

	if err != nil {
		log.Fatal("Error updating metrics: ", err)
	}

	results := m.Compute()

	// print metrics in stable order
	names := make([]string, 0, len(results))

	for name := range results {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		log.Printf("  %s = %.4f", name, results[name])
	}

	// render flow coloring
	flowImg, err := render.FlowToColor(gt, 0)

	if err != nil {
		log.Fatal("Error rendering flow: ", err)
	}

	defer flowImg.Close()

	label := fmt.Sprintf("EPE %.3f", results["epe"])

	if *ttfFont != "" {
		err = drawTTFLabel(&flowImg, label, *ttfFont)

		if err != nil {
			log.Fatal("Error drawing label: ", err)
		}

	} else {
		render.MetricLabel(&flowImg, label, render.DefaultFont(), render.Black)
	}

	if ok := gocv.IMWrite(*flowOut, flowImg); !ok {
		log.Fatal("Failed to save flow visualization to: ", *flowOut)
	}

	log.Println("Saved flow visualization to:", *flowOut)

	// render endpoint error heat map
	epeImg := gocv.NewMat()
	defer epeImg.Close()

	err = render.EPEHeatMap(pred, gt, gocv.ColormapHot, &epeImg)

	if err != nil {
		log.Fatal("Error rendering error heat map: ", err)
	}

	if ok := gocv.IMWrite(*epeOut, epeImg); !ok {
		log.Fatal("Failed to save error heat map to: ", *epeOut)
	}

	log.Println("Saved error heat map to:", *epeOut)
}

// drawTTFLabel renders the heading label in the top left corner of the
// image using a TTF font face
func drawTTFLabel(img *gocv.Mat, text string, fontPath string) error {

	// load font data
	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}

	// create a type face
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    TTFFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return fmt.Errorf("failed to create type face: %w", err)
	}

	// draw the text onto a transparent RGBA overlay the size of the image
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(8 * 64),
			Y: fixed.Int26_6((TTFFontSize + 8) * 64),
		},
	}
	dr.DrawString(text)

	// Convert image.RGBA to gocv.Mat
	imgRGBA, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	if imgRGBA.Empty() || err != nil {
		return fmt.Errorf("error creating Mat from RGBA")
	}

	defer imgRGBA.Close()

	gocv.CvtColor(imgRGBA, &imgRGBA, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, imgRGBA, 1.0, 0, img)

	return nil
}
