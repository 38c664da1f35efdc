package flowmetrics

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
)

// floMagic is the sanity check tag at the start of a Middlebury .flo file,
// stored as a little-endian float32
const floMagic = 202021.25

// ReadFlo reads a Middlebury .flo flow file into a (2, H, W) tensor with
// the x displacement in channel 0 and the y displacement in channel 1
func ReadFlo(file string) (*Tensor, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening flow file: %w", err)
	}

	defer f.Close()

	return DecodeFlo(bufio.NewReader(f))
}

// DecodeFlo decodes .flo data from a reader
func DecodeFlo(r io.Reader) (*Tensor, error) {

	var header struct {
		Magic  float32
		Width  int32
		Height int32
	}

	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("error reading flow header: %w", err)
	}

	if header.Magic != floMagic {
		return nil, fmt.Errorf("invalid flow file magic %f", header.Magic)
	}

	w := int(header.Width)
	h := int(header.Height)

	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid flow dimensions %dx%d", w, h)
	}

	// file stores interleaved (u, v) pairs in raster order
	raw := make([]float32, h*w*2)

	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("error reading flow data: %w", err)
	}

	flow := NewTensor(2, h, w)

	for i := 0; i < h*w; i++ {
		flow.Data[i] = raw[i*2]
		flow.Data[h*w+i] = raw[i*2+1]
	}

	return flow, nil
}

// WriteFlo writes a (2, H, W) flow tensor to a Middlebury .flo file
func WriteFlo(file string, flow *Tensor) error {

	if flow.Rank() != 3 || flow.Dim(0) != 2 {
		return fmt.Errorf("expected (2, H, W) flow tensor, got shape %v", flow.Shape)
	}

	f, err := os.Create(file)

	if err != nil {
		return fmt.Errorf("error creating flow file: %w", err)
	}

	defer f.Close()

	w := bufio.NewWriter(f)

	if err := EncodeFlo(w, flow); err != nil {
		return err
	}

	return w.Flush()
}

// EncodeFlo encodes a (2, H, W) flow tensor as .flo data
func EncodeFlo(w io.Writer, flow *Tensor) error {

	height := flow.Height()
	width := flow.Width()

	header := struct {
		Magic  float32
		Width  int32
		Height int32
	}{floMagic, int32(width), int32(height)}

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("error writing flow header: %w", err)
	}

	raw := make([]float32, height*width*2)

	for i := 0; i < height*width; i++ {
		raw[i*2] = flow.Data[i]
		raw[i*2+1] = flow.Data[height*width+i]
	}

	if err := binary.Write(w, binary.LittleEndian, raw); err != nil {
		return fmt.Errorf("error writing flow data: %w", err)
	}

	return nil
}

// ReadFlowKITTI reads a KITTI 16-bit PNG flow file, returning the flow as
// a (2, H, W) tensor and the validity mask as a (H, W) tensor.  KITTI
// stores u and v as uint16 values of flow*64 + 2^15 with the third channel
// flagging valid pixels
func ReadFlowKITTI(file string) (*Tensor, *Tensor, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, nil, fmt.Errorf("error opening flow file: %w", err)
	}

	defer f.Close()

	img, err := png.Decode(bufio.NewReader(f))

	if err != nil {
		return nil, nil, fmt.Errorf("error decoding flow png: %w", err)
	}

	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	flow := NewTensor(2, h, w)
	valid := NewTensor(h, w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {

			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			i := y*w + x
			flow.Data[i] = (float32(r) - 32768.0) / 64.0
			flow.Data[h*w+i] = (float32(g) - 32768.0) / 64.0

			if b > 0 {
				valid.Data[i] = 1
			}
		}
	}

	return flow, valid, nil
}

// WriteFlowKITTI writes a (2, H, W) flow tensor and optional (H, W)
// validity mask as a KITTI 16-bit PNG flow file.  A nil mask marks every
// pixel valid
func WriteFlowKITTI(file string, flow, valid *Tensor) error {

	if flow.Rank() != 3 || flow.Dim(0) != 2 {
		return fmt.Errorf("expected (2, H, W) flow tensor, got shape %v", flow.Shape)
	}

	h := flow.Height()
	w := flow.Width()

	img := image.NewRGBA64(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {

			i := y*w + x

			u := clampUint16(float64(flow.Data[i])*64.0 + 32768.0)
			v := clampUint16(float64(flow.Data[h*w+i])*64.0 + 32768.0)

			ok := uint16(1)
			if valid != nil && valid.Data[i] == 0 {
				ok = 0
			}

			img.SetRGBA64(x, y, rgba64(u, v, ok))
		}
	}

	f, err := os.Create(file)

	if err != nil {
		return fmt.Errorf("error creating flow file: %w", err)
	}

	defer f.Close()

	bw := bufio.NewWriter(f)

	if err := png.Encode(bw, img); err != nil {
		return fmt.Errorf("error encoding flow png: %w", err)
	}

	return bw.Flush()
}

func rgba64(r, g, b uint16) color.RGBA64 {
	return color.RGBA64{R: r, G: g, B: b, A: 65535}
}

func clampUint16(v float64) uint16 {

	v = math.Round(v)

	if v < 0 {
		return 0
	}

	if v > 65535 {
		return 65535
	}

	return uint16(v)
}
