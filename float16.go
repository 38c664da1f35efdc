package flowmetrics

import (
	"encoding/binary"
	"fmt"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// TensorFromFloat16 decodes a little-endian float16 output buffer, as
// produced by inference runtimes running half precision models, into a
// float32 tensor of the given shape
func TensorFromFloat16(raw []byte, shape ...int) (*Tensor, error) {

	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("float16 buffer length %d is not a multiple of 2", len(raw))
	}

	size := 1

	for _, s := range shape {
		size *= s
	}

	if len(raw)/2 != size {
		return nil, fmt.Errorf("float16 buffer holds %d values, shape %v needs %d",
			len(raw)/2, shape, size)
	}

	data := make([]float32, size)

	for i := 0; i < size; i++ {
		bits := binary.LittleEndian.Uint16(raw[i*2:])
		data[i] = f16LookupTable[bits]
	}

	return TensorFromData(data, shape...)
}
