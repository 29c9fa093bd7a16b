// Package hw describes the geometry of the target NPU that the lowering
// stage needs to query: the brick-group tile in which tensors are stored in
// the compact layout, the patch tile used by the MCE, and the number of SRAM
// banks the DMA spreads channels across.
package hw

import (
	"fmt"

	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

const (
	// PatchHeight and PatchWidth are the fixed spatial extent of one patch.
	PatchHeight = 4
	PatchWidth  = 4
)

// Capabilities is the capability descriptor for one hardware configuration.
// It is immutable after construction and shared read-only by the lowering
// pass.
type Capabilities struct {
	brickGroupShape tensor.Shape
	numberOfSrams   int
}

// New creates a capability descriptor from a brick-group shape and an SRAM
// bank count.
func New(brickGroupShape tensor.Shape, numberOfSrams int) (*Capabilities, error) {
	if brickGroupShape.Height()%PatchHeight != 0 || brickGroupShape.Width()%PatchWidth != 0 {
		return nil, fmt.Errorf("brick group shape %s is not a multiple of the %dx%d patch",
			brickGroupShape, PatchHeight, PatchWidth)
	}
	if numberOfSrams <= 0 {
		return nil, fmt.Errorf("number of SRAM banks must be positive, got %d", numberOfSrams)
	}
	return &Capabilities{brickGroupShape: brickGroupShape, numberOfSrams: numberOfSrams}, nil
}

// Default returns the capability descriptor for the standard configuration:
// 8x8 spatial brick group, 16 channels, 16 SRAM banks.
func Default() *Capabilities {
	caps, err := New(tensor.Shape{1, 8, 8, 16}, 16)
	if err != nil {
		panic(err)
	}
	return caps
}

// BrickGroupShape returns the brick-group tile shape in NHWC order.
func (c *Capabilities) BrickGroupShape() tensor.Shape {
	return c.brickGroupShape
}

// NumberOfSrams returns the number of SRAM banks.
func (c *Capabilities) NumberOfSrams() int {
	return c.numberOfSrams
}

// SubmapChannels returns the channel count of the interleaved tensor that
// replaces a strided convolution input. The input is rearranged into
// strideX*strideY sub-sampled channel groups; every group except the last is
// padded up to the SRAM bank count because the firmware copies submaps with
// that granularity.
func (c *Capabilities) SubmapChannels(channels, strideX, strideY int) int {
	if channels%c.numberOfSrams == 0 {
		return channels * strideX * strideY
	}
	return tensor.RoundUpToNearestMultiple(channels, c.numberOfSrams)*(strideX*strideY-1) + channels
}
