package lowering

import (
	"github.com/robotseye/ethos-n-driver-stack/graph"
	"github.com/robotseye/ethos-n-driver-stack/hw"
	"github.com/robotseye/ethos-n-driver-stack/network"
	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

// fcWeightChannelAlignment is the input-channel granularity required by the
// fully connected weight encoder.
const fcWeightChannelAlignment = 1024

// shapeContainingLinearElements returns the smallest 4-D shape that covers
// numElements linear elements when interpreted in the brick format.
//
// Less than one brick of elements fits a single patch in XY with up to a
// brick group's channels. Between one and two bricks needs a column of two
// patches at full channel depth, since the first brick is full. Between two
// and four bricks needs a full brick group. Beyond that, brick groups stack
// along depth; the final group may hold fewer channels when its last brick
// is partial.
func shapeContainingLinearElements(brickGroupShape tensor.Shape, numElements int) tensor.Shape {
	brickGroupHeight := brickGroupShape.Height()
	brickGroupWidth := brickGroupShape.Width()
	brickGroupChannels := brickGroupShape.Channels()
	patchesPerBrickGroupHeight := brickGroupHeight / hw.PatchHeight
	patchesPerBrickGroupWidth := brickGroupWidth / hw.PatchWidth
	patchesPerBrickGroup := patchesPerBrickGroupHeight * patchesPerBrickGroupWidth * brickGroupChannels

	numPatches := tensor.DivRoundUp(numElements, hw.PatchWidth*hw.PatchHeight)

	width := hw.PatchWidth
	if numPatches > brickGroupChannels*patchesPerBrickGroupHeight {
		width = brickGroupWidth
	}
	height := hw.PatchHeight
	if numPatches > brickGroupChannels {
		height = brickGroupHeight
	}

	numFullBrickGroups := numPatches / patchesPerBrickGroup
	remainder := numPatches % patchesPerBrickGroup
	if remainder > brickGroupChannels {
		remainder = brickGroupChannels
	}
	channels := brickGroupChannels*numFullBrickGroups + remainder

	return tensor.Shape{1, height, width, channels}
}

func (c *Converter) lowerFullyConnected(op *network.FullyConnected) error {
	var nodes []*graph.Node
	inInfo := op.Inputs()[0].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()

	// The input must be NHWC in DRAM.
	if c.operandToNode[op.Inputs()[0]].Format() != graph.FormatNHWC {
		nodes = append(nodes, c.graph.AddFormatConversion(inInfo.Shape, inInfo.Quantization,
			graph.FormatNHWC, op.ID()))
	}

	// Reinterpret the flattened input as a brick-format tensor so it is
	// copied into SRAM without conversion.
	reinterpreted := shapeContainingLinearElements(c.caps.BrickGroupShape(), inInfo.Shape.Channels())
	nodes = append(nodes, c.graph.AddReinterpret(reinterpreted, inInfo.Quantization,
		graph.FormatNHWCB, op.ID()))

	// The weight encoder requires the input-channel dimension to be a
	// multiple of 1024; pad the buffer here with the zero-point value rather
	// than complicating the encoder.
	weightsInfo := op.Weights().Info
	weightsInfo.Shape[2] = tensor.RoundUpToNearestMultiple(weightsInfo.Shape[2], fcWeightChannelAlignment)
	paddedWeights := tensor.Pad(op.Weights().Data, weightsInfo.TotalBytes(),
		byte(weightsInfo.Quantization.ZeroPoint))

	fc := c.graph.AddMceOperation(graph.MceAttributes{
		InputShape:    inInfo.Shape,
		WeightsInfo:   weightsInfo,
		WeightsData:   paddedWeights,
		BiasInfo:      op.Bias().Info,
		BiasData:      op.Bias().Data,
		StrideX:       1,
		StrideY:       1,
		UpscaleFactor: 1,
		Operation:     graph.MceFullyConnected,
	}, outInfo.Shape, outInfo.Quantization, graph.FormatNHWCB, op.ID())
	nodes = append(nodes, fc)

	return c.connectNodeChain(op, nodes)
}
