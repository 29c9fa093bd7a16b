package lowering

import (
	"github.com/pkg/errors"

	"github.com/robotseye/ethos-n-driver-stack/graph"
	"github.com/robotseye/ethos-n-driver-stack/network"
	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

// maxFusedUpscaleKernel is the largest kernel extent the MCE can combine
// with upscaling in a single pass.
const maxFusedUpscaleKernel = 7

// transposeConvNodes builds the node chain implementing a transpose
// convolution as upscaling plus an ordinary convolution. The transpose
// stride is the upscale factor; the convolution underneath always runs with
// unit stride.
//
// The user-specified padding crops the conceptual output of the transpose
// convolution rather than padding its input. For the zero-crop case the
// internal convolution needs kernel_size - 1 padding, so that sliding the
// kernel over the upscaled-and-padded input makes the first stride-many
// output elements depend only on the first input value. Cropping shrinks
// that region, so the internal padding decreases by the same amount:
//
//	internal padding = kernel_size - 1 - original padding
func (c *Converter) transposeConvNodes(stride network.Stride, weightsInfo tensor.Info,
	weightsData []byte, biasInfo tensor.Info, biasData []int32, padding network.Padding,
	inputInfo, outputInfo tensor.Info, sourceID uint32) ([]*graph.Node, error) {

	if stride.X != stride.Y {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration,
			"transpose convolution upscale factors differ: %dx%d", stride.X, stride.Y)
	}
	upscaleFactor := stride.X

	kernelH := weightsInfo.Shape[0]
	kernelW := weightsInfo.Shape[1]
	padTop := kernelH - 1 - padding.Top
	padLeft := kernelW - 1 - padding.Left
	if padTop < 0 || padLeft < 0 {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration,
			"transpose convolution crop exceeds kernel extent: pad %dx%d kernel %dx%d",
			padding.Top, padding.Left, kernelH, kernelW)
	}

	var nodes []*graph.Node
	inputShape := inputInfo.Shape

	// Upscaling cannot be fused with a large kernel, so run it first as a
	// separate identity depthwise pass and let the main convolution run
	// without upscaling.
	if kernelH > maxFusedUpscaleKernel || kernelW > maxFusedUpscaleKernel {
		intermediateShape := tensor.Shape{
			inputShape.Batch(),
			inputShape.Height() * upscaleFactor,
			inputShape.Width() * upscaleFactor,
			inputShape.Channels(),
		}

		numIfm := inputShape.Channels()
		// Weight value 2 at scale 0.5 gives an overall multiplier of
		// exactly 1 while keeping the hardware multiplier below 1.0.
		const weightScale = 0.5
		biasScale := weightScale * inputInfo.Quantization.Scale

		identityWeights := make([]byte, numIfm)
		for i := range identityWeights {
			identityWeights[i] = 2
		}
		identityBias := make([]int32, numIfm)

		identityWeightsInfo := tensor.Info{
			Shape:        tensor.Shape{1, 1, numIfm, 1},
			DataType:     tensor.UInt8Quantized,
			Format:       tensor.HWIM,
			Quantization: tensor.QuantizationInfo{ZeroPoint: 0, Scale: weightScale},
		}
		identityBiasInfo := tensor.Info{
			Shape:        tensor.Shape{1, 1, 1, numIfm},
			DataType:     tensor.Int32Quantized,
			Format:       tensor.NHWC,
			Quantization: tensor.QuantizationInfo{ZeroPoint: 0, Scale: biasScale},
		}

		upscale := c.graph.AddMceOperation(graph.MceAttributes{
			InputShape:    inputShape,
			WeightsInfo:   identityWeightsInfo,
			WeightsData:   identityWeights,
			BiasInfo:      identityBiasInfo,
			BiasData:      identityBias,
			StrideX:       1,
			StrideY:       1,
			UpscaleFactor: upscaleFactor,
			Operation:     graph.MceDepthwiseConvolution,
		}, intermediateShape, inputInfo.Quantization, graph.FormatNHWCB, sourceID)
		nodes = append(nodes, upscale)

		upscaleFactor = 1
		inputShape = intermediateShape
	}

	// Sliding a spatially flipped kernel over the upscaled-and-padded input
	// reproduces transpose convolution semantics exactly.
	flippedWeights := tensor.Rotate180(weightsData, weightsInfo.Shape)

	conv := c.graph.AddMceOperation(graph.MceAttributes{
		InputShape:    inputShape,
		WeightsInfo:   weightsInfo,
		WeightsData:   flippedWeights,
		BiasInfo:      biasInfo,
		BiasData:      biasData,
		StrideX:       1,
		StrideY:       1,
		UpscaleFactor: upscaleFactor,
		PadTop:        padTop,
		PadLeft:       padLeft,
		Operation:     graph.MceConvolution,
	}, outputInfo.Shape, outputInfo.Quantization, graph.FormatNHWCB, sourceID)
	nodes = append(nodes, conv)

	return nodes, nil
}

func (c *Converter) lowerTransposeConvolution(op *network.TransposeConvolution) error {
	inInfo := op.Inputs()[0].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()
	convInfo := op.ConvolutionInfo()

	level := c.queries.TransposeConvolutionSupported(op.Bias().Info, op.Weights().Info, convInfo, inInfo)
	if level == EstimateOnly {
		return c.connectNode(op, c.estimateOnlyNode(op))
	}

	nodes, err := c.transposeConvNodes(convInfo.Stride, op.Weights().Info, op.Weights().Data,
		op.Bias().Info, op.Bias().Data, convInfo.Padding, inInfo, outInfo, op.ID())
	if err != nil {
		return err
	}
	return c.connectNodeChain(op, nodes)
}

// lowerDepthToSpace implements depth-to-space (block size 2) as a transpose
// convolution with stride and kernel size equal to the block size, where
// one-hot weight vectors select which input channel lands in each of the
// block positions. Input channels are expected pre-arranged so that all
// top-left elements come first, then top-right, bottom-left and
// bottom-right: the channels feeding output channel o start at index o and
// are separated by inputChannels / blockSize^2.
func (c *Converter) lowerDepthToSpace(op *network.DepthToSpace) error {
	blockSize := op.DepthToSpaceInfo().BlockSize
	if blockSize != 2 {
		return errors.Wrapf(ErrUnsupportedConfiguration,
			"depth-to-space block size %d has no lowering", blockSize)
	}
	ifmChannelsPerOfm := blockSize * blockSize

	inInfo := op.Inputs()[0].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()
	inputChannels := inInfo.Shape.Channels()
	outputChannels := outInfo.Shape.Channels()

	// A weight scale of 1.0 would push the overall multiplier to 1 or
	// above, so use 0.5 and store 1/0.5 for the selected positions.
	const weightsScale = 0.5
	weightsInfo := tensor.Info{
		Shape:        tensor.Shape{blockSize, blockSize, inputChannels, outputChannels},
		DataType:     tensor.UInt8Quantized,
		Format:       tensor.HWIO,
		Quantization: tensor.QuantizationInfo{ZeroPoint: 0, Scale: weightsScale},
	}
	weightsData := make([]byte, weightsInfo.Shape.NumElements())
	ifmStride := inputChannels / ifmChannelsPerOfm
	for ofmIdx := 0; ofmIdx < outputChannels; ofmIdx++ {
		for v := 0; v < blockSize; v++ {
			for u := 0; u < blockSize; u++ {
				ifmIdx := ofmIdx + (v*blockSize+u)*ifmStride
				offset := tensor.ElementOffset(weightsInfo.Shape, v, u, ifmIdx, ofmIdx)
				weightsData[offset] = byte(1.0 / weightsScale)
			}
		}
	}

	biasInfo := tensor.Info{
		Shape:        tensor.Shape{1, 1, 1, outputChannels},
		DataType:     tensor.Int32Quantized,
		Format:       tensor.NHWC,
		Quantization: tensor.QuantizationInfo{ZeroPoint: 0, Scale: weightsScale * inInfo.Quantization.Scale},
	}
	biasData := make([]int32, outputChannels)

	nodes, err := c.transposeConvNodes(network.Stride{X: blockSize, Y: blockSize},
		weightsInfo, weightsData, biasInfo, biasData, network.Padding{}, inInfo, outInfo, op.ID())
	if err != nil {
		return err
	}
	return c.connectNodeChain(op, nodes)
}
