package lowering

import (
	"github.com/pkg/errors"

	"github.com/robotseye/ethos-n-driver-stack/graph"
	"github.com/robotseye/ethos-n-driver-stack/network"
	"github.com/robotseye/ethos-n-driver-stack/tensor"
)

// interleaveNode builds the PLE pre-pass that rearranges a strided
// convolution's input into stride*stride sub-sampled channel groups, so the
// convolution underneath can run with unit stride. Only 2x2 striding has a
// hardware kernel.
func (c *Converter) interleaveNode(inputInfo tensor.Info, stride network.Stride, sourceID uint32) (*graph.Node, error) {
	if stride.X != 2 || stride.Y != 2 {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration,
			"strided convolution requires stride 2x2, got %dx%d", stride.X, stride.Y)
	}

	shape := tensor.Shape{
		inputInfo.Shape.Batch(),
		tensor.DivRoundUp(inputInfo.Shape.Height(), stride.Y),
		tensor.DivRoundUp(inputInfo.Shape.Width(), stride.X),
		c.caps.SubmapChannels(inputInfo.Shape.Channels(), stride.X, stride.Y),
	}
	multiplier := graph.ShapeMultiplier{
		H: graph.Fraction{Num: 1, Denom: stride.Y},
		W: graph.Fraction{Num: 1, Denom: stride.X},
		C: graph.Fraction{Num: stride.X * stride.Y, Denom: 1},
	}

	return c.graph.AddFuseOnlyPle(shape, inputInfo.Quantization, graph.PleInterleave2x2_2_2,
		multiplier, graph.FormatNHWCB, sourceID), nil
}

func (c *Converter) lowerConvolution(op *network.Convolution) error {
	inInfo := op.Inputs()[0].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()
	convInfo := op.ConvolutionInfo()

	level := c.queries.ConvolutionSupported(op.Bias().Info, op.Weights().Info, convInfo, inInfo)
	if level == EstimateOnly {
		return c.connectNode(op, c.estimateOnlyNode(op))
	}

	var nodes []*graph.Node
	if convInfo.Stride.X > 1 || convInfo.Stride.Y > 1 {
		interleave, err := c.interleaveNode(inInfo, convInfo.Stride, op.ID())
		if err != nil {
			return err
		}
		nodes = append(nodes, interleave)
	}

	conv := c.graph.AddMceOperation(graph.MceAttributes{
		InputShape:    inInfo.Shape,
		WeightsInfo:   op.Weights().Info,
		WeightsData:   op.Weights().Data,
		BiasInfo:      op.Bias().Info,
		BiasData:      op.Bias().Data,
		StrideX:       convInfo.Stride.X,
		StrideY:       convInfo.Stride.Y,
		UpscaleFactor: 1,
		PadTop:        convInfo.Padding.Top,
		PadLeft:       convInfo.Padding.Left,
		Operation:     graph.MceConvolution,
	}, outInfo.Shape, outInfo.Quantization, graph.FormatNHWCB, op.ID())
	nodes = append(nodes, conv)

	return c.connectNodeChain(op, nodes)
}

func (c *Converter) lowerDepthwiseConvolution(op *network.DepthwiseConvolution) error {
	inInfo := op.Inputs()[0].TensorInfo()
	outInfo := op.Outputs()[0].TensorInfo()
	convInfo := op.ConvolutionInfo()

	level := c.queries.DepthwiseConvolutionSupported(op.Bias().Info, op.Weights().Info, convInfo, inInfo)
	if level == EstimateOnly {
		return c.connectNode(op, c.estimateOnlyNode(op))
	}

	var nodes []*graph.Node
	if convInfo.Stride.X > 1 || convInfo.Stride.Y > 1 {
		interleave, err := c.interleaveNode(inInfo, convInfo.Stride, op.ID())
		if err != nil {
			return err
		}
		nodes = append(nodes, interleave)
	}

	// A channel multiplier above 1 is only legal with a single input
	// channel, where depthwise is mathematically an ordinary convolution, so
	// relabel the weights and lower it as one.
	weightsInfo := op.Weights().Info
	operation := graph.MceDepthwiseConvolution
	if weightsInfo.Shape[3] > 1 {
		if weightsInfo.Shape[2] != 1 {
			return errors.Wrapf(ErrUnsupportedConfiguration,
				"depthwise channel multiplier %d requires a single input channel, got %d",
				weightsInfo.Shape[3], weightsInfo.Shape[2])
		}
		weightsInfo.Format = tensor.HWIO
		operation = graph.MceConvolution
	}

	conv := c.graph.AddMceOperation(graph.MceAttributes{
		InputShape:    inInfo.Shape,
		WeightsInfo:   weightsInfo,
		WeightsData:   op.Weights().Data,
		BiasInfo:      op.Bias().Info,
		BiasData:      op.Bias().Data,
		StrideX:       convInfo.Stride.X,
		StrideY:       convInfo.Stride.Y,
		UpscaleFactor: 1,
		PadTop:        convInfo.Padding.Top,
		PadLeft:       convInfo.Padding.Left,
		Operation:     operation,
	}, outInfo.Shape, outInfo.Quantization, graph.FormatNHWCB, op.ID())
	nodes = append(nodes, conv)

	return c.connectNodeChain(op, nodes)
}
